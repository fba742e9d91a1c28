package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/simulator/internal/simulator"
	"github.com/Muhsin-Gun/aurora/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.App)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	clock := simulator.RealClock{}
	rnd := simulator.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}

	// Ensure the tick topic exists before publishing
	creator := simulator.NewTopicCreator(logger, &simulator.RealKafkaDialer{Dialer: kafka.DefaultDialer}, clock)
	err = creator.Create(context.Background(), cfg.Kafka.Brokers, simulator.TopicSpec{
		Name:              cfg.Kafka.Topic,
		Partitions:        cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	})
	if err != nil {
		// Non-fatal: the writer retries and the broker may still converge
		logger.Warn("Topic provisioning incomplete", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
		// Batches keep the 100ms cadence off the network hot path
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}

	sim := simulator.New(logger, cfg.Simulator.Symbols, cfg.Simulator.TickInterval, rnd, clock)
	sink := simulator.NewKafkaSink(logger, writer)
	sim.Subscribe(sink.Publish)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go sim.Run(ctx)

	<-sigChan
	logger.Info("Shutdown signal received")
	cancel()

	// Flush buffered messages before exit
	if err := writer.Close(); err != nil {
		logger.Error("Error closing Kafka writer", zap.Error(err))
	} else {
		logger.Info("Kafka writer closed cleanly")
	}
}
