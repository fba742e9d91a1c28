package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrTopicNotReady means the topic never reported partitions within the
// wait budget. The simulator can still start; the writer will retry.
var ErrTopicNotReady = errors.New("topic did not become ready")

// TopicSpec describes the tick topic to provision. Partition count comes
// from config so the processor's worker sharding can be sized to match.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// TopicCreator provisions the tick topic before publishing starts.
// Creation is best-effort: an already-existing topic is fine, only
// readiness is verified.
type TopicCreator struct {
	logger *zap.Logger
	dialer KafkaDialer
	clock  Clock

	waitAttempts int
	waitBackoff  time.Duration
}

func NewTopicCreator(logger *zap.Logger, dialer KafkaDialer, clock Clock) *TopicCreator {
	return &TopicCreator{
		logger:       logger,
		dialer:       dialer,
		clock:        clock,
		waitAttempts: 5,
		waitBackoff:  200 * time.Millisecond,
	}
}

func (tc *TopicCreator) Create(ctx context.Context, brokers []string, spec TopicSpec) error {
	conn, err := tc.dialAny(ctx, brokers)
	if err != nil {
		return fmt.Errorf("dial brokers: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("resolve controller: %w", err)
	}

	controllerConn, err := tc.dialer.DialContext(ctx, "tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil {
		// Brokers answer a duplicate create with an error; readiness below
		// is what actually matters
		tc.logger.Info("Topic create returned", zap.String("topic", spec.Name), zap.Error(err))
	}

	return tc.waitReady(conn, spec.Name)
}

// dialAny returns the first broker that answers.
func (tc *TopicCreator) dialAny(ctx context.Context, brokers []string) (KafkaConn, error) {
	var lastErr error
	for _, addr := range brokers {
		conn, err := tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (tc *TopicCreator) waitReady(conn KafkaConn, topic string) error {
	for i := 0; i < tc.waitAttempts; i++ {
		tc.clock.Sleep(tc.waitBackoff)
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("Topic is ready",
				zap.String("topic", topic),
				zap.Int("partitions", len(partitions)))
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTopicNotReady, topic)
}
