package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/processor/internal/processor"
	"github.com/Muhsin-Gun/aurora/cmd/processor/internal/testutils"
	"github.com/Muhsin-Gun/aurora/pkg/config"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

func TestProcessor_EndToEnd_Flow(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	quote := models.Quote{Symbol: "XAUUSD", Price: 2642.10, SeqID: 100, LastUpdate: 6_000_000}
	val, _ := json.Marshal(quote)

	msgs := []kafka.Message{
		{Key: []byte("XAUUSD"), Value: val},
	}
	// Mock reader: spinning up real Kafka is too heavy for this level
	mockReader := &testutils.MockKafkaReader{Messages: msgs}

	cfg := &config.Config{}
	cfg.Processor.NumWorkers = 1
	cfg.Candles.BucketMs = 60_000
	cfg.Candles.Capacity = 100

	proc := processor.NewProcessor(cfg, zap.NewNop(), rdb, mockReader)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(done)
	}()

	// Poll until the key appears (processing is async)
	success := false
	for i := 0; i < 10; i++ {
		if mr.Exists("quote:XAUUSD") {
			success = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !success {
		t.Fatal("Processor did not write quote:XAUUSD to Redis")
	}

	savedVal, _ := mr.Get("quote:XAUUSD")
	if savedVal != string(val) {
		t.Errorf("Redis value mismatch.\nGot:  %s\nWant: %s", savedVal, string(val))
	}

	windowJSON, err := mr.Get("candles:XAUUSD")
	if err != nil {
		t.Fatalf("Candle window missing: %v", err)
	}
	var window []models.Candle
	if err := json.Unmarshal([]byte(windowJSON), &window); err != nil {
		t.Fatalf("Invalid candle window JSON: %v", err)
	}
	if len(window) == 0 {
		t.Fatal("Candle window should not be empty")
	}
	if window[len(window)-1].Close != 2642.10 {
		t.Errorf("Expected live bucket close 2642.10, got %v", window[len(window)-1].Close)
	}

	cancel()
	<-done
}
