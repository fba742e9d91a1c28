package tests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/simulator/internal/simulator"
	"github.com/Muhsin-Gun/aurora/cmd/simulator/internal/testutils"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

func TestSimulator_ComponentWiring(t *testing.T) {
	// This test simulates the "Main" loop but with a fake output

	logger := zap.NewNop()
	mockWriter := &testutils.MockKafkaWriter{}

	// MockClock.Sleep just advances time, so the loop runs as fast as the
	// CPU allows
	mockClock := &testutils.MockClock{CurrentTime: time.Now()}
	mockRand := &testutils.MockRand{Values: []float64{0.9}}

	symbols := []string{"EURUSD", "BTCUSD"}

	sim := simulator.New(logger, symbols, 100*time.Millisecond, mockRand, mockClock)
	sink := simulator.NewKafkaSink(logger, mockWriter)
	sim.Subscribe(sink.Publish)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond) // Let it generate a few
		cancel()
	}()

	sim.Run(ctx)

	mockWriter.Mu.Lock()
	defer mockWriter.Mu.Unlock()

	if len(mockWriter.Messages) == 0 {
		t.Fatal("Simulator failed to produce any messages in component test")
	}

	// Every tick publishes the whole snapshot, so both symbols must appear
	seen := map[string]bool{}
	for _, msg := range mockWriter.Messages {
		seen[string(msg.Key)] = true

		var q models.Quote
		if err := json.Unmarshal(msg.Value, &q); err != nil {
			t.Fatalf("Message payload is not a quote: %v", err)
		}
		if q.Symbol != string(msg.Key) {
			t.Errorf("Message key %s does not match payload symbol %s", msg.Key, q.Symbol)
		}
		if q.SeqID == 0 {
			t.Errorf("Published quote missing sequence number")
		}
	}
	for _, sym := range symbols {
		if !seen[sym] {
			t.Errorf("Symbol %s never published", sym)
		}
	}
}
