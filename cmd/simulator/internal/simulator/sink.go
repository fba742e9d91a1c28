package simulator

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/pkg/models"
)

// KafkaSink publishes every symbol of each snapshot as one message keyed by
// symbol, so partition ordering holds per instrument.
type KafkaSink struct {
	logger *zap.Logger
	writer KafkaWriter
}

func NewKafkaSink(logger *zap.Logger, writer KafkaWriter) *KafkaSink {
	return &KafkaSink{logger: logger, writer: writer}
}

// Publish is wired as a Simulator subscriber.
func (k *KafkaSink) Publish(snapshot map[string]models.Quote) {
	msgs := make([]kafka.Message, 0, len(snapshot))
	for sym, quote := range snapshot {
		payload, err := json.Marshal(quote)
		if err != nil {
			k.logger.Error("JSON Marshal Error", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(sym),
			Value: payload,
		})
	}

	if err := k.writer.WriteMessages(context.Background(), msgs...); err != nil {
		k.logger.Error("Kafka Write Error", zap.Error(err))
	}
}
