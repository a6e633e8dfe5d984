package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Producer publishes settled reconciliation outcomes for downstream
// fulfilment (stock, mailing, the sales report job).
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokersSTR, topic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func (p *Producer) PublishOutcome(ctx context.Context, out *domain.Outcome) error {
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(out.OrderID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}
