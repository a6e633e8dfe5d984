package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/feriapapel/orders-service/internal/application"
	"github.com/feriapapel/orders-service/internal/domain"
	"github.com/feriapapel/orders-service/internal/logger"
	"github.com/feriapapel/orders-service/internal/repository"
	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

// Notification is a gateway webhook delivery enqueued by the edge proxy when
// the service was unreachable. Replaying it through Confirm is safe: the
// idempotency guard keeps a settled order untouched.
type Notification struct {
	Gateway string `json:"gateway"`
	Token   string `json:"token"`
	OrderID string `json:"order_id,omitempty"`
}

type Reconciler interface {
	Confirm(ctx context.Context, token, knownOrderID string) (*domain.Outcome, error)
}

func StartConsumer(ctx context.Context, reconcilers map[string]Reconciler, cfg ConsumerConfig) (*kafka.Reader, error) {
	brokers := strings.Split(cfg.Brokers, ",")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	go func() {
		defer r.Close()

		backoff := time.Millisecond * 300
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka fetch error", "err", err)
				time.Sleep(backoff)
				continue
			}

			var n Notification
			if err = json.Unmarshal(m.Value, &n); err != nil {
				logger.Warn("kafka invalid json. skip and commit", "err", err)
				_ = r.CommitMessages(ctx, m)
				continue
			}

			rec, ok := reconcilers[n.Gateway]
			if !ok || n.Token == "" {
				logger.Warn("notification unusable, skip and commit", "gateway", n.Gateway)
				_ = r.CommitMessages(ctx, m)
				continue
			}

			if _, err = rec.Confirm(ctx, n.Token, n.OrderID); err != nil {
				if errors.Is(err, repository.ErrOrderNotFound) || errors.Is(err, application.ErrMissingReference) {
					// replaying cannot fix a bad reference
					logger.Warn("notification unreconcilable, skip and commit", "token", n.Token, "err", err)
					_ = r.CommitMessages(ctx, m)
					continue
				}
				// Committing anyway would lose the delivery; leaving it
				// uncommitted replays it on the next fetch.
				logger.Warn("notification reconcile failed, will retry", "token", n.Token, "err", err)
				time.Sleep(backoff)
				continue
			}

			if err := r.CommitMessages(ctx, m); err != nil {
				logger.Warn("[kafka] commit failed", "err", err)
			} else {
				logger.Info("[kafka] committed", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "token", n.Token)
			}
		}
	}()
	return r, nil
}
