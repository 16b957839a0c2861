package state

import (
	"context"
	"errors"
	"time"

	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerStore fails fast while the wrapped remote keeps failing, instead of
// paying a server selection timeout on every request.
type BreakerStore struct {
	next ports.RemoteStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerStore(next ports.RemoteStore, logger *zap.Logger) *BreakerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerStore{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "remote-" + next.Name(),
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			// an empty remote or a caller that gave up says nothing about its health
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, ports.ErrStateNotFound) ||
					errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("remote circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *BreakerStore) Name() string { return b.next.Name() }

func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func (b *BreakerStore) Load(ctx context.Context) ([]any, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	list, _ := v.([]any)
	return list, nil
}

func (b *BreakerStore) Save(ctx context.Context, debts []models.Debt, updatedAt time.Time) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Save(ctx, debts, updatedAt)
	})
	return err
}
