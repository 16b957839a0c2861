package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRemote struct {
	err   error
	calls int
}

func (c *countingRemote) Name() string { return "fake" }

func (c *countingRemote) Load(context.Context) ([]any, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []any{}, nil
}

func (c *countingRemote) Save(context.Context, []models.Debt, time.Time) error {
	c.calls++
	return c.err
}

func TestBreakerStore_OpensAfterRepeatedFailures(t *testing.T) {
	remote := &countingRemote{err: errors.New("server selection timeout")}
	b := NewBreakerStore(remote, nil)

	for i := 0; i < 5; i++ {
		_, err := b.Load(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Save(context.Background(), nil, time.Now())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, remote.calls, "open breaker must not reach the remote")
}

func TestBreakerStore_MissingStateDoesNotTrip(t *testing.T) {
	remote := &countingRemote{err: ports.ErrStateNotFound}
	b := NewBreakerStore(remote, nil)

	for i := 0; i < 10; i++ {
		_, err := b.Load(context.Background())
		assert.ErrorIs(t, err, ports.ErrStateNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 10, remote.calls)
}

func TestBreakerStore_PassesThroughResults(t *testing.T) {
	remote := &countingRemote{}
	b := NewBreakerStore(remote, nil)

	list, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Equal(t, "fake", b.Name())
	require.NoError(t, b.Save(context.Background(), []models.Debt{{ID: "1"}}, time.Now()))
}
