package ports

import (
	"context"
	"errors"
	"time"

	"gold_debts/internal/models"
)

// ErrStateNotFound is returned by a RemoteStore that holds no usable state
// document yet.
var ErrStateNotFound = errors.New("remote state not found")

// LocalStore is the on-disk cache of the debt collection. Load returns the
// raw decoded elements so the caller can repair them.
type LocalStore interface {
	Load(ctx context.Context) ([]any, error)
	Save(ctx context.Context, debts []models.Debt) error
}

// RemoteStore holds the authoritative copy of the collection as one document.
type RemoteStore interface {
	Name() string
	Load(ctx context.Context) ([]any, error)
	Save(ctx context.Context, debts []models.Debt, updatedAt time.Time) error
}
