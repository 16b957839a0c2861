// Package syncer reconciles the local cache with the remote source of truth.
//
// Reads go remote first and fall back to the local cache; every record is
// repaired and clamped on the way out. Writes land in the local cache
// synchronously and are then pushed to the remote on a best-effort basis.
// All mutations in the process pass through one writer lock.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"gold_debts/internal/ledger"
	"gold_debts/internal/models"
	"gold_debts/internal/observability"
	"gold_debts/internal/ports"
	"gold_debts/internal/repository/cache"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Mode string

const (
	// ModeAsync pushes to the remote in the background after the local write.
	ModeAsync Mode = "async"
	// ModeSync awaits the remote write inside the mutation.
	ModeSync Mode = "sync"
)

const DefaultWriteTimeout = 15 * time.Second

var ErrRemoteDisabled = errors.New("remote store is not configured")

type Options struct {
	Mode         Mode
	WriteTimeout time.Duration
}

// MutateFunc receives a freshly loaded collection and returns the collection
// to commit together with the id of the debt it changed ("" for bulk changes).
type MutateFunc func(debts []models.Debt) ([]models.Debt, string, error)

type Orchestrator struct {
	local   ports.LocalStore
	remote  ports.RemoteStore
	logger  *zap.Logger
	metrics *observability.Metrics
	opts    Options

	reads singleflight.Group

	writeMu sync.Mutex

	remoteMu      sync.Mutex
	seq           atomic.Uint64
	lastAttempted uint64 // guarded by remoteMu

	pending atomic.Int64
	bg      sync.WaitGroup
}

// New wires the orchestrator. remote may be nil for a local-only setup.
func New(local ports.LocalStore, remote ports.RemoteStore, logger *zap.Logger, metrics *observability.Metrics, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeAsync
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Orchestrator{
		local:   local,
		remote:  remote,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

func (o *Orchestrator) RemoteName() string {
	if o.remote == nil {
		return "none"
	}
	return o.remote.Name()
}

// LoadCollection always returns a normalized, clamped collection, whatever
// the state of either store.
func (o *Orchestrator) LoadCollection(ctx context.Context) []models.Debt {
	raw, fromRemote := o.loadRaw(ctx)
	debts := ledger.NormalizeDebts(raw)

	switch {
	case fromRemote:
		if err := o.local.Save(ctx, debts); err != nil {
			o.logger.Error("mirror remote state to local cache failed", zap.Error(err))
		}
	case !reflect.DeepEqual(ledger.ToGeneric(debts), any(raw)):
		if err := o.local.Save(ctx, debts); err != nil {
			o.logger.Error("self-heal local cache failed", zap.Error(err))
			break
		}
		o.metrics.SelfHeal()
		o.logger.Info("local cache rewritten in normalized form", zap.Int("debts", len(debts)))
	}
	return debts
}

func (o *Orchestrator) loadRaw(ctx context.Context) ([]any, bool) {
	// background pushes still pending mean the local copy is the newest one
	if o.remote != nil && o.pending.Load() == 0 {
		v, err, _ := o.reads.Do("remote", func() (any, error) {
			return o.remote.Load(ctx)
		})
		if err == nil {
			o.metrics.RemoteRead("ok")
			list, _ := v.([]any)
			if list == nil {
				list = []any{}
			}
			return list, true
		}

		if errors.Is(err, ports.ErrStateNotFound) {
			o.metrics.RemoteRead("empty")
			o.logger.Info("remote holds no state yet, reading local cache",
				zap.String("remote", o.remote.Name()), zap.Error(err))
		} else {
			o.metrics.RemoteRead("error")
			o.logger.Warn("remote read failed, reading local cache",
				zap.String("remote", o.remote.Name()), zap.Error(err))
		}
		o.metrics.LocalFallback()
	}

	list, err := o.local.Load(ctx)
	if err != nil {
		var corrupt *cache.CorruptError
		if errors.As(err, &corrupt) {
			o.logger.Error("local cache is corrupt, continuing with an empty collection",
				zap.String("path", corrupt.Path), zap.Error(err))
		} else {
			o.logger.Error("local cache unreadable, continuing with an empty collection", zap.Error(err))
		}
		return []any{}, false
	}
	return list, false
}

// Update runs load, fn and commit under the writer lock and returns the
// committed collection.
func (o *Orchestrator) Update(ctx context.Context, fn MutateFunc) ([]models.Debt, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	debts, touchedID, err := fn(o.LoadCollection(ctx))
	if err != nil {
		return nil, err
	}
	return o.commitLocked(ctx, debts, touchedID)
}

// Commit persists debts locally, then pushes them to the remote. Only a local
// failure is returned.
func (o *Orchestrator) Commit(ctx context.Context, debts []models.Debt, touchedID string) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	_, err := o.commitLocked(ctx, debts, touchedID)
	return err
}

func (o *Orchestrator) commitLocked(ctx context.Context, debts []models.Debt, touchedID string) ([]models.Debt, error) {
	if debts == nil {
		debts = []models.Debt{}
	}
	if err := o.local.Save(ctx, debts); err != nil {
		return nil, fmt.Errorf("write local cache: %w", err)
	}
	if o.remote == nil {
		return debts, nil
	}

	seq := o.seq.Add(1)
	updatedAt := time.Now().UTC()

	if o.opts.Mode == ModeSync {
		wctx, cancel := context.WithTimeout(ctx, o.opts.WriteTimeout)
		err := o.pushRemote(wctx, seq, debts, updatedAt)
		cancel()
		if err != nil {
			debts = o.recordSyncError(ctx, debts, touchedID, err)
		}
		return debts, nil
	}

	snapshot := cloneDebts(debts)
	o.pending.Add(1)
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		defer o.pending.Add(-1)

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.WriteTimeout)
		defer cancel()

		if err := o.pushRemote(wctx, seq, snapshot, updatedAt); err != nil && touchedID != "" {
			o.writeMu.Lock()
			defer o.writeMu.Unlock()

			list, lerr := o.local.Load(wctx)
			if lerr != nil {
				o.logger.Error("reload local cache for sync error entry failed", zap.Error(lerr))
				return
			}
			o.recordSyncError(wctx, ledger.NormalizeDebts(list), touchedID, err)
		}
	}()
	return debts, nil
}

// pushRemote writes snapshot number seq unless a newer snapshot was already
// attempted. A skipped snapshot reports no error.
func (o *Orchestrator) pushRemote(ctx context.Context, seq uint64, debts []models.Debt, updatedAt time.Time) error {
	o.remoteMu.Lock()
	defer o.remoteMu.Unlock()

	if seq <= o.lastAttempted {
		o.logger.Debug("remote write superseded", zap.Uint64("seq", seq))
		return nil
	}
	o.lastAttempted = seq

	if err := o.remote.Save(ctx, debts, updatedAt); err != nil {
		o.metrics.RemoteWrite("error")
		o.logger.Warn("remote write failed, local cache kept",
			zap.String("remote", o.remote.Name()),
			zap.Uint64("seq", seq),
			zap.Int("debts", len(debts)),
			zap.Error(err),
		)
		return &models.RemoteUnavailableError{Op: "write", Err: err}
	}
	o.metrics.RemoteWrite("ok")
	return nil
}

// recordSyncError appends a SYNC_ERROR entry to the touched debt and persists
// the collection locally so the audit trail survives.
func (o *Orchestrator) recordSyncError(ctx context.Context, debts []models.Debt, touchedID string, cause error) []models.Debt {
	idx := models.FindDebt(debts, touchedID)
	if touchedID == "" || idx < 0 {
		return debts
	}

	msg := cause.Error()
	var ru *models.RemoteUnavailableError
	if errors.As(cause, &ru) {
		msg = ru.Err.Error()
	}
	ledger.Record(&debts[idx], models.ActionSyncError, map[string]any{
		"error":  msg,
		"remote": o.remote.Name(),
	})
	if err := o.local.Save(ctx, debts); err != nil {
		o.logger.Error("persist sync error entry failed", zap.String("debt_id", touchedID), zap.Error(err))
	}
	return debts
}

// ForceSync writes debts locally and then to the remote, returning any remote
// failure as *models.RemoteUnavailableError.
func (o *Orchestrator) ForceSync(ctx context.Context, debts []models.Debt) error {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	return o.forceSyncLocked(ctx, debts)
}

// SyncCurrent loads the collection and force-syncs it under the writer lock,
// so no mutation can land between the read and the push.
func (o *Orchestrator) SyncCurrent(ctx context.Context) ([]models.Debt, error) {
	o.writeMu.Lock()
	defer o.writeMu.Unlock()

	debts := o.LoadCollection(ctx)
	if err := o.forceSyncLocked(ctx, debts); err != nil {
		return nil, err
	}
	return debts, nil
}

func (o *Orchestrator) forceSyncLocked(ctx context.Context, debts []models.Debt) error {
	if debts == nil {
		debts = []models.Debt{}
	}
	if err := o.local.Save(ctx, debts); err != nil {
		return fmt.Errorf("write local cache: %w", err)
	}
	if o.remote == nil {
		return &models.RemoteUnavailableError{Op: "sync", Err: ErrRemoteDisabled}
	}

	wctx, cancel := context.WithTimeout(ctx, o.opts.WriteTimeout)
	defer cancel()

	seq := o.seq.Add(1)
	if err := o.pushRemote(wctx, seq, debts, time.Now().UTC()); err != nil {
		var ru *models.RemoteUnavailableError
		if errors.As(err, &ru) {
			ru.Op = "sync"
		}
		return err
	}
	o.logger.Info("force sync completed", zap.String("remote", o.remote.Name()), zap.Int("debts", len(debts)))
	return nil
}

// Wait blocks until background remote writes have finished.
func (o *Orchestrator) Wait() {
	o.bg.Wait()
}

func cloneDebts(in []models.Debt) []models.Debt {
	out := make([]models.Debt, len(in))
	for i, d := range in {
		d.Payments = cloneSlice(d.Payments)
		d.Additions = cloneSlice(d.Additions)
		d.AuditLog = cloneSlice(d.AuditLog)
		out[i] = d
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
