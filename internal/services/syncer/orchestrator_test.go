package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gold_debts/internal/ledger"
	"gold_debts/internal/models"
	"gold_debts/internal/ports"
	"gold_debts/internal/repository/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRemote struct {
	mu      sync.Mutex
	debts   []any
	found   bool
	loadErr error
	saveErr error
	saves   int

	// onLoad runs before the first Load returns
	onLoad   func()
	loadOnce sync.Once
}

func (m *memRemote) Name() string { return "memory" }

func (m *memRemote) Load(context.Context) ([]any, error) {
	if m.onLoad != nil {
		m.loadOnce.Do(m.onLoad)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.found {
		return nil, ports.ErrStateNotFound
	}
	list, _ := ledger.ToGeneric(m.debts).([]any)
	return list, nil
}

func (m *memRemote) Save(_ context.Context, debts []models.Debt, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.debts, _ = ledger.ToGeneric(debts).([]any)
	m.found = true
	m.saves++
	return nil
}

func (m *memRemote) set(debts []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debts = debts
	m.found = true
}

func (m *memRemote) snapshot() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debts
}

func newOrchestrator(t *testing.T, remote ports.RemoteStore, mode Mode) (*Orchestrator, *cache.FileStore) {
	t.Helper()
	local := cache.NewFileStore(filepath.Join(t.TempDir(), "debts.json"), nil)
	require.NoError(t, local.EnsureFile())
	return New(local, remote, nil, nil, Options{Mode: mode}), local
}

func writeLocal(t *testing.T, local *cache.FileStore, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(local.Path(), []byte(content), 0o644))
}

func readLocal(t *testing.T, local *cache.FileStore) []any {
	t.Helper()
	list, err := local.Load(context.Background())
	require.NoError(t, err)
	return list
}

func TestLoadCollection_RemoteIsAuthoritative(t *testing.T) {
	remote := &memRemote{}
	remote.set([]any{map[string]any{"id": "r1", "name": "Remote", "totalAmount": "1,000", "remaining": "250"}})
	o, local := newOrchestrator(t, remote, ModeSync)
	writeLocal(t, local, `[{"id":"l1","name":"Local","totalAmount":5,"remaining":5}]`)

	debts := o.LoadCollection(context.Background())

	require.Len(t, debts, 1)
	assert.Equal(t, "r1", debts[0].ID)
	assert.Equal(t, 1000.0, debts[0].TotalAmount)
	assert.Equal(t, 250.0, debts[0].Remaining)

	mirrored := readLocal(t, local)
	require.Len(t, mirrored, 1)
	assert.Equal(t, "r1", mirrored[0].(map[string]any)["id"])
	assert.Equal(t, 1000.0, mirrored[0].(map[string]any)["totalAmount"])
}

func TestLoadCollection_FallsBackToLocal(t *testing.T) {
	for name, remote := range map[string]*memRemote{
		"unreachable": {loadErr: errors.New("server selection timeout")},
		"no state":    {},
	} {
		t.Run(name, func(t *testing.T) {
			o, local := newOrchestrator(t, remote, ModeSync)
			writeLocal(t, local, `[{"id":"l1","name":"Local","totalAmount":5,"remaining":5}]`)

			debts := o.LoadCollection(context.Background())
			require.Len(t, debts, 1)
			assert.Equal(t, "Local", debts[0].Name)
		})
	}
}

func TestLoadCollection_CorruptLocalYieldsEmpty(t *testing.T) {
	o, local := newOrchestrator(t, &memRemote{loadErr: errors.New("down")}, ModeSync)
	writeLocal(t, local, `{broken`)

	var debts []models.Debt
	assert.NotPanics(t, func() { debts = o.LoadCollection(context.Background()) })
	assert.NotNil(t, debts)
	assert.Empty(t, debts)
}

func TestLoadCollection_SelfHealsLegacyData(t *testing.T) {
	o, local := newOrchestrator(t, nil, ModeSync)
	writeLocal(t, local, `[{"id": 1700000000000, "name": "Legacy", "totalAmount": "٥٠٠", "remaining": 900}, "junk"]`)

	debts := o.LoadCollection(context.Background())
	require.Len(t, debts, 2)
	assert.Equal(t, "1700000000000", debts[0].ID)
	assert.Equal(t, 500.0, debts[0].TotalAmount)
	assert.Equal(t, 500.0, debts[0].Remaining)
	assert.NotEmpty(t, debts[1].ID)

	healed := readLocal(t, local)
	require.Len(t, healed, 2)
	first := healed[0].(map[string]any)
	assert.Equal(t, "1700000000000", first["id"])
	assert.Equal(t, 500.0, first["remaining"])
	assert.Equal(t, []any{}, first["payments"])

	// a second read finds nothing to repair
	again := o.LoadCollection(context.Background())
	assert.Equal(t, debts, again)
}

func TestLoadCollection_Invariant(t *testing.T) {
	o, local := newOrchestrator(t, nil, ModeSync)
	writeLocal(t, local, `[
		{"totalAmount": -5, "remaining": 3},
		{"totalAmount": "abc", "remaining": "12"},
		{"totalAmount": 10, "remaining": -1},
		null, 7, "x", []
	]`)

	for _, d := range o.LoadCollection(context.Background()) {
		assert.GreaterOrEqual(t, d.TotalAmount, 0.0)
		assert.GreaterOrEqual(t, d.Remaining, 0.0)
		assert.LessOrEqual(t, d.Remaining, d.TotalAmount)
	}
}

func sampleDebts() []models.Debt {
	d := ledger.NormalizeDebt(map[string]any{"id": "d1", "name": "Ali", "totalAmount": 100, "remaining": 100})
	return []models.Debt{d}
}

func TestCommit_RemoteFailureRecordsSyncError(t *testing.T) {
	remote := &memRemote{saveErr: errors.New("connection refused")}
	o, local := newOrchestrator(t, remote, ModeSync)

	out, err := o.Update(context.Background(), func(debts []models.Debt) ([]models.Debt, string, error) {
		return sampleDebts(), "d1", nil
	})
	require.NoError(t, err)

	require.Len(t, out[0].AuditLog, 1)
	entry := out[0].AuditLog[0]
	assert.Equal(t, models.ActionSyncError, entry.Action)
	assert.Equal(t, "connection refused", entry.Payload["error"])

	stored := readLocal(t, local)
	log := stored[0].(map[string]any)["auditLog"].([]any)
	require.Len(t, log, 1)
	assert.Equal(t, "SYNC_ERROR", log[0].(map[string]any)["action"])
}

func TestCommit_AsyncRemoteFailureRecordsSyncError(t *testing.T) {
	remote := &memRemote{saveErr: errors.New("timeout")}
	o, local := newOrchestrator(t, remote, ModeAsync)

	require.NoError(t, o.Commit(context.Background(), sampleDebts(), "d1"))
	o.Wait()

	debts := o.LoadCollection(context.Background())
	require.Len(t, debts, 1)
	require.Len(t, debts[0].AuditLog, 1)
	assert.Equal(t, models.ActionSyncError, debts[0].AuditLog[0].Action)

	stored := readLocal(t, local)
	assert.Len(t, stored[0].(map[string]any)["auditLog"], 1)
}

func TestCommit_RemoteFailureWithoutTouchedID(t *testing.T) {
	remote := &memRemote{saveErr: errors.New("timeout")}
	o, local := newOrchestrator(t, remote, ModeSync)

	require.NoError(t, o.Commit(context.Background(), sampleDebts(), ""))

	stored := readLocal(t, local)
	assert.Empty(t, stored[0].(map[string]any)["auditLog"])
}

func TestCommit_LocalFailureIsReturned(t *testing.T) {
	dir := t.TempDir()
	local := cache.NewFileStore(filepath.Join(dir, "debts.json"), nil)
	o := New(local, nil, nil, nil, Options{Mode: ModeSync})

	// a directory in place of the file makes the rename fail
	require.NoError(t, os.Mkdir(local.Path(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(local.Path(), "keep"), nil, 0o644))

	err := o.Commit(context.Background(), sampleDebts(), "d1")
	assert.Error(t, err)
}

func TestCommit_PushesToRemote(t *testing.T) {
	remote := &memRemote{}
	o, _ := newOrchestrator(t, remote, ModeAsync)

	require.NoError(t, o.Commit(context.Background(), sampleDebts(), "d1"))
	o.Wait()

	stored := remote.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "Ali", stored[0].(map[string]any)["name"])
}

func TestUpdate_SerializesWriters(t *testing.T) {
	for _, mode := range []Mode{ModeSync, ModeAsync} {
		t.Run(string(mode), func(t *testing.T) {
			remote := &memRemote{}
			o, _ := newOrchestrator(t, remote, mode)

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := o.Update(context.Background(), func(debts []models.Debt) ([]models.Debt, string, error) {
						d := ledger.NormalizeDebt(map[string]any{"id": fmt.Sprintf("d%d", i), "name": "N", "totalAmount": 1})
						return append(debts, d), d.ID, nil
					})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()
			o.Wait()

			assert.Len(t, o.LoadCollection(context.Background()), 20)
			assert.Len(t, remote.snapshot(), 20, "remote must end with the newest snapshot")
		})
	}
}

func TestUpdate_MutationErrorSkipsCommit(t *testing.T) {
	remote := &memRemote{}
	o, _ := newOrchestrator(t, remote, ModeSync)

	boom := models.NewValidationError("amount", "must be positive")
	_, err := o.Update(context.Background(), func(debts []models.Debt) ([]models.Debt, string, error) {
		return nil, "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, remote.saves)
}

func TestForceSync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		remote := &memRemote{}
		o, _ := newOrchestrator(t, remote, ModeAsync)

		require.NoError(t, o.ForceSync(context.Background(), sampleDebts()))
		assert.Len(t, remote.snapshot(), 1)
	})

	t.Run("remote failure is surfaced", func(t *testing.T) {
		remote := &memRemote{saveErr: errors.New("auth failed")}
		o, local := newOrchestrator(t, remote, ModeAsync)

		err := o.ForceSync(context.Background(), sampleDebts())
		var ru *models.RemoteUnavailableError
		require.True(t, errors.As(err, &ru), "got %v", err)
		assert.Equal(t, "sync", ru.Op)
		assert.Len(t, readLocal(t, local), 1, "local write happens first")
	})

	t.Run("no remote configured", func(t *testing.T) {
		o, _ := newOrchestrator(t, nil, ModeAsync)
		err := o.ForceSync(context.Background(), sampleDebts())
		assert.ErrorIs(t, err, ErrRemoteDisabled)
	})
}

func TestUpdate_AfterLoadingFarFutureDate(t *testing.T) {
	o, local := newOrchestrator(t, nil, ModeSync)
	writeLocal(t, local, `[
		{"id":"1","name":"Far","totalAmount":10,"remaining":10,"createdAt":1e18},
		{"id":"2","name":"Near","totalAmount":10,"remaining":10}
	]`)

	out, err := o.Update(context.Background(), func(debts []models.Debt) ([]models.Debt, string, error) {
		i := models.FindDebt(debts, "2")
		debts[i].Remaining = 4
		return debts, "2", nil
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.LessOrEqual(t, out[0].CreatedAt.Year(), 9999)

	stored := readLocal(t, local)
	require.Len(t, stored, 2)
	assert.Equal(t, 4.0, stored[1].(map[string]any)["remaining"])
}

func TestSyncCurrent_DoesNotRevertConcurrentMutation(t *testing.T) {
	remote := &memRemote{}
	remote.set([]any{map[string]any{"id": "d1", "name": "Ali", "totalAmount": 100, "remaining": 100}})
	o, local := newOrchestrator(t, remote, ModeSync)

	mutated := make(chan error, 1)
	// a writer arrives while the sync is reading the collection
	remote.onLoad = func() {
		go func() {
			_, err := o.Update(context.Background(), func(debts []models.Debt) ([]models.Debt, string, error) {
				debts[0].Remaining = 90
				return debts, "d1", nil
			})
			mutated <- err
		}()
	}

	synced, err := o.SyncCurrent(context.Background())
	require.NoError(t, err)
	require.Len(t, synced, 1)

	select {
	case err := <-mutated:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent update never finished")
	}

	assert.Equal(t, 90.0, readLocal(t, local)[0].(map[string]any)["remaining"])
	assert.Equal(t, 90.0, remote.snapshot()[0].(map[string]any)["remaining"])
	assert.Equal(t, 90.0, o.LoadCollection(context.Background())[0].Remaining)
}

func TestSyncCurrent_NoRemote(t *testing.T) {
	o, _ := newOrchestrator(t, nil, ModeSync)
	_, err := o.SyncCurrent(context.Background())
	assert.ErrorIs(t, err, ErrRemoteDisabled)
}
