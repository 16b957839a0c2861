package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gold_debts/internal/config/connections/postgres"
	"gold_debts/internal/models"
	"gold_debts/internal/ports"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

// PostgresStore keeps the collection in a jsonb column keyed by state id.
type PostgresStore struct {
	pg      *postgres.Postgres
	table   string
	stateID string

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewPostgresStore(pg *postgres.Postgres, table, stateID string) *PostgresStore {
	if table == "" {
		table = DefaultCollection
	}
	if stateID == "" {
		stateID = DefaultStateID
	}
	return &PostgresStore{pg: pg, table: table, stateID: stateID}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	if s.pg == nil || s.pg.Pool == nil {
		return errors.New("postgres not initialized")
	}

	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}

	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         text PRIMARY KEY,
			debts      jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, s.ident())
	if _, err := s.pg.Pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("create state table: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (list []any, err error) {
	ctx, span := tracer.Start(ctx, "state.postgres.load")
	span.SetAttributes(attribute.String("state.id", s.stateID))
	defer func() {
		if errors.Is(err, ports.ErrStateNotFound) {
			endSpan(span, nil)
			return
		}
		endSpan(span, err)
	}()

	if err = s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	var raw []byte
	q := fmt.Sprintf(`SELECT debts FROM %s WHERE id = $1`, s.ident())
	err = s.pg.Pool.QueryRow(ctx, q, s.stateID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres select state: %w", err)
	}
	return decodeDebts(raw)
}

func (s *PostgresStore) Save(ctx context.Context, debts []models.Debt, updatedAt time.Time) (err error) {
	ctx, span := tracer.Start(ctx, "state.postgres.save")
	span.SetAttributes(
		attribute.String("state.id", s.stateID),
		attribute.Int("state.debts", len(debts)),
	)
	defer func() { endSpan(span, err) }()

	list, err := plainDebts(debts)
	if err != nil {
		return err
	}
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err = s.ensureSchema(ctx); err != nil {
		return err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, debts, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (id) DO UPDATE
		SET debts = EXCLUDED.debts, updated_at = EXCLUDED.updated_at`, s.ident())
	if _, err = s.pg.Pool.Exec(ctx, q, s.stateID, string(b), updatedAt.UTC()); err != nil {
		return fmt.Errorf("postgres upsert state: %w", err)
	}
	return nil
}
