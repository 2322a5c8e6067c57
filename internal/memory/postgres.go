package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshotter persists the fact snapshot in PostgreSQL. Each save
// replaces the stored list wholesale, matching the write-through file format.
type PostgresSnapshotter struct {
	pool *pgxpool.Pool
}

func NewPostgresSnapshotter(ctx context.Context, databaseURL string) (*PostgresSnapshotter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresSnapshotter{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS learned_facts (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			fact TEXT NOT NULL,
			source TEXT NOT NULL,
			learned_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_learned_facts_position ON learned_facts (position);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresSnapshotter) Load() (Snapshot, error) {
	ctx := context.Background()

	rows, err := s.pool.Query(ctx,
		`SELECT fact, source, learned_at FROM learned_facts ORDER BY position`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.Fact, &f.Source, &f.LearnedAt); err != nil {
			return Snapshot{}, fmt.Errorf("scan fact row: %w", err)
		}
		snap.LearnedFacts = append(snap.LearnedFacts, f)
		if f.LearnedAt.After(snap.LastUpdated) {
			snap.LastUpdated = f.LearnedAt
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate fact rows: %w", err)
	}
	return snap, nil
}

func (s *PostgresSnapshotter) Save(snap Snapshot) error {
	ctx := context.Background()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM learned_facts`); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}

	batch := &pgx.Batch{}
	for i, f := range snap.LearnedFacts {
		batch.Queue(
			`INSERT INTO learned_facts (id, position, fact, source, learned_at) VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(), i, f.Fact, f.Source, f.LearnedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert facts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *PostgresSnapshotter) Close() error {
	s.pool.Close()
	return nil
}
