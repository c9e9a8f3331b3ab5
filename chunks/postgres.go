package chunks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists prompt chunks in PostgreSQL. Every write is a
// single statement, so concurrent admin turns of the same tenant resolve
// last-write-wins without explicit locking.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore opens a connection pool for the given connection string.
func NewPostgresStore(connString string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return &PostgresStore{db: db, logger: logger}, nil
}

// EnsureSchema creates the prompt_chunks table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS prompt_chunks (
			id         UUID PRIMARY KEY,
			tenant_id  UUID NOT NULL,
			position   INTEGER NOT NULL,
			question   TEXT NOT NULL DEFAULT '',
			answer     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS prompt_chunks_tenant_position
			ON prompt_chunks (tenant_id, position);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) List(ctx context.Context, tenantID uuid.UUID) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, position, question, answer, created_at, updated_at
		FROM prompt_chunks
		WHERE tenant_id = $1
		ORDER BY position, created_at, id`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var list []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Position, &c.Question, &c.Answer, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) Add(ctx context.Context, tenantID uuid.UUID, question, answer string) (Chunk, error) {
	if err := validate(question, answer); err != nil {
		return Chunk{}, err
	}

	chunk := Chunk{
		ID:       uuid.New(),
		TenantID: tenantID,
		Question: strings.TrimSpace(question),
		Answer:   strings.TrimSpace(answer),
	}

	// Position is assigned inside the insert, keeping append atomic.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO prompt_chunks (id, tenant_id, position, question, answer)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0), $3, $4
		FROM prompt_chunks WHERE tenant_id = $2
		RETURNING position, created_at, updated_at`,
		chunk.ID, tenantID, chunk.Question, chunk.Answer,
	).Scan(&chunk.Position, &chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return Chunk{}, fmt.Errorf("add chunk: %w", err)
	}
	return chunk, nil
}

func (s *PostgresStore) UpdateAnswer(ctx context.Context, tenantID, id uuid.UUID, answer string) (bool, error) {
	if err := validate("", answer); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE prompt_chunks
		SET answer = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id, strings.TrimSpace(answer))
	if err != nil {
		return false, fmt.Errorf("update chunk: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update chunk: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM prompt_chunks
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	if err != nil {
		return false, fmt.Errorf("delete chunk: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete chunk: %w", err)
	}
	return affected > 0, nil
}
