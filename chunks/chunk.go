// Package chunks stores the tenant-owned question/answer fragments that,
// concatenated in position order, form the end-user bot's system prompt.
package chunks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Length caps enforced at the persistence boundary.
const (
	MaxQuestionLen = 1000
	MaxAnswerLen   = 2000
)

var (
	ErrEmptyAnswer     = errors.New("answer must not be empty")
	ErrAnswerTooLong   = errors.New("answer exceeds maximum length")
	ErrQuestionTooLong = errors.New("question exceeds maximum length")
)

// Chunk is one prompt fragment owned by a tenant. Position strictly orders
// chunks for prompt assembly; ties are broken by creation time, so chunks
// that land on the same position still render in insertion order.
type Chunk struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Position  int
	Question  string
	Answer    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence contract for prompt chunks. Every call is
// scoped to one tenant; implementations must never return or touch another
// tenant's rows. Writes are single atomic statements; concurrent writers
// resolve last-write-wins.
type Store interface {
	// List returns the tenant's chunks ordered by position; chunks at the
	// same position resolve in insertion order.
	List(ctx context.Context, tenantID uuid.UUID) ([]Chunk, error)
	// Add appends a chunk at the next free position.
	Add(ctx context.Context, tenantID uuid.UUID, question, answer string) (Chunk, error)
	// UpdateAnswer replaces the answer of the chunk with the given id.
	// Returns false when the id is not in the tenant's chunk set.
	UpdateAnswer(ctx context.Context, tenantID, id uuid.UUID, answer string) (bool, error)
	// Delete removes the chunk if present and reports whether it was.
	Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

// orderBefore is the prompt ordering: position, then creation time, then
// id. Concurrent adds can land two chunks on one position; creation time
// keeps them in insertion order.
func orderBefore(a, b Chunk) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return strings.Compare(a.ID.String(), b.ID.String()) < 0
}

func validate(question, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}
	if len([]rune(answer)) > MaxAnswerLen {
		return ErrAnswerTooLong
	}
	if len([]rune(question)) > MaxQuestionLen {
		return ErrQuestionTooLong
	}
	return nil
}
