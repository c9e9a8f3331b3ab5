package chunks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store used in tests and single-node setups.
type MemStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]map[uuid.UUID]Chunk
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tenants: make(map[uuid.UUID]map[uuid.UUID]Chunk)}
}

func (s *MemStore) List(ctx context.Context, tenantID uuid.UUID) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.tenants[tenantID]
	list := make([]Chunk, 0, len(set))
	for _, c := range set {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return orderBefore(list[i], list[j])
	})
	return list, nil
}

func (s *MemStore) Add(ctx context.Context, tenantID uuid.UUID, question, answer string) (Chunk, error) {
	if err := validate(question, answer); err != nil {
		return Chunk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.tenants[tenantID]
	if set == nil {
		set = make(map[uuid.UUID]Chunk)
		s.tenants[tenantID] = set
	}

	position := 0
	for _, c := range set {
		if c.Position >= position {
			position = c.Position + 1
		}
	}

	now := time.Now()
	chunk := Chunk{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Position:  position,
		Question:  strings.TrimSpace(question),
		Answer:    strings.TrimSpace(answer),
		CreatedAt: now,
		UpdatedAt: now,
	}
	set[chunk.ID] = chunk
	return chunk, nil
}

func (s *MemStore) UpdateAnswer(ctx context.Context, tenantID, id uuid.UUID, answer string) (bool, error) {
	if err := validate("", answer); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.tenants[tenantID][id]
	if !ok {
		return false, nil
	}
	chunk.Answer = strings.TrimSpace(answer)
	chunk.UpdatedAt = time.Now()
	s.tenants[tenantID][id] = chunk
	return true, nil
}

func (s *MemStore) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenantID][id]; !ok {
		return false, nil
	}
	delete(s.tenants[tenantID], id)
	return true, nil
}
