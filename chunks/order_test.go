package chunks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent adds can assign the same position twice; ordering must then
// follow creation time, not the chunks' random ids.
func TestListPositionCollisionKeepsInsertionOrder(t *testing.T) {
	store := NewMemStore()
	tenant := uuid.New()
	base := time.Now()

	// The earlier chunk gets the lexicographically larger id so an id
	// tie-break would flip the pair.
	earlier := Chunk{
		ID:        uuid.MustParse("ffffffff-ffff-4fff-8fff-ffffffffffff"),
		TenantID:  tenant,
		Position:  3,
		Answer:    "added first",
		CreatedAt: base,
	}
	later := Chunk{
		ID:        uuid.MustParse("00000000-0000-4000-8000-000000000000"),
		TenantID:  tenant,
		Position:  3,
		Answer:    "added second",
		CreatedAt: base.Add(time.Millisecond),
	}
	store.tenants[tenant] = map[uuid.UUID]Chunk{
		later.ID:   later,
		earlier.ID: earlier,
	}

	list, err := store.List(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "added first", list[0].Answer)
	assert.Equal(t, "added second", list[1].Answer)

	prompt, err := CombinedPrompt(context.Background(), store, tenant)
	require.NoError(t, err)
	assert.Equal(t, "added first\n\nadded second", prompt)
}

func TestOrderBeforeFallsBackToID(t *testing.T) {
	at := time.Now()
	a := Chunk{ID: uuid.MustParse("00000000-0000-4000-8000-000000000000"), Position: 1, CreatedAt: at}
	b := Chunk{ID: uuid.MustParse("ffffffff-ffff-4fff-8fff-ffffffffffff"), Position: 1, CreatedAt: at}

	assert.True(t, orderBefore(a, b))
	assert.False(t, orderBefore(b, a))
}
