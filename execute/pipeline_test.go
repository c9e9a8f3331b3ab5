package execute_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/chunks"
	"github.com/tenantbot/tenantbot/clients/gallery"
	"github.com/tenantbot/tenantbot/execute"
)

func runPipeline(t *testing.T, env *testEnv, ec execute.ExecutionContext, fragments []string) []string {
	t.Helper()
	pipeline := execute.NewPipeline(env.dispatcher, zap.NewNop())

	in := make(chan string)
	go func() {
		defer close(in)
		for _, fragment := range fragments {
			in <- fragment
		}
	}()

	var out []string
	for fragment := range pipeline.Process(context.Background(), ec, in) {
		out = append(out, fragment)
	}
	return out
}

func TestPipelineSubstitutesBlockPreservingOrder(t *testing.T) {
	env := newTestEnv()
	env.gallery.groups = []gallery.Group{{ID: uuid.New(), Name: "Summer", Description: "sunny"}}

	out := runPipeline(t, env, userCtx(uuid.New()), []string{
		"hello [",
		"EXECUTE]\nLIST_GALLERIES\n[/EXEC",
		"UTE] world",
	})

	joined := strings.Join(out, "")
	assert.True(t, strings.HasPrefix(joined, "hello "))
	assert.True(t, strings.HasSuffix(joined, " world"))
	assert.Contains(t, joined, "Galleries:")
	assert.Contains(t, joined, "Summer")
	assert.Less(t, strings.Index(joined, "hello"), strings.Index(joined, "Galleries:"))
	assert.Less(t, strings.Index(joined, "Galleries:"), strings.Index(joined, " world"))
}

func TestPipelinePassesPlainTextThrough(t *testing.T) {
	env := newTestEnv()

	out := runPipeline(t, env, userCtx(uuid.New()), []string{"just ", "plain ", "text"})

	assert.Equal(t, "just plain text", strings.Join(out, ""))
}

func TestPipelineUnterminatedBlockPassesThrough(t *testing.T) {
	env := newTestEnv()

	out := runPipeline(t, env, userCtx(uuid.New()), []string{"see: [EXECUTE]\nLIST_GALLERIES"})

	assert.Equal(t, "see: [EXECUTE]\nLIST_GALLERIES", strings.Join(out, ""))
	assert.Equal(t, uuid.Nil, env.gallery.lastTenant, "no command must execute")
}

func TestPipelineErrorDoesNotDropSurroundingText(t *testing.T) {
	env := newTestEnv()

	out := runPipeline(t, env, userCtx(uuid.New()), []string{
		"before [EXECUTE]\nSHOW_GALLERY\ngroup_id=not-a-uuid\n[/EXECUTE] after",
	})

	joined := strings.Join(out, "")
	assert.Contains(t, joined, "before ")
	assert.Contains(t, joined, " after")
	assert.Contains(t, joined, "group_id")
	assert.NotContains(t, joined, "[EXECUTE]")
}

func TestPipelineIndependentBlocks(t *testing.T) {
	env := newTestEnv()
	env.gallery.groups = []gallery.Group{{ID: uuid.New(), Name: "Summer"}}

	out := runPipeline(t, env, userCtx(uuid.New()), []string{
		"[EXECUTE]\nBOGUS\n[/EXECUTE] and [EXECUTE]\nLIST_GALLERIES\n[/EXECUTE]",
	})

	joined := strings.Join(out, "")
	// The first block fails, the second still resolves.
	assert.Contains(t, joined, "Unknown command: BOGUS")
	assert.Contains(t, joined, "Summer")
}

type blockingGallery struct {
	started chan struct{}
}

func (b *blockingGallery) ListGroups(ctx context.Context, tenantID uuid.UUID) ([]gallery.Group, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingGallery) GetGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*gallery.Group, error) {
	return nil, ctx.Err()
}

func TestPipelineCancellationDiscardsInFlightCall(t *testing.T) {
	blocking := &blockingGallery{started: make(chan struct{})}
	dispatcher := execute.NewDispatcher(chunks.NewMemStore(), blocking, &fakeRAG{}, "http://public.example", zap.NewNop())
	pipeline := execute.NewPipeline(dispatcher, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan string, 1)
	in <- "[EXECUTE]\nLIST_GALLERIES\n[/EXECUTE] trailing"

	out := pipeline.Process(ctx, userCtx(uuid.New()), in)

	select {
	case <-blocking.started:
	case <-time.After(2 * time.Second):
		t.Fatal("remote call never started")
	}
	cancel()

	var received []string
	for fragment := range out {
		received = append(received, fragment)
	}
	// The cancelled block's result is discarded and trailing text is not
	// emitted after cancellation.
	require.Empty(t, received)
}
