package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/chunks"
	"github.com/tenantbot/tenantbot/clients/llm"
	"github.com/tenantbot/tenantbot/execute"
	"github.com/tenantbot/tenantbot/server/chat"
)

// fakeStreamer replays scripted fragments and records what it was asked.
type fakeStreamer struct {
	fragments   []string
	err         error
	lastSystem  string
	lastTurn    []llm.Message
	streamCalls int
	onceCalls   int
}

func (f *fakeStreamer) Stream(ctx context.Context, system string, history []llm.Message) (<-chan string, <-chan error) {
	f.streamCalls++
	f.lastSystem = system
	f.lastTurn = history

	out := make(chan string, len(f.fragments))
	errs := make(chan error, 1)
	for _, fragment := range f.fragments {
		out <- fragment
	}
	if f.err != nil {
		errs <- f.err
	}
	close(out)
	return out, errs
}

func (f *fakeStreamer) Once(ctx context.Context, system string, history []llm.Message) (string, error) {
	f.onceCalls++
	f.lastSystem = system
	f.lastTurn = history

	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.fragments, ""), nil
}

func newService(t *testing.T, store chunks.Store, streamer llm.Streamer, adminPrompt string) *chat.Service {
	t.Helper()
	dispatcher := execute.NewDispatcher(store, nil, nil, "https://bot.example.com", zap.NewNop())
	pipeline := execute.NewPipeline(dispatcher, zap.NewNop())
	return chat.NewService(store, streamer, pipeline, adminPrompt, zap.NewNop())
}

func collectTurn(t *testing.T, out <-chan string) string {
	t.Helper()
	var b strings.Builder
	timeout := time.After(5 * time.Second)
	for {
		select {
		case fragment, ok := <-out:
			if !ok {
				return b.String()
			}
			b.WriteString(fragment)
		case <-timeout:
			t.Fatal("turn did not finish")
		}
	}
}

func TestTurnUserGetsCombinedChunkPrompt(t *testing.T) {
	store := chunks.NewMemStore()
	tenant := uuid.New()
	_, err := store.Add(context.Background(), tenant, "", "You sell bicycles.")
	require.NoError(t, err)
	_, err = store.Add(context.Background(), tenant, "", "Be concise.")
	require.NoError(t, err)

	streamer := &fakeStreamer{fragments: []string{"We have several models in stock."}}
	service := newService(t, store, streamer, "")

	ec := execute.ExecutionContext{TenantID: tenant, Role: execute.RoleUser, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "What do you sell?")
	require.NoError(t, err)

	reply := collectTurn(t, out)
	assert.Equal(t, "We have several models in stock.", reply)
	assert.Equal(t, "You sell bicycles.\n\nBe concise.", streamer.lastSystem)
	require.Len(t, streamer.lastTurn, 1)
	assert.Equal(t, "What do you sell?", streamer.lastTurn[0].Content)
	assert.Equal(t, 1, streamer.streamCalls)
	assert.Equal(t, 0, streamer.onceCalls)
}

func TestTurnAdminGetsPromptWithChunkState(t *testing.T) {
	store := chunks.NewMemStore()
	tenant := uuid.New()
	chunk, err := store.Add(context.Background(), tenant, "", "Opening hours answer.")
	require.NoError(t, err)

	streamer := &fakeStreamer{fragments: []string{"Current chunks look good."}}
	service := newService(t, store, streamer, "Manage the prompt.")

	ec := execute.ExecutionContext{TenantID: tenant, Role: execute.RoleAdmin, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "Show me the state")
	require.NoError(t, err)
	collectTurn(t, out)

	assert.True(t, strings.HasPrefix(streamer.lastSystem, "Manage the prompt."))
	assert.Contains(t, streamer.lastSystem, chunk.ID.String())
}

func TestTurnAdminUsesSingleCompletion(t *testing.T) {
	streamer := &fakeStreamer{fragments: []string{"All set."}}
	service := newService(t, chunks.NewMemStore(), streamer, "")

	ec := execute.ExecutionContext{TenantID: uuid.New(), Role: execute.RoleAdmin, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "status?")
	require.NoError(t, err)

	reply := collectTurn(t, out)
	assert.Equal(t, "All set.", reply)
	assert.Equal(t, 1, streamer.onceCalls)
	assert.Equal(t, 0, streamer.streamCalls)
}

func TestTurnAdminCompletionFailureYieldsFallbackMessage(t *testing.T) {
	streamer := &fakeStreamer{err: errors.New("connection refused")}
	service := newService(t, chunks.NewMemStore(), streamer, "")

	ec := execute.ExecutionContext{TenantID: uuid.New(), Role: execute.RoleAdmin, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "hello")
	require.NoError(t, err)

	reply := collectTurn(t, out)
	assert.Contains(t, reply, "unavailable right now")
}

func TestTurnAdminCommandIsExecuted(t *testing.T) {
	store := chunks.NewMemStore()
	tenant := uuid.New()
	streamer := &fakeStreamer{fragments: []string{
		"Adding the chunk now.\n[EXECUTE]\nADD_CHUNK\nYou are a friendly greeter.\n[/EXECUTE]",
	}}
	service := newService(t, store, streamer, "")

	ec := execute.ExecutionContext{TenantID: tenant, Role: execute.RoleAdmin, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "please add it")
	require.NoError(t, err)

	reply := collectTurn(t, out)
	assert.Contains(t, reply, "Adding the chunk now.")
	assert.NotContains(t, reply, "[EXECUTE]")

	list, err := store.List(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "You are a friendly greeter.", list[0].Answer)
}

func TestTurnStreamFailureYieldsFallbackMessage(t *testing.T) {
	streamer := &fakeStreamer{err: errors.New("connection refused")}
	service := newService(t, chunks.NewMemStore(), streamer, "")

	ec := execute.ExecutionContext{TenantID: uuid.New(), Role: execute.RoleUser, DialogID: uuid.New()}
	out, err := service.Turn(context.Background(), ec, nil, "hello")
	require.NoError(t, err)

	reply := collectTurn(t, out)
	assert.Contains(t, reply, "unavailable right now")
}

func TestTurnHistoryIsWindowedAndFiltered(t *testing.T) {
	streamer := &fakeStreamer{fragments: []string{"ok"}}
	service := newService(t, chunks.NewMemStore(), streamer, "")

	history := make([]llm.Message, 0, 30)
	for i := 0; i < 30; i++ {
		history = append(history, llm.Message{Role: "user", Content: "turn"})
	}
	history = append(history, llm.Message{Role: "system", Content: "dropped"})
	history = append(history, llm.Message{Role: "assistant", Content: "   "})

	ec := execute.ExecutionContext{TenantID: uuid.New(), Role: execute.RoleUser, DialogID: uuid.New()}
	_, err := service.Turn(context.Background(), ec, history, "latest")
	require.NoError(t, err)

	// 20 most recent entries minus the two malformed ones, plus the new message.
	require.Len(t, streamer.lastTurn, 19)
	assert.Equal(t, "latest", streamer.lastTurn[len(streamer.lastTurn)-1].Content)
	for _, m := range streamer.lastTurn {
		assert.NotEqual(t, "system", m.Role)
		assert.NotEmpty(t, strings.TrimSpace(m.Content))
	}
}
