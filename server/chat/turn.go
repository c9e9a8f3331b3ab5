// Package chat orchestrates one chat turn: it assembles the system prompt
// for the acting role, streams the agent reply from the LLM service and
// pipes it through the command executor before it reaches the client.
package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/chunks"
	"github.com/tenantbot/tenantbot/clients/llm"
	"github.com/tenantbot/tenantbot/execute"
)

// historyWindow caps how much prior conversation is sent to the LLM.
const historyWindow = 20

// unavailableMessage replaces the reply when the LLM service cannot be
// reached at all. It flows through the pipeline like any other text.
const unavailableMessage = "The assistant is unavailable right now. Please try again in a moment."

// DefaultAdminPrompt steers the admin assistant when no prompt file is
// configured. The assistant manages the client bot's prompt chunks through
// embedded commands; the administrator never types commands directly.
const DefaultAdminPrompt = `You are the admin assistant. Your only job is to help fill the client ` +
	`chat bot's prompt with chunks (up to 2000 characters each). Lead the conversation step by step, ` +
	`ask clarifying questions (bot role, tone, restrictions) and propose chunk wordings. When the ` +
	`administrator agrees, append an [EXECUTE]...[/EXECUTE] block to the end of your reply. ` +
	`Commands: ADD_CHUNK, EDIT_CHUNK <id> <text>, DELETE_CHUNK <id>.`

// Service runs chat turns.
type Service struct {
	store       chunks.Store
	streamer    llm.Streamer
	pipeline    *execute.Pipeline
	adminPrompt string
	logger      *zap.Logger
}

// NewService wires a chat service. adminPrompt may be empty, in which case
// DefaultAdminPrompt is used.
func NewService(store chunks.Store, streamer llm.Streamer, pipeline *execute.Pipeline, adminPrompt string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(adminPrompt) == "" {
		adminPrompt = DefaultAdminPrompt
	}
	return &Service{
		store:       store,
		streamer:    streamer,
		pipeline:    pipeline,
		adminPrompt: adminPrompt,
		logger:      logger,
	}
}

// Turn streams one rewritten agent reply. The returned channel closes when
// the reply (including any command substitutions) has been fully emitted,
// or when ctx is cancelled.
//
// User turns stream fragment by fragment. Admin turns resolve as a single
// completion: the reply is short, and the command block it may carry is
// handled whole before anything reaches the administrator.
func (s *Service) Turn(ctx context.Context, ec execute.ExecutionContext, history []llm.Message, message string) (<-chan string, error) {
	system, err := s.systemPrompt(ctx, ec)
	if err != nil {
		return nil, err
	}

	messages := trimHistory(history)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	logger := s.logger.With(
		zap.String("tenantID", ec.TenantID.String()),
		zap.String("dialogID", ec.DialogID.String()),
	)

	if ec.Role == execute.RoleAdmin {
		in := make(chan string, 1)
		go func() {
			defer close(in)
			text, err := s.streamer.Once(ctx, system, messages)
			if err != nil {
				logger.Error("LLM completion failed", zap.Error(err))
				text = unavailableMessage
			}
			select {
			case in <- text:
			case <-ctx.Done():
			}
		}()
		return s.pipeline.Process(ctx, ec, in), nil
	}

	fragments, errs := s.streamer.Stream(ctx, system, messages)

	// Bridge the LLM stream into the pipeline, substituting a fallback
	// message when the reply fails to start or breaks off.
	in := make(chan string, 16)
	go func() {
		defer close(in)
		for {
			select {
			case <-ctx.Done():
				return
			case fragment, ok := <-fragments:
				if !ok {
					select {
					case err := <-errs:
						if err != nil {
							logger.Error("LLM stream failed", zap.Error(err))
							select {
							case in <- unavailableMessage:
							case <-ctx.Done():
							}
						}
					default:
					}
					return
				}
				select {
				case in <- fragment:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return s.pipeline.Process(ctx, ec, in), nil
}

func (s *Service) systemPrompt(ctx context.Context, ec execute.ExecutionContext) (string, error) {
	if ec.Role == execute.RoleAdmin {
		state, err := chunks.Summary(ctx, s.store, ec.TenantID)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(s.adminPrompt, "\n ") + "\n\n---\n" + state, nil
	}
	return chunks.CombinedPrompt(ctx, s.store, ec.TenantID)
}

// trimHistory keeps the most recent window of well-formed entries.
func trimHistory(history []llm.Message) []llm.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	return messages
}
