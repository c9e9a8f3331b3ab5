package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/clients/llm"
	"github.com/tenantbot/tenantbot/execute"
	"github.com/tenantbot/tenantbot/server/chat"
)

// Header names populated by the authenticating proxy in front of this
// service. Tenant and role never come from the request body, so a client
// cannot address another tenant's data by crafting a payload.
const (
	HeaderTenantID = "X-Tenant-Id"
	HeaderRole     = "X-Role"
)

const keepaliveInterval = 15 * time.Second

// ChatHandler serves POST /api/v1/chat as an SSE stream of rewritten
// agent reply fragments.
type ChatHandler struct {
	turns   *chat.Service
	limiter *TenantLimiter
	logger  *zap.Logger
}

// NewChatHandler creates the chat endpoint handler.
func NewChatHandler(turns *chat.Service, limiter *TenantLimiter, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{turns: turns, limiter: limiter, logger: logger}
}

// RegisterRoutes attaches the handler's routes to mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
	mux.HandleFunc("GET /status", h.handleStatus)
}

type chatRequest struct {
	DialogID string        `json:"dialog_id"`
	Message  string        `json:"message"`
	History  []llm.Message `json:"history"`
}

type chatFragment struct {
	Text string `json:"text"`
}

func (h *ChatHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.Header.Get(HeaderTenantID))
	if err != nil {
		http.Error(w, "missing or invalid tenant id", http.StatusUnauthorized)
		return
	}
	role := execute.ParseRole(r.Header.Get(HeaderRole))

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message must not be empty", http.StatusBadRequest)
		return
	}
	dialogID, err := uuid.Parse(req.DialogID)
	if err != nil {
		http.Error(w, "missing or invalid dialog id", http.StatusBadRequest)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(tenantID) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	logger := h.logger.With(
		zap.String("tenantID", tenantID.String()),
		zap.String("dialogID", dialogID.String()),
		zap.String("role", role.String()),
	)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("Streaming unsupported (http.Flusher missing)")
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ec := execute.ExecutionContext{TenantID: tenantID, Role: role, DialogID: dialogID}
	ctx := r.Context()

	out, err := h.turns.Turn(ctx, ec, req.History, req.Message)
	if err != nil {
		logger.Error("Failed to start chat turn", zap.Error(err))
		http.Error(w, "failed to start turn", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.Info("Chat SSE stream initiated")
	defer logger.Debug("Chat SSE stream closed")

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	eventID := 1
	for {
		select {
		case <-ctx.Done():
			logger.Info("Client disconnected from chat stream")
			return
		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive %s\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()
		case fragment, ok := <-out:
			if !ok {
				fmt.Fprint(w, "data: [DONE]\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(chatFragment{Text: fragment})
			if err != nil {
				logger.Error("Failed to marshal fragment", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "id: %d\ndata: %s\n\n", eventID, payload)
			eventID++
			flusher.Flush()
		}
	}
}
