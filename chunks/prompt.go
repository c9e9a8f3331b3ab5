package chunks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CombinedPrompt joins the tenant's chunk answers in position order into
// the system prompt used for end-user chat turns. Blank answers are
// skipped; chunks are separated by a blank line.
func CombinedPrompt(ctx context.Context, store Store, tenantID uuid.UUID) (string, error) {
	list, err := store.List(ctx, tenantID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(list))
	for _, c := range list {
		if answer := strings.TrimSpace(c.Answer); answer != "" {
			parts = append(parts, answer)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

const (
	summaryQuestionPreview = 80
	summaryAnswerPreview   = 150
)

// Summary renders a human-readable inventory of the tenant's chunks. It is
// fed to the admin assistant as conversation state so it can reference
// chunk ids when proposing edits.
func Summary(ctx context.Context, store Store, tenantID uuid.UUID) (string, error) {
	list, err := store.List(ctx, tenantID)
	if err != nil {
		return "", err
	}

	lines := []string{"Current state (client bot prompt chunks, up to 2000 characters each):"}
	if len(list) == 0 {
		lines = append(lines, "  (no chunks yet; add them through this chat.)")
	}
	for _, c := range list {
		entry := fmt.Sprintf("  [id=%s] position=%d |", c.ID, c.Position)
		if q := strings.TrimSpace(c.Question); q != "" {
			entry += fmt.Sprintf(" question: %q |", truncate(q, summaryQuestionPreview))
		}
		entry += " answer: " + truncate(strings.TrimSpace(c.Answer), summaryAnswerPreview)
		lines = append(lines, entry)
	}
	return strings.Join(lines, "\n"), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
