package execute

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tenantbot/tenantbot/chunks"
	"github.com/tenantbot/tenantbot/clients/gallery"
	"github.com/tenantbot/tenantbot/clients/rag"
)

// GalleryService is the slice of the Gallery adapter the dispatcher uses.
type GalleryService interface {
	ListGroups(ctx context.Context, tenantID uuid.UUID) ([]gallery.Group, error)
	GetGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*gallery.Group, error)
}

// RAGService is the slice of the RAG adapter the dispatcher uses.
type RAGService interface {
	ListDocuments(ctx context.Context, tenantID uuid.UUID) ([]rag.Document, error)
	GetDocument(ctx context.Context, tenantID, documentID uuid.UUID) (*rag.Document, error)
	Search(ctx context.Context, tenantID uuid.UUID, query string) ([]rag.Document, error)
}

// Dispatcher validates parsed commands against the active registry and
// routes them to the bound handler. The tenant id attached to any handler
// call always comes from the ExecutionContext, never from the block body.
type Dispatcher struct {
	store         chunks.Store
	gallery       GalleryService
	rag           RAGService
	publicBaseURL string
	logger        *zap.Logger
}

// NewDispatcher wires the dispatcher to its handlers. publicBaseURL is the
// externally reachable address used when rendering image links.
func NewDispatcher(store chunks.Store, gallerySvc GalleryService, ragSvc RAGService, publicBaseURL string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:         store,
		gallery:       gallerySvc,
		rag:           ragSvc,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Dispatch resolves one parsed command under the given execution context.
func (d *Dispatcher) Dispatch(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	entry, ok := Lookup(ec.Role, blk.Name)
	if !ok {
		return Errf(KindUnknownCommand,
			"Unknown command: %s. Available commands: %s.", blk.Name, availableList(ec.Role))
	}

	switch entry.Kind {
	case CmdAddChunk:
		return d.addChunk(ctx, ec, blk)
	case CmdEditChunk:
		return d.editChunk(ctx, ec, blk)
	case CmdDeleteChunk:
		return d.deleteChunk(ctx, ec, blk)
	case CmdListGalleries:
		return d.listGalleries(ctx, ec)
	case CmdShowGallery:
		return d.showGallery(ctx, ec, blk)
	case CmdRAGListDocuments:
		return d.ragListDocuments(ctx, ec)
	case CmdRAGGetDocument:
		return d.ragGetDocument(ctx, ec, blk)
	case CmdRAGSearch:
		return d.ragSearch(ctx, ec, blk)
	default:
		// Unreachable: every registry entry carries one of the kinds above.
		return Errf(KindUnknownCommand, "Unknown command: %s.", blk.Name)
	}
}

// --- Local handlers: prompt chunks ---

// addChunk treats the first non-blank line of the body as the admin's
// question and the remainder, re-joined, as the answer text. A single-line
// body is the answer on its own.
func (d *Dispatcher) addChunk(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	question, answer := splitQuestionAnswer(blk.Rest)
	if answer == "" {
		// A single-line body carries only the answer.
		question, answer = "", question
	}
	if answer == "" {
		return Errf(KindValidation, "answer")
	}
	if len([]rune(question)) > chunks.MaxQuestionLen {
		return Errf(KindValidation, "question")
	}
	if len([]rune(answer)) > chunks.MaxAnswerLen {
		return Errf(KindValidation, "answer")
	}

	chunk, err := d.store.Add(ctx, ec.TenantID, question, answer)
	if err != nil {
		return d.storeFailure(ec, "ADD_CHUNK", err)
	}
	return Ok(fmt.Sprintf("Chunk added (id: %s).", chunk.ID))
}

func (d *Dispatcher) editChunk(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	idLine, answer := splitQuestionAnswer(blk.Rest)
	// The id may share its line with the start of the answer
	// (EDIT_CHUNK <id> <text>).
	if i := strings.IndexAny(idLine, " \t"); i >= 0 {
		inline := strings.TrimSpace(idLine[i+1:])
		idLine = idLine[:i]
		if inline != "" {
			if answer == "" {
				answer = inline
			} else {
				answer = inline + "\n" + answer
			}
		}
	}
	id, err := uuid.Parse(strings.TrimSpace(idLine))
	if err != nil {
		return Errf(KindValidation, "chunk id")
	}
	if answer == "" {
		return Errf(KindValidation, "answer")
	}
	if len([]rune(answer)) > chunks.MaxAnswerLen {
		return Errf(KindValidation, "answer")
	}

	found, err := d.store.UpdateAnswer(ctx, ec.TenantID, id, answer)
	if err != nil {
		return d.storeFailure(ec, "EDIT_CHUNK", err)
	}
	if !found {
		return Errf(KindValidation, "chunk id")
	}
	return Ok(fmt.Sprintf("Chunk %s updated.", id))
}

// deleteChunk is idempotent: deleting an absent chunk is not an error.
func (d *Dispatcher) deleteChunk(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	id, err := uuid.Parse(strings.TrimSpace(blk.Rest))
	if err != nil {
		return Errf(KindValidation, "chunk id")
	}

	found, err := d.store.Delete(ctx, ec.TenantID, id)
	if err != nil {
		return d.storeFailure(ec, "DELETE_CHUNK", err)
	}
	if !found {
		return Ok(fmt.Sprintf("Chunk %s was already absent.", id))
	}
	return Ok(fmt.Sprintf("Chunk %s deleted.", id))
}

// splitQuestionAnswer returns the first non-blank line and the re-joined
// remainder of a multi-line payload. The remainder keeps its internal line
// breaks.
func splitQuestionAnswer(rest string) (first, remainder string) {
	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.TrimSpace(line), strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
	}
	return "", ""
}

func (d *Dispatcher) storeFailure(ec ExecutionContext, cmd string, err error) Result {
	if errors.Is(err, chunks.ErrQuestionTooLong) {
		return Errf(KindValidation, "question")
	}
	if errors.Is(err, chunks.ErrAnswerTooLong) || errors.Is(err, chunks.ErrEmptyAnswer) {
		return Errf(KindValidation, "answer")
	}
	d.logger.Warn("Chunk store call failed",
		zap.String("command", cmd),
		zap.String("tenantID", ec.TenantID.String()),
		zap.Error(err))
	return classifyRemote(err, cmd)
}

// --- Remote handlers: Gallery ---

func (d *Dispatcher) listGalleries(ctx context.Context, ec ExecutionContext) Result {
	groups, err := d.gallery.ListGroups(ctx, ec.TenantID)
	if err != nil {
		return d.remoteFailure(ec, "LIST_GALLERIES", err)
	}
	if len(groups) == 0 {
		return Ok("There are no galleries yet.")
	}
	lines := make([]string, 0, len(groups)+1)
	lines = append(lines, "Galleries:")
	for _, g := range groups {
		desc := g.Description
		if desc == "" {
			desc = "no description"
		}
		lines = append(lines, fmt.Sprintf("• %s (id: %s): %s", g.Name, g.ID, desc))
	}
	return Ok(strings.Join(lines, "\n"))
}

func (d *Dispatcher) showGallery(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	raw, ok := blk.Get("group_id")
	if !ok || raw == "" {
		return Errf(KindValidation, "group_id")
	}
	groupID, err := uuid.Parse(raw)
	if err != nil {
		return Errf(KindValidation, "group_id")
	}

	group, err := d.gallery.GetGroup(ctx, ec.TenantID, groupID)
	if err != nil {
		return d.remoteFailure(ec, "SHOW_GALLERY", err)
	}
	return Ok(d.renderGroup(ec.TenantID, group))
}

func (d *Dispatcher) renderGroup(tenantID uuid.UUID, group *gallery.Group) string {
	if len(group.Images) == 0 {
		return fmt.Sprintf("Gallery %q is empty.", group.Name)
	}
	lines := make([]string, 0, len(group.Images)+1)
	lines = append(lines, fmt.Sprintf("Gallery %q:", group.Name))
	for _, img := range group.Images {
		lines = append(lines, fmt.Sprintf("%s/api/v1/tenants/%s/me/gallery/groups/%s/images/%s/file",
			d.publicBaseURL, tenantID, group.ID, img.ID))
	}
	return strings.Join(lines, "\n")
}

// --- Remote handlers: RAG ---

func (d *Dispatcher) ragListDocuments(ctx context.Context, ec ExecutionContext) Result {
	docs, err := d.rag.ListDocuments(ctx, ec.TenantID)
	if err != nil {
		return d.remoteFailure(ec, "RAG_LIST_DOCUMENTS", err)
	}
	if len(docs) == 0 {
		return Ok("There are no documents yet.")
	}
	return Ok(renderDocumentList("Documents:", docs))
}

const maxDocumentPreview = 8000

func (d *Dispatcher) ragGetDocument(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	raw, ok := blk.Get("document_id")
	if !ok || raw == "" {
		return Errf(KindValidation, "document_id")
	}
	docID, err := uuid.Parse(raw)
	if err != nil {
		return Errf(KindValidation, "document_id")
	}

	doc, err := d.rag.GetDocument(ctx, ec.TenantID, docID)
	if err != nil {
		return d.remoteFailure(ec, "RAG_GET_DOCUMENT", err)
	}
	content := doc.ContentMD
	if len([]rune(content)) > maxDocumentPreview {
		content = string([]rune(content)[:maxDocumentPreview])
	}
	return Ok(fmt.Sprintf("Document %q:\n\n%s", doc.Name, content))
}

func (d *Dispatcher) ragSearch(ctx context.Context, ec ExecutionContext, blk CommandBlock) Result {
	query, ok := blk.Get("query")
	if !ok || query == "" {
		query, ok = blk.Get("q")
	}
	if !ok || query == "" {
		return Errf(KindValidation, "query")
	}

	docs, err := d.rag.Search(ctx, ec.TenantID, query)
	if err != nil {
		return d.remoteFailure(ec, "RAG_SEARCH", err)
	}
	if len(docs) == 0 {
		return Ok("Nothing was found for that query.")
	}
	return Ok(renderDocumentList("Found:", docs))
}

func renderDocumentList(header string, docs []rag.Document) string {
	lines := make([]string, 0, len(docs)+1)
	lines = append(lines, header)
	for _, doc := range docs {
		lines = append(lines, fmt.Sprintf("• %s (id: %s)", doc.Name, doc.ID))
	}
	return strings.Join(lines, "\n")
}

// --- Failure classification ---

func (d *Dispatcher) remoteFailure(ec ExecutionContext, cmd string, err error) Result {
	res := classifyRemote(err, cmd)
	d.logger.Warn("Remote command call failed",
		zap.String("command", cmd),
		zap.String("tenantID", ec.TenantID.String()),
		zap.String("kind", res.Kind.String()),
		zap.Error(err))
	return res
}

func classifyRemote(err error, cmd string) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Errf(KindTimeout, "%s: %v", cmd, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Errf(KindTimeout, "%s: %v", cmd, err)
	}
	return Errf(KindUpstream, "%s: %v", cmd, err)
}
