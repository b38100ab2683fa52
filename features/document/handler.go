package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/middleware"
	"ragchat/backend/internal/text"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type pagePayload struct {
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
}

type createRequest struct {
	Source    string        `json:"source"`
	Namespace string        `json:"namespace"`
	Text      string        `json:"text"`
	Pages     []pagePayload `json:"pages"`
}

type createResponse struct {
	ID             string `json:"id"`
	Source         string `json:"source"`
	PagesProcessed int    `json:"pages_processed"`
	ChunksCreated  int    `json:"chunks_created"`
	Status         string `json:"status"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, "INVALID_REQUEST", "invalid json body", http.StatusBadRequest)
		return
	}

	in := IngestRequest{Source: req.Source, Namespace: req.Namespace, Text: req.Text}
	for _, p := range req.Pages {
		in.Pages = append(in.Pages, text.Page{Text: p.Text, Number: p.PageNumber})
	}

	doc, err := h.service.Ingest(ctx, in)
	if err != nil {
		slog.ErrorContext(ctx, "ingest failed", "source", req.Source, "error", err)
		writeFault(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	resp := createResponse{
		ID:             doc.ID,
		Source:         doc.Source,
		PagesProcessed: doc.PageCount,
		ChunksCreated:  doc.ChunkCount,
		Status:         doc.Status,
	}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.service.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "list documents failed", "error", err)
		writeFault(ctx, w, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": docs}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	doc, err := h.service.Get(ctx, id)
	if err != nil {
		writeFault(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.service.Delete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "delete document failed", "id", id, "error", err)
		writeFault(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFault maps the fault taxonomy to HTTP statuses.
func writeFault(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case fault.IsInput(err):
		writeError(ctx, w, "INVALID_INPUT", err.Error(), http.StatusBadRequest)
	case fault.IsNotFound(err):
		writeError(ctx, w, "NOT_FOUND", err.Error(), http.StatusNotFound)
	case fault.IsAuth(err):
		writeError(ctx, w, "AUTH_FAILED", err.Error(), http.StatusUnauthorized)
	case fault.IsDegraded(err) || fault.IsTransient(err):
		writeError(ctx, w, "SERVICE_DEGRADED", err.Error(), http.StatusServiceUnavailable)
	default:
		writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
