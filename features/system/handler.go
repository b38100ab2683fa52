package system

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"ragchat/backend/internal/middleware"
	"ragchat/backend/internal/rag"
	"ragchat/backend/internal/vectorstore"
)

type DocumentRepo interface {
	Count(ctx context.Context) (int, error)
}

type Prober interface {
	Health(ctx context.Context) rag.HealthReport
	Stats(ctx context.Context, namespace string) (vectorstore.Stats, error)
}

type Handler struct {
	prober Prober
	docs   DocumentRepo
}

func NewHandler(prober Prober, docs DocumentRepo) *Handler {
	return &Handler{prober: prober, docs: docs}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := h.prober.Health(ctx)

	status := http.StatusOK
	if report.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

type statsResponse struct {
	VectorCount int            `json:"vector_count"`
	Dimension   int            `json:"dimension"`
	Namespaces  map[string]int `json:"namespaces"`
	Documents   int            `json:"documents"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	namespace := r.URL.Query().Get("namespace")

	stats, err := h.prober.Stats(ctx, namespace)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read index stats", "error", err)
		writeError(ctx, w, "SERVICE_DEGRADED", err.Error(), http.StatusServiceUnavailable)
		return
	}

	docCount, err := h.docs.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err)
		writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	resp := statsResponse{
		VectorCount: stats.VectorCount,
		Dimension:   stats.Dimension,
		Namespaces:  stats.Namespaces,
		Documents:   docCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
