package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/middleware"
	"ragchat/backend/internal/rag"
)

// Answerer is the orchestration capability this feature exposes over HTTP.
type Answerer interface {
	Query(ctx context.Context, message, namespace string) (rag.Answer, error)
}

type Handler struct {
	answerer Answerer
}

func NewHandler(answerer Answerer) *Handler {
	return &Handler{answerer: answerer}
}

type chatRequest struct {
	Message        string `json:"message"`
	Namespace      string `json:"namespace"`
	ConversationID string `json:"conversation_id"`
}

type sourcePayload struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	PageNumber int     `json:"page_number"`
	Score      float32 `json:"score"`
}

type chatResponse struct {
	Response       string          `json:"response"`
	Sources        []sourcePayload `json:"sources"`
	ConversationID string          `json:"conversation_id"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, "INVALID_REQUEST", "invalid json body", http.StatusBadRequest)
		return
	}

	answer, err := h.answerer.Query(ctx, req.Message, req.Namespace)
	if err != nil {
		slog.ErrorContext(ctx, "chat query failed", "error", err)
		writeFault(ctx, w, err)
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	resp := chatResponse{
		Response:       answer.Text,
		Sources:        make([]sourcePayload, 0, len(answer.Sources)),
		ConversationID: conversationID,
	}
	for _, m := range answer.Sources {
		resp.Sources = append(resp.Sources, sourcePayload{
			ChunkID:    m.ChunkID,
			Text:       m.Text,
			Source:     m.Source,
			PageNumber: m.PageNumber,
			Score:      m.Score,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeFault(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case fault.IsInput(err):
		writeError(ctx, w, "INVALID_INPUT", err.Error(), http.StatusBadRequest)
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
