package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/parley/internal/api"
	"github.com/cloo-solutions/parley/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message       string  `json:"message"`
	Domain        string  `json:"domain"`
	UseDomain     bool    `json:"use_domain"`
	MinConfidence float64 `json:"min_confidence"`
}

type ChatResponse struct {
	Response string   `json:"response"`
	Source   string   `json:"source"`
	Score    *float64 `json:"score,omitempty"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	output, err := h.svc.Chat(r.Context(), service.ChatInput{
		ConversationID: id,
		Message:        req.Message,
		Domain:         req.Domain,
		UseDomain:      req.UseDomain,
		MinConfidence:  req.MinConfidence,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &ChatResponse{
		Response: output.Response,
		Source:   output.Source,
	}
	if output.Source == service.SourceDomain {
		score := output.Score
		resp.Score = &score
	}

	api.Success(w, http.StatusOK, resp)
}
