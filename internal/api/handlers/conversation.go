package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/parley/internal/api"
	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/pagination"
)

type ConversationService interface {
	Start(ctx context.Context, title string) (*domain.Conversation, error)
	History(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[domain.Conversation], error)
}

type ConversationHandler struct {
	svc ConversationService
}

func NewConversationHandler(svc ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type StartConversationRequest struct {
	Title string `json:"title"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type TurnResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ConversationPageResponse struct {
	Items   []*ConversationResponse `json:"items"`
	Cursor  string                  `json:"cursor,omitempty"`
	HasMore bool                    `json:"has_more"`
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func turnToResponse(t *domain.Turn) *TurnResponse {
	return &TurnResponse{
		ID:        t.ID,
		Role:      string(t.Role),
		Content:   t.Content,
		Timestamp: t.Timestamp.Format("2006-01-02T15:04:05.000000Z"),
	}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	conversation, err := h.svc.Start(r.Context(), req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, conversationToResponse(conversation))
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := &ConversationPageResponse{
		Items:   make([]*ConversationResponse, 0, len(page.Items)),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, conversationToResponse(&page.Items[i]))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	turns, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*TurnResponse, 0, len(turns))
	for i := range turns {
		resp = append(resp, turnToResponse(&turns[i]))
	}

	api.Success(w, http.StatusOK, resp)
}
