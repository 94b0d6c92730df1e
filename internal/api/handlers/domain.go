package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/parley/internal/api"
	"github.com/cloo-solutions/parley/internal/domain"
	"github.com/cloo-solutions/parley/internal/service"
)

type RecordService interface {
	AddRecord(ctx context.Context, domainName, question, answer string, embed bool) (*domain.DomainRecord, error)
	ListByDomain(ctx context.Context, domainName string) ([]domain.DomainRecord, error)
	ImportCSV(ctx context.Context, domainName string, r io.Reader) (*service.ImportResult, error)
}

type DomainHandler struct {
	svc RecordService
}

func NewDomainHandler(svc RecordService) *DomainHandler {
	return &DomainHandler{svc: svc}
}

type AddRecordRequest struct {
	Domain   string `json:"domain"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	// Embed defaults to true; pass false to store the record without an
	// embedding and leave it on the lexical path.
	Embed *bool `json:"embed,omitempty"`
}

type RecordResponse struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Embedded  bool   `json:"embedded"`
	CreatedAt string `json:"created_at"`
}

type ImportResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

func recordToResponse(rec *domain.DomainRecord) *RecordResponse {
	return &RecordResponse{
		ID:        rec.ID,
		Domain:    rec.Domain,
		Question:  rec.Question,
		Answer:    rec.Answer,
		Embedded:  rec.HasEmbedding(),
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DomainHandler) AddRecord(w http.ResponseWriter, r *http.Request) {
	var req AddRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Domain == "" {
		api.Error(w, http.StatusBadRequest, "domain is required")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.Answer == "" {
		api.Error(w, http.StatusBadRequest, "answer is required")
		return
	}

	embed := req.Embed == nil || *req.Embed
	record, err := h.svc.AddRecord(r.Context(), req.Domain, req.Question, req.Answer, embed)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, recordToResponse(record))
}

func (h *DomainHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	domainName := chi.URLParam(r, "domain")
	if domainName == "" {
		api.Error(w, http.StatusBadRequest, "domain is required")
		return
	}

	records, err := h.svc.ListByDomain(r.Context(), domainName)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*RecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, recordToResponse(&records[i]))
	}

	api.Success(w, http.StatusOK, resp)
}

// Import loads question/answer pairs from a CSV request body into the
// domain named in the URL.
func (h *DomainHandler) Import(w http.ResponseWriter, r *http.Request) {
	domainName := chi.URLParam(r, "domain")
	if domainName == "" {
		api.Error(w, http.StatusBadRequest, "domain is required")
		return
	}

	result, err := h.svc.ImportCSV(r.Context(), domainName, r.Body)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ImportResponse{
		Inserted: result.Inserted,
		Skipped:  result.Skipped,
	})
}
