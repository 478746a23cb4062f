package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/swift-remit/internal/domain"
	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/ayo6706/swift-remit/internal/service"
)

// TransactionHandler serves single-transaction routes: submission, reads, the audit
// trail and the verification decision.
type TransactionHandler struct {
	transactions *service.TransactionService
	verification *service.VerificationService
	views        *service.ViewService
	audit        *service.AuditService
}

func NewTransactionHandler(
	transactions *service.TransactionService,
	verification *service.VerificationService,
	views *service.ViewService,
	audit *service.AuditService,
) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		verification: verification,
		views:        views,
		audit:        audit,
	}
}

// Submit handles POST /v1/transactions (customer only).
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var draft domain.TransferDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	t, err := h.transactions.Submit(r.Context(), actor, draft)
	if err != nil {
		RespondServiceError(w, r, "submit transaction", err)
		return
	}
	RespondJSON(w, http.StatusCreated, t)
}

// Get handles GET /v1/transactions/{id}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.views.GetTransaction(r.Context(), actor, id)
	if err != nil {
		RespondServiceError(w, r, "get transaction", err)
		return
	}
	RespondJSON(w, http.StatusOK, t)
}

// Invoice handles GET /v1/transactions/{id}/invoice.
func (h *TransactionHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.views.GetInvoice(r.Context(), actor, id)
	if err != nil {
		RespondServiceError(w, r, "get invoice", err)
		return
	}
	RespondJSON(w, http.StatusOK, inv)
}

// Audit handles GET /v1/transactions/{id}/audit (employee only).
func (h *TransactionHandler) Audit(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.audit.Trail(r.Context(), actor, id)
	if err != nil {
		RespondServiceError(w, r, "audit trail", err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

type verifyResponse struct {
	Status      string              `json:"status"`
	Transaction *models.Transaction `json:"transaction"`
}

type verifyRequest struct {
	Approved *bool   `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

// Verify handles POST /v1/transactions/{id}/verify (employee only).
func (h *TransactionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Approved == nil {
		RespondServiceError(w, r, "verify", models.NewValidationError("approved", "approved is required"))
		return
	}

	t, err := h.verification.Verify(r.Context(), actor, id, service.VerifyRequest{
		Approved: *req.Approved,
		Notes:    req.Notes,
	})
	if err != nil {
		RespondServiceError(w, r, "verify", err)
		return
	}
	RespondJSON(w, http.StatusOK, verifyResponse{Status: t.Status, Transaction: t})
}
