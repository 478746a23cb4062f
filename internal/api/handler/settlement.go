package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ayo6706/swift-remit/internal/service"
	"github.com/google/uuid"
)

// SettlementHandler serves batch settlement submission.
type SettlementHandler struct {
	settlement *service.SettlementService
}

func NewSettlementHandler(settlement *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: settlement}
}

type submitBatchRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids"`
}

// SubmitBatch handles POST /v1/settlement/batches (employee only). Per-item failures
// are reported in the body; the request itself succeeds.
func (h *SettlementHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req submitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	result, err := h.settlement.SubmitBatch(r.Context(), actor, req.TransactionIDs)
	if err != nil {
		RespondServiceError(w, r, "submit batch", err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}
