package handler

import (
	"net/http"

	"github.com/ayo6706/swift-remit/internal/service"
)

// ViewHandler serves the role-scoped list views.
type ViewHandler struct {
	views *service.ViewService
}

func NewViewHandler(views *service.ViewService) *ViewHandler {
	return &ViewHandler{views: views}
}

// PendingQueue handles GET /v1/queues/pending.
func (h *ViewHandler) PendingQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.PendingQueue(r.Context(), actor, page)
	if err != nil {
		RespondServiceError(w, r, "pending queue", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// VerifiedQueue handles GET /v1/queues/verified.
func (h *ViewHandler) VerifiedQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.VerifiedQueue(r.Context(), actor, page)
	if err != nil {
		RespondServiceError(w, r, "verified queue", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// AllTransactions handles GET /v1/transactions?status=.
func (h *ViewHandler) AllTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.AllTransactions(r.Context(), actor, r.URL.Query().Get("status"), page)
	if err != nil {
		RespondServiceError(w, r, "all transactions", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// AcceptedArchive handles GET /v1/archive/accepted?employee_email=.
func (h *ViewHandler) AcceptedArchive(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.AcceptedArchive(r.Context(), actor, r.URL.Query().Get("employee_email"), page)
	if err != nil {
		RespondServiceError(w, r, "accepted archive", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// MyTransactions handles GET /v1/me/transactions.
func (h *ViewHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.CustomerTransactions(r.Context(), actor, actor.ID, page)
	if err != nil {
		RespondServiceError(w, r, "customer transactions", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// MyInvoices handles GET /v1/me/invoices.
func (h *ViewHandler) MyInvoices(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.CustomerInvoices(r.Context(), actor, actor.ID, page)
	if err != nil {
		RespondServiceError(w, r, "customer invoices", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}

// CustomerInvoices handles GET /v1/customers/{id}/invoices.
func (h *ViewHandler) CustomerInvoices(w http.ResponseWriter, r *http.Request) {
	actor, ok := requestActor(w, r)
	if !ok {
		return
	}
	customerID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.views.CustomerInvoices(r.Context(), actor, customerID, page)
	if err != nil {
		RespondServiceError(w, r, "customer invoices", err)
		return
	}
	RespondJSON(w, http.StatusOK, listResponse(items, page))
}
