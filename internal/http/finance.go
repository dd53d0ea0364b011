package http

import (
	"net/http"

	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type transactionRequest struct {
	Direction       string  `json:"direction" validate:"omitempty,oneof=in out"`
	Description     string  `json:"description" validate:"required"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	Date            string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate         *string `json:"due_date"`
	Status          string  `json:"status"`
	PaymentMethodID *int64  `json:"payment_method_id" validate:"omitempty,gt=0"`
	CategoryID      *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

// transactionPatchRequest edits an entry. Entries linked to a work order or
// a purchase only take status and payment_method_id.
type transactionPatchRequest struct {
	Direction       string  `json:"direction" validate:"omitempty,oneof=in out"`
	Description     string  `json:"description"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	Date            string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate         *string `json:"due_date"`
	Status          string  `json:"status"`
	PaymentMethodID *int64  `json:"payment_method_id" validate:"omitempty,gt=0"`
	CategoryID      *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

type quickServiceRequest struct {
	Description     string  `json:"description" validate:"required"`
	Amount          float64 `json:"amount" validate:"gt=0"`
	Date            string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status          string  `json:"status"`
	PaymentMethodID *int64  `json:"payment_method_id" validate:"omitempty,gt=0"`
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	items, err := h.svc.ListTransactions(r.Context(), service.TransactionQuery{
		Start:     query.Get("start"),
		End:       query.Get("end"),
		Direction: query.Get("direction"),
		Status:    query.Get("status"),
		Search:    query.Get("q"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		h.fail(w, r, "ListTransactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetTransaction", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateTransaction(r.Context(), service.TransactionInput(req))
	if err != nil {
		h.fail(w, r, "CreateTransaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req transactionPatchRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateTransaction(r.Context(), id, service.TransactionInput(req))
	if err != nil {
		h.fail(w, r, "UpdateTransaction", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.CancelTransaction(r.Context(), id); err != nil {
		h.fail(w, r, "CancelTransaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) QuickService(w http.ResponseWriter, r *http.Request) {
	var req quickServiceRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.QuickService(r.Context(), service.QuickServiceInput(req))
	if err != nil {
		h.fail(w, r, "QuickService", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) FinanceDashboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	dashboard, err := h.svc.Dashboard(r.Context(), query.Get("start"), query.Get("end"))
	if err != nil {
		h.fail(w, r, "FinanceDashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) StockStatement(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	itemID, err := parseOptionalInt64(query.Get("inventory_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	statement, err := h.svc.StockStatement(r.Context(), service.StatementQuery{
		Start:     query.Get("start"),
		End:       query.Get("end"),
		Direction: query.Get("direction"),
		RefKind:   query.Get("ref_kind"),
		ItemID:    itemID,
		Search:    query.Get("q"),
	})
	if err != nil {
		h.fail(w, r, "StockStatement", err)
		return
	}
	writeJSON(w, http.StatusOK, statement)
}
