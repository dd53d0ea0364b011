package http

import (
	"net/http"

	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type purchaseLineRequest struct {
	InventoryID int64   `json:"inventory_id"`
	Qty         float64 `json:"qty"`
	UnitCost    float64 `json:"unit_cost" validate:"gte=0"`
}

type purchaseRequest struct {
	Supplier        string                `json:"supplier" validate:"required"`
	DocNumber       string                `json:"doc_number"`
	Date            string                `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate         *string               `json:"due_date"`
	Status          string                `json:"status"`
	PaymentMethodID *int64                `json:"payment_method_id" validate:"omitempty,gt=0"`
	Notes           string                `json:"notes"`
	Items           []purchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (req purchaseRequest) input() service.PurchaseInput {
	items := make([]service.PurchaseLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.PurchaseLineInput(item))
	}
	return service.PurchaseInput{
		Supplier:        req.Supplier,
		DocNumber:       req.DocNumber,
		Date:            req.Date,
		DueDate:         req.DueDate,
		Status:          req.Status,
		PaymentMethodID: req.PaymentMethodID,
		Notes:           req.Notes,
		Items:           items,
	}
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListPurchases(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, "ListPurchases", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	purchase, err := h.svc.GetPurchase(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetPurchase", err)
		return
	}
	writeJSON(w, http.StatusOK, purchase)
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreatePurchase(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, "CreatePurchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req purchaseRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdatePurchase(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, "UpdatePurchase", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
