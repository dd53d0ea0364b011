package http

import (
	"net/http"

	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type orderItemRequest struct {
	InventoryID *int64  `json:"inventory_id" validate:"omitempty,gt=0"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty" validate:"gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	IsLabor     bool    `json:"is_labor"`
}

type workOrderRequest struct {
	ClientID     int64              `json:"client_id" validate:"omitempty,gt=0"`
	VehicleID    *int64             `json:"vehicle_id" validate:"omitempty,gt=0"`
	VehiclePlate string             `json:"vehicle_plate"`
	VehicleModel string             `json:"vehicle_model"`
	MechanicID   *int64             `json:"mechanic_id" validate:"omitempty,gt=0"`
	Status       string             `json:"status"`
	Notes        string             `json:"notes"`
	Labor        float64            `json:"labor" validate:"gte=0"`
	PayMethod    string             `json:"pay_method"`
	PayStatus    string             `json:"pay_status"`
	Items        []orderItemRequest `json:"items" validate:"dive"`
}

// input converts the request. ClientID is only read on create, where the
// service requires it.
func (req workOrderRequest) input() service.WorkOrderInput {
	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderItemInput(item))
	}
	return service.WorkOrderInput{
		ClientID:     req.ClientID,
		VehicleID:    req.VehicleID,
		VehiclePlate: req.VehiclePlate,
		VehicleModel: req.VehicleModel,
		MechanicID:   req.MechanicID,
		Status:       req.Status,
		Notes:        req.Notes,
		Labor:        req.Labor,
		PayMethod:    req.PayMethod,
		PayStatus:    req.PayStatus,
		Items:        items,
	}
}

func (h *Handler) ListWorkOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := r.URL.Query()
	mechanicID, err := parseOptionalInt64(query.Get("mechanic_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListWorkOrders(r.Context(), service.WorkOrderQuery{
		Status:     query.Get("status"),
		MechanicID: mechanicID,
		Start:      query.Get("start"),
		End:        query.Get("end"),
		Search:     query.Get("q"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.fail(w, r, "ListWorkOrders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.svc.GetWorkOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetWorkOrder", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var req workOrderRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateWorkOrder(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, "CreateWorkOrder", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req workOrderRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateWorkOrder(r.Context(), id, req.input())
	if err != nil {
		h.fail(w, r, "UpdateWorkOrder", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteWorkOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteWorkOrder(r.Context(), id); err != nil {
		h.fail(w, r, "DeleteWorkOrder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
