package http

import (
	"net/http"

	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type clientRequest struct {
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone" validate:"max=40"`
	Document string `json:"document" validate:"max=40"`
	Address  string `json:"address"`
}

type vehicleRequest struct {
	Plate string `json:"plate" validate:"required_without=Model"`
	Model string `json:"model"`
	Year  *int   `json:"year" validate:"omitempty,gte=1900,lte=2100"`
}

type transferVehicleRequest struct {
	ToClientID int64 `json:"to_client_id" validate:"required,gt=0"`
}

func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "ListClients", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) SearchClients(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SearchClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "SearchClients", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detail, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetClient", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateClient(r.Context(), service.ClientInput(req))
	if err != nil {
		h.fail(w, r, "CreateClient", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req clientRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.UpdateClient(r.Context(), id, service.ClientInput(req))
	if err != nil {
		h.fail(w, r, "UpdateClient", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.svc.ListVehicles(r.Context(), clientID)
	if err != nil {
		h.fail(w, r, "ListVehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req vehicleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.AddVehicle(r.Context(), clientID, service.VehicleInput(req))
	if err != nil {
		h.fail(w, r, "AddVehicle", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vehicleID, err := parseID(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteVehicle(r.Context(), clientID, vehicleID); err != nil {
		h.fail(w, r, "DeleteVehicle", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransferVehicle(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vehicleID, err := parseID(chi.URLParam(r, "vehicleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req transferVehicleRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	if err := h.svc.TransferVehicle(r.Context(), clientID, vehicleID, req.ToClientID); err != nil {
		h.fail(w, r, "TransferVehicle", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicle_id": vehicleID, "client_id": req.ToClientID})
}
