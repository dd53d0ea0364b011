package http

import (
	"net/http"

	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type mechanicRequest struct {
	Name string `json:"name" validate:"required"`
}

type appointmentRequest struct {
	ClientID   int64  `json:"client_id" validate:"required,gt=0"`
	VehicleID  *int64 `json:"vehicle_id" validate:"omitempty,gt=0"`
	MechanicID *int64 `json:"mechanic_id" validate:"omitempty,gt=0"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string `json:"time" validate:"required,datetime=15:04"`
	Notes      string `json:"notes"`
}

func (h *Handler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMechanics(r.Context())
	if err != nil {
		h.fail(w, r, "ListMechanics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) CreateMechanic(w http.ResponseWriter, r *http.Request) {
	var req mechanicRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateMechanic(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, "CreateMechanic", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DeleteMechanic(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeleteMechanic(r.Context(), id); err != nil {
		h.fail(w, r, "DeleteMechanic", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MechanicReport takes start, end and repasse query parameters.
func (h *Handler) MechanicReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	percent, err := parseOptionalFloat(query.Get("repasse"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.svc.MechanicReport(r.Context(), query.Get("start"), query.Get("end"), percent)
	if err != nil {
		h.fail(w, r, "MechanicReport", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ListAgenda(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	agenda, err := h.svc.ListAgenda(r.Context(), query.Get("view"), query.Get("date"))
	if err != nil {
		h.fail(w, r, "ListAgenda", err)
		return
	}
	writeJSON(w, http.StatusOK, agenda)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateAppointment(r.Context(), service.AppointmentInput(req))
	if err != nil {
		h.fail(w, r, "CreateAppointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) MarkReminderSent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.MarkReminderSent(r.Context(), id); err != nil {
		h.fail(w, r, "MarkReminderSent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
