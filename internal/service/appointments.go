package service

import (
	"context"
	"strings"
	"time"

	"oficina/internal/domain"
)

type AppointmentInput struct {
	ClientID   int64
	VehicleID  *int64
	MechanicID *int64
	Date       string
	Time       string
	Notes      string
}

// Agenda is the list of appointments of a day or a Monday..Sunday week.
type Agenda struct {
	View         string               `json:"view"`
	Start        string               `json:"start"`
	End          string               `json:"end"`
	Appointments []domain.Appointment `json:"appointments"`
}

func (s *Service) CreateAppointment(ctx context.Context, input AppointmentInput) (domain.Appointment, error) {
	if input.ClientID <= 0 {
		return domain.Appointment{}, invalid("client_id is required")
	}
	date := strings.TrimSpace(input.Date)
	if date == "" {
		return domain.Appointment{}, invalid("date is required")
	}
	if _, err := parseDay(date, time.Time{}); err != nil {
		return domain.Appointment{}, err
	}
	clock := strings.TrimSpace(input.Time)
	if clock == "" {
		return domain.Appointment{}, invalid("time is required")
	}
	if _, err := time.Parse("15:04", clock); err != nil {
		return domain.Appointment{}, invalid("invalid time %q, expected HH:MM", clock)
	}

	appointment := domain.Appointment{
		ClientID:   input.ClientID,
		VehicleID:  input.VehicleID,
		MechanicID: input.MechanicID,
		Date:       date,
		Time:       clock,
		Notes:      strings.TrimSpace(input.Notes),
	}
	id, err := s.repo.CreateAppointment(ctx, appointment)
	if err != nil {
		return domain.Appointment{}, err
	}
	appointment.ID = id
	return appointment, nil
}

// ListAgenda returns the appointments of the day or week around ref, which
// defaults to today.
func (s *Service) ListAgenda(ctx context.Context, view, ref string) (Agenda, error) {
	day, err := parseDay(ref, s.today())
	if err != nil {
		return Agenda{}, err
	}
	view = strings.ToLower(strings.TrimSpace(view))
	if view == "" {
		view = "day"
	}
	if view != "day" && view != "week" {
		return Agenda{}, invalid("view must be day or week")
	}

	from, to := agendaRange(view, day)
	list, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return Agenda{}, err
	}
	return Agenda{
		View:         view,
		Start:        from.Format(domain.DateLayout),
		End:          to.Format(domain.DateLayout),
		Appointments: list,
	}, nil
}

func (s *Service) MarkReminderSent(ctx context.Context, id int64) error {
	return s.repo.MarkReminderSent(ctx, id)
}

// agendaRange returns the inclusive bounds of the view around day.
func agendaRange(view string, day time.Time) (time.Time, time.Time) {
	if view != "week" {
		return day, day
	}
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}
