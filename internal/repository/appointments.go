package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

// CreateAppointment inserts the appointment. A positive ID is kept as is.
func (s store) CreateAppointment(ctx context.Context, a domain.Appointment) (int64, error) {
	date, err := parseDate(a.Date)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO appointments (id, client_id, vehicle_id, mechanic_id, date, time, notes, reminder_sent)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('appointments', 'id'))),
			$2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`,
		nullableID(a.ID),
		a.ClientID,
		a.VehicleID,
		a.MechanicID,
		date,
		a.Time,
		a.Notes,
		a.ReminderSent,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create appointment: %w", mapWriteError(err))
	}
	return id, nil
}

// ListAppointments returns the appointments dated within [from, to], both inclusive.
func (s store) ListAppointments(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			a.id,
			a.client_id,
			a.vehicle_id,
			a.mechanic_id,
			to_char(a.date, 'YYYY-MM-DD'),
			a.time,
			a.notes,
			a.reminder_sent,
			a.created_at,
			c.name,
			COALESCE(v.plate, ''),
			COALESCE(v.model, ''),
			COALESCE(m.name, '')
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		LEFT JOIN vehicles v ON v.id = a.vehicle_id
		LEFT JOIN mechanics m ON m.id = a.mechanic_id
		WHERE a.date BETWEEN $1 AND $2
		ORDER BY a.date ASC, a.time ASC, a.id ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return list, nil
}

func (s store) MarkReminderSent(ctx context.Context, id int64) error {
	cmd, err := s.q.Exec(ctx, "UPDATE appointments SET reminder_sent = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark reminder of appointment %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAppointmentRow(row pgx.Row) (domain.Appointment, error) {
	var (
		a          domain.Appointment
		vehicleID  sql.NullInt64
		mechanicID sql.NullInt64
	)
	if err := row.Scan(
		&a.ID,
		&a.ClientID,
		&vehicleID,
		&mechanicID,
		&a.Date,
		&a.Time,
		&a.Notes,
		&a.ReminderSent,
		&a.CreatedAt,
		&a.ClientName,
		&a.VehiclePlate,
		&a.VehicleModel,
		&a.MechanicName,
	); err != nil {
		return domain.Appointment{}, err
	}
	a.VehicleID = nullInt64Ptr(vehicleID)
	a.MechanicID = nullInt64Ptr(mechanicID)
	return a, nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
