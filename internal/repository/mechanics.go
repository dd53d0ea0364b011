package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (s store) ListMechanics(ctx context.Context) ([]domain.Mechanic, error) {
	rows, err := s.q.Query(ctx, "SELECT id, name FROM mechanics ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list mechanics: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Mechanic, 0)
	for rows.Next() {
		var m domain.Mechanic
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan mechanic: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mechanics: %w", err)
	}
	return list, nil
}

func (s store) GetMechanic(ctx context.Context, id int64) (*domain.Mechanic, error) {
	var m domain.Mechanic
	if err := s.q.QueryRow(ctx, "SELECT id, name FROM mechanics WHERE id = $1", id).Scan(&m.ID, &m.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mechanic %d: %w", id, err)
	}
	return &m, nil
}

// CreateMechanic fails with ErrConflict when the name already exists
// ignoring case. A positive ID is kept as is.
func (s store) CreateMechanic(ctx context.Context, m domain.Mechanic) (domain.Mechanic, error) {
	var created domain.Mechanic
	err := s.q.QueryRow(ctx, `
		INSERT INTO mechanics (id, name)
		VALUES (COALESCE($1::bigint, nextval(pg_get_serial_sequence('mechanics', 'id'))), $2)
		RETURNING id, name
	`, nullableID(m.ID), m.Name).Scan(&created.ID, &created.Name)
	if err != nil {
		return domain.Mechanic{}, fmt.Errorf("create mechanic: %w", mapWriteError(err))
	}
	return created, nil
}

// DeleteMechanic refuses with ErrConflict while work orders reference the mechanic.
func (s store) DeleteMechanic(ctx context.Context, id int64) error {
	var used int
	if err := s.q.QueryRow(ctx, "SELECT COUNT(*)::int FROM work_orders WHERE mechanic_id = $1", id).Scan(&used); err != nil {
		return fmt.Errorf("count work orders of mechanic %d: %w", id, err)
	}
	if used > 0 {
		return fmt.Errorf("%w: mechanic %d has %d work orders", ErrConflict, id, used)
	}
	if _, err := s.q.Exec(ctx, "UPDATE appointments SET mechanic_id = NULL WHERE mechanic_id = $1", id); err != nil {
		return fmt.Errorf("unlink appointments of mechanic %d: %w", id, err)
	}
	cmd, err := s.q.Exec(ctx, "DELETE FROM mechanics WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete mechanic %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MechanicTotals aggregates the work orders created in [from, to) per
// mechanic. Every mechanic is listed, including those without orders.
// Only OrderCount, LaborTotal, PartsTotal and Total are filled.
func (s store) MechanicTotals(ctx context.Context, from, to time.Time) ([]domain.MechanicReportRow, error) {
	rows, err := s.q.Query(ctx, `
		WITH period AS (
			SELECT id, mechanic_id, labor
			FROM work_orders
			WHERE created_at >= $1 AND created_at < $2
		),
		base AS (
			SELECT mechanic_id, COUNT(*) AS order_count, COALESCE(SUM(labor), 0) AS base_labor
			FROM period
			GROUP BY mechanic_id
		),
		items AS (
			SELECT
				p.mechanic_id,
				COALESCE(SUM(CASE WHEN i.is_labor THEN i.total ELSE 0 END), 0) AS item_labor,
				COALESCE(SUM(CASE WHEN NOT i.is_labor THEN i.total ELSE 0 END), 0) AS item_parts
			FROM period p
			LEFT JOIN work_order_items i ON i.work_order_id = p.id
			GROUP BY p.mechanic_id
		)
		SELECT
			m.id,
			m.name,
			COALESCE(b.order_count, 0)::int,
			(COALESCE(b.base_labor, 0) + COALESCE(i.item_labor, 0))::double precision,
			COALESCE(i.item_parts, 0)::double precision
		FROM mechanics m
		LEFT JOIN base b ON b.mechanic_id = m.id
		LEFT JOIN items i ON i.mechanic_id = m.id
		ORDER BY (COALESCE(b.base_labor, 0) + COALESCE(i.item_labor, 0) + COALESCE(i.item_parts, 0)) DESC, m.name ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("mechanic totals: %w", err)
	}
	defer rows.Close()

	list := make([]domain.MechanicReportRow, 0)
	for rows.Next() {
		var row domain.MechanicReportRow
		if err := rows.Scan(&row.MechanicID, &row.Mechanic, &row.OrderCount, &row.LaborTotal, &row.PartsTotal); err != nil {
			return nil, fmt.Errorf("scan mechanic totals: %w", err)
		}
		row.Total = row.LaborTotal + row.PartsTotal
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mechanic totals: %w", err)
	}
	return list, nil
}

// MechanicOrders lists the work orders with a mechanic created in [from, to).
func (s store) MechanicOrders(ctx context.Context, from, to time.Time) ([]domain.MechanicOrderRow, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			o.id,
			m.id,
			m.name,
			to_char(o.created_at, 'YYYY-MM-DD HH24:MI'),
			c.name,
			COALESCE(v.plate, ''),
			o.labor::double precision,
			COALESCE(SUM(i.total), 0)::double precision
		FROM work_orders o
		JOIN mechanics m ON m.id = o.mechanic_id
		JOIN clients c ON c.id = o.client_id
		LEFT JOIN vehicles v ON v.id = o.vehicle_id
		LEFT JOIN work_order_items i ON i.work_order_id = o.id
		WHERE o.created_at >= $1 AND o.created_at < $2
		GROUP BY o.id, m.id, m.name, c.name, v.plate
		ORDER BY m.name ASC, o.id DESC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("mechanic orders: %w", err)
	}
	defer rows.Close()

	list := make([]domain.MechanicOrderRow, 0)
	for rows.Next() {
		var row domain.MechanicOrderRow
		if err := rows.Scan(
			&row.OrderID,
			&row.MechanicID,
			&row.Mechanic,
			&row.CreatedAt,
			&row.ClientName,
			&row.VehiclePlate,
			&row.Labor,
			&row.ItemsTotal,
		); err != nil {
			return nil, fmt.Errorf("scan mechanic order: %w", err)
		}
		row.Total = row.Labor + row.ItemsTotal
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mechanic orders: %w", err)
	}
	return list, nil
}
