package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

type WorkOrderFilter struct {
	Status     domain.WorkOrderStatus
	ClientID   *int64
	VehicleID  *int64
	MechanicID *int64
	From       *time.Time
	To         *time.Time
	Search     string
	Limit      int
	Offset     int
}

const workOrderSelect = `
	SELECT
		o.id,
		o.client_id,
		o.vehicle_id,
		o.mechanic_id,
		o.status,
		o.notes,
		o.labor::double precision,
		o.pay_method,
		o.pay_status,
		o.fin_tx_id,
		o.created_at,
		o.updated_at,
		c.name,
		COALESCE(v.plate, ''),
		COALESCE(v.model, ''),
		COALESCE(m.name, ''),
		COALESCE((SELECT SUM(i.total) FROM work_order_items i WHERE i.work_order_id = o.id), 0)::double precision
	FROM work_orders o
	JOIN clients c ON c.id = o.client_id
	LEFT JOIN vehicles v ON v.id = o.vehicle_id
	LEFT JOIN mechanics m ON m.id = o.mechanic_id
`

// ListWorkOrders returns orders newest first. To is exclusive.
func (s store) ListWorkOrders(ctx context.Context, filter WorkOrderFilter) ([]domain.WorkOrder, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)

	where := make([]string, 0, 6)
	args := make([]any, 0, 8)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("o.status = $%d", string(filter.Status))
	}
	if filter.ClientID != nil {
		add("o.client_id = $%d", *filter.ClientID)
	}
	if filter.VehicleID != nil {
		add("o.vehicle_id = $%d", *filter.VehicleID)
	}
	if filter.MechanicID != nil {
		add("o.mechanic_id = $%d", *filter.MechanicID)
	}
	if filter.From != nil {
		add("o.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("o.created_at < $%d", *filter.To)
	}
	if like := likePattern(filter.Search); like != "" {
		args = append(args, like)
		n := len(args)
		where = append(where, fmt.Sprintf("(c.name ILIKE $%d OR COALESCE(v.plate, '') ILIKE $%d OR o.id::text ILIKE $%d)", n, n, n))
	}

	query := workOrderSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY o.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.WorkOrder, 0)
	for rows.Next() {
		o, err := scanWorkOrderRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work orders: %w", err)
	}
	return orders, nil
}

// GetWorkOrder loads the order header with its joined names. Items are
// loaded separately with ListOrderItems.
func (s store) GetWorkOrder(ctx context.Context, id int64) (*domain.WorkOrder, error) {
	row := s.q.QueryRow(ctx, workOrderSelect+" WHERE o.id = $1", id)
	o, err := scanWorkOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get work order %d: %w", id, err)
	}
	return &o, nil
}

// LockWorkOrder takes a row lock on the order for the rest of the transaction.
func (s store) LockWorkOrder(ctx context.Context, id int64) error {
	var locked int64
	if err := s.q.QueryRow(ctx, "SELECT id FROM work_orders WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock work order %d: %w", id, err)
	}
	return nil
}

// CreateWorkOrder inserts the order header. A positive ID and a non-zero
// CreatedAt are kept as is.
func (s store) CreateWorkOrder(ctx context.Context, o domain.WorkOrder) (int64, error) {
	var createdAt *time.Time
	if !o.CreatedAt.IsZero() {
		createdAt = &o.CreatedAt
	}
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO work_orders (
			id,
			client_id,
			vehicle_id,
			mechanic_id,
			status,
			notes,
			labor,
			pay_method,
			pay_status,
			created_at
		)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('work_orders', 'id'))),
			$2, $3, $4, $5, $6, $7, $8, $9,
			COALESCE($10::timestamptz, NOW())
		)
		RETURNING id
	`,
		nullableID(o.ID),
		o.ClientID,
		o.VehicleID,
		o.MechanicID,
		string(o.Status),
		o.Notes,
		o.Labor,
		o.PayMethod,
		o.PayStatus,
		createdAt,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create work order: %w", mapWriteError(err))
	}
	return id, nil
}

func (s store) UpdateWorkOrder(ctx context.Context, o domain.WorkOrder) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE work_orders
		SET
			vehicle_id = $2,
			mechanic_id = $3,
			status = $4,
			notes = $5,
			labor = $6,
			pay_method = $7,
			pay_status = $8,
			updated_at = NOW()
		WHERE id = $1
	`,
		o.ID,
		o.VehicleID,
		o.MechanicID,
		string(o.Status),
		o.Notes,
		o.Labor,
		o.PayMethod,
		o.PayStatus,
	)
	if err != nil {
		return fmt.Errorf("update work order %d: %w", o.ID, mapWriteError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s store) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			id,
			work_order_id,
			inventory_id,
			description,
			qty::double precision,
			unit_price::double precision,
			total::double precision,
			is_labor
		FROM work_order_items
		WHERE work_order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list work order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item        domain.OrderItem
			inventoryID sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID,
			&item.WorkOrderID,
			&inventoryID,
			&item.Description,
			&item.Qty,
			&item.UnitPrice,
			&item.Total,
			&item.IsLabor,
		); err != nil {
			return nil, fmt.Errorf("scan work order item: %w", err)
		}
		item.InventoryID = nullInt64Ptr(inventoryID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work order items: %w", err)
	}
	return items, nil
}

// ReplaceOrderItems deletes every item of the order and inserts items.
func (s store) ReplaceOrderItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM work_order_items WHERE work_order_id = $1", orderID); err != nil {
		return fmt.Errorf("clear work order items: %w", err)
	}
	for _, item := range items {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO work_order_items (work_order_id, inventory_id, description, qty, unit_price, total, is_labor)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			orderID,
			item.InventoryID,
			item.Description,
			item.Qty,
			item.UnitPrice,
			item.Total,
			item.IsLabor,
		); err != nil {
			return fmt.Errorf("insert work order item %q: %w", item.Description, mapWriteError(err))
		}
	}
	return nil
}

// DeleteWorkOrder removes the order with its items and applied-stock rows.
// Stock must have been released by the caller.
func (s store) DeleteWorkOrder(ctx context.Context, id int64) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM work_order_items WHERE work_order_id = $1", id); err != nil {
		return fmt.Errorf("delete items of work order %d: %w", id, err)
	}
	cmd, err := s.q.Exec(ctx, "DELETE FROM work_orders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete work order %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkOrderRow(row pgx.Row) (domain.WorkOrder, error) {
	var (
		o          domain.WorkOrder
		vehicleID  sql.NullInt64
		mechanicID sql.NullInt64
		finTxID    sql.NullInt64
		updatedAt  sql.NullTime
		status     string
	)
	if err := row.Scan(
		&o.ID,
		&o.ClientID,
		&vehicleID,
		&mechanicID,
		&status,
		&o.Notes,
		&o.Labor,
		&o.PayMethod,
		&o.PayStatus,
		&finTxID,
		&o.CreatedAt,
		&updatedAt,
		&o.ClientName,
		&o.VehiclePlate,
		&o.VehicleModel,
		&o.MechanicName,
		&o.ItemsTotal,
	); err != nil {
		return domain.WorkOrder{}, err
	}
	o.Status = domain.WorkOrderStatus(status)
	o.VehicleID = nullInt64Ptr(vehicleID)
	o.MechanicID = nullInt64Ptr(mechanicID)
	o.FinTxID = nullInt64Ptr(finTxID)
	if updatedAt.Valid {
		value := updatedAt.Time
		o.UpdatedAt = &value
	}
	o.Total = o.Labor + o.ItemsTotal
	return o, nil
}
