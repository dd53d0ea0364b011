package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

const purchaseSelect = `
	SELECT
		p.id,
		p.supplier,
		p.doc_number,
		to_char(p.date, 'YYYY-MM-DD'),
		to_char(p.due_date, 'YYYY-MM-DD'),
		p.status,
		p.payment_method_id,
		p.notes,
		p.total::double precision,
		p.fin_tx_id,
		p.created_at,
		p.updated_at,
		COALESCE(pm.name, '')
	FROM purchase_orders p
	LEFT JOIN payment_methods pm ON pm.id = p.payment_method_id
`

func (s store) ListPurchases(ctx context.Context, limit, offset int) ([]domain.PurchaseOrder, error) {
	rows, err := s.q.Query(ctx,
		purchaseSelect+" ORDER BY p.date DESC, p.id DESC LIMIT $1 OFFSET $2",
		normalizeLimit(limit),
		normalizeOffset(offset),
	)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	list := make([]domain.PurchaseOrder, 0)
	for rows.Next() {
		p, err := scanPurchaseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return list, nil
}

func (s store) GetPurchase(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	row := s.q.QueryRow(ctx, purchaseSelect+" WHERE p.id = $1", id)
	p, err := scanPurchaseRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get purchase %d: %w", id, err)
	}
	return &p, nil
}

func (s store) LockPurchase(ctx context.Context, id int64) error {
	var locked int64
	if err := s.q.QueryRow(ctx, "SELECT id FROM purchase_orders WHERE id = $1 FOR UPDATE", id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock purchase %d: %w", id, err)
	}
	return nil
}

// CreatePurchase inserts the purchase header. A positive ID is kept as is.
func (s store) CreatePurchase(ctx context.Context, p domain.PurchaseOrder) (int64, error) {
	date, dueDate, err := purchaseDates(p)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO purchase_orders (
			id,
			supplier,
			doc_number,
			date,
			due_date,
			status,
			payment_method_id,
			notes,
			total
		)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('purchase_orders', 'id'))),
			$2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id
	`,
		nullableID(p.ID),
		p.Supplier,
		p.DocNumber,
		date,
		dueDate,
		string(p.Status),
		p.PaymentMethodID,
		p.Notes,
		p.Total,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("create purchase: %w", mapWriteError(err))
	}
	return id, nil
}

func (s store) UpdatePurchase(ctx context.Context, p domain.PurchaseOrder) error {
	date, dueDate, err := purchaseDates(p)
	if err != nil {
		return err
	}
	cmd, err := s.q.Exec(ctx, `
		UPDATE purchase_orders
		SET
			supplier = $2,
			doc_number = $3,
			date = $4,
			due_date = $5,
			status = $6,
			payment_method_id = $7,
			notes = $8,
			total = $9,
			updated_at = NOW()
		WHERE id = $1
	`,
		p.ID,
		p.Supplier,
		p.DocNumber,
		date,
		dueDate,
		string(p.Status),
		p.PaymentMethodID,
		p.Notes,
		p.Total,
	)
	if err != nil {
		return fmt.Errorf("update purchase %d: %w", p.ID, mapWriteError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func purchaseDates(p domain.PurchaseOrder) (time.Time, *time.Time, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return time.Time{}, nil, err
	}
	dueDate, err := parseOptionalDate(p.DueDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	return date, dueDate, nil
}

// ListPurchaseItems returns the lines with their inventory names, in insertion order.
func (s store) ListPurchaseItems(ctx context.Context, purchaseID int64) ([]domain.PurchaseItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			pi.id,
			pi.purchase_id,
			pi.inventory_id,
			pi.qty::double precision,
			pi.unit_cost::double precision,
			pi.total::double precision,
			i.name,
			COALESCE(i.sku, '')
		FROM purchase_items pi
		JOIN inventory_items i ON i.id = pi.inventory_id
		WHERE pi.purchase_id = $1
		ORDER BY pi.id ASC
	`, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list purchase items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.PurchaseItem, 0)
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(
			&item.ID,
			&item.PurchaseID,
			&item.InventoryID,
			&item.Qty,
			&item.UnitCost,
			&item.Total,
			&item.InventoryName,
			&item.InventorySKU,
		); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase items: %w", err)
	}
	return items, nil
}

func (s store) ReplacePurchaseItems(ctx context.Context, purchaseID int64, items []domain.PurchaseItem) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM purchase_items WHERE purchase_id = $1", purchaseID); err != nil {
		return fmt.Errorf("clear purchase items: %w", err)
	}
	for _, item := range items {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO purchase_items (purchase_id, inventory_id, qty, unit_cost, total)
			VALUES ($1, $2, $3, $4, $5)
		`, purchaseID, item.InventoryID, item.Qty, item.UnitCost, item.Total); err != nil {
			return fmt.Errorf("insert purchase item %d: %w", item.InventoryID, mapWriteError(err))
		}
	}
	return nil
}

func scanPurchaseRow(row pgx.Row) (domain.PurchaseOrder, error) {
	var (
		p         domain.PurchaseOrder
		dueDate   sql.NullString
		status    string
		methodID  sql.NullInt64
		finTxID   sql.NullInt64
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.Supplier,
		&p.DocNumber,
		&p.Date,
		&dueDate,
		&status,
		&methodID,
		&p.Notes,
		&p.Total,
		&finTxID,
		&p.CreatedAt,
		&updatedAt,
		&p.PaymentMethodName,
	); err != nil {
		return domain.PurchaseOrder{}, err
	}
	p.Status = domain.TransactionStatus(status)
	p.PaymentMethodID = nullInt64Ptr(methodID)
	p.FinTxID = nullInt64Ptr(finTxID)
	if dueDate.Valid {
		value := dueDate.String
		p.DueDate = &value
	}
	if updatedAt.Valid {
		value := updatedAt.Time
		p.UpdatedAt = &value
	}
	return p, nil
}
