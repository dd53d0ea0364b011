package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"oficina/internal/domain"
	"oficina/internal/reconcile"

	"github.com/jackc/pgx/v5"
)

type InventoryFilter struct {
	Search   string
	LowStock bool
	Limit    int
	Offset   int
}

const inventoryColumns = `
	id,
	name,
	sku,
	stock::double precision,
	min_stock::double precision,
	price::double precision,
	cost_price::double precision,
	repasse_value::double precision,
	is_labor,
	created_at,
	updated_at
`

func (s store) ListInventory(ctx context.Context, filter InventoryFilter) ([]domain.InventoryItem, error) {
	limit := normalizeLimit(filter.Limit)
	offset := normalizeOffset(filter.Offset)
	like := likePattern(filter.Search)

	query := `SELECT` + inventoryColumns + `
		FROM inventory_items
		WHERE ($1 = '' OR name ILIKE $1 OR COALESCE(sku, '') ILIKE $1)
	`
	if filter.LowStock {
		query += " AND NOT is_labor AND stock <= min_stock"
	}
	if like != "" || filter.LowStock {
		query += " ORDER BY name ASC"
	} else {
		query += " ORDER BY id DESC"
	}
	query += " LIMIT $2 OFFSET $3"

	rows, err := s.q.Query(ctx, query, like, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, limit)
	for rows.Next() {
		item, err := scanInventoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory: %w", err)
	}
	return items, nil
}

// SearchInventory feeds the item autocomplete of the work order form.
func (s store) SearchInventory(ctx context.Context, search string, limit int) ([]domain.InventoryLookup, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, name, price::double precision, stock::double precision
		FROM inventory_items
		WHERE ($1 = '' OR name ILIKE $1 OR COALESCE(sku, '') ILIKE $1)
		ORDER BY name ASC
		LIMIT $2
	`, likePattern(search), limit)
	if err != nil {
		return nil, fmt.Errorf("search inventory: %w", err)
	}
	defer rows.Close()

	list := make([]domain.InventoryLookup, 0, limit)
	for rows.Next() {
		var item domain.InventoryLookup
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Stock); err != nil {
			return nil, fmt.Errorf("scan inventory lookup: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory lookup: %w", err)
	}
	return list, nil
}

func (s store) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	row := s.q.QueryRow(ctx, `SELECT`+inventoryColumns+`FROM inventory_items WHERE id = $1`, id)
	item, err := scanInventoryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get inventory item %d: %w", id, err)
	}
	return &item, nil
}

// CreateInventoryItem inserts the item. A positive ID is kept as is.
func (s store) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO inventory_items (
			id,
			name,
			sku,
			stock,
			min_stock,
			price,
			cost_price,
			repasse_value,
			is_labor
		)
		VALUES (
			COALESCE($1::bigint, nextval(pg_get_serial_sequence('inventory_items', 'id'))),
			$2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING`+inventoryColumns,
		nullableID(item.ID),
		item.Name,
		item.SKU,
		item.Stock,
		item.MinStock,
		item.Price,
		item.CostPrice,
		item.RepasseValue,
		item.IsLabor,
	)
	created, err := scanInventoryRow(row)
	if err != nil {
		return domain.InventoryItem{}, fmt.Errorf("create inventory item: %w", mapWriteError(err))
	}
	return created, nil
}

func (s store) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE inventory_items
		SET
			name = $2,
			sku = $3,
			stock = $4,
			min_stock = $5,
			price = $6,
			cost_price = $7,
			repasse_value = $8,
			is_labor = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING`+inventoryColumns,
		item.ID,
		item.Name,
		item.SKU,
		item.Stock,
		item.MinStock,
		item.Price,
		item.CostPrice,
		item.RepasseValue,
		item.IsLabor,
	)
	updated, err := scanInventoryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InventoryItem{}, ErrNotFound
		}
		return domain.InventoryItem{}, fmt.Errorf("update inventory item %d: %w", item.ID, mapWriteError(err))
	}
	return updated, nil
}

func (s store) GetInventorySummary(ctx context.Context) (domain.InventorySummary, error) {
	row := s.q.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COALESCE(SUM(stock) FILTER (WHERE NOT is_labor), 0)::double precision,
			COALESCE(SUM(stock * cost_price) FILTER (WHERE NOT is_labor), 0)::double precision,
			COUNT(*) FILTER (WHERE NOT is_labor AND stock <= min_stock)::int
		FROM inventory_items
	`)
	var summary domain.InventorySummary
	if err := row.Scan(
		&summary.TotalItems,
		&summary.TotalStock,
		&summary.InventoryValue,
		&summary.LowStockItems,
	); err != nil {
		return domain.InventorySummary{}, fmt.Errorf("inventory summary: %w", err)
	}
	return summary, nil
}

// ImportInventoryRows upserts sheet rows by SKU. Rows whose SKU is unknown
// or empty are inserted under a free SKU derived from theirs.
func (s store) ImportInventoryRows(ctx context.Context, rows []domain.InventoryImportRow) (int, int, error) {
	created := 0
	updated := 0
	for _, line := range rows {
		name := strings.TrimSpace(line.Name)
		sku := strings.TrimSpace(line.SKU)

		var existingID int64
		err := pgx.ErrNoRows
		if sku != "" {
			err = s.q.QueryRow(ctx, "SELECT id FROM inventory_items WHERE sku = $1", sku).Scan(&existingID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return 0, 0, fmt.Errorf("query inventory sku %q: %w", sku, err)
			}
		}

		if err == nil {
			if _, err := s.q.Exec(ctx, `
				UPDATE inventory_items
				SET
					name = $2,
					stock = $3,
					min_stock = $4,
					price = $5,
					cost_price = $6,
					is_labor = FALSE,
					repasse_value = 0,
					updated_at = NOW()
				WHERE id = $1
			`, existingID, name, line.Stock, line.MinStock, line.Price, line.CostPrice); err != nil {
				return 0, 0, fmt.Errorf("update imported item %q: %w", sku, err)
			}
			updated++
			continue
		}

		finalSKU, err := uniqueSKU(sku, func(candidate string) (bool, error) {
			return s.skuExists(ctx, candidate)
		})
		if err != nil {
			return 0, 0, err
		}
		if _, err := s.q.Exec(ctx, `
			INSERT INTO inventory_items (name, sku, stock, min_stock, price, cost_price, is_labor, repasse_value)
			VALUES ($1, $2, $3, $4, $5, $6, FALSE, 0)
		`, name, finalSKU, line.Stock, line.MinStock, line.Price, line.CostPrice); err != nil {
			return 0, 0, fmt.Errorf("insert imported item %q: %w", finalSKU, err)
		}
		created++
	}
	return created, updated, nil
}

func (s store) skuExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	if err := s.q.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM inventory_items WHERE sku = $1)",
		sku,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check sku %q: %w", sku, err)
	}
	return exists, nil
}

// uniqueSKU returns base when free, otherwise the first free "<prefix>-n"
// where prefix is base up to its first dash and n starts at 2.
func uniqueSKU(base string, exists func(string) (bool, error)) (string, error) {
	candidate := strings.TrimSpace(base)
	if candidate == "" {
		candidate = "SKU"
	}
	for n := 2; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", strings.SplitN(candidate, "-", 2)[0], n)
	}
}

// AppliedParts returns the quantities already debited for a work order.
func (s store) AppliedParts(ctx context.Context, orderID int64) (map[int64]float64, error) {
	rows, err := s.q.Query(ctx, `
		SELECT inventory_id, qty::double precision
		FROM work_order_stock_applied
		WHERE work_order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load applied parts: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]float64)
	for rows.Next() {
		var (
			itemID int64
			qty    float64
		)
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("scan applied part: %w", err)
		}
		applied[itemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied parts: %w", err)
	}
	return applied, nil
}

func (s store) ReplaceAppliedParts(ctx context.Context, orderID int64, parts map[int64]float64) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM work_order_stock_applied WHERE work_order_id = $1", orderID); err != nil {
		return fmt.Errorf("clear applied parts: %w", err)
	}
	for itemID, qty := range parts {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO work_order_stock_applied (work_order_id, inventory_id, qty, updated_at)
			VALUES ($1, $2, $3, NOW())
		`, orderID, itemID, qty); err != nil {
			return fmt.Errorf("insert applied part %d: %w", itemID, mapWriteError(err))
		}
	}
	return nil
}

// StockLevels locks the given items and returns their stock and cost.
func (s store) StockLevels(ctx context.Context, itemIDs []int64) (map[int64]reconcile.StockLevel, error) {
	levels := make(map[int64]reconcile.StockLevel, len(itemIDs))
	if len(itemIDs) == 0 {
		return levels, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, name, stock::double precision, cost_price::double precision
		FROM inventory_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			level reconcile.StockLevel
		)
		if err := rows.Scan(&id, &level.Name, &level.Stock, &level.CostPrice); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels[id] = level
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock levels: %w", err)
	}
	return levels, nil
}

func (s store) AdjustStock(ctx context.Context, itemID int64, delta float64) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE inventory_items
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, itemID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock of item %d: %w", itemID, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("adjust stock of item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func (s store) SetCostPrice(ctx context.Context, itemID int64, cost float64) error {
	if _, err := s.q.Exec(ctx, `
		UPDATE inventory_items
		SET cost_price = $2, updated_at = NOW()
		WHERE id = $1
	`, itemID, cost); err != nil {
		return fmt.Errorf("set cost price of item %d: %w", itemID, err)
	}
	return nil
}

func scanInventoryRow(row pgx.Row) (domain.InventoryItem, error) {
	var (
		item domain.InventoryItem
		sku  sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.Name,
		&sku,
		&item.Stock,
		&item.MinStock,
		&item.Price,
		&item.CostPrice,
		&item.RepasseValue,
		&item.IsLabor,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return domain.InventoryItem{}, err
	}
	if sku.Valid {
		value := sku.String
		item.SKU = &value
	}
	return item, nil
}
