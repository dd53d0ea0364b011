package repository

import (
	"context"
	"fmt"
	"strings"
)

// importTables lists every table loaded by the legacy importer, parents last.
var importTables = []string{
	"finance_transaction_items",
	"finance_transactions",
	"purchase_items",
	"purchase_orders",
	"appointments",
	"work_order_stock_applied",
	"work_order_items",
	"work_orders",
	"inventory_items",
	"mechanics",
	"vehicles",
	"clients",
}

var sequenceTables = []string{
	"clients",
	"vehicles",
	"mechanics",
	"inventory_items",
	"work_orders",
	"work_order_items",
	"appointments",
	"purchase_orders",
	"purchase_items",
	"finance_transactions",
	"finance_transaction_items",
}

// TruncateImportTables empties every table the importer writes. Payment
// methods and categories are kept.
func (t *Tx) TruncateImportTables(ctx context.Context) error {
	query := "TRUNCATE TABLE " + strings.Join(importTables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := t.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// SyncSequences moves every identity sequence past the highest stored id so
// rows inserted with explicit ids do not collide with later inserts.
func (t *Tx) SyncSequences(ctx context.Context) error {
	for _, table := range sequenceTables {
		query := fmt.Sprintf(`
			SELECT setval(
				pg_get_serial_sequence('%s', 'id'),
				COALESCE((SELECT MAX(id) FROM %s), 0) + 1,
				false
			)
		`, table, table)
		if _, err := t.q.Exec(ctx, query); err != nil {
			return fmt.Errorf("sync sequence for %s: %w", table, err)
		}
	}
	return nil
}
