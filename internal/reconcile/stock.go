// Package reconcile keeps inventory and the financial ledger consistent with
// work orders and purchase orders. It only talks to storage through the
// store interfaces below so every caller decides the transaction boundary.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"oficina/internal/domain"
)

const epsilon = 1e-9

type StockLevel struct {
	Name      string
	Stock     float64
	CostPrice float64
}

// StockStore is the storage needed to reconcile a work order against
// inventory. Implementations run inside the caller's transaction.
type StockStore interface {
	AppliedParts(ctx context.Context, orderID int64) (map[int64]float64, error)
	StockLevels(ctx context.Context, itemIDs []int64) (map[int64]StockLevel, error)
	// AdjustStock adds delta to the item's stock. Negative deltas debit.
	AdjustStock(ctx context.Context, itemID int64, delta float64) error
	ReplaceAppliedParts(ctx context.Context, orderID int64, parts map[int64]float64) error
}

// DesiredParts sums the quantity per inventory item over the non-labor,
// inventory-linked items of an order. Orders that do not consume stock
// desire nothing.
func DesiredParts(status domain.WorkOrderStatus, items []domain.OrderItem) map[int64]float64 {
	desired := make(map[int64]float64)
	if !status.ConsumesStock() {
		return desired
	}
	for _, item := range items {
		if item.IsLabor || item.InventoryID == nil {
			continue
		}
		desired[*item.InventoryID] += item.Qty
	}
	return desired
}

// StockDeltas returns desired minus applied for every key of either map.
func StockDeltas(desired, applied map[int64]float64) map[int64]float64 {
	deltas := make(map[int64]float64, len(desired)+len(applied))
	for _, id := range unionKeys(desired, applied) {
		deltas[id] = desired[id] - applied[id]
	}
	return deltas
}

// FindShortfalls lists every positive delta that exceeds the current stock.
// Items missing from levels are ignored.
func FindShortfalls(levels map[int64]StockLevel, deltas map[int64]float64) []domain.Shortfall {
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var shortfalls []domain.Shortfall
	for _, id := range ids {
		need := deltas[id]
		if need <= 0 {
			continue
		}
		level, ok := levels[id]
		if !ok {
			continue
		}
		if level.Stock+epsilon < need {
			shortfalls = append(shortfalls, domain.Shortfall{
				ItemID:    id,
				Name:      level.Name,
				Available: level.Stock,
				Needed:    need,
			})
		}
	}
	return shortfalls
}

// ReconcileStock moves inventory so that exactly the desired parts of the
// order are debited. Only the difference against what is already applied is
// moved. When any item lacks stock for its positive delta nothing is
// changed and an *domain.InsufficientStockError is returned.
func ReconcileStock(
	ctx context.Context,
	store StockStore,
	orderID int64,
	status domain.WorkOrderStatus,
	items []domain.OrderItem,
) error {
	applied, err := store.AppliedParts(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load applied parts for work order %d: %w", orderID, err)
	}
	desired := DesiredParts(status, items)
	deltas := StockDeltas(desired, applied)

	needed := make([]int64, 0, len(deltas))
	for _, id := range sortedKeys(deltas) {
		if deltas[id] > 0 {
			needed = append(needed, id)
		}
	}
	if len(needed) > 0 {
		levels, err := store.StockLevels(ctx, needed)
		if err != nil {
			return fmt.Errorf("load stock levels: %w", err)
		}
		if shortfalls := FindShortfalls(levels, deltas); len(shortfalls) > 0 {
			return &domain.InsufficientStockError{Shortfalls: shortfalls}
		}
	}

	for _, id := range sortedKeys(deltas) {
		delta := deltas[id]
		if delta == 0 {
			continue
		}
		if err := store.AdjustStock(ctx, id, -delta); err != nil {
			return fmt.Errorf("adjust stock of item %d: %w", id, err)
		}
	}

	if err := store.ReplaceAppliedParts(ctx, orderID, positiveOnly(desired)); err != nil {
		return fmt.Errorf("record applied parts for work order %d: %w", orderID, err)
	}
	return nil
}

// MarkApplied records the desired parts of an order as already applied
// without touching stock. Used when importing orders whose stock was debited
// by the previous system.
func MarkApplied(
	ctx context.Context,
	store StockStore,
	orderID int64,
	status domain.WorkOrderStatus,
	items []domain.OrderItem,
) error {
	desired := positiveOnly(DesiredParts(status, items))
	if err := store.ReplaceAppliedParts(ctx, orderID, desired); err != nil {
		return fmt.Errorf("mark applied parts for work order %d: %w", orderID, err)
	}
	return nil
}

// ReleaseStock credits back everything applied for an order and clears the
// applied record.
func ReleaseStock(ctx context.Context, store StockStore, orderID int64) error {
	applied, err := store.AppliedParts(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load applied parts for work order %d: %w", orderID, err)
	}
	for _, id := range sortedKeys(applied) {
		if applied[id] == 0 {
			continue
		}
		if err := store.AdjustStock(ctx, id, applied[id]); err != nil {
			return fmt.Errorf("return stock of item %d: %w", id, err)
		}
	}
	if err := store.ReplaceAppliedParts(ctx, orderID, nil); err != nil {
		return fmt.Errorf("clear applied parts for work order %d: %w", orderID, err)
	}
	return nil
}

func positiveOnly(parts map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(parts))
	for id, qty := range parts {
		if qty > 0 {
			out[id] = qty
		}
	}
	return out
}

func unionKeys(a, b map[int64]float64) []int64 {
	set := make(map[int64]struct{}, len(a)+len(b))
	for key := range a {
		set[key] = struct{}{}
	}
	for key := range b {
		set[key] = struct{}{}
	}
	keys := make([]int64, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedKeys(m map[int64]float64) []int64 {
	return unionKeys(m, nil)
}
