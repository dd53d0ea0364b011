package reconcile

import (
	"context"
	"errors"
	"testing"

	"oficina/internal/domain"
)

func TestDesiredParts(t *testing.T) {
	items := []domain.OrderItem{
		part(1, 2),
		part(1, 1.5),
		part(2, 4),
		{Description: "Alinhamento", Qty: 1, UnitPrice: 80, Total: 80, IsLabor: true},
		{Description: "Peça avulsa", Qty: 3, UnitPrice: 5, Total: 15},
		{InventoryID: ptr(int64(3)), Description: "Serviço com código", Qty: 1, IsLabor: true},
	}

	got := DesiredParts(domain.StatusClosed, items)
	want := map[int64]float64{1: 3.5, 2: 4}
	if len(got) != len(want) {
		t.Fatalf("desired = %v, want %v", got, want)
	}
	for id, qty := range want {
		if got[id] != qty {
			t.Fatalf("desired[%d] = %v, want %v", id, got[id], qty)
		}
	}

	for _, status := range []domain.WorkOrderStatus{domain.StatusOpen, domain.StatusInProgress, domain.StatusCancelled} {
		if got := DesiredParts(status, items); len(got) != 0 {
			t.Fatalf("status %s desired = %v, want empty", status, got)
		}
	}
}

func TestStockDeltas(t *testing.T) {
	deltas := StockDeltas(
		map[int64]float64{1: 3, 2: 1},
		map[int64]float64{1: 5, 3: 2},
	)
	want := map[int64]float64{1: -2, 2: 1, 3: -2}
	for id, d := range want {
		if deltas[id] != d {
			t.Fatalf("delta[%d] = %v, want %v", id, deltas[id], d)
		}
	}
}

func TestReconcileStockClosingTwiceDebitsOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Filtro de Óleo", 10, 20)
	items := []domain.OrderItem{part(1, 2)}

	for i := 0; i < 2; i++ {
		if err := ReconcileStock(ctx, store, 7, domain.StatusClosed, items); err != nil {
			t.Fatalf("reconcile #%d: %v", i+1, err)
		}
	}

	if got := store.stockOf(1); got != 8 {
		t.Fatalf("stock = %v, want 8", got)
	}
	if got := store.applied[7][1]; got != 2 {
		t.Fatalf("applied = %v, want 2", got)
	}
	if store.adjustCalls != 1 {
		t.Fatalf("adjust calls = %d, want 1", store.adjustCalls)
	}
}

func TestReconcileStockReopenRestoresStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Óleo 5W30", 10, 30)
	store.addItem(2, "Filtro de Ar", 4, 25)
	items := []domain.OrderItem{part(1, 3), part(2, 1)}

	if err := ReconcileStock(ctx, store, 1, domain.StatusClosed, items); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ReconcileStock(ctx, store, 1, domain.StatusOpen, items); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if store.stockOf(1) != 10 || store.stockOf(2) != 4 {
		t.Fatalf("stock = %v/%v, want 10/4", store.stockOf(1), store.stockOf(2))
	}
	if len(store.applied[1]) != 0 {
		t.Fatalf("applied = %v, want empty", store.applied[1])
	}
}

func TestReconcileStockCancelReturnsStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Pastilha de Freio", 5, 60)
	items := []domain.OrderItem{part(1, 2)}

	if err := ReconcileStock(ctx, store, 3, domain.StatusClosed, items); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ReconcileStock(ctx, store, 3, domain.StatusCancelled, items); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := store.stockOf(1); got != 5 {
		t.Fatalf("stock = %v, want 5", got)
	}
}

func TestReconcileStockShortfallBlocksEveryItem(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Correia Dentada", 10, 40)
	store.addItem(2, "Bateria 60Ah", 1, 300)
	items := []domain.OrderItem{part(1, 2), part(2, 3)}

	err := ReconcileStock(ctx, store, 9, domain.StatusClosed, items)
	var shortErr *domain.InsufficientStockError
	if !errors.As(err, &shortErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if len(shortErr.Shortfalls) != 1 {
		t.Fatalf("shortfalls = %+v, want one", shortErr.Shortfalls)
	}
	got := shortErr.Shortfalls[0]
	if got.ItemID != 2 || got.Name != "Bateria 60Ah" || got.Available != 1 || got.Needed != 3 {
		t.Fatalf("shortfall = %+v", got)
	}

	if store.stockOf(1) != 10 || store.stockOf(2) != 1 {
		t.Fatalf("stock changed: %v/%v", store.stockOf(1), store.stockOf(2))
	}
	if _, ok := store.applied[9]; ok {
		t.Fatalf("applied rows written on shortfall: %v", store.applied[9])
	}
	if store.adjustCalls != 0 {
		t.Fatalf("adjust calls = %d, want 0", store.adjustCalls)
	}
}

func TestReconcileStockEditMovesOnlyTheDelta(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Lâmpada H7", 12, 10)

	if err := ReconcileStock(ctx, store, 4, domain.StatusClosed, []domain.OrderItem{part(1, 5)}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := store.stockOf(1); got != 7 {
		t.Fatalf("stock after close = %v, want 7", got)
	}

	if err := ReconcileStock(ctx, store, 4, domain.StatusClosed, []domain.OrderItem{part(1, 3)}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := store.stockOf(1); got != 9 {
		t.Fatalf("stock after edit = %v, want 9", got)
	}
	if got := store.applied[4][1]; got != 3 {
		t.Fatalf("applied = %v, want 3", got)
	}
}

func TestReconcileStockIncreaseNeedsOnlyTheDelta(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Fluido de Freio", 5, 15)

	if err := ReconcileStock(ctx, store, 2, domain.StatusClosed, []domain.OrderItem{part(1, 4)}); err != nil {
		t.Fatalf("close: %v", err)
	}
	// one unit left; raising 4 -> 5 only needs one more
	if err := ReconcileStock(ctx, store, 2, domain.StatusClosed, []domain.OrderItem{part(1, 5)}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := store.stockOf(1); got != 0 {
		t.Fatalf("stock = %v, want 0", got)
	}
}

func TestReconcileStockToleratesRoundingNoise(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Aditivo", 2.9999999999, 10)

	if err := ReconcileStock(ctx, store, 5, domain.StatusClosed, []domain.OrderItem{part(1, 3)}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
}

func TestReconcileStockIgnoresUnknownItems(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	if err := ReconcileStock(ctx, store, 5, domain.StatusClosed, []domain.OrderItem{part(42, 1)}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if store.applied[5][42] != 1 {
		t.Fatalf("applied = %v", store.applied[5])
	}
}

func TestMarkAppliedLeavesStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Filtro de Combustível", 3, 20)

	if err := MarkApplied(ctx, store, 11, domain.StatusClosed, []domain.OrderItem{part(1, 2)}); err != nil {
		t.Fatalf("mark applied: %v", err)
	}
	if store.stockOf(1) != 3 {
		t.Fatalf("stock = %v, want 3", store.stockOf(1))
	}
	if store.applied[11][1] != 2 {
		t.Fatalf("applied = %v", store.applied[11])
	}

	// reopening afterwards credits what the import recorded
	if err := ReconcileStock(ctx, store, 11, domain.StatusOpen, nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if store.stockOf(1) != 5 {
		t.Fatalf("stock = %v, want 5", store.stockOf(1))
	}
}

func TestReleaseStock(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addItem(1, "Óleo", 10, 30)
	store.addItem(2, "Filtro", 10, 20)

	items := []domain.OrderItem{part(1, 4), part(2, 1)}
	if err := ReconcileStock(ctx, store, 8, domain.StatusClosed, items); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ReleaseStock(ctx, store, 8); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.stockOf(1) != 10 || store.stockOf(2) != 10 {
		t.Fatalf("stock = %v/%v, want 10/10", store.stockOf(1), store.stockOf(2))
	}
	if _, ok := store.applied[8]; ok {
		t.Fatalf("applied rows left: %v", store.applied[8])
	}
}
