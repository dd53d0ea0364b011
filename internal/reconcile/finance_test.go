package reconcile

import (
	"context"
	"errors"
	"testing"

	"oficina/internal/domain"
)

func workOrderInput(status domain.WorkOrderStatus, payStatus string, items ...domain.OrderItem) WorkOrderFinanceInput {
	return WorkOrderFinanceInput{
		OrderID:    15,
		ClientName: "Maria Souza",
		Status:     status,
		PayStatus:  payStatus,
		BaseLabor:  120,
		Items:      items,
		Date:       "2024-03-10",
	}
}

func TestWorkOrderTotal(t *testing.T) {
	items := []domain.OrderItem{
		{Total: 0.1},
		{Total: 0.2},
		{Total: 49.9},
	}
	if got := WorkOrderTotal(100, items); got != 150.2 {
		t.Fatalf("total = %v, want 150.2", got)
	}
}

func TestWorkOrderDescription(t *testing.T) {
	if got := WorkOrderDescription(3, "  João  "); got != "OS #3 - João" {
		t.Fatalf("description = %q", got)
	}
	if got := WorkOrderDescription(3, ""); got != "OS #3" {
		t.Fatalf("description = %q", got)
	}
}

func TestWorkOrderBreakdown(t *testing.T) {
	labor := domain.OrderItem{Description: "Troca de pastilha", Qty: 1, UnitPrice: 90, Total: 90, IsLabor: true}
	loose := domain.OrderItem{Description: "Parafuso", Qty: 4, UnitPrice: 2, Total: 8}
	linked := part(1, 2)

	closed := WorkOrderBreakdown(workOrderInput(domain.StatusClosed, "", labor, loose, linked))
	if len(closed) != 5 {
		t.Fatalf("closed rows = %d, want 5: %+v", len(closed), closed)
	}
	if closed[0].Description != LaborDescription || closed[0].Total != 120 || closed[0].Flow != domain.FlowMoney {
		t.Fatalf("labor row = %+v", closed[0])
	}
	last := closed[4]
	if last.Flow != domain.FlowStock || last.Direction != domain.DirectionOut || *last.InventoryID != 1 || last.Qty != 2 || last.Total != 0 || last.UnitValue != 0 {
		t.Fatalf("stock row = %+v", last)
	}

	open := WorkOrderBreakdown(workOrderInput(domain.StatusOpen, "", labor, loose, linked))
	if len(open) != 4 {
		t.Fatalf("open rows = %d, want 4", len(open))
	}
	for _, row := range open {
		if row.Flow != domain.FlowMoney || row.Direction != domain.DirectionIn {
			t.Fatalf("open row = %+v, want money in", row)
		}
	}

	noLabor := workOrderInput(domain.StatusOpen, "", loose)
	noLabor.BaseLabor = 0
	if rows := WorkOrderBreakdown(noLabor); len(rows) != 1 {
		t.Fatalf("rows without labor = %+v", rows)
	}
}

func TestSyncWorkOrderFinanceKeepsOneTransaction(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	kw := DefaultKeywords()

	firstID, err := SyncWorkOrderFinance(ctx, store, kw, workOrderInput(domain.StatusOpen, "Pendente", part(1, 1), part(2, 1)))
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	secondID, err := SyncWorkOrderFinance(ctx, store, kw, workOrderInput(domain.StatusClosed, "Pago", part(1, 1)))
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if firstID != secondID {
		t.Fatalf("transaction ids differ: %d vs %d", firstID, secondID)
	}
	if len(store.txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.txs))
	}

	tx := store.txs[firstID]
	if tx.Status != domain.TxSettled {
		t.Fatalf("status = %s, want settled", tx.Status)
	}
	if tx.Amount != 130 {
		t.Fatalf("amount = %v, want 130", tx.Amount)
	}
	if tx.Description != "OS #15 - Maria Souza" || tx.Direction != domain.DirectionIn {
		t.Fatalf("transaction = %+v", tx)
	}
	if tx.Date != "2024-03-10" || tx.DueDate == nil || *tx.DueDate != "2024-03-10" {
		t.Fatalf("dates = %s / %v", tx.Date, tx.DueDate)
	}

	// labor + one money row + one stock row; nothing left from the first sync
	if rows := store.txItems[firstID]; len(rows) != 3 {
		t.Fatalf("breakdown rows = %d, want 3: %+v", len(rows), rows)
	}
	if store.links[domain.RefWorkOrder][15] != firstID {
		t.Fatalf("work order not linked: %v", store.links)
	}
}

func TestSyncWorkOrderFinanceDefaultsPaymentMethod(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	txID, err := SyncWorkOrderFinance(ctx, store, DefaultKeywords(), workOrderInput(domain.StatusOpen, ""))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	methodID, ok := store.methods[DefaultPaymentMethod]
	if !ok {
		t.Fatalf("default method not created: %v", store.methods)
	}
	if got := store.txs[txID].PaymentMethodID; got == nil || *got != methodID {
		t.Fatalf("payment method = %v, want %d", got, methodID)
	}
	if _, ok := store.categories[CategoryWorkOrders]; !ok {
		t.Fatalf("category not created: %v", store.categories)
	}
}

func TestSyncWorkOrderFinanceCancelledOrder(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	txID, err := SyncWorkOrderFinance(ctx, store, DefaultKeywords(), workOrderInput(domain.StatusCancelled, "pago"))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := store.txs[txID].Status; got != domain.TxCancelled {
		t.Fatalf("status = %s, want cancelled", got)
	}
}

func TestSyncWorkOrderFinanceLookupFailure(t *testing.T) {
	store := newMemStore()
	store.failLookups = true

	_, err := SyncWorkOrderFinance(context.Background(), store, DefaultKeywords(), workOrderInput(domain.StatusOpen, ""))
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("err = %v, want ErrLookup", err)
	}
	if len(store.txs) != 0 {
		t.Fatalf("transactions written: %v", store.txs)
	}
}
