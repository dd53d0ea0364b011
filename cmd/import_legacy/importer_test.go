package main

import (
	"io"
	"testing"
	"time"

	"oficina/internal/domain"
	"oficina/internal/legacy"
	"oficina/internal/reconcile"

	"github.com/sirupsen/logrus"
)

func testImporter() *importer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	im := newImporter(nil, reconcile.DefaultKeywords(), logger, time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local))
	im.clientNames[1] = "Ana"
	im.vehicles[7] = true
	im.mechanics[2] = true
	im.inventory[5] = "Filtro de óleo"
	return im
}

func ptr[T any](v T) *T {
	return &v
}

func TestWorkOrderFromLegacy(t *testing.T) {
	im := testImporter()
	order := im.workOrderFromLegacy(legacy.Order{
		ID:         11,
		ClientID:   1,
		VehicleID:  ptr[int64](7),
		MechanicID: ptr[int64](99),
		CreatedAt:  "2024-03-05 14:30:00",
		Status:     "Finalizado",
		Labor:      50,
		PayMethod:  "PIX",
		PayStatus:  "Pago",
	})
	if order.Status != domain.StatusClosed {
		t.Errorf("status = %q, want closed", order.Status)
	}
	if order.VehicleID == nil || *order.VehicleID != 7 {
		t.Errorf("known vehicle should be kept: %+v", order.VehicleID)
	}
	if order.MechanicID != nil {
		t.Errorf("unknown mechanic should be dropped")
	}
	if got := order.CreatedAt.Format(domain.DateLayout); got != "2024-03-05" {
		t.Errorf("created day = %s", got)
	}
}

func TestWorkOrderFromLegacyFallbacks(t *testing.T) {
	im := testImporter()
	order := im.workOrderFromLegacy(legacy.Order{ID: 3, ClientID: 1, Status: "aguardando peça", CreatedAt: "??"})
	if order.Status != domain.StatusOpen {
		t.Errorf("unknown status should import as open, got %q", order.Status)
	}
	if !order.CreatedAt.Equal(im.now) {
		t.Errorf("unreadable timestamp should fall back to now, got %v", order.CreatedAt)
	}
}

func TestLegacyStatusConsumesStock(t *testing.T) {
	im := testImporter()
	for raw, want := range map[string]bool{
		"Finalizado":      true,
		"Finished":        true,
		"closed":          true,
		"Em andamento":    false,
		"aguardando peça": false,
		"":                false,
	} {
		if got := im.kw.IsConsuming(raw); got != want {
			t.Errorf("IsConsuming(%q) = %v, want %v", raw, got, want)
		}
		if want && !im.workOrderFromLegacy(legacy.Order{ID: 1, ClientID: 1, Status: raw}).Status.ConsumesStock() {
			t.Errorf("imported status of %q should consume stock", raw)
		}
	}
}

func TestOrderLines(t *testing.T) {
	im := testImporter()
	lines := im.orderLines([]domain.OrderItem{
		{InventoryID: ptr[int64](5), Qty: 2},
		{InventoryID: ptr[int64](404), Description: "Peça avulsa", Qty: 1},
	})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Description != "Filtro de óleo" {
		t.Errorf("empty description should take the item name, got %q", lines[0].Description)
	}
	if lines[1].InventoryID != nil {
		t.Errorf("unknown inventory reference should be dropped")
	}
}

func TestPurchaseFromLegacy(t *testing.T) {
	im := testImporter()
	purchase := im.purchaseFromLegacy(legacy.Purchase{
		ID:        21,
		Supplier:  "Auto Peças",
		Status:    "EFETIVADO",
		CreatedAt: "2024-03-02 08:00:00",
		DueDate:   "2024-04-02",
		Total:     122.5,
	})
	if purchase.Status != domain.TxSettled {
		t.Errorf("status = %q, want settled", purchase.Status)
	}
	if purchase.Date != "2024-03-02" {
		t.Errorf("missing date should take the creation day, got %q", purchase.Date)
	}
	if purchase.DueDate == nil || *purchase.DueDate != "2024-04-02" {
		t.Errorf("unexpected due date: %v", purchase.DueDate)
	}

	blank := im.purchaseFromLegacy(legacy.Purchase{ID: 4, Status: "???"})
	if blank.Status != domain.TxPending || blank.Date != "2024-06-01" || blank.Supplier != "Fornecedor #4" {
		t.Errorf("unexpected fallbacks: %+v", blank)
	}
	if blank.DueDate != nil {
		t.Errorf("due date should stay empty")
	}
}

func TestEntryFromLegacy(t *testing.T) {
	im := testImporter()
	entry, ok := im.entryFromLegacy(legacy.Entry{
		ID:          30,
		Direction:   "OUT",
		Description: "Aluguel março",
		Amount:      1500,
		Date:        "2024-03-05",
		Status:      "PENDENTE",
	})
	if !ok {
		t.Fatal("expected an entry")
	}
	if entry.Direction != domain.DirectionOut || entry.Status != domain.TxPending || entry.RefKind != domain.RefAdhoc {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.DueDate == nil || *entry.DueDate != "2024-03-05" {
		t.Errorf("due date should default to the booking date: %v", entry.DueDate)
	}

	if _, ok := im.entryFromLegacy(legacy.Entry{ID: 31, Direction: "TRANSFER"}); ok {
		t.Error("unknown direction should be rejected")
	}
}

func TestStatsFields(t *testing.T) {
	fields := importStats{Orders: 3, Skipped: 1}.fields()
	if fields["orders"] != 3 || fields["skipped"] != 1 {
		t.Errorf("unexpected fields: %v", fields)
	}
}
