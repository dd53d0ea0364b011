package service

import (
	"errors"
	"testing"
	"time"

	"oficina/internal/domain"
)

func TestParseDay(t *testing.T) {
	fallback := day(t, "2024-01-01")
	got, err := parseDay("  ", fallback)
	if err != nil || !got.Equal(fallback) {
		t.Errorf("blank input: got %v, %v", got, err)
	}
	got, err = parseDay("2024-02-29", fallback)
	if err != nil || got.Format(domain.DateLayout) != "2024-02-29" {
		t.Errorf("valid input: got %v, %v", got, err)
	}
	if _, err := parseDay("29/02/2024", fallback); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAgendaRange(t *testing.T) {
	// 2024-05-15 is a Wednesday.
	from, to := agendaRange("week", day(t, "2024-05-15"))
	if from.Format(domain.DateLayout) != "2024-05-13" || to.Format(domain.DateLayout) != "2024-05-19" {
		t.Errorf("week = %s..%s", from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}
	from, to = agendaRange("week", day(t, "2024-05-19"))
	if from.Format(domain.DateLayout) != "2024-05-13" || to.Format(domain.DateLayout) != "2024-05-19" {
		t.Errorf("sunday week = %s..%s", from.Format(domain.DateLayout), to.Format(domain.DateLayout))
	}
	from, to = agendaRange("day", day(t, "2024-05-15"))
	if !from.Equal(to) {
		t.Errorf("day view should be a single day, got %s..%s", from, to)
	}
}

func TestBuildOrderItems(t *testing.T) {
	items, err := buildOrderItems([]OrderItemInput{
		{InventoryID: ptr(int64(4)), Qty: 2, UnitPrice: 35.5},
		{Description: "   "},
		{Description: "Alinhamento", UnitPrice: 80, IsLabor: true, InventoryID: ptr(int64(9))},
	})
	if err != nil {
		t.Fatalf("buildOrderItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Total != 71 || items[0].InventoryID == nil {
		t.Errorf("unexpected part line: %+v", items[0])
	}
	if items[1].Qty != 1 || items[1].Total != 80 || items[1].InventoryID != nil {
		t.Errorf("unexpected labor line: %+v", items[1])
	}

	if _, err := buildOrderItems([]OrderItemInput{{Description: "x", Qty: -1}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestNewWorkOrderDetail(t *testing.T) {
	detail := newWorkOrderDetail(domain.WorkOrder{
		Labor: 100,
		Items: []domain.OrderItem{
			{Total: 50},
			{Total: 25.25},
			{Total: 40, IsLabor: true},
		},
	})
	if detail.PartsTotal != 75.25 || detail.LaborItemsTotal != 40 || detail.ServicesTotal != 140 {
		t.Errorf("unexpected totals: %+v", detail)
	}
}

func TestLedgerDate(t *testing.T) {
	today := day(t, "2024-06-20")
	order := domain.WorkOrder{CreatedAt: day(t, "2024-03-02").Add(9 * time.Hour)}
	if got := ledgerDate(order, today); got != "2024-06-20" {
		t.Errorf("order without ledger entry: got %s, want today", got)
	}
	order.FinTxID = ptr(int64(12))
	if got := ledgerDate(order, today); got != "2024-03-02" {
		t.Errorf("order with ledger entry: got %s, want creation day", got)
	}
}

func TestBuildPurchaseItems(t *testing.T) {
	items, total, err := buildPurchaseItems([]PurchaseLineInput{
		{InventoryID: 1, Qty: 3, UnitCost: 10.1},
		{InventoryID: 0, Qty: 5, UnitCost: 1},
		{InventoryID: 2, Qty: 0, UnitCost: 1},
		{InventoryID: 3, Qty: 1, UnitCost: 0.2},
	})
	if err != nil {
		t.Fatalf("buildPurchaseItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 kept lines, got %d", len(items))
	}
	if items[0].Total != 30.3 || total != 30.5 {
		t.Errorf("totals = %v / %v", items[0].Total, total)
	}
	if _, _, err := buildPurchaseItems([]PurchaseLineInput{{InventoryID: 1, Qty: 1, UnitCost: -2}}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPurchaseFromInput(t *testing.T) {
	s := fixedService("2024-05-10")
	purchase, items, err := s.purchaseFromInput(PurchaseInput{
		Supplier: " Auto Peças ",
		Status:   "Pago",
		Items:    []PurchaseLineInput{{InventoryID: 1, Qty: 2, UnitCost: 5}},
	})
	if err != nil {
		t.Fatalf("purchaseFromInput: %v", err)
	}
	if purchase.Supplier != "Auto Peças" || purchase.Date != "2024-05-10" || purchase.Status != domain.TxSettled {
		t.Errorf("unexpected purchase: %+v", purchase)
	}
	if purchase.Total != 10 || len(items) != 1 {
		t.Errorf("unexpected lines: %v / %+v", purchase.Total, items)
	}

	if _, _, err := s.purchaseFromInput(PurchaseInput{Supplier: "X"}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error without lines, got %v", err)
	}
}

func TestClampPercent(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 37.5: 37.5, 100: 100, 140: 100}
	for in, want := range cases {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildMechanicReport(t *testing.T) {
	report := buildMechanicReport([]domain.MechanicReportRow{
		{MechanicID: 1, Mechanic: "Ana", OrderCount: 4, LaborTotal: 300, PartsTotal: 100, Total: 400},
		{MechanicID: 2, Mechanic: "Bruno", OrderCount: 5, LaborTotal: 150, PartsTotal: 50, Total: 200},
		{MechanicID: 3, Mechanic: "Caio"},
	}, 40)

	if report.TotalOrders != 9 || report.GrandTotal != 600 || report.TotalLabor != 450 || report.TotalParts != 150 {
		t.Errorf("unexpected totals: %+v", report)
	}
	ana := report.Rows[0]
	if ana.AverageTicket != 100 || ana.LaborShare != 75 || ana.Repasse != 160 {
		t.Errorf("unexpected derived columns: %+v", ana)
	}
	if report.TopRevenue == nil || report.TopRevenue.Mechanic != "Ana" {
		t.Errorf("top revenue = %+v", report.TopRevenue)
	}
	if report.TopOrders == nil || report.TopOrders.Mechanic != "Bruno" {
		t.Errorf("top orders = %+v", report.TopOrders)
	}
	if report.Rows[2].AverageTicket != 0 || report.Rows[2].LaborShare != 0 {
		t.Errorf("idle mechanic should have zero ratios: %+v", report.Rows[2])
	}
}

func TestBuildMechanicReportNoRevenue(t *testing.T) {
	report := buildMechanicReport([]domain.MechanicReportRow{{MechanicID: 1, Mechanic: "Ana"}}, 50)
	if report.TopRevenue != nil || report.TopOrders != nil {
		t.Errorf("expected no leaders, got %+v / %+v", report.TopRevenue, report.TopOrders)
	}
}

func TestNormalizePlate(t *testing.T) {
	if got := normalizePlate("  abc1d23 "); got != "ABC1D23" {
		t.Errorf("normalizePlate = %q", got)
	}
}
