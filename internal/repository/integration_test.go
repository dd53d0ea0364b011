package repository_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"oficina/internal/db"
	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, *repository.Repository) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if err := db.RunMigrations(ctx, pool, logger); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	repo := repository.New(pool)
	if err := repo.WithTx(ctx, func(tx *repository.Tx) error {
		return tx.TruncateImportTables(ctx)
	}); err != nil {
		t.Fatalf("truncate test database: %v", err)
	}
	return pool, repo
}

func seedItem(t *testing.T, repo *repository.Repository, name string, stock, cost float64) domain.InventoryItem {
	t.Helper()
	item, err := repo.CreateInventoryItem(context.Background(), domain.InventoryItem{
		Name:      name,
		Stock:     stock,
		CostPrice: cost,
		Price:     cost * 2,
	})
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func seedClient(t *testing.T, repo *repository.Repository, name string) domain.Client {
	t.Helper()
	client, err := repo.CreateClient(context.Background(), domain.Client{Name: name})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestWorkOrderStockAndLedgerRoundTrip(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	client := seedClient(t, repo, "Maria")
	filter := seedItem(t, repo, "Filtro de óleo", 10, 20)

	var orderID int64
	items := []domain.OrderItem{
		{InventoryID: &filter.ID, Description: filter.Name, Qty: 3, UnitPrice: 40, Total: 120},
		{Description: "Troca", Qty: 1, UnitPrice: 80, Total: 80, IsLabor: true},
	}
	err := repo.WithTx(ctx, func(tx *repository.Tx) error {
		id, err := tx.CreateWorkOrder(ctx, domain.WorkOrder{
			ClientID:  client.ID,
			Status:    domain.StatusClosed,
			Labor:     50,
			PayMethod: "Pix",
			PayStatus: "Pago",
		})
		if err != nil {
			return err
		}
		orderID = id
		if err := reconcile.ReconcileStock(ctx, tx, id, domain.StatusClosed, items); err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, id, items); err != nil {
			return err
		}
		_, err = reconcile.SyncWorkOrderFinance(ctx, tx, reconcile.DefaultKeywords(), reconcile.WorkOrderFinanceInput{
			OrderID:    id,
			ClientName: client.Name,
			Status:     domain.StatusClosed,
			PayMethod:  "Pix",
			PayStatus:  "Pago",
			BaseLabor:  50,
			Items:      items,
			Date:       "2024-05-10",
		})
		return err
	})
	if err != nil {
		t.Fatalf("save work order: %v", err)
	}

	item, err := repo.GetInventoryItem(ctx, filter.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stock != 7 {
		t.Fatalf("stock = %v, want 7", item.Stock)
	}
	applied, err := repo.AppliedParts(ctx, orderID)
	if err != nil {
		t.Fatalf("applied parts: %v", err)
	}
	if applied[filter.ID] != 3 {
		t.Fatalf("applied = %v, want 3", applied)
	}

	order, err := repo.GetWorkOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Total != 250 {
		t.Fatalf("order total = %v, want 250", order.Total)
	}
	if order.FinTxID == nil {
		t.Fatal("order should be linked to its transaction")
	}
	ledger, err := repo.GetTransaction(ctx, *order.FinTxID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if ledger.Amount != 250 || ledger.Status != domain.TxSettled || ledger.PaymentMethodName != "Pix" {
		t.Fatalf("unexpected transaction %+v", ledger)
	}
	breakdown, err := repo.ListTransactionItems(ctx, ledger.ID)
	if err != nil {
		t.Fatalf("list breakdown: %v", err)
	}
	var stockOut int
	for _, row := range breakdown {
		if row.Flow == domain.FlowStock && row.Direction == domain.DirectionOut {
			stockOut++
		}
	}
	if stockOut != 1 {
		t.Fatalf("stock out rows = %d, want 1", stockOut)
	}
}

func TestReconcileStockShortfallLeavesStockUntouched(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	client := seedClient(t, repo, "João")
	pad := seedItem(t, repo, "Pastilha", 2, 30)

	err := repo.WithTx(ctx, func(tx *repository.Tx) error {
		id, err := tx.CreateWorkOrder(ctx, domain.WorkOrder{ClientID: client.ID, Status: domain.StatusClosed})
		if err != nil {
			return err
		}
		return reconcile.ReconcileStock(ctx, tx, id, domain.StatusClosed, []domain.OrderItem{
			{InventoryID: &pad.ID, Description: pad.Name, Qty: 5, UnitPrice: 60, Total: 300},
		})
	})
	var shortErr *domain.InsufficientStockError
	if !errors.As(err, &shortErr) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if len(shortErr.Shortfalls) != 1 || shortErr.Shortfalls[0].Needed != 5 {
		t.Fatalf("unexpected shortfalls %+v", shortErr.Shortfalls)
	}

	item, err := repo.GetInventoryItem(ctx, pad.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stock != 2 {
		t.Fatalf("stock = %v, want 2", item.Stock)
	}
}

func TestOneTransactionPerReference(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	refID := int64(42)
	tx := domain.Transaction{
		Direction:   domain.DirectionIn,
		Description: "OS #42",
		Amount:      10,
		Date:        "2024-01-02",
		Status:      domain.TxPending,
		RefKind:     domain.RefWorkOrder,
		RefID:       &refID,
	}
	if _, err := repo.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := repo.InsertTransaction(ctx, tx); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("second insert should conflict, got %v", err)
	}

	adhoc := tx
	adhoc.RefKind = domain.RefAdhoc
	adhoc.RefID = nil
	for i := 0; i < 2; i++ {
		if _, err := repo.InsertTransaction(ctx, adhoc); err != nil {
			t.Fatalf("ad-hoc insert %d: %v", i, err)
		}
	}
}

func TestSavepointRollbackKeepsOuterWrites(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	var clientID int64
	err := repo.WithTx(ctx, func(tx *repository.Tx) error {
		client, err := tx.CreateClient(ctx, domain.Client{Name: "Outer"})
		if err != nil {
			return err
		}
		clientID = client.ID
		spErr := tx.Savepoint(ctx, func(sp *repository.Tx) error {
			if _, err := sp.CreateClient(ctx, domain.Client{Name: "Inner"}); err != nil {
				return err
			}
			return errors.New("ledger failed")
		})
		if spErr == nil {
			t.Error("savepoint should report the inner error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer tx: %v", err)
	}

	if _, err := repo.GetClient(ctx, clientID); err != nil {
		t.Fatalf("outer client should be committed: %v", err)
	}
	clients, err := repo.ListClients(ctx, repository.ClientFilter{Search: "Inner"})
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 0 {
		t.Fatalf("inner client should be rolled back, got %+v", clients)
	}
}

func TestPurchaseSettlementMovesStockAndCost(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	oil := seedItem(t, repo, "Óleo 5W30", 10, 10)
	lines := []domain.PurchaseItem{{InventoryID: oil.ID, Qty: 10, UnitCost: 20, Total: 200}}

	if err := repo.WithTx(ctx, func(tx *repository.Tx) error {
		return reconcile.ReconcilePurchase(ctx, tx, nil, lines, false, true)
	}); err != nil {
		t.Fatalf("settle purchase: %v", err)
	}

	item, err := repo.GetInventoryItem(ctx, oil.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Stock != 20 || item.CostPrice != 15 {
		t.Fatalf("stock/cost = %v/%v, want 20/15", item.Stock, item.CostPrice)
	}
}

func TestMechanicNameIsUniqueIgnoringCase(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	if _, err := repo.CreateMechanic(ctx, domain.Mechanic{Name: "Carlos"}); err != nil {
		t.Fatalf("create mechanic: %v", err)
	}
	if _, err := repo.CreateMechanic(ctx, domain.Mechanic{Name: "carlos"}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
