package reconcile

import (
	"context"
	"fmt"
	"math"
	"strings"

	"oficina/internal/domain"

	"github.com/shopspring/decimal"
)

type PurchaseStockStore interface {
	StockLevels(ctx context.Context, itemIDs []int64) (map[int64]StockLevel, error)
	SetCostPrice(ctx context.Context, itemID int64, cost float64) error
	AdjustStock(ctx context.Context, itemID int64, delta float64) error
}

func AggregatePurchaseItems(items []domain.PurchaseItem) map[int64]float64 {
	out := make(map[int64]float64, len(items))
	for _, item := range items {
		out[item.InventoryID] += item.Qty
	}
	return out
}

// MovingAverageCost blends the current cost with delta units bought at
// unitCost. It reports false when the resulting stock would not be positive,
// in which case the cost must be left alone.
func MovingAverageCost(stock, cost, delta, unitCost float64) (float64, bool) {
	if stock+delta <= 0 {
		return 0, false
	}
	s := decimal.NewFromFloat(stock)
	d := decimal.NewFromFloat(delta)
	value := s.Mul(decimal.NewFromFloat(cost)).Add(d.Mul(decimal.NewFromFloat(unitCost)))
	return value.Div(s.Add(d)).Round(4).InexactFloat64(), true
}

// ReconcilePurchase moves stock by the difference between the settled
// quantities of the old and new versions of a purchase. Lines only count
// while their side is settled. Positive deltas also update the moving-average
// cost. Stock may go negative when a settled purchase is reverted after the
// goods were consumed.
func ReconcilePurchase(
	ctx context.Context,
	store PurchaseStockStore,
	oldItems, newItems []domain.PurchaseItem,
	oldSettled, newSettled bool,
) error {
	oldMap := map[int64]float64{}
	if oldSettled {
		oldMap = AggregatePurchaseItems(oldItems)
	}
	newMap := map[int64]float64{}
	if newSettled {
		newMap = AggregatePurchaseItems(newItems)
	}

	for _, id := range unionKeys(oldMap, newMap) {
		delta := newMap[id] - oldMap[id]
		if math.Abs(delta) < epsilon {
			continue
		}
		if delta > 0 {
			if err := updateAverageCost(ctx, store, id, delta, newItems); err != nil {
				return err
			}
		}
		if err := store.AdjustStock(ctx, id, delta); err != nil {
			return fmt.Errorf("adjust stock of item %d: %w", id, err)
		}
	}
	return nil
}

func updateAverageCost(ctx context.Context, store PurchaseStockStore, itemID int64, delta float64, newItems []domain.PurchaseItem) error {
	levels, err := store.StockLevels(ctx, []int64{itemID})
	if err != nil {
		return fmt.Errorf("load stock level of item %d: %w", itemID, err)
	}
	level, ok := levels[itemID]
	if !ok {
		return nil
	}
	unitCost := level.CostPrice
	for _, item := range newItems {
		if item.InventoryID == itemID {
			unitCost = item.UnitCost
			break
		}
	}
	cost, ok := MovingAverageCost(level.Stock, level.CostPrice, delta, unitCost)
	if !ok {
		return nil
	}
	if err := store.SetCostPrice(ctx, itemID, cost); err != nil {
		return fmt.Errorf("set cost price of item %d: %w", itemID, err)
	}
	return nil
}

type PurchaseFinanceInput struct {
	PurchaseID      int64
	Supplier        string
	Total           float64
	Date            string
	DueDate         *string
	Status          domain.TransactionStatus
	PaymentMethodID *int64
	// Items carry InventoryName for the breakdown descriptions.
	Items []domain.PurchaseItem
}

func PurchaseDescription(purchaseID int64, supplier string) string {
	return strings.TrimSpace(fmt.Sprintf("Compra #%d - %s", purchaseID, strings.TrimSpace(supplier)))
}

// PurchaseBreakdown builds a money outflow per line and, when the purchase is
// settled, a stock inflow per line.
func PurchaseBreakdown(in PurchaseFinanceInput) []domain.TransactionItem {
	rows := make([]domain.TransactionItem, 0, len(in.Items)*2)
	for _, item := range in.Items {
		itemID := item.InventoryID
		description := strings.TrimSpace(item.InventoryName)
		if description == "" {
			description = fmt.Sprintf("Item #%d", itemID)
		}
		total := item.Total
		if total == 0 {
			total = decimal.NewFromFloat(item.Qty).Mul(decimal.NewFromFloat(item.UnitCost)).Round(4).InexactFloat64()
		}
		rows = append(rows, domain.TransactionItem{
			Flow:        domain.FlowMoney,
			Direction:   domain.DirectionOut,
			InventoryID: &itemID,
			Description: description,
			Qty:         item.Qty,
			UnitValue:   item.UnitCost,
			Total:       total,
		})
		if in.Status == domain.TxSettled {
			rows = append(rows, domain.TransactionItem{
				Flow:        domain.FlowStock,
				Direction:   domain.DirectionIn,
				InventoryID: &itemID,
				Description: description,
				Qty:         item.Qty,
				UnitValue:   item.UnitCost,
				Total:       total,
			})
		}
	}
	return rows
}

// UpsertPurchaseFinance creates or updates the ledger transaction of a
// purchase, rebuilds its breakdown and links it onto the purchase.
func UpsertPurchaseFinance(ctx context.Context, store FinanceStore, in PurchaseFinanceInput) (int64, error) {
	categoryID, err := store.CategoryID(ctx, CategoryPurchases, "out")
	if err != nil {
		return 0, fmt.Errorf("%w: category %q: %v", ErrLookup, CategoryPurchases, err)
	}
	status := in.Status
	if !status.Valid() {
		status = domain.TxPending
	}

	refID := in.PurchaseID
	tx := domain.Transaction{
		Direction:       domain.DirectionOut,
		Description:     PurchaseDescription(in.PurchaseID, in.Supplier),
		Amount:          in.Total,
		Date:            in.Date,
		DueDate:         in.DueDate,
		Status:          status,
		PaymentMethodID: in.PaymentMethodID,
		CategoryID:      &categoryID,
		RefKind:         domain.RefPurchase,
		RefID:           &refID,
	}

	txID, err := upsertByRef(ctx, store, tx)
	if err != nil {
		return 0, err
	}
	in.Status = status
	if err := store.ReplaceTransactionItems(ctx, txID, PurchaseBreakdown(in)); err != nil {
		return 0, fmt.Errorf("rebuild breakdown of transaction %d: %w", txID, err)
	}
	if err := store.LinkTransaction(ctx, domain.RefPurchase, in.PurchaseID, txID); err != nil {
		return 0, fmt.Errorf("link transaction %d to purchase %d: %w", txID, in.PurchaseID, err)
	}
	return txID, nil
}
