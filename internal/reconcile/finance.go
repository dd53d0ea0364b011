package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oficina/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrLookup is wrapped when a payment method or category can neither be
// found nor created.
var ErrLookup = errors.New("lookup creation failed")

const (
	DefaultPaymentMethod = "Dinheiro"
	CategoryWorkOrders   = "Serviços / OS"
	CategoryAdhocSales   = "Vendas avulsas"
	CategoryPurchases    = "Compras de Estoque"
	LaborDescription     = "Mão de obra"
)

// FinanceStore is the ledger storage used by the sync functions.
type FinanceStore interface {
	// PaymentMethodID returns the id of the named method, creating it when missing.
	PaymentMethodID(ctx context.Context, name string) (int64, error)
	// CategoryID returns the id of the named category, creating it with kind when missing.
	CategoryID(ctx context.Context, name, kind string) (int64, error)
	FindTransactionByRef(ctx context.Context, kind domain.RefKind, refID int64) (int64, bool, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, id int64, tx domain.Transaction) error
	ReplaceTransactionItems(ctx context.Context, txID int64, items []domain.TransactionItem) error
	LinkTransaction(ctx context.Context, kind domain.RefKind, refID, txID int64) error
}

type WorkOrderFinanceInput struct {
	OrderID    int64
	ClientName string
	Status     domain.WorkOrderStatus
	PayMethod  string
	PayStatus  string
	BaseLabor  float64
	Items      []domain.OrderItem
	// Date is used as both booking and due date (YYYY-MM-DD).
	Date string
}

// WorkOrderTotal is the base labor plus the sum of item totals.
func WorkOrderTotal(baseLabor float64, items []domain.OrderItem) float64 {
	total := decimal.NewFromFloat(baseLabor)
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.Total))
	}
	return total.Round(4).InexactFloat64()
}

func WorkOrderDescription(orderID int64, clientName string) string {
	desc := fmt.Sprintf("OS #%d", orderID)
	if name := strings.TrimSpace(clientName); name != "" {
		desc += " - " + name
	}
	return desc
}

// WorkOrderBreakdown builds the itemized rows of a work-order transaction:
// a money inflow for labor and for each item, plus a stock outflow for each
// inventory-linked part when the order consumes stock.
func WorkOrderBreakdown(in WorkOrderFinanceInput) []domain.TransactionItem {
	rows := make([]domain.TransactionItem, 0, len(in.Items)*2+1)
	if in.BaseLabor > 0 {
		rows = append(rows, domain.TransactionItem{
			Flow:        domain.FlowMoney,
			Direction:   domain.DirectionIn,
			Description: LaborDescription,
			Qty:         1,
			UnitValue:   in.BaseLabor,
			Total:       in.BaseLabor,
		})
	}

	consuming := in.Status.ConsumesStock()
	for _, item := range in.Items {
		qty := item.Qty
		if qty == 0 {
			qty = 1
		}
		description := strings.TrimSpace(item.Description)
		rows = append(rows, domain.TransactionItem{
			Flow:        domain.FlowMoney,
			Direction:   domain.DirectionIn,
			InventoryID: item.InventoryID,
			Description: description,
			Qty:         qty,
			UnitValue:   item.UnitPrice,
			Total:       item.Total,
		})
		if consuming && !item.IsLabor && item.InventoryID != nil {
			rows = append(rows, domain.TransactionItem{
				Flow:        domain.FlowStock,
				Direction:   domain.DirectionOut,
				InventoryID: item.InventoryID,
				Description: description,
				Qty:         qty,
			})
		}
	}
	return rows
}

// SyncWorkOrderFinance creates or updates the single ledger transaction that
// mirrors a work order, rebuilds its breakdown and links it back onto the
// order. It returns the transaction id.
func SyncWorkOrderFinance(ctx context.Context, store FinanceStore, kw Keywords, in WorkOrderFinanceInput) (int64, error) {
	methodName := strings.TrimSpace(in.PayMethod)
	if methodName == "" {
		methodName = DefaultPaymentMethod
	}
	methodID, err := store.PaymentMethodID(ctx, methodName)
	if err != nil {
		return 0, fmt.Errorf("%w: payment method %q: %v", ErrLookup, methodName, err)
	}
	categoryID, err := store.CategoryID(ctx, CategoryWorkOrders, "in")
	if err != nil {
		return 0, fmt.Errorf("%w: category %q: %v", ErrLookup, CategoryWorkOrders, err)
	}

	refID := in.OrderID
	due := in.Date
	tx := domain.Transaction{
		Direction:       domain.DirectionIn,
		Description:     WorkOrderDescription(in.OrderID, in.ClientName),
		Amount:          WorkOrderTotal(in.BaseLabor, in.Items),
		Date:            in.Date,
		DueDate:         &due,
		Status:          kw.TransactionStatus(in.PayStatus, in.Status),
		PaymentMethodID: &methodID,
		CategoryID:      &categoryID,
		RefKind:         domain.RefWorkOrder,
		RefID:           &refID,
	}

	txID, err := upsertByRef(ctx, store, tx)
	if err != nil {
		return 0, err
	}
	if err := store.ReplaceTransactionItems(ctx, txID, WorkOrderBreakdown(in)); err != nil {
		return 0, fmt.Errorf("rebuild breakdown of transaction %d: %w", txID, err)
	}
	if err := store.LinkTransaction(ctx, domain.RefWorkOrder, in.OrderID, txID); err != nil {
		return 0, fmt.Errorf("link transaction %d to work order %d: %w", txID, in.OrderID, err)
	}
	return txID, nil
}

func upsertByRef(ctx context.Context, store FinanceStore, tx domain.Transaction) (int64, error) {
	existingID, found, err := store.FindTransactionByRef(ctx, tx.RefKind, *tx.RefID)
	if err != nil {
		return 0, fmt.Errorf("find %s transaction %d: %w", tx.RefKind, *tx.RefID, err)
	}
	if found {
		if err := store.UpdateTransaction(ctx, existingID, tx); err != nil {
			return 0, fmt.Errorf("update transaction %d: %w", existingID, err)
		}
		return existingID, nil
	}
	id, err := store.InsertTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("insert %s transaction %d: %w", tx.RefKind, *tx.RefID, err)
	}
	return id, nil
}
