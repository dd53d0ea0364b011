package service

import (
	"context"
	"strings"

	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/shopspring/decimal"
)

type PurchaseLineInput struct {
	InventoryID int64
	Qty         float64
	UnitCost    float64
}

type PurchaseInput struct {
	Supplier        string
	DocNumber       string
	Date            string
	DueDate         *string
	Status          string
	PaymentMethodID *int64
	Notes           string
	Items           []PurchaseLineInput
}

func (s *Service) ListPurchases(ctx context.Context, limit, offset int) ([]domain.PurchaseOrder, error) {
	return s.repo.ListPurchases(ctx, limit, offset)
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	purchase, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	items, err := s.repo.ListPurchaseItems(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	purchase.Items = items
	return *purchase, nil
}

func (s *Service) CreatePurchase(ctx context.Context, input PurchaseInput) (domain.PurchaseOrder, error) {
	purchase, items, err := s.purchaseFromInput(input)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		id, err = tx.CreatePurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		return s.applyPurchase(ctx, tx, purchase, nil, items, false)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return s.GetPurchase(ctx, id)
}

func (s *Service) UpdatePurchase(ctx context.Context, id int64, input PurchaseInput) (domain.PurchaseOrder, error) {
	purchase, items, err := s.purchaseFromInput(input)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	purchase.ID = id

	err = s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		if err := tx.LockPurchase(ctx, id); err != nil {
			return err
		}
		current, err := tx.GetPurchase(ctx, id)
		if err != nil {
			return err
		}
		oldItems, err := tx.ListPurchaseItems(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.UpdatePurchase(ctx, purchase); err != nil {
			return err
		}
		return s.applyPurchase(ctx, tx, purchase, oldItems, items, current.Status == domain.TxSettled)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return s.GetPurchase(ctx, id)
}

// applyPurchase stores the lines, moves stock by the settled difference and
// mirrors the purchase in the ledger best-effort.
func (s *Service) applyPurchase(
	ctx context.Context,
	tx *repository.Tx,
	purchase domain.PurchaseOrder,
	oldItems, newItems []domain.PurchaseItem,
	oldSettled bool,
) error {
	if err := tx.ReplacePurchaseItems(ctx, purchase.ID, newItems); err != nil {
		return err
	}
	newSettled := purchase.Status == domain.TxSettled
	if err := reconcile.ReconcilePurchase(ctx, tx, oldItems, newItems, oldSettled, newSettled); err != nil {
		return err
	}

	named, err := tx.ListPurchaseItems(ctx, purchase.ID)
	if err != nil {
		return err
	}
	s.bestEffort(ctx, tx, "applyPurchase", map[string]any{"purchase_id": purchase.ID}, func(sp *repository.Tx) error {
		_, err := reconcile.UpsertPurchaseFinance(ctx, sp, reconcile.PurchaseFinanceInput{
			PurchaseID:      purchase.ID,
			Supplier:        purchase.Supplier,
			Total:           purchase.Total,
			Date:            purchase.Date,
			DueDate:         purchase.DueDate,
			Status:          purchase.Status,
			PaymentMethodID: purchase.PaymentMethodID,
			Items:           named,
		})
		return err
	})
	return nil
}

func (s *Service) purchaseFromInput(input PurchaseInput) (domain.PurchaseOrder, []domain.PurchaseItem, error) {
	supplier := strings.TrimSpace(input.Supplier)
	if supplier == "" {
		return domain.PurchaseOrder{}, nil, invalid("supplier is required")
	}
	items, total, err := buildPurchaseItems(input.Items)
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	if len(items) == 0 {
		return domain.PurchaseOrder{}, nil, invalid("at least one item with qty > 0 is required")
	}

	date, err := parseDay(input.Date, s.today())
	if err != nil {
		return domain.PurchaseOrder{}, nil, err
	}
	dueDate := normalizeNullable(input.DueDate)
	if dueDate != nil {
		if _, err := parseDay(*dueDate, date); err != nil {
			return domain.PurchaseOrder{}, nil, err
		}
	}
	status, ok := s.keywords.PurchaseStatus(input.Status)
	if !ok {
		return domain.PurchaseOrder{}, nil, invalid("unknown status %q", input.Status)
	}

	return domain.PurchaseOrder{
		Supplier:        supplier,
		DocNumber:       strings.TrimSpace(input.DocNumber),
		Date:            date.Format(domain.DateLayout),
		DueDate:         dueDate,
		Status:          status,
		PaymentMethodID: input.PaymentMethodID,
		Notes:           strings.TrimSpace(input.Notes),
		Total:           total,
	}, items, nil
}

// buildPurchaseItems drops lines without item or with qty <= 0 and returns
// the kept lines with their total.
func buildPurchaseItems(lines []PurchaseLineInput) ([]domain.PurchaseItem, float64, error) {
	items := make([]domain.PurchaseItem, 0, len(lines))
	total := decimal.Zero
	for i, line := range lines {
		if line.InventoryID <= 0 || line.Qty <= 0 {
			continue
		}
		if line.UnitCost < 0 {
			return nil, 0, invalid("item %d: unit_cost must not be negative", i+1)
		}
		lineTotal := decimal.NewFromFloat(line.Qty).Mul(decimal.NewFromFloat(line.UnitCost)).Round(4)
		total = total.Add(lineTotal)
		items = append(items, domain.PurchaseItem{
			InventoryID: line.InventoryID,
			Qty:         line.Qty,
			UnitCost:    line.UnitCost,
			Total:       lineTotal.InexactFloat64(),
		})
	}
	return items, total.Round(4).InexactFloat64(), nil
}
