package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	recentTransactions = 15
	previewItems       = 6
	// chartMinSpanDays is the shortest range charted month by month as is.
	// Shorter ranges chart the twelve months ending at the range end.
	chartMinSpanDays = 60
)

type TransactionInput struct {
	Direction       string
	Description     string
	Amount          float64
	Date            string
	DueDate         *string
	Status          string
	PaymentMethodID *int64
	CategoryID      *int64
}

type QuickServiceInput struct {
	Description     string
	Amount          float64
	Date            string
	Status          string
	PaymentMethodID *int64
}

type TransactionQuery struct {
	Start     string
	End       string
	Direction string
	Status    string
	Search    string
	Limit     int
	Offset    int
}

type StatementQuery struct {
	Start     string
	End       string
	Direction string
	RefKind   string
	ItemID    *int64
	Search    string
}

// monthRange resolves a booking-date range that defaults to the current month
// up to today.
func (s *Service) monthRange(start, end string) (time.Time, time.Time, error) {
	today := s.today()
	to, err := parseDay(end, today)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := parseDay(start, time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, invalid("start must not be after end")
	}
	return from, to, nil
}

func (s *Service) ListTransactions(ctx context.Context, query TransactionQuery) ([]domain.Transaction, error) {
	from, to, err := s.monthRange(query.Start, query.End)
	if err != nil {
		return nil, err
	}
	filter := repository.TransactionFilter{
		From:   from,
		To:     to,
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if raw := strings.TrimSpace(query.Direction); raw != "" {
		direction, err := parseDirection(raw)
		if err != nil {
			return nil, err
		}
		filter.Direction = direction
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := domain.TransactionStatus(strings.ToLower(raw))
		if !status.Valid() {
			return nil, invalid("unknown status %q", raw)
		}
		filter.Status = status
	}
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) GetTransaction(ctx context.Context, id int64) (domain.TransactionDetail, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	items, err := s.repo.ListTransactionItems(ctx, id)
	if err != nil {
		return domain.TransactionDetail{}, err
	}
	return splitBreakdown(*tx, items), nil
}

// splitBreakdown groups the breakdown rows by flow and direction.
func splitBreakdown(tx domain.Transaction, items []domain.TransactionItem) domain.TransactionDetail {
	detail := domain.TransactionDetail{
		Transaction: tx,
		MoneyIn:     []domain.TransactionItem{},
		MoneyOut:    []domain.TransactionItem{},
		StockIn:     []domain.TransactionItem{},
		StockOut:    []domain.TransactionItem{},
	}
	var moneyIn, moneyOut decimal.Decimal
	for _, item := range items {
		switch {
		case item.Flow == domain.FlowMoney && item.Direction == domain.DirectionIn:
			detail.MoneyIn = append(detail.MoneyIn, item)
			moneyIn = moneyIn.Add(decimal.NewFromFloat(item.Total))
		case item.Flow == domain.FlowMoney && item.Direction == domain.DirectionOut:
			detail.MoneyOut = append(detail.MoneyOut, item)
			moneyOut = moneyOut.Add(decimal.NewFromFloat(item.Total))
		case item.Flow == domain.FlowStock && item.Direction == domain.DirectionIn:
			detail.StockIn = append(detail.StockIn, item)
		case item.Flow == domain.FlowStock && item.Direction == domain.DirectionOut:
			detail.StockOut = append(detail.StockOut, item)
		}
	}
	detail.SumMoneyIn = moneyIn.Round(4).InexactFloat64()
	detail.SumMoneyOut = moneyOut.Round(4).InexactFloat64()
	return detail
}

// CreateTransaction books an ad-hoc entry. The due date defaults to the
// booking date and the status to pending.
func (s *Service) CreateTransaction(ctx context.Context, input TransactionInput) (domain.Transaction, error) {
	tx, err := s.adhocFromInput(input, domain.Transaction{Direction: domain.DirectionIn, Status: domain.TxPending})
	if err != nil {
		return domain.Transaction{}, err
	}
	id, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, err
	}
	created, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *created, nil
}

// UpdateTransaction edits an entry. Entries mirroring a work order or a
// purchase only take status and payment method; the rest follows the document.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, input TransactionInput) (domain.Transaction, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		if current.Locked() {
			status := current.Status
			if raw := strings.TrimSpace(input.Status); raw != "" {
				resolved, ok := s.keywords.PurchaseStatus(raw)
				if !ok {
					return invalid("unknown status %q", raw)
				}
				status = resolved
			}
			methodID := current.PaymentMethodID
			if input.PaymentMethodID != nil {
				methodID = input.PaymentMethodID
			}
			return tx.UpdateTransactionStatus(ctx, id, status, methodID)
		}

		updated, err := s.adhocFromInput(input, *current)
		if err != nil {
			return err
		}
		return tx.UpdateTransaction(ctx, id, updated)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	updated, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *updated, nil
}

func (s *Service) CancelTransaction(ctx context.Context, id int64) error {
	return s.repo.CancelTransaction(ctx, id)
}

// QuickService books a walk-in sale: an inflow in the ad-hoc sales category,
// due on its booking date and settled unless told otherwise.
func (s *Service) QuickService(ctx context.Context, input QuickServiceInput) (domain.Transaction, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		categoryID, err := tx.CategoryID(ctx, reconcile.CategoryAdhocSales, string(domain.DirectionIn))
		if err != nil {
			return fmt.Errorf("%w: category %q: %v", reconcile.ErrLookup, reconcile.CategoryAdhocSales, err)
		}
		entry, err := s.adhocFromInput(TransactionInput{
			Direction:       string(domain.DirectionIn),
			Description:     input.Description,
			Amount:          input.Amount,
			Date:            input.Date,
			Status:          input.Status,
			PaymentMethodID: input.PaymentMethodID,
			CategoryID:      &categoryID,
		}, domain.Transaction{Status: domain.TxSettled})
		if err != nil {
			return err
		}
		entry.DueDate = &entry.Date
		id, err = tx.InsertTransaction(ctx, entry)
		return err
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	created, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *created, nil
}

// adhocFromInput validates an ad-hoc entry. Blank fields fall back to base.
func (s *Service) adhocFromInput(input TransactionInput, base domain.Transaction) (domain.Transaction, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return domain.Transaction{}, invalid("description is required")
	}
	if input.Amount < 0 {
		return domain.Transaction{}, invalid("amount must not be negative")
	}

	direction := base.Direction
	if raw := strings.TrimSpace(input.Direction); raw != "" {
		parsed, err := parseDirection(raw)
		if err != nil {
			return domain.Transaction{}, err
		}
		direction = parsed
	}

	fallbackDate := s.today()
	if base.Date != "" {
		if parsed, err := time.Parse(domain.DateLayout, base.Date); err == nil {
			fallbackDate = parsed
		}
	}
	date, err := parseDay(input.Date, fallbackDate)
	if err != nil {
		return domain.Transaction{}, err
	}
	dateText := date.Format(domain.DateLayout)

	due := dateText
	if base.DueDate != nil && strings.TrimSpace(input.Date) == "" {
		due = *base.DueDate
	}
	if raw := normalizeNullable(input.DueDate); raw != nil {
		parsed, err := parseDay(*raw, date)
		if err != nil {
			return domain.Transaction{}, err
		}
		due = parsed.Format(domain.DateLayout)
	}

	status := base.Status
	if raw := strings.TrimSpace(input.Status); raw != "" {
		resolved, ok := s.keywords.PurchaseStatus(raw)
		if !ok {
			return domain.Transaction{}, invalid("unknown status %q", raw)
		}
		status = resolved
	}
	if !status.Valid() {
		status = domain.TxPending
	}

	return domain.Transaction{
		Direction:       direction,
		Description:     description,
		Amount:          decimal.NewFromFloat(input.Amount).Round(4).InexactFloat64(),
		Date:            dateText,
		DueDate:         &due,
		Status:          status,
		PaymentMethodID: input.PaymentMethodID,
		CategoryID:      input.CategoryID,
		RefKind:         domain.RefAdhoc,
	}, nil
}

func parseDirection(raw string) (domain.Direction, error) {
	direction := domain.Direction(strings.ToLower(strings.TrimSpace(raw)))
	if !direction.Valid() {
		return "", invalid("direction must be in or out")
	}
	return direction, nil
}

// Dashboard sums the ledger over the booking-date range, which defaults to
// the current month.
func (s *Service) Dashboard(ctx context.Context, start, end string) (domain.FinanceDashboard, error) {
	from, to, err := s.monthRange(start, end)
	if err != nil {
		return domain.FinanceDashboard{}, err
	}
	totals, err := s.repo.GetFinanceTotals(ctx, from, to)
	if err != nil {
		return domain.FinanceDashboard{}, err
	}
	byMethod, err := s.repo.IncomeByMethod(ctx, from, to)
	if err != nil {
		return domain.FinanceDashboard{}, err
	}
	chartFrom, chartTo := chartRange(from, to)
	months, err := s.repo.MonthlyTotals(ctx, chartFrom, chartTo)
	if err != nil {
		return domain.FinanceDashboard{}, err
	}
	recent, err := s.repo.RecentTransactions(ctx, recentTransactions)
	if err != nil {
		return domain.FinanceDashboard{}, err
	}

	balance := decimal.NewFromFloat(totals.Income).Sub(decimal.NewFromFloat(totals.Expenses))
	return domain.FinanceDashboard{
		Start:             from.Format(domain.DateLayout),
		End:               to.Format(domain.DateLayout),
		Income:            totals.Income,
		Expenses:          totals.Expenses,
		Balance:           balance.Round(4).InexactFloat64(),
		PendingReceivable: totals.PendingReceivable,
		PendingPayable:    totals.PendingPayable,
		IncomeByMethod:    byMethod,
		ChartStart:        chartFrom.Format(domain.DateLayout),
		ChartEnd:          chartTo.Format(domain.DateLayout),
		Monthly:           fillMonths(chartFrom, chartTo, months),
		Recent:            recent,
	}, nil
}

// chartRange picks the dashboard chart window. Ranges shorter than
// chartMinSpanDays chart the twelve months ending at to; longer ones chart
// from the first day of from's month to to.
func chartRange(from, to time.Time) (time.Time, time.Time) {
	spanDays := int(to.Sub(from).Hours() / 24)
	if spanDays < chartMinSpanDays {
		first := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -11, 0), to
	}
	return time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC), to
}

// fillMonths returns one entry per calendar month between from and to,
// zero for months without settled entries.
func fillMonths(from, to time.Time, rows []domain.MonthlyTotals) []domain.MonthlyTotals {
	byMonth := make(map[string]domain.MonthlyTotals, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row
	}
	out := make([]domain.MonthlyTotals, 0, 12)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for month := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(last); month = month.AddDate(0, 1, 0) {
		key := month.Format("2006-01")
		entry := byMonth[key]
		entry.Month = key
		entry.Label = month.Format("01/2006")
		out = append(out, entry)
	}
	return out
}

// StockStatement lists the stock-flow rows of the ledger with totals per
// item and per document.
func (s *Service) StockStatement(ctx context.Context, query StatementQuery) (domain.StockStatement, error) {
	from, to, err := s.monthRange(query.Start, query.End)
	if err != nil {
		return domain.StockStatement{}, err
	}
	filter := repository.StockMovementFilter{
		From:   from,
		To:     to,
		ItemID: query.ItemID,
		Search: query.Search,
	}
	if raw := strings.TrimSpace(query.Direction); raw != "" {
		direction, err := parseDirection(raw)
		if err != nil {
			return domain.StockStatement{}, err
		}
		filter.Direction = direction
	}
	if raw := strings.TrimSpace(query.RefKind); raw != "" {
		kind := domain.RefKind(strings.ToLower(raw))
		if !kind.Valid() {
			return domain.StockStatement{}, invalid("unknown ref_kind %q", raw)
		}
		filter.RefKind = kind
	}

	movements, err := s.repo.StockMovements(ctx, filter)
	if err != nil {
		return domain.StockStatement{}, err
	}
	return aggregateStatement(movements), nil
}

func aggregateStatement(movements []domain.StockMovement) domain.StockStatement {
	type refKey struct {
		kind domain.RefKind
		id   int64
	}
	var qtyIn, qtyOut, valueIn, valueOut decimal.Decimal
	items := make(map[int64]*domain.StockItemTotals)
	itemOrder := make([]int64, 0)
	refs := make(map[refKey]*domain.StockRefTotals)
	refOrder := make([]refKey, 0)
	seen := make(map[refKey]map[string]bool)

	for _, m := range movements {
		qty := decimal.NewFromFloat(m.Qty)
		value := decimal.NewFromFloat(m.Total)
		in := m.Direction == domain.DirectionIn
		if in {
			qtyIn = qtyIn.Add(qty)
			valueIn = valueIn.Add(value)
		} else {
			qtyOut = qtyOut.Add(qty)
			valueOut = valueOut.Add(value)
		}

		var itemKey int64
		if m.InventoryID != nil {
			itemKey = *m.InventoryID
		}
		item, ok := items[itemKey]
		if !ok {
			item = &domain.StockItemTotals{
				InventoryID:  m.InventoryID,
				Name:         movementName(m),
				SKU:          m.ItemSKU,
				CurrentStock: m.ItemStock,
			}
			items[itemKey] = item
			itemOrder = append(itemOrder, itemKey)
		}
		if in {
			item.InQty += m.Qty
			item.InValue += m.Total
		} else {
			item.OutQty += m.Qty
			item.OutValue += m.Total
		}

		key := refKey{kind: m.RefKind}
		if m.RefID != nil {
			key.id = *m.RefID
		}
		ref, ok := refs[key]
		if !ok {
			ref = &domain.StockRefTotals{RefKind: m.RefKind, RefID: m.RefID, Date: m.Date, Items: []string{}}
			refs[key] = ref
			refOrder = append(refOrder, key)
			seen[key] = make(map[string]bool)
		}
		if in {
			ref.InQty += m.Qty
		} else {
			ref.OutQty += m.Qty
		}
		name := m.ItemName
		if name == "" {
			name = m.Description
		}
		if name != "" && !seen[key][name] {
			seen[key][name] = true
			ref.Items = append(ref.Items, name)
		}
	}

	statement := domain.StockStatement{
		Movements: movements,
		QtyIn:     qtyIn.Round(4).InexactFloat64(),
		QtyOut:    qtyOut.Round(4).InexactFloat64(),
		ValueIn:   valueIn.Round(4).InexactFloat64(),
		ValueOut:  valueOut.Round(4).InexactFloat64(),
		ByItem:    make([]domain.StockItemTotals, 0, len(items)),
		ByRef:     make([]domain.StockRefTotals, 0, len(refs)),
	}
	for _, key := range itemOrder {
		statement.ByItem = append(statement.ByItem, *items[key])
	}
	sort.SliceStable(statement.ByItem, func(i, j int) bool {
		a, b := statement.ByItem[i], statement.ByItem[j]
		if a.InQty+a.OutQty != b.InQty+b.OutQty {
			return a.InQty+a.OutQty > b.InQty+b.OutQty
		}
		return a.Name < b.Name
	})

	for _, key := range refOrder {
		ref := refs[key]
		preview := ref.Items
		suffix := ""
		if len(preview) > previewItems {
			preview = preview[:previewItems]
			suffix = "…"
		}
		ref.ItemsPreview = strings.Join(preview, ", ") + suffix
		statement.ByRef = append(statement.ByRef, *ref)
	}
	sort.SliceStable(statement.ByRef, func(i, j int) bool {
		a, b := statement.ByRef[i], statement.ByRef[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.RefKind != b.RefKind {
			return a.RefKind > b.RefKind
		}
		return refIDOf(a) > refIDOf(b)
	})
	return statement
}

func movementName(m domain.StockMovement) string {
	switch {
	case m.ItemName != "":
		return m.ItemName
	case m.Description != "":
		return m.Description
	case m.InventoryID != nil:
		return fmt.Sprintf("Item #%d", *m.InventoryID)
	default:
		return "Item"
	}
}

func refIDOf(r domain.StockRefTotals) int64 {
	if r.RefID == nil {
		return 0
	}
	return *r.RefID
}
