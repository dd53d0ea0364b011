package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"oficina/internal/domain"

	"github.com/jackc/pgx/v5"
)

type TransactionFilter struct {
	From      time.Time
	To        time.Time
	Direction domain.Direction
	Status    domain.TransactionStatus
	Search    string
	Limit     int
	Offset    int
}

type StockMovementFilter struct {
	From      time.Time
	To        time.Time
	Direction domain.Direction
	RefKind   domain.RefKind
	ItemID    *int64
	Search    string
}

// FinanceTotals are the sums shown on the dashboard for a booking-date range.
type FinanceTotals struct {
	Income            float64
	Expenses          float64
	PendingReceivable float64
	PendingPayable    float64
}

const transactionSelect = `
	SELECT
		t.id,
		t.direction,
		t.description,
		t.amount::double precision,
		to_char(t.booking_date, 'YYYY-MM-DD'),
		to_char(t.due_date, 'YYYY-MM-DD'),
		t.status,
		t.payment_method_id,
		t.category_id,
		t.ref_kind,
		t.ref_id,
		t.created_at,
		t.updated_at,
		COALESCE(pm.name, ''),
		COALESCE(c.name, '')
	FROM finance_transactions t
	LEFT JOIN payment_methods pm ON pm.id = t.payment_method_id
	LEFT JOIN finance_categories c ON c.id = t.category_id
`

func (s store) PaymentMethodID(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO payment_methods (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("get or create payment method %q: %w", name, err)
	}
	return id, nil
}

func (s store) CategoryID(ctx context.Context, name, kind string) (int64, error) {
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO finance_categories (name, kind) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name, kind).Scan(&id); err != nil {
		return 0, fmt.Errorf("get or create category %q: %w", name, err)
	}
	return id, nil
}

func (s store) ListPaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := s.q.Query(ctx, "SELECT id, name FROM payment_methods ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	list := make([]domain.PaymentMethod, 0)
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment methods: %w", err)
	}
	return list, nil
}

func (s store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.q.Query(ctx, "SELECT id, name, kind FROM finance_categories ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return list, nil
}

func (s store) FindTransactionByRef(ctx context.Context, kind domain.RefKind, refID int64) (int64, bool, error) {
	var id int64
	err := s.q.QueryRow(ctx, `
		SELECT id FROM finance_transactions
		WHERE ref_kind = $1 AND ref_id = $2
		ORDER BY id
		LIMIT 1
	`, string(kind), refID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find transaction by ref: %w", err)
	}
	return id, true, nil
}

func (s store) InsertTransaction(ctx context.Context, tx domain.Transaction) (int64, error) {
	date, dueDate, err := transactionDates(tx)
	if err != nil {
		return 0, err
	}
	refKind := tx.RefKind
	if refKind == "" {
		refKind = domain.RefAdhoc
	}
	var id int64
	if err := s.q.QueryRow(ctx, `
		INSERT INTO finance_transactions (
			direction,
			description,
			amount,
			booking_date,
			due_date,
			status,
			payment_method_id,
			category_id,
			ref_kind,
			ref_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		string(tx.Direction),
		tx.Description,
		tx.Amount,
		date,
		dueDate,
		string(tx.Status),
		tx.PaymentMethodID,
		tx.CategoryID,
		string(refKind),
		tx.RefID,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert transaction: %w", mapWriteError(err))
	}
	return id, nil
}

// UpdateTransaction overwrites every editable column of the transaction.
func (s store) UpdateTransaction(ctx context.Context, id int64, tx domain.Transaction) error {
	date, dueDate, err := transactionDates(tx)
	if err != nil {
		return err
	}
	cmd, err := s.q.Exec(ctx, `
		UPDATE finance_transactions
		SET
			direction = $2,
			description = $3,
			amount = $4,
			booking_date = $5,
			due_date = $6,
			status = $7,
			payment_method_id = $8,
			category_id = $9,
			updated_at = NOW()
		WHERE id = $1
	`,
		id,
		string(tx.Direction),
		tx.Description,
		tx.Amount,
		date,
		dueDate,
		string(tx.Status),
		tx.PaymentMethodID,
		tx.CategoryID,
	)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", id, mapWriteError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTransactionStatus changes only status and payment method, the two
// fields editable on transactions that mirror a work order or a purchase.
func (s store) UpdateTransactionStatus(ctx context.Context, id int64, status domain.TransactionStatus, methodID *int64) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE finance_transactions
		SET status = $2, payment_method_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(status), methodID)
	if err != nil {
		return fmt.Errorf("update transaction status %d: %w", id, mapWriteError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s store) CancelTransaction(ctx context.Context, id int64) error {
	cmd, err := s.q.Exec(ctx, `
		UPDATE finance_transactions
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("cancel transaction %d: %w", id, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CancelTransactionByRef cancels the transaction mirroring a document, if any.
func (s store) CancelTransactionByRef(ctx context.Context, kind domain.RefKind, refID int64) error {
	if _, err := s.q.Exec(ctx, `
		UPDATE finance_transactions
		SET status = 'cancelled', updated_at = NOW()
		WHERE ref_kind = $1 AND ref_id = $2
	`, string(kind), refID); err != nil {
		return fmt.Errorf("cancel %s transaction %d: %w", kind, refID, err)
	}
	return nil
}

func (s store) ReplaceTransactionItems(ctx context.Context, txID int64, items []domain.TransactionItem) error {
	if _, err := s.q.Exec(ctx, "DELETE FROM finance_transaction_items WHERE transaction_id = $1", txID); err != nil {
		return fmt.Errorf("clear transaction items: %w", err)
	}
	for _, item := range items {
		if _, err := s.q.Exec(ctx, `
			INSERT INTO finance_transaction_items (
				transaction_id,
				flow,
				direction,
				inventory_id,
				description,
				qty,
				unit_value,
				total
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			txID,
			string(item.Flow),
			string(item.Direction),
			item.InventoryID,
			item.Description,
			item.Qty,
			item.UnitValue,
			item.Total,
		); err != nil {
			return fmt.Errorf("insert transaction item %q: %w", item.Description, mapWriteError(err))
		}
	}
	return nil
}

// LinkTransaction stores the transaction id on the mirrored document.
func (s store) LinkTransaction(ctx context.Context, kind domain.RefKind, refID, txID int64) error {
	var table string
	switch kind {
	case domain.RefWorkOrder:
		table = "work_orders"
	case domain.RefPurchase:
		table = "purchase_orders"
	default:
		return fmt.Errorf("link transaction: unsupported ref kind %q", kind)
	}
	cmd, err := s.q.Exec(ctx, "UPDATE "+table+" SET fin_tx_id = $2 WHERE id = $1", refID, txID)
	if err != nil {
		return fmt.Errorf("link transaction %d: %w", txID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTransactions filters on booking date within [From, To], both inclusive.
func (s store) ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error) {
	where := []string{"t.booking_date BETWEEN $1 AND $2"}
	args := []any{filter.From, filter.To}
	if filter.Direction != "" {
		args = append(args, string(filter.Direction))
		where = append(where, fmt.Sprintf("t.direction = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if like := likePattern(filter.Search); like != "" {
		args = append(args, like)
		where = append(where, fmt.Sprintf("t.description ILIKE $%d", len(args)))
	}
	query := transactionSelect + " WHERE " + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY t.booking_date DESC, t.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	return s.queryTransactions(ctx, query, args...)
}

func (s store) RecentTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx, transactionSelect+" ORDER BY t.booking_date DESC, t.id DESC LIMIT $1", limit)
}

func (s store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	list := make([]domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return list, nil
}

func (s store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	tx, err := scanTransactionRow(s.q.QueryRow(ctx, transactionSelect+" WHERE t.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &tx, nil
}

func (s store) ListTransactionItems(ctx context.Context, txID int64) ([]domain.TransactionItem, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			it.id,
			it.transaction_id,
			it.flow,
			it.direction,
			it.inventory_id,
			it.description,
			it.qty::double precision,
			it.unit_value::double precision,
			it.total::double precision,
			it.created_at,
			COALESCE(inv.name, ''),
			COALESCE(inv.sku, '')
		FROM finance_transaction_items it
		LEFT JOIN inventory_items inv ON inv.id = it.inventory_id
		WHERE it.transaction_id = $1
		ORDER BY it.flow, it.direction, it.id
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("list transaction items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0)
	for rows.Next() {
		var (
			item        domain.TransactionItem
			flow        string
			direction   string
			inventoryID sql.NullInt64
		)
		if err := rows.Scan(
			&item.ID,
			&item.TransactionID,
			&flow,
			&direction,
			&inventoryID,
			&item.Description,
			&item.Qty,
			&item.UnitValue,
			&item.Total,
			&item.CreatedAt,
			&item.InventoryName,
			&item.InventorySKU,
		); err != nil {
			return nil, fmt.Errorf("scan transaction item: %w", err)
		}
		item.Flow = domain.Flow(flow)
		item.Direction = domain.Direction(direction)
		item.InventoryID = nullInt64Ptr(inventoryID)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction items: %w", err)
	}
	return items, nil
}

// GetFinanceTotals sums settled and pending amounts booked within [from, to].
func (s store) GetFinanceTotals(ctx context.Context, from, to time.Time) (FinanceTotals, error) {
	var totals FinanceTotals
	if err := s.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE direction = 'in' AND status = 'settled'), 0)::double precision,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'out' AND status = 'settled'), 0)::double precision,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'in' AND status = 'pending'), 0)::double precision,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'out' AND status = 'pending'), 0)::double precision
		FROM finance_transactions
		WHERE booking_date BETWEEN $1 AND $2
	`, from, to).Scan(
		&totals.Income,
		&totals.Expenses,
		&totals.PendingReceivable,
		&totals.PendingPayable,
	); err != nil {
		return FinanceTotals{}, fmt.Errorf("finance totals: %w", err)
	}
	return totals, nil
}

// IncomeByMethod returns the settled inflow per payment method within
// [from, to]. Every method is present, with zero when unused.
func (s store) IncomeByMethod(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			pm.name,
			COALESCE(SUM(t.amount), 0)::double precision
		FROM payment_methods pm
		LEFT JOIN finance_transactions t
			ON t.payment_method_id = pm.id
			AND t.direction = 'in'
			AND t.status = 'settled'
			AND t.booking_date BETWEEN $1 AND $2
		GROUP BY pm.name
		ORDER BY pm.name
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("income by method: %w", err)
	}
	defer rows.Close()

	byMethod := make(map[string]float64)
	for rows.Next() {
		var (
			name  string
			total float64
		)
		if err := rows.Scan(&name, &total); err != nil {
			return nil, fmt.Errorf("scan income by method: %w", err)
		}
		byMethod[name] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate income by method: %w", err)
	}
	return byMethod, nil
}

// MonthlyTotals returns settled inflow and outflow per month within
// [from, to]. Months without transactions are absent.
func (s store) MonthlyTotals(ctx context.Context, from, to time.Time) ([]domain.MonthlyTotals, error) {
	rows, err := s.q.Query(ctx, `
		SELECT
			to_char(booking_date, 'YYYY-MM') AS month,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'in'), 0)::double precision,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'out'), 0)::double precision
		FROM finance_transactions
		WHERE status = 'settled' AND booking_date BETWEEN $1 AND $2
		GROUP BY month
		ORDER BY month
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	list := make([]domain.MonthlyTotals, 0)
	for rows.Next() {
		var m domain.MonthlyTotals
		if err := rows.Scan(&m.Month, &m.Income, &m.Expenses); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly totals: %w", err)
	}
	return list, nil
}

// StockMovements lists stock-flow breakdown rows of transactions booked
// within [From, To], newest first.
func (s store) StockMovements(ctx context.Context, filter StockMovementFilter) ([]domain.StockMovement, error) {
	where := []string{"ft.booking_date BETWEEN $1 AND $2", "it.flow = 'stock'"}
	args := []any{filter.From, filter.To}
	if filter.Direction != "" {
		args = append(args, string(filter.Direction))
		where = append(where, fmt.Sprintf("it.direction = $%d", len(args)))
	}
	if filter.RefKind != "" {
		args = append(args, string(filter.RefKind))
		where = append(where, fmt.Sprintf("ft.ref_kind = $%d", len(args)))
	}
	if filter.ItemID != nil {
		args = append(args, *filter.ItemID)
		where = append(where, fmt.Sprintf("it.inventory_id = $%d", len(args)))
	}
	if like := likePattern(filter.Search); like != "" {
		args = append(args, like)
		n := len(args)
		where = append(where, fmt.Sprintf("(COALESCE(inv.name, '') ILIKE $%d OR it.description ILIKE $%d)", n, n))
	}

	rows, err := s.q.Query(ctx, `
		SELECT
			it.id,
			it.transaction_id,
			it.direction,
			it.inventory_id,
			it.description,
			it.qty::double precision,
			it.unit_value::double precision,
			it.total::double precision,
			to_char(ft.booking_date, 'YYYY-MM-DD'),
			ft.status,
			ft.ref_kind,
			ft.ref_id,
			ft.description,
			COALESCE(inv.name, ''),
			COALESCE(inv.sku, ''),
			COALESCE(inv.stock, 0)::double precision
		FROM finance_transaction_items it
		JOIN finance_transactions ft ON ft.id = it.transaction_id
		LEFT JOIN inventory_items inv ON inv.id = it.inventory_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY ft.booking_date DESC, ft.id DESC, it.id DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("stock movements: %w", err)
	}
	defer rows.Close()

	list := make([]domain.StockMovement, 0)
	for rows.Next() {
		var (
			m           domain.StockMovement
			direction   string
			status      string
			refKind     string
			inventoryID sql.NullInt64
			refID       sql.NullInt64
		)
		if err := rows.Scan(
			&m.ItemRowID,
			&m.TransactionID,
			&direction,
			&inventoryID,
			&m.Description,
			&m.Qty,
			&m.UnitValue,
			&m.Total,
			&m.Date,
			&status,
			&refKind,
			&refID,
			&m.TxDescription,
			&m.ItemName,
			&m.ItemSKU,
			&m.ItemStock,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Direction = domain.Direction(direction)
		m.Status = domain.TransactionStatus(status)
		m.RefKind = domain.RefKind(refKind)
		m.InventoryID = nullInt64Ptr(inventoryID)
		m.RefID = nullInt64Ptr(refID)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}
	return list, nil
}

func transactionDates(tx domain.Transaction) (time.Time, *time.Time, error) {
	date, err := parseDate(tx.Date)
	if err != nil {
		return time.Time{}, nil, err
	}
	dueDate, err := parseOptionalDate(tx.DueDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	return date, dueDate, nil
}

func scanTransactionRow(row pgx.Row) (domain.Transaction, error) {
	var (
		tx        domain.Transaction
		direction string
		status    string
		refKind   string
		dueDate   sql.NullString
		methodID  sql.NullInt64
		catID     sql.NullInt64
		refID     sql.NullInt64
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&tx.ID,
		&direction,
		&tx.Description,
		&tx.Amount,
		&tx.Date,
		&dueDate,
		&status,
		&methodID,
		&catID,
		&refKind,
		&refID,
		&tx.CreatedAt,
		&updatedAt,
		&tx.PaymentMethodName,
		&tx.CategoryName,
	); err != nil {
		return domain.Transaction{}, err
	}
	tx.Direction = domain.Direction(direction)
	tx.Status = domain.TransactionStatus(status)
	tx.RefKind = domain.RefKind(refKind)
	tx.PaymentMethodID = nullInt64Ptr(methodID)
	tx.CategoryID = nullInt64Ptr(catID)
	tx.RefID = nullInt64Ptr(refID)
	if dueDate.Valid {
		value := dueDate.String
		tx.DueDate = &value
	}
	if updatedAt.Valid {
		value := updatedAt.Time
		tx.UpdatedAt = &value
	}
	return tx, nil
}
