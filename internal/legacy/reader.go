package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"oficina/internal/domain"

	_ "modernc.org/sqlite"
)

// Order is a legacy order header. Status and payment fields keep the
// free-text spelling of the old system; callers normalise them.
type Order struct {
	ID         int64
	ClientID   int64
	VehicleID  *int64
	MechanicID *int64
	CreatedAt  string
	Status     string
	Notes      string
	Labor      float64
	PayMethod  string
	PayStatus  string
}

type Purchase struct {
	ID            int64
	Supplier      string
	DocNumber     string
	Date          string
	DueDate       string
	Status        string
	PaymentMethod string
	Notes         string
	Total         float64
	CreatedAt     string
}

// Entry is a ledger transaction typed by hand in the old system, with no
// order or purchase behind it.
type Entry struct {
	ID            int64
	Direction     string
	Description   string
	Amount        float64
	Date          string
	DueDate       string
	Status        string
	PaymentMethod string
	Category      string
	CategoryKind  string
}

// Snapshot holds everything the importer carries over. Item maps are keyed
// by their parent id.
type Snapshot struct {
	Clients       []domain.Client
	Vehicles      []domain.Vehicle
	Mechanics     []domain.Mechanic
	Inventory     []domain.InventoryItem
	Orders        []Order
	OrderItems    map[int64][]domain.OrderItem
	Appointments  []domain.Appointment
	Purchases     []Purchase
	PurchaseItems map[int64][]domain.PurchaseItem
	Entries       []Entry
}

type Reader struct {
	db *sql.DB
}

// Open opens the legacy database read-only.
func Open(path string) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("legacy database path is required")
	}
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open legacy database %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}

func (r *Reader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	var err error
	if snap.Clients, err = r.Clients(ctx); err != nil {
		return nil, err
	}
	if snap.Vehicles, err = r.Vehicles(ctx); err != nil {
		return nil, err
	}
	if snap.Mechanics, err = r.Mechanics(ctx); err != nil {
		return nil, err
	}
	if snap.Inventory, err = r.Inventory(ctx); err != nil {
		return nil, err
	}
	if snap.Orders, err = r.Orders(ctx); err != nil {
		return nil, err
	}
	if snap.OrderItems, err = r.OrderItems(ctx); err != nil {
		return nil, err
	}
	if snap.Appointments, err = r.Appointments(ctx); err != nil {
		return nil, err
	}
	methods, err := r.namesByID(ctx, "fin_payment_methods")
	if err != nil {
		return nil, err
	}
	if snap.Purchases, err = r.Purchases(ctx, methods); err != nil {
		return nil, err
	}
	if snap.PurchaseItems, err = r.PurchaseItems(ctx); err != nil {
		return nil, err
	}
	if snap.Entries, err = r.Entries(ctx, methods); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Reader) Clients(ctx context.Context) ([]domain.Client, error) {
	records, err := r.records(ctx, "clients", []string{"id", "name", "phone", "cpf", "address"})
	if err != nil {
		return nil, err
	}
	clients := make([]domain.Client, 0, len(records))
	for _, rec := range records {
		clients = append(clients, domain.Client{
			ID:       parseInt64(rec["id"]),
			Name:     strings.TrimSpace(rec["name"]),
			Phone:    strings.TrimSpace(rec["phone"]),
			Document: strings.TrimSpace(rec["cpf"]),
			Address:  strings.TrimSpace(rec["address"]),
		})
	}
	return clients, nil
}

func (r *Reader) Vehicles(ctx context.Context) ([]domain.Vehicle, error) {
	records, err := r.records(ctx, "vehicles", []string{"id", "client_id", "plate", "model", "year"})
	if err != nil {
		return nil, err
	}
	vehicles := make([]domain.Vehicle, 0, len(records))
	for _, rec := range records {
		v := domain.Vehicle{
			ID:       parseInt64(rec["id"]),
			ClientID: parseInt64(rec["client_id"]),
			Plate:    strings.ToUpper(strings.TrimSpace(rec["plate"])),
			Model:    strings.TrimSpace(rec["model"]),
		}
		if year := int(parseInt64(rec["year"])); year > 0 {
			v.Year = &year
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

func (r *Reader) Mechanics(ctx context.Context) ([]domain.Mechanic, error) {
	records, err := r.records(ctx, "mechanics", []string{"id", "name"})
	if err != nil {
		return nil, err
	}
	mechanics := make([]domain.Mechanic, 0, len(records))
	for _, rec := range records {
		mechanics = append(mechanics, domain.Mechanic{
			ID:   parseInt64(rec["id"]),
			Name: strings.TrimSpace(rec["name"]),
		})
	}
	return mechanics, nil
}

func (r *Reader) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	records, err := r.records(ctx, "inventory", []string{
		"id", "name", "sku", "stock", "min_stock", "price", "is_labor", "cost_price", "repasse_value",
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.InventoryItem, 0, len(records))
	for _, rec := range records {
		item := domain.InventoryItem{
			ID:           parseInt64(rec["id"]),
			Name:         strings.TrimSpace(rec["name"]),
			Stock:        parseFloat(rec["stock"]),
			MinStock:     parseFloat(rec["min_stock"]),
			Price:        parseFloat(rec["price"]),
			CostPrice:    parseFloat(rec["cost_price"]),
			RepasseValue: parseFloat(rec["repasse_value"]),
			IsLabor:      parseInt64(rec["is_labor"]) != 0,
		}
		if sku := strings.TrimSpace(rec["sku"]); sku != "" {
			item.SKU = &sku
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Reader) Orders(ctx context.Context) ([]Order, error) {
	records, err := r.records(ctx, "orders", []string{
		"id", "client_id", "vehicle_id", "mechanic_id", "created_at", "status", "notes", "labor", "pay_method", "pay_status",
	})
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, Order{
			ID:         parseInt64(rec["id"]),
			ClientID:   parseInt64(rec["client_id"]),
			VehicleID:  parseOptionalID(rec["vehicle_id"]),
			MechanicID: parseOptionalID(rec["mechanic_id"]),
			CreatedAt:  strings.TrimSpace(rec["created_at"]),
			Status:     strings.TrimSpace(rec["status"]),
			Notes:      rec["notes"],
			Labor:      parseFloat(rec["labor"]),
			PayMethod:  strings.TrimSpace(rec["pay_method"]),
			PayStatus:  strings.TrimSpace(rec["pay_status"]),
		})
	}
	return orders, nil
}

func (r *Reader) OrderItems(ctx context.Context) (map[int64][]domain.OrderItem, error) {
	records, err := r.records(ctx, "order_items", []string{
		"id", "order_id", "inventory_id", "description", "qty", "unit_price", "total", "is_labor",
	})
	if err != nil {
		return nil, err
	}
	items := make(map[int64][]domain.OrderItem)
	for _, rec := range records {
		item := domain.OrderItem{
			ID:          parseInt64(rec["id"]),
			WorkOrderID: parseInt64(rec["order_id"]),
			InventoryID: parseOptionalID(rec["inventory_id"]),
			Description: strings.TrimSpace(rec["description"]),
			Qty:         parseFloat(rec["qty"]),
			UnitPrice:   parseFloat(rec["unit_price"]),
			Total:       parseFloat(rec["total"]),
			IsLabor:     parseInt64(rec["is_labor"]) != 0,
		}
		items[item.WorkOrderID] = append(items[item.WorkOrderID], item)
	}
	return items, nil
}

func (r *Reader) Appointments(ctx context.Context) ([]domain.Appointment, error) {
	records, err := r.records(ctx, "agenda", []string{
		"id", "client_id", "vehicle_id", "mechanic_id", "date", "time", "notes", "created_at", "whatsapp_sent",
	})
	if err != nil {
		return nil, err
	}
	appointments := make([]domain.Appointment, 0, len(records))
	for _, rec := range records {
		a := domain.Appointment{
			ID:           parseInt64(rec["id"]),
			ClientID:     parseInt64(rec["client_id"]),
			VehicleID:    parseOptionalID(rec["vehicle_id"]),
			MechanicID:   parseOptionalID(rec["mechanic_id"]),
			Date:         NormalizeDate(rec["date"]),
			Time:         strings.TrimSpace(rec["time"]),
			Notes:        rec["notes"],
			ReminderSent: parseInt64(rec["whatsapp_sent"]) != 0,
		}
		if created, ok := ParseTimestamp(rec["created_at"]); ok {
			a.CreatedAt = created
		}
		appointments = append(appointments, a)
	}
	return appointments, nil
}

// Purchases resolves the payment method id through methods, the legacy
// payment method names by id.
func (r *Reader) Purchases(ctx context.Context, methods map[int64]string) ([]Purchase, error) {
	records, err := r.records(ctx, "purchase_orders", []string{
		"id", "supplier", "doc_number", "date", "due_date", "status", "payment_method_id", "notes", "total", "created_at",
	})
	if err != nil {
		return nil, err
	}
	purchases := make([]Purchase, 0, len(records))
	for _, rec := range records {
		purchases = append(purchases, Purchase{
			ID:            parseInt64(rec["id"]),
			Supplier:      strings.TrimSpace(rec["supplier"]),
			DocNumber:     strings.TrimSpace(rec["doc_number"]),
			Date:          NormalizeDate(rec["date"]),
			DueDate:       NormalizeDate(rec["due_date"]),
			Status:        strings.TrimSpace(rec["status"]),
			PaymentMethod: methods[parseInt64(rec["payment_method_id"])],
			Notes:         rec["notes"],
			Total:         parseFloat(rec["total"]),
			CreatedAt:     strings.TrimSpace(rec["created_at"]),
		})
	}
	return purchases, nil
}

func (r *Reader) PurchaseItems(ctx context.Context) (map[int64][]domain.PurchaseItem, error) {
	records, err := r.records(ctx, "purchase_items", []string{
		"id", "purchase_id", "inventory_id", "qty", "unit_cost", "total",
	})
	if err != nil {
		return nil, err
	}
	items := make(map[int64][]domain.PurchaseItem)
	for _, rec := range records {
		item := domain.PurchaseItem{
			ID:          parseInt64(rec["id"]),
			PurchaseID:  parseInt64(rec["purchase_id"]),
			InventoryID: parseInt64(rec["inventory_id"]),
			Qty:         parseFloat(rec["qty"]),
			UnitCost:    parseFloat(rec["unit_cost"]),
			Total:       parseFloat(rec["total"]),
		}
		items[item.PurchaseID] = append(items[item.PurchaseID], item)
	}
	return items, nil
}

// Entries returns the hand-typed ledger transactions. Transactions mirroring
// orders and purchases are skipped since the importer rebuilds them.
func (r *Reader) Entries(ctx context.Context, methods map[int64]string) ([]Entry, error) {
	records, err := r.records(ctx, "fin_transactions", []string{
		"id", "ttype", "description", "amount", "date", "due_date", "status", "payment_method_id", "category_id", "ref_type",
	})
	if err != nil {
		return nil, err
	}
	categories, err := r.categories(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		switch strings.ToUpper(strings.TrimSpace(rec["ref_type"])) {
		case "", "ADHOC":
		default:
			continue
		}
		category := categories[parseInt64(rec["category_id"])]
		entries = append(entries, Entry{
			ID:            parseInt64(rec["id"]),
			Direction:     strings.TrimSpace(rec["ttype"]),
			Description:   strings.TrimSpace(rec["description"]),
			Amount:        parseFloat(rec["amount"]),
			Date:          NormalizeDate(rec["date"]),
			DueDate:       NormalizeDate(rec["due_date"]),
			Status:        strings.TrimSpace(rec["status"]),
			PaymentMethod: methods[parseInt64(rec["payment_method_id"])],
			Category:      category.Name,
			CategoryKind:  category.Kind,
		})
	}
	return entries, nil
}

func (r *Reader) categories(ctx context.Context) (map[int64]domain.Category, error) {
	records, err := r.records(ctx, "fin_categories", []string{"id", "name", "kind"})
	if err != nil {
		return nil, err
	}
	categories := make(map[int64]domain.Category, len(records))
	for _, rec := range records {
		id := parseInt64(rec["id"])
		categories[id] = domain.Category{
			ID:   id,
			Name: strings.TrimSpace(rec["name"]),
			Kind: strings.ToLower(strings.TrimSpace(rec["kind"])),
		}
	}
	return categories, nil
}

func (r *Reader) namesByID(ctx context.Context, table string) (map[int64]string, error) {
	records, err := r.records(ctx, table, []string{"id", "name"})
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(records))
	for _, rec := range records {
		names[parseInt64(rec["id"])] = strings.TrimSpace(rec["name"])
	}
	return names, nil
}

// records reads the wanted columns of table ordered by id, each row as text
// keyed by column name. Columns the legacy table lacks read as empty
// strings and a missing table reads as no rows.
func (r *Reader) records(ctx context.Context, table string, wanted []string) ([]map[string]string, error) {
	available, err := r.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(available) == 0 {
		return nil, nil
	}

	selected := make([]string, 0, len(wanted))
	for _, col := range wanted {
		if available[col] {
			selected = append(selected, col)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), table)
	if available["id"] {
		query += " ORDER BY id"
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []map[string]string
	values := make([]any, len(selected))
	targets := make([]any, len(selected))
	for i := range values {
		targets[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make(map[string]string, len(selected))
		for i, col := range selected {
			rec[col] = textValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

func (r *Reader) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("inspect %s: %w", table, err)
		}
		columns[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	return columns, nil
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(v)
	}
}
