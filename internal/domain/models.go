package domain

import "time"

// DateLayout is the calendar date format used for booking, due and agenda dates.
const DateLayout = "2006-01-02"

type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Document  string    `json:"document"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type ClientLookup struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Label    string `json:"label"`
}

type Vehicle struct {
	ID       int64  `json:"id"`
	ClientID int64  `json:"client_id"`
	Plate    string `json:"plate"`
	Model    string `json:"model"`
	Year     *int   `json:"year,omitempty"`
}

type Mechanic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type InventoryItem struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SKU          *string   `json:"sku,omitempty"`
	Stock        float64   `json:"stock"`
	MinStock     float64   `json:"min_stock"`
	Price        float64   `json:"price"`
	CostPrice    float64   `json:"cost_price"`
	RepasseValue float64   `json:"repasse_value"`
	IsLabor      bool      `json:"is_labor"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type InventoryLookup struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock float64 `json:"stock"`
}

type InventoryImportRow struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Stock     float64 `json:"stock"`
	MinStock  float64 `json:"min_stock"`
	CostPrice float64 `json:"cost_price"`
	Price     float64 `json:"price"`
}

type WorkOrder struct {
	ID         int64           `json:"id"`
	ClientID   int64           `json:"client_id"`
	VehicleID  *int64          `json:"vehicle_id,omitempty"`
	MechanicID *int64          `json:"mechanic_id,omitempty"`
	Status     WorkOrderStatus `json:"status"`
	Notes      string          `json:"notes"`
	Labor      float64         `json:"labor"`
	PayMethod  string          `json:"pay_method"`
	PayStatus  string          `json:"pay_status"`
	FinTxID    *int64          `json:"fin_tx_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`

	ClientName   string `json:"client_name,omitempty"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	MechanicName string `json:"mechanic_name,omitempty"`

	ItemsTotal float64     `json:"items_total"`
	Total      float64     `json:"total"`
	Items      []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID          int64   `json:"id"`
	WorkOrderID int64   `json:"work_order_id"`
	InventoryID *int64  `json:"inventory_id,omitempty"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
	IsLabor     bool    `json:"is_labor"`
}

type Appointment struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	VehicleID    *int64    `json:"vehicle_id,omitempty"`
	MechanicID   *int64    `json:"mechanic_id,omitempty"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Notes        string    `json:"notes"`
	ReminderSent bool      `json:"reminder_sent"`
	CreatedAt    time.Time `json:"created_at"`

	ClientName   string `json:"client_name,omitempty"`
	VehiclePlate string `json:"vehicle_plate,omitempty"`
	VehicleModel string `json:"vehicle_model,omitempty"`
	MechanicName string `json:"mechanic_name,omitempty"`
}

type PaymentMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type Transaction struct {
	ID              int64             `json:"id"`
	Direction       Direction         `json:"direction"`
	Description     string            `json:"description"`
	Amount          float64           `json:"amount"`
	Date            string            `json:"date"`
	DueDate         *string           `json:"due_date,omitempty"`
	Status          TransactionStatus `json:"status"`
	PaymentMethodID *int64            `json:"payment_method_id,omitempty"`
	CategoryID      *int64            `json:"category_id,omitempty"`
	RefKind         RefKind           `json:"ref_kind"`
	RefID           *int64            `json:"ref_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`

	PaymentMethodName string `json:"payment_method_name,omitempty"`
	CategoryName      string `json:"category_name,omitempty"`
}

// Locked reports whether the transaction mirrors a work order or a purchase.
// Such transactions only accept status and payment method edits.
func (t Transaction) Locked() bool {
	return t.RefKind == RefWorkOrder || t.RefKind == RefPurchase
}

type TransactionItem struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	Flow          Flow      `json:"flow"`
	Direction     Direction `json:"direction"`
	InventoryID   *int64    `json:"inventory_id,omitempty"`
	Description   string    `json:"description"`
	Qty           float64   `json:"qty"`
	UnitValue     float64   `json:"unit_value"`
	Total         float64   `json:"total"`
	CreatedAt     time.Time `json:"created_at"`

	InventoryName string `json:"inventory_name,omitempty"`
	InventorySKU  string `json:"inventory_sku,omitempty"`
}

type PurchaseOrder struct {
	ID              int64             `json:"id"`
	Supplier        string            `json:"supplier"`
	DocNumber       string            `json:"doc_number"`
	Date            string            `json:"date"`
	DueDate         *string           `json:"due_date,omitempty"`
	Status          TransactionStatus `json:"status"`
	PaymentMethodID *int64            `json:"payment_method_id,omitempty"`
	Notes           string            `json:"notes"`
	Total           float64           `json:"total"`
	FinTxID         *int64            `json:"fin_tx_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`

	PaymentMethodName string         `json:"payment_method_name,omitempty"`
	Items             []PurchaseItem `json:"items,omitempty"`
}

type PurchaseItem struct {
	ID            int64   `json:"id"`
	PurchaseID    int64   `json:"purchase_id"`
	InventoryID   int64   `json:"inventory_id"`
	Qty           float64 `json:"qty"`
	UnitCost      float64 `json:"unit_cost"`
	Total         float64 `json:"total"`
	InventoryName string  `json:"inventory_name,omitempty"`
	InventorySKU  string  `json:"inventory_sku,omitempty"`
}
