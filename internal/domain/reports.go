package domain

type InventorySummary struct {
	TotalItems     int     `json:"total_items"`
	TotalStock     float64 `json:"total_stock"`
	InventoryValue float64 `json:"inventory_value"`
	LowStockItems  int     `json:"low_stock_items"`
}

type FinanceDashboard struct {
	Start             string             `json:"start"`
	End               string             `json:"end"`
	Income            float64            `json:"income"`
	Expenses          float64            `json:"expenses"`
	Balance           float64            `json:"balance"`
	PendingReceivable float64            `json:"pending_receivable"`
	PendingPayable    float64            `json:"pending_payable"`
	IncomeByMethod    map[string]float64 `json:"income_by_method"`
	ChartStart        string             `json:"chart_start"`
	ChartEnd          string             `json:"chart_end"`
	Monthly           []MonthlyTotals    `json:"monthly"`
	Recent            []Transaction      `json:"recent"`
}

type MonthlyTotals struct {
	Month    string  `json:"month"`
	Label    string  `json:"label"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

type TransactionDetail struct {
	Transaction Transaction       `json:"transaction"`
	MoneyIn     []TransactionItem `json:"money_in"`
	MoneyOut    []TransactionItem `json:"money_out"`
	StockIn     []TransactionItem `json:"stock_in"`
	StockOut    []TransactionItem `json:"stock_out"`
	SumMoneyIn  float64           `json:"sum_money_in"`
	SumMoneyOut float64           `json:"sum_money_out"`
}

type StockMovement struct {
	ItemRowID     int64             `json:"item_row_id"`
	TransactionID int64             `json:"transaction_id"`
	Direction     Direction         `json:"direction"`
	InventoryID   *int64            `json:"inventory_id,omitempty"`
	Description   string            `json:"description"`
	Qty           float64           `json:"qty"`
	UnitValue     float64           `json:"unit_value"`
	Total         float64           `json:"total"`
	Date          string            `json:"date"`
	Status        TransactionStatus `json:"status"`
	RefKind       RefKind           `json:"ref_kind"`
	RefID         *int64            `json:"ref_id,omitempty"`
	TxDescription string            `json:"tx_description"`
	ItemName      string            `json:"item_name,omitempty"`
	ItemSKU       string            `json:"item_sku,omitempty"`
	ItemStock     float64           `json:"item_stock"`
}

type StockStatement struct {
	Movements []StockMovement   `json:"movements"`
	QtyIn     float64           `json:"qty_in"`
	QtyOut    float64           `json:"qty_out"`
	ValueIn   float64           `json:"value_in"`
	ValueOut  float64           `json:"value_out"`
	ByItem    []StockItemTotals `json:"by_item"`
	ByRef     []StockRefTotals  `json:"by_ref"`
}

type StockItemTotals struct {
	InventoryID  *int64  `json:"inventory_id,omitempty"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku,omitempty"`
	InQty        float64 `json:"in_qty"`
	OutQty       float64 `json:"out_qty"`
	InValue      float64 `json:"in_value"`
	OutValue     float64 `json:"out_value"`
	CurrentStock float64 `json:"current_stock"`
}

type StockRefTotals struct {
	RefKind      RefKind  `json:"ref_kind"`
	RefID        *int64   `json:"ref_id,omitempty"`
	Date         string   `json:"date"`
	InQty        float64  `json:"in_qty"`
	OutQty       float64  `json:"out_qty"`
	Items        []string `json:"items"`
	ItemsPreview string   `json:"items_preview"`
}

type MechanicReportRow struct {
	MechanicID    int64   `json:"mechanic_id"`
	Mechanic      string  `json:"mechanic"`
	OrderCount    int     `json:"order_count"`
	LaborTotal    float64 `json:"labor_total"`
	PartsTotal    float64 `json:"parts_total"`
	Total         float64 `json:"total"`
	AverageTicket float64 `json:"average_ticket"`
	LaborShare    float64 `json:"labor_share"`
	Repasse       float64 `json:"repasse"`
}

type MechanicOrderRow struct {
	OrderID      int64   `json:"order_id"`
	MechanicID   int64   `json:"mechanic_id"`
	Mechanic     string  `json:"mechanic"`
	CreatedAt    string  `json:"created_at"`
	ClientName   string  `json:"client_name"`
	VehiclePlate string  `json:"vehicle_plate,omitempty"`
	Labor        float64 `json:"labor"`
	ItemsTotal   float64 `json:"items_total"`
	Total        float64 `json:"total"`
}

type MechanicReport struct {
	Start          string              `json:"start"`
	End            string              `json:"end"`
	RepassePercent float64             `json:"repasse_percent"`
	Rows           []MechanicReportRow `json:"rows"`
	Orders         []MechanicOrderRow  `json:"orders"`
	TotalOrders    int                 `json:"total_orders"`
	TotalLabor     float64             `json:"total_labor"`
	TotalParts     float64             `json:"total_parts"`
	GrandTotal     float64             `json:"grand_total"`
	TopRevenue     *MechanicReportRow  `json:"top_revenue,omitempty"`
	TopOrders      *MechanicReportRow  `json:"top_orders,omitempty"`
}
