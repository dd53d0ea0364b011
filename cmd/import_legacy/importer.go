package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oficina/internal/domain"
	"oficina/internal/legacy"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/sirupsen/logrus"
)

type importStats struct {
	Clients       int
	Vehicles      int
	Mechanics     int
	Inventory     int
	Orders        int
	Appointments  int
	Purchases     int
	Entries       int
	Skipped       int
	StockCreated  int
	StockUpdated  int
	LedgerSynced  int
	AppliedOrders int
}

func (s importStats) fields() logrus.Fields {
	return logrus.Fields{
		"clients":        s.Clients,
		"vehicles":       s.Vehicles,
		"mechanics":      s.Mechanics,
		"inventory":      s.Inventory,
		"orders":         s.Orders,
		"appointments":   s.Appointments,
		"purchases":      s.Purchases,
		"entries":        s.Entries,
		"skipped":        s.Skipped,
		"stock_created":  s.StockCreated,
		"stock_updated":  s.StockUpdated,
		"ledger_synced":  s.LedgerSynced,
		"applied_orders": s.AppliedOrders,
	}
}

// importer copies a legacy snapshot into Postgres inside one transaction.
// Rows keep their legacy ids.
type importer struct {
	tx     *repository.Tx
	kw     reconcile.Keywords
	logger *logrus.Logger
	now    time.Time
	stats  importStats

	clientNames map[int64]string
	vehicles    map[int64]bool
	mechanics   map[int64]bool
	inventory   map[int64]string
}

func newImporter(tx *repository.Tx, kw reconcile.Keywords, logger *logrus.Logger, now time.Time) *importer {
	return &importer{
		tx:          tx,
		kw:          kw,
		logger:      logger,
		now:         now,
		clientNames: make(map[int64]string),
		vehicles:    make(map[int64]bool),
		mechanics:   make(map[int64]bool),
		inventory:   make(map[int64]string),
	}
}

func (im *importer) run(ctx context.Context, snap *legacy.Snapshot, stockRows []domain.InventoryImportRow) error {
	if err := im.importClients(ctx, snap.Clients); err != nil {
		return err
	}
	if err := im.importVehicles(ctx, snap.Vehicles); err != nil {
		return err
	}
	if err := im.importMechanics(ctx, snap.Mechanics); err != nil {
		return err
	}
	if err := im.importInventory(ctx, snap.Inventory); err != nil {
		return err
	}
	if err := im.importOrders(ctx, snap.Orders, snap.OrderItems); err != nil {
		return err
	}
	if err := im.importAppointments(ctx, snap.Appointments); err != nil {
		return err
	}
	if err := im.importPurchases(ctx, snap.Purchases, snap.PurchaseItems); err != nil {
		return err
	}
	if err := im.importEntries(ctx, snap.Entries); err != nil {
		return err
	}
	if err := im.tx.SyncSequences(ctx); err != nil {
		return err
	}

	if len(stockRows) > 0 {
		created, updated, err := im.tx.ImportInventoryRows(ctx, stockRows)
		if err != nil {
			return fmt.Errorf("import stock sheet: %w", err)
		}
		im.stats.StockCreated = created
		im.stats.StockUpdated = updated
	}
	return nil
}

func (im *importer) skip(kind string, id int64, reason string) {
	im.stats.Skipped++
	im.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"id":     id,
		"reason": reason,
	}).Warn("legacy row skipped")
}

func (im *importer) importClients(ctx context.Context, clients []domain.Client) error {
	for _, c := range clients {
		if c.Name == "" {
			c.Name = fmt.Sprintf("Cliente #%d", c.ID)
		}
		if _, err := im.tx.CreateClient(ctx, c); err != nil {
			return fmt.Errorf("import client %d: %w", c.ID, err)
		}
		im.clientNames[c.ID] = c.Name
		im.stats.Clients++
	}
	return nil
}

func (im *importer) importVehicles(ctx context.Context, vehicles []domain.Vehicle) error {
	for _, v := range vehicles {
		if _, ok := im.clientNames[v.ClientID]; !ok {
			im.skip("vehicle", v.ID, "unknown client")
			continue
		}
		if _, err := im.tx.CreateVehicle(ctx, v); err != nil {
			return fmt.Errorf("import vehicle %d: %w", v.ID, err)
		}
		im.vehicles[v.ID] = true
		im.stats.Vehicles++
	}
	return nil
}

// importMechanics suffixes repeated names with the legacy id, since names
// are unique here.
func (im *importer) importMechanics(ctx context.Context, mechanics []domain.Mechanic) error {
	seen := make(map[string]bool, len(mechanics))
	for _, m := range mechanics {
		if m.Name == "" {
			m.Name = fmt.Sprintf("Mecânico #%d", m.ID)
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			m.Name = fmt.Sprintf("%s (%d)", m.Name, m.ID)
			key = strings.ToLower(m.Name)
		}
		seen[key] = true
		if _, err := im.tx.CreateMechanic(ctx, m); err != nil {
			return fmt.Errorf("import mechanic %d: %w", m.ID, err)
		}
		im.mechanics[m.ID] = true
		im.stats.Mechanics++
	}
	return nil
}

func (im *importer) importInventory(ctx context.Context, items []domain.InventoryItem) error {
	for _, item := range items {
		if item.Name == "" {
			item.Name = fmt.Sprintf("Item #%d", item.ID)
		}
		if _, err := im.tx.CreateInventoryItem(ctx, item); err != nil {
			return fmt.Errorf("import inventory item %d: %w", item.ID, err)
		}
		im.inventory[item.ID] = item.Name
		im.stats.Inventory++
	}
	return nil
}

// importOrders inserts orders and their lines, records the parts of closed
// orders as already applied and rebuilds their ledger transactions dated on
// the order creation day.
func (im *importer) importOrders(ctx context.Context, orders []legacy.Order, items map[int64][]domain.OrderItem) error {
	for _, raw := range orders {
		if _, ok := im.clientNames[raw.ClientID]; !ok {
			im.skip("work_order", raw.ID, "unknown client")
			continue
		}
		order := im.workOrderFromLegacy(raw)
		lines := im.orderLines(items[raw.ID])

		id, err := im.tx.CreateWorkOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("import work order %d: %w", raw.ID, err)
		}
		order.ID = id
		if err := im.tx.ReplaceOrderItems(ctx, order.ID, lines); err != nil {
			return fmt.Errorf("import items of work order %d: %w", raw.ID, err)
		}
		if im.kw.IsConsuming(raw.Status) {
			if err := reconcile.MarkApplied(ctx, im.tx, order.ID, order.Status, lines); err != nil {
				return err
			}
			im.stats.AppliedOrders++
		}
		if _, err := reconcile.SyncWorkOrderFinance(ctx, im.tx, im.kw, reconcile.WorkOrderFinanceInput{
			OrderID:    order.ID,
			ClientName: im.clientNames[order.ClientID],
			Status:     order.Status,
			PayMethod:  order.PayMethod,
			PayStatus:  order.PayStatus,
			BaseLabor:  order.Labor,
			Items:      lines,
			Date:       order.CreatedAt.Format(domain.DateLayout),
		}); err != nil {
			return fmt.Errorf("sync ledger of work order %d: %w", order.ID, err)
		}
		im.stats.LedgerSynced++
		im.stats.Orders++
	}
	return nil
}

// workOrderFromLegacy maps free-text statuses through the keyword table.
// Unknown spellings fall back to open, and dangling references are dropped.
func (im *importer) workOrderFromLegacy(raw legacy.Order) domain.WorkOrder {
	status, ok := im.kw.NormalizeStatus(raw.Status)
	if !ok {
		if raw.Status != "" {
			im.logger.WithFields(logrus.Fields{
				"work_order_id": raw.ID,
				"status":        raw.Status,
			}).Warn("unknown legacy status, importing as open")
		}
		status = domain.StatusOpen
	}
	createdAt, ok := legacy.ParseTimestamp(raw.CreatedAt)
	if !ok {
		createdAt = im.now
	}
	order := domain.WorkOrder{
		ID:        raw.ID,
		ClientID:  raw.ClientID,
		Status:    status,
		Notes:     raw.Notes,
		Labor:     raw.Labor,
		PayMethod: raw.PayMethod,
		PayStatus: raw.PayStatus,
		CreatedAt: createdAt,
	}
	if raw.VehicleID != nil && im.vehicles[*raw.VehicleID] {
		order.VehicleID = raw.VehicleID
	}
	if raw.MechanicID != nil && im.mechanics[*raw.MechanicID] {
		order.MechanicID = raw.MechanicID
	}
	return order
}

func (im *importer) orderLines(items []domain.OrderItem) []domain.OrderItem {
	lines := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.InventoryID != nil {
			if _, ok := im.inventory[*item.InventoryID]; !ok {
				item.InventoryID = nil
			}
		}
		if item.Description == "" && item.InventoryID != nil {
			item.Description = im.inventory[*item.InventoryID]
		}
		lines = append(lines, item)
	}
	return lines
}

func (im *importer) importAppointments(ctx context.Context, appointments []domain.Appointment) error {
	for _, a := range appointments {
		if _, ok := im.clientNames[a.ClientID]; !ok {
			im.skip("appointment", a.ID, "unknown client")
			continue
		}
		if a.Date == "" {
			im.skip("appointment", a.ID, "invalid date")
			continue
		}
		if a.VehicleID != nil && !im.vehicles[*a.VehicleID] {
			a.VehicleID = nil
		}
		if a.MechanicID != nil && !im.mechanics[*a.MechanicID] {
			a.MechanicID = nil
		}
		if _, err := im.tx.CreateAppointment(ctx, a); err != nil {
			return fmt.Errorf("import appointment %d: %w", a.ID, err)
		}
		im.stats.Appointments++
	}
	return nil
}

// importPurchases inserts purchases as they are. Their stock was already
// received by the old system, so only the ledger is rebuilt.
func (im *importer) importPurchases(ctx context.Context, purchases []legacy.Purchase, items map[int64][]domain.PurchaseItem) error {
	for _, raw := range purchases {
		purchase := im.purchaseFromLegacy(raw)
		if raw.PaymentMethod != "" {
			methodID, err := im.tx.PaymentMethodID(ctx, raw.PaymentMethod)
			if err != nil {
				return fmt.Errorf("payment method of purchase %d: %w", raw.ID, err)
			}
			purchase.PaymentMethodID = &methodID
		}

		lines := make([]domain.PurchaseItem, 0, len(items[raw.ID]))
		for _, item := range items[raw.ID] {
			name, ok := im.inventory[item.InventoryID]
			if !ok {
				im.skip("purchase_item", item.ID, "unknown inventory item")
				continue
			}
			item.InventoryName = name
			lines = append(lines, item)
		}

		id, err := im.tx.CreatePurchase(ctx, purchase)
		if err != nil {
			return fmt.Errorf("import purchase %d: %w", raw.ID, err)
		}
		purchase.ID = id
		if err := im.tx.ReplacePurchaseItems(ctx, purchase.ID, lines); err != nil {
			return fmt.Errorf("import items of purchase %d: %w", raw.ID, err)
		}
		if _, err := reconcile.UpsertPurchaseFinance(ctx, im.tx, reconcile.PurchaseFinanceInput{
			PurchaseID:      purchase.ID,
			Supplier:        purchase.Supplier,
			Total:           purchase.Total,
			Date:            purchase.Date,
			DueDate:         purchase.DueDate,
			Status:          purchase.Status,
			PaymentMethodID: purchase.PaymentMethodID,
			Items:           lines,
		}); err != nil {
			return fmt.Errorf("sync ledger of purchase %d: %w", purchase.ID, err)
		}
		im.stats.LedgerSynced++
		im.stats.Purchases++
	}
	return nil
}

// purchaseFromLegacy falls back to the creation day, then today, for a
// missing date. Unknown statuses import as pending.
func (im *importer) purchaseFromLegacy(raw legacy.Purchase) domain.PurchaseOrder {
	status, ok := im.kw.PurchaseStatus(raw.Status)
	if !ok {
		status = domain.TxPending
	}
	date := firstDate(raw.Date, legacy.NormalizeDate(raw.CreatedAt), im.now.Format(domain.DateLayout))
	purchase := domain.PurchaseOrder{
		ID:        raw.ID,
		Supplier:  raw.Supplier,
		DocNumber: raw.DocNumber,
		Date:      date,
		Status:    status,
		Notes:     raw.Notes,
		Total:     raw.Total,
	}
	if purchase.Supplier == "" {
		purchase.Supplier = fmt.Sprintf("Fornecedor #%d", raw.ID)
	}
	if raw.DueDate != "" {
		due := raw.DueDate
		purchase.DueDate = &due
	}
	return purchase
}

func (im *importer) importEntries(ctx context.Context, entries []legacy.Entry) error {
	for _, raw := range entries {
		entry, ok := im.entryFromLegacy(raw)
		if !ok {
			im.skip("transaction", raw.ID, "unknown direction")
			continue
		}
		if raw.PaymentMethod != "" {
			methodID, err := im.tx.PaymentMethodID(ctx, raw.PaymentMethod)
			if err != nil {
				return fmt.Errorf("payment method of transaction %d: %w", raw.ID, err)
			}
			entry.PaymentMethodID = &methodID
		}
		if raw.Category != "" {
			kind := raw.CategoryKind
			if kind != "in" && kind != "out" {
				kind = "both"
			}
			categoryID, err := im.tx.CategoryID(ctx, raw.Category, kind)
			if err != nil {
				return fmt.Errorf("category of transaction %d: %w", raw.ID, err)
			}
			entry.CategoryID = &categoryID
		}
		if _, err := im.tx.InsertTransaction(ctx, entry); err != nil {
			return fmt.Errorf("import transaction %d: %w", raw.ID, err)
		}
		im.stats.Entries++
	}
	return nil
}

func (im *importer) entryFromLegacy(raw legacy.Entry) (domain.Transaction, bool) {
	direction := domain.Direction(strings.ToLower(raw.Direction))
	if !direction.Valid() {
		return domain.Transaction{}, false
	}
	status, ok := im.kw.PurchaseStatus(raw.Status)
	if !ok {
		status = domain.TxPending
	}
	date := firstDate(raw.Date, im.now.Format(domain.DateLayout))
	due := firstDate(raw.DueDate, date)
	description := raw.Description
	if description == "" {
		description = fmt.Sprintf("Lançamento #%d", raw.ID)
	}
	return domain.Transaction{
		Direction:   direction,
		Description: description,
		Amount:      raw.Amount,
		Date:        date,
		DueDate:     &due,
		Status:      status,
		RefKind:     domain.RefAdhoc,
	}, true
}

func firstDate(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
