package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPayStatus = "Pendente"

type OrderItemInput struct {
	InventoryID *int64
	Description string
	Qty         float64
	UnitPrice   float64
	IsLabor     bool
}

type WorkOrderInput struct {
	ClientID     int64
	VehicleID    *int64
	VehiclePlate string
	VehicleModel string
	MechanicID   *int64
	Status       string
	Notes        string
	Labor        float64
	PayMethod    string
	PayStatus    string
	Items        []OrderItemInput
}

type WorkOrderQuery struct {
	Status     string
	MechanicID *int64
	Start      string
	End        string
	Search     string
	Limit      int
	Offset     int
}

// WorkOrderDetail splits the order total into parts and services. Services
// are the base labor plus the labor items.
type WorkOrderDetail struct {
	domain.WorkOrder
	PartsTotal      float64 `json:"parts_total"`
	LaborItemsTotal float64 `json:"labor_items_total"`
	ServicesTotal   float64 `json:"services_total"`
}

func (s *Service) ListWorkOrders(ctx context.Context, query WorkOrderQuery) ([]domain.WorkOrder, error) {
	filter := repository.WorkOrderFilter{
		MechanicID: query.MechanicID,
		Search:     query.Search,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if strings.TrimSpace(query.Status) != "" {
		status, ok := s.keywords.NormalizeStatus(query.Status)
		if !ok {
			return nil, invalid("unknown status %q", query.Status)
		}
		filter.Status = status
	}
	if strings.TrimSpace(query.Start) != "" {
		from, err := parseDay(query.Start, s.today())
		if err != nil {
			return nil, err
		}
		filter.From = &from
	}
	if strings.TrimSpace(query.End) != "" {
		to, err := parseDay(query.End, s.today())
		if err != nil {
			return nil, err
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	return s.repo.ListWorkOrders(ctx, filter)
}

func (s *Service) GetWorkOrder(ctx context.Context, id int64) (WorkOrderDetail, error) {
	order, err := s.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	items, err := s.repo.ListOrderItems(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	order.Items = items
	return newWorkOrderDetail(*order), nil
}

func newWorkOrderDetail(order domain.WorkOrder) WorkOrderDetail {
	var parts, laborItems decimal.Decimal
	for _, item := range order.Items {
		if item.IsLabor {
			laborItems = laborItems.Add(decimal.NewFromFloat(item.Total))
		} else {
			parts = parts.Add(decimal.NewFromFloat(item.Total))
		}
	}
	services := laborItems.Add(decimal.NewFromFloat(order.Labor))
	return WorkOrderDetail{
		WorkOrder:       order,
		PartsTotal:      parts.Round(4).InexactFloat64(),
		LaborItemsTotal: laborItems.Round(4).InexactFloat64(),
		ServicesTotal:   services.Round(4).InexactFloat64(),
	}
}

// CreateWorkOrder stores a new order. Parts are debited when the order is
// created closed and the ledger entry is synced best-effort.
func (s *Service) CreateWorkOrder(ctx context.Context, input WorkOrderInput) (WorkOrderDetail, error) {
	if input.ClientID <= 0 {
		return WorkOrderDetail{}, invalid("client_id is required")
	}
	if input.Labor < 0 {
		return WorkOrderDetail{}, invalid("labor must not be negative")
	}
	status := domain.StatusOpen
	if strings.TrimSpace(input.Status) != "" {
		normalized, ok := s.keywords.NormalizeStatus(input.Status)
		if !ok {
			return WorkOrderDetail{}, invalid("unknown status %q", input.Status)
		}
		status = normalized
	}
	items, err := buildOrderItems(input.Items)
	if err != nil {
		return WorkOrderDetail{}, err
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		client, err := tx.GetClient(ctx, input.ClientID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("client %d not found", input.ClientID)
		}
		if err != nil {
			return err
		}
		vehicleID, err := resolveVehicle(ctx, tx, client.ID, nil, input)
		if err != nil {
			return err
		}
		if err := describeItems(ctx, tx, items); err != nil {
			return err
		}

		order := domain.WorkOrder{
			ClientID:   client.ID,
			VehicleID:  vehicleID,
			MechanicID: input.MechanicID,
			Status:     status,
			Notes:      strings.TrimSpace(input.Notes),
			Labor:      input.Labor,
			PayMethod:  firstNonBlank(input.PayMethod, s.defaultMethod),
			PayStatus:  firstNonBlank(input.PayStatus, defaultPayStatus),
		}
		orderID, err = tx.CreateWorkOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID

		if err := reconcile.ReconcileStock(ctx, tx, orderID, status, items); err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, orderID, items); err != nil {
			return err
		}
		s.syncOrderLedger(ctx, tx, order, client.Name, items, s.today().Format(domain.DateLayout))
		return nil
	})
	if err != nil {
		return WorkOrderDetail{}, err
	}
	return s.GetWorkOrder(ctx, orderID)
}

// UpdateWorkOrder replaces the order with its full item set. Stock is
// reconciled before anything is written so a shortfall leaves the order,
// its items and the inventory untouched.
func (s *Service) UpdateWorkOrder(ctx context.Context, id int64, input WorkOrderInput) (WorkOrderDetail, error) {
	if input.Labor < 0 {
		return WorkOrderDetail{}, invalid("labor must not be negative")
	}
	items, err := buildOrderItems(input.Items)
	if err != nil {
		return WorkOrderDetail{}, err
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		if err := tx.LockWorkOrder(ctx, id); err != nil {
			return err
		}
		current, err := tx.GetWorkOrder(ctx, id)
		if err != nil {
			return err
		}

		status := current.Status
		if strings.TrimSpace(input.Status) != "" {
			normalized, ok := s.keywords.NormalizeStatus(input.Status)
			if !ok {
				return invalid("unknown status %q", input.Status)
			}
			status = normalized
		}
		vehicleID, err := resolveVehicle(ctx, tx, current.ClientID, current.VehicleID, input)
		if err != nil {
			return err
		}
		if err := describeItems(ctx, tx, items); err != nil {
			return err
		}

		if err := reconcile.ReconcileStock(ctx, tx, id, status, items); err != nil {
			return err
		}

		order := *current
		order.VehicleID = vehicleID
		order.MechanicID = input.MechanicID
		order.Status = status
		order.Notes = strings.TrimSpace(input.Notes)
		order.Labor = input.Labor
		order.PayMethod = firstNonBlank(input.PayMethod, current.PayMethod, s.defaultMethod)
		order.PayStatus = firstNonBlank(input.PayStatus, current.PayStatus, defaultPayStatus)
		if err := tx.UpdateWorkOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, id, items); err != nil {
			return err
		}
		s.syncOrderLedger(ctx, tx, order, current.ClientName, items, ledgerDate(*current, s.today()))
		return nil
	})
	if err != nil {
		return WorkOrderDetail{}, err
	}
	return s.GetWorkOrder(ctx, id)
}

// DeleteWorkOrder returns the applied parts to stock, cancels the ledger
// entry of the order and removes it.
func (s *Service) DeleteWorkOrder(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		if err := tx.LockWorkOrder(ctx, id); err != nil {
			return err
		}
		if err := reconcile.ReleaseStock(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.CancelTransactionByRef(ctx, domain.RefWorkOrder, id); err != nil {
			return err
		}
		return tx.DeleteWorkOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"module": moduleName, "work_order_id": id}).Info("work order deleted")
	return nil
}

// ledgerDate is the booking day of the order's ledger entry. An order that
// never got an entry books it today, otherwise the creation day is kept.
func ledgerDate(order domain.WorkOrder, today time.Time) string {
	if order.FinTxID == nil {
		return today.Format(domain.DateLayout)
	}
	return order.CreatedAt.Format(domain.DateLayout)
}

func (s *Service) syncOrderLedger(
	ctx context.Context,
	tx *repository.Tx,
	order domain.WorkOrder,
	clientName string,
	items []domain.OrderItem,
	date string,
) {
	s.bestEffort(ctx, tx, "syncOrderLedger", map[string]any{"work_order_id": order.ID}, func(sp *repository.Tx) error {
		_, err := reconcile.SyncWorkOrderFinance(ctx, sp, s.keywords, reconcile.WorkOrderFinanceInput{
			OrderID:    order.ID,
			ClientName: clientName,
			Status:     order.Status,
			PayMethod:  order.PayMethod,
			PayStatus:  order.PayStatus,
			BaseLabor:  order.Labor,
			Items:      items,
			Date:       date,
		})
		return err
	})
}

// buildOrderItems turns form lines into order items. Lines without
// description and inventory link are dropped, a zero quantity counts as one
// and labor lines never link to inventory.
func buildOrderItems(inputs []OrderItemInput) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		description := strings.TrimSpace(in.Description)
		if description == "" && (in.InventoryID == nil || in.IsLabor) {
			continue
		}
		if in.Qty < 0 || in.UnitPrice < 0 {
			return nil, invalid("item %d: qty and unit_price must not be negative", i+1)
		}
		qty := in.Qty
		if qty == 0 {
			qty = 1
		}
		item := domain.OrderItem{
			InventoryID: in.InventoryID,
			Description: description,
			Qty:         qty,
			UnitPrice:   in.UnitPrice,
			Total:       decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(in.UnitPrice)).Round(4).InexactFloat64(),
			IsLabor:     in.IsLabor,
		}
		if in.IsLabor {
			item.InventoryID = nil
		}
		items = append(items, item)
	}
	return items, nil
}

// describeItems fills blank descriptions from the linked inventory item and
// rejects links to unknown items.
func describeItems(ctx context.Context, tx *repository.Tx, items []domain.OrderItem) error {
	for i := range items {
		if items[i].InventoryID == nil {
			continue
		}
		inv, err := tx.GetInventoryItem(ctx, *items[i].InventoryID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("inventory item %d not found", *items[i].InventoryID)
		}
		if err != nil {
			return err
		}
		if items[i].Description == "" {
			items[i].Description = inv.Name
		}
	}
	return nil
}

// resolveVehicle picks the vehicle of an order. An explicit vehicle id must
// belong to the client. Otherwise typed plate or model update the current
// vehicle, or reuse the client's vehicle with that plate, or create one.
func resolveVehicle(ctx context.Context, tx *repository.Tx, clientID int64, current *int64, input WorkOrderInput) (*int64, error) {
	if input.VehicleID != nil {
		vehicle, err := tx.GetVehicle(ctx, *input.VehicleID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("vehicle %d not found", *input.VehicleID)
		}
		if err != nil {
			return nil, err
		}
		if vehicle.ClientID != clientID {
			return nil, invalid("vehicle %d does not belong to client %d", vehicle.ID, clientID)
		}
		return &vehicle.ID, nil
	}

	plate := normalizePlate(input.VehiclePlate)
	model := strings.TrimSpace(input.VehicleModel)
	if plate == "" && model == "" {
		return current, nil
	}

	if current != nil {
		vehicle, err := tx.GetVehicle(ctx, *current)
		if err != nil {
			return nil, err
		}
		vehicle.Plate = plate
		vehicle.Model = model
		if err := tx.UpdateVehicle(ctx, *vehicle); err != nil {
			return nil, err
		}
		return current, nil
	}

	if plate != "" {
		existing, err := tx.FindVehicleByPlate(ctx, clientID, plate)
		if err == nil {
			return &existing.ID, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	created, err := tx.CreateVehicle(ctx, domain.Vehicle{ClientID: clientID, Plate: plate, Model: model})
	if err != nil {
		return nil, err
	}
	return &created.ID, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	return ""
}
