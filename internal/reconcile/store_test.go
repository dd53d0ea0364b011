package reconcile

import (
	"context"
	"errors"
	"fmt"

	"oficina/internal/domain"
)

type memItem struct {
	name  string
	stock float64
	cost  float64
}

// memStore is an in-memory implementation of every store interface in this
// package.
type memStore struct {
	items      map[int64]*memItem
	applied    map[int64]map[int64]float64
	methods    map[string]int64
	categories map[string]int64
	txs        map[int64]domain.Transaction
	txItems    map[int64][]domain.TransactionItem
	links      map[domain.RefKind]map[int64]int64
	nextID     int64

	failLookups bool
	adjustCalls int
}

func newMemStore() *memStore {
	return &memStore{
		items:      make(map[int64]*memItem),
		applied:    make(map[int64]map[int64]float64),
		methods:    make(map[string]int64),
		categories: make(map[string]int64),
		txs:        make(map[int64]domain.Transaction),
		txItems:    make(map[int64][]domain.TransactionItem),
		links:      make(map[domain.RefKind]map[int64]int64),
		nextID:     100,
	}
}

func (m *memStore) addItem(id int64, name string, stock, cost float64) {
	m.items[id] = &memItem{name: name, stock: stock, cost: cost}
}

func (m *memStore) stockOf(id int64) float64 {
	return m.items[id].stock
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) AppliedParts(_ context.Context, orderID int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	for id, qty := range m.applied[orderID] {
		out[id] = qty
	}
	return out, nil
}

func (m *memStore) StockLevels(_ context.Context, itemIDs []int64) (map[int64]StockLevel, error) {
	out := make(map[int64]StockLevel, len(itemIDs))
	for _, id := range itemIDs {
		if item, ok := m.items[id]; ok {
			out[id] = StockLevel{Name: item.name, Stock: item.stock, CostPrice: item.cost}
		}
	}
	return out, nil
}

func (m *memStore) AdjustStock(_ context.Context, itemID int64, delta float64) error {
	m.adjustCalls++
	if item, ok := m.items[itemID]; ok {
		item.stock += delta
	}
	return nil
}

func (m *memStore) SetCostPrice(_ context.Context, itemID int64, cost float64) error {
	if item, ok := m.items[itemID]; ok {
		item.cost = cost
	}
	return nil
}

func (m *memStore) ReplaceAppliedParts(_ context.Context, orderID int64, parts map[int64]float64) error {
	if len(parts) == 0 {
		delete(m.applied, orderID)
		return nil
	}
	copied := make(map[int64]float64, len(parts))
	for id, qty := range parts {
		copied[id] = qty
	}
	m.applied[orderID] = copied
	return nil
}

func (m *memStore) PaymentMethodID(_ context.Context, name string) (int64, error) {
	if m.failLookups {
		return 0, errors.New("database is read-only")
	}
	if id, ok := m.methods[name]; ok {
		return id, nil
	}
	id := m.id()
	m.methods[name] = id
	return id, nil
}

func (m *memStore) CategoryID(_ context.Context, name, _ string) (int64, error) {
	if m.failLookups {
		return 0, errors.New("database is read-only")
	}
	if id, ok := m.categories[name]; ok {
		return id, nil
	}
	id := m.id()
	m.categories[name] = id
	return id, nil
}

func (m *memStore) FindTransactionByRef(_ context.Context, kind domain.RefKind, refID int64) (int64, bool, error) {
	for id, tx := range m.txs {
		if tx.RefKind == kind && tx.RefID != nil && *tx.RefID == refID {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (m *memStore) InsertTransaction(_ context.Context, tx domain.Transaction) (int64, error) {
	if _, found, _ := m.FindTransactionByRef(context.Background(), tx.RefKind, *tx.RefID); found {
		return 0, fmt.Errorf("duplicate transaction for %s %d", tx.RefKind, *tx.RefID)
	}
	id := m.id()
	tx.ID = id
	m.txs[id] = tx
	return id, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, id int64, tx domain.Transaction) error {
	current, ok := m.txs[id]
	if !ok {
		return errors.New("transaction not found")
	}
	tx.ID = id
	tx.RefKind = current.RefKind
	tx.RefID = current.RefID
	m.txs[id] = tx
	return nil
}

func (m *memStore) ReplaceTransactionItems(_ context.Context, txID int64, items []domain.TransactionItem) error {
	copied := make([]domain.TransactionItem, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].TransactionID = txID
	}
	m.txItems[txID] = copied
	return nil
}

func (m *memStore) LinkTransaction(_ context.Context, kind domain.RefKind, refID, txID int64) error {
	if m.links[kind] == nil {
		m.links[kind] = make(map[int64]int64)
	}
	m.links[kind][refID] = txID
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func part(itemID int64, qty float64) domain.OrderItem {
	return domain.OrderItem{InventoryID: ptr(itemID), Description: fmt.Sprintf("Item %d", itemID), Qty: qty, UnitPrice: 10, Total: qty * 10}
}
