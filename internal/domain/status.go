package domain

type WorkOrderStatus string

const (
	StatusOpen       WorkOrderStatus = "open"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusClosed     WorkOrderStatus = "closed"
	StatusCancelled  WorkOrderStatus = "cancelled"
)

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// ConsumesStock reports whether parts on an order in this status are debited
// from inventory. Only closed orders consume.
func (s WorkOrderStatus) ConsumesStock() bool {
	return s == StatusClosed
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxSettled   TransactionStatus = "settled"
	TxCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxSettled, TxCancelled:
		return true
	}
	return false
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

type Flow string

const (
	FlowMoney Flow = "money"
	FlowStock Flow = "stock"
)

type RefKind string

const (
	RefWorkOrder RefKind = "work_order"
	RefPurchase  RefKind = "purchase_order"
	RefAdhoc     RefKind = "adhoc"
)

func (k RefKind) Valid() bool {
	switch k {
	case RefWorkOrder, RefPurchase, RefAdhoc:
		return true
	}
	return false
}
