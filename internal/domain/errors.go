package domain

import (
	"fmt"
	"strings"
)

type Shortfall struct {
	ItemID    int64   `json:"item_id"`
	Name      string  `json:"name"`
	Available float64 `json:"available"`
	Needed    float64 `json:"needed"`
}

// InsufficientStockError is returned when closing or editing a work order
// would debit more than the current stock of one or more items.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (have %.2f, need +%.2f)", s.Name, s.Available, s.Needed))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
