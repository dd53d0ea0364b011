package service

import (
	"context"
	"strings"

	"oficina/internal/domain"
	"oficina/internal/repository"

	"github.com/sirupsen/logrus"
)

type InventoryInput struct {
	Name         string
	SKU          *string
	Stock        float64
	MinStock     float64
	Price        float64
	CostPrice    float64
	RepasseValue float64
	IsLabor      bool
}

// InventoryPatch holds the fields of a manual edit. Nil fields are kept.
type InventoryPatch struct {
	Name         *string
	SKU          *string
	Stock        *float64
	MinStock     *float64
	Price        *float64
	CostPrice    *float64
	RepasseValue *float64
	IsLabor      *bool
}

func (s *Service) ListInventory(ctx context.Context, filter repository.InventoryFilter) ([]domain.InventoryItem, error) {
	return s.repo.ListInventory(ctx, filter)
}

func (s *Service) SearchInventory(ctx context.Context, search string) ([]domain.InventoryLookup, error) {
	return s.repo.SearchInventory(ctx, search, 20)
}

func (s *Service) LowStock(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventory(ctx, repository.InventoryFilter{LowStock: true, Limit: 1000})
}

func (s *Service) InventorySummary(ctx context.Context) (domain.InventorySummary, error) {
	return s.repo.GetInventorySummary(ctx)
}

func (s *Service) GetInventoryItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	return s.repo.GetInventoryItem(ctx, id)
}

func (s *Service) CreateInventoryItem(ctx context.Context, input InventoryInput) (domain.InventoryItem, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.InventoryItem{}, invalid("name is required")
	}
	return s.repo.CreateInventoryItem(ctx, domain.InventoryItem{
		Name:         name,
		SKU:          normalizeSKU(input.SKU),
		Stock:        input.Stock,
		MinStock:     input.MinStock,
		Price:        input.Price,
		CostPrice:    input.CostPrice,
		RepasseValue: input.RepasseValue,
		IsLabor:      input.IsLabor,
	})
}

func (s *Service) PatchInventoryItem(ctx context.Context, id int64, patch InventoryPatch) (domain.InventoryItem, error) {
	current, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item := *current
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.InventoryItem{}, invalid("name is required")
		}
		item.Name = name
	}
	if patch.SKU != nil {
		item.SKU = normalizeSKU(patch.SKU)
	}
	if patch.Stock != nil {
		item.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		item.MinStock = *patch.MinStock
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.CostPrice != nil {
		item.CostPrice = *patch.CostPrice
	}
	if patch.RepasseValue != nil {
		item.RepasseValue = *patch.RepasseValue
	}
	if patch.IsLabor != nil {
		item.IsLabor = *patch.IsLabor
	}
	return s.repo.UpdateInventoryItem(ctx, item)
}

// ImportInventory upserts stock sheet rows by SKU in one transaction.
// Rows without a name are skipped. Rows without SKU get a generated one.
func (s *Service) ImportInventory(ctx context.Context, rows []domain.InventoryImportRow) (created, updated int, err error) {
	valid := make([]domain.InventoryImportRow, 0, len(rows))
	for _, row := range rows {
		row.Name = strings.TrimSpace(row.Name)
		if row.Name == "" {
			continue
		}
		sku := normalizeSKU(&row.SKU)
		row.SKU = ""
		if sku != nil {
			row.SKU = *sku
		}
		valid = append(valid, row)
	}
	if len(valid) == 0 {
		return 0, 0, invalid("import file has no data rows")
	}

	err = s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		created, updated, err = tx.ImportInventoryRows(ctx, valid)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"module":  moduleName,
		"created": created,
		"updated": updated,
	}).Info("inventory import finished")
	return created, updated, nil
}

func normalizeSKU(raw *string) *string {
	value := normalizeNullable(raw)
	if value == nil {
		return nil
	}
	upper := strings.ToUpper(*value)
	return &upper
}
