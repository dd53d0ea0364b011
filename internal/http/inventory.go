package http

import (
	"net/http"
	"strconv"
	"strings"

	"oficina/internal/excel"
	"oficina/internal/repository"
	"oficina/internal/service"

	"github.com/go-chi/chi/v5"
)

type inventoryRequest struct {
	Name         string  `json:"name" validate:"required"`
	SKU          *string `json:"sku"`
	Stock        float64 `json:"stock"`
	MinStock     float64 `json:"min_stock" validate:"gte=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	CostPrice    float64 `json:"cost_price" validate:"gte=0"`
	RepasseValue float64 `json:"repasse_value" validate:"gte=0"`
	IsLabor      bool    `json:"is_labor"`
}

type inventoryPatchRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1"`
	SKU          *string  `json:"sku"`
	Stock        *float64 `json:"stock"`
	MinStock     *float64 `json:"min_stock" validate:"omitempty,gte=0"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	CostPrice    *float64 `json:"cost_price" validate:"omitempty,gte=0"`
	RepasseValue *float64 `json:"repasse_value" validate:"omitempty,gte=0"`
	IsLabor      *bool    `json:"is_labor"`
}

func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := repository.InventoryFilter{
		Search: r.URL.Query().Get("q"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("low_stock")); raw != "" {
		lowStock, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "low_stock must be true or false")
			return
		}
		filter.LowStock = lowStock
	}

	items, err := h.svc.ListInventory(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "ListInventory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) SearchInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SearchInventory(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "SearchInventory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.LowStock(r.Context())
	if err != nil {
		h.fail(w, r, "LowStock", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) InventorySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.InventorySummary(r.Context())
	if err != nil {
		h.fail(w, r, "InventorySummary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.svc.GetInventoryItem(r.Context(), id)
	if err != nil {
		h.fail(w, r, "GetInventoryItem", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	created, err := h.svc.CreateInventoryItem(r.Context(), service.InventoryInput{
		Name:         req.Name,
		SKU:          req.SKU,
		Stock:        req.Stock,
		MinStock:     req.MinStock,
		Price:        req.Price,
		CostPrice:    req.CostPrice,
		RepasseValue: req.RepasseValue,
		IsLabor:      req.IsLabor,
	})
	if err != nil {
		h.fail(w, r, "CreateInventoryItem", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) PatchInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req inventoryPatchRequest
	if !h.decodeValid(w, r, &req) {
		return
	}
	updated, err := h.svc.PatchInventoryItem(r.Context(), id, service.InventoryPatch{
		Name:         req.Name,
		SKU:          req.SKU,
		Stock:        req.Stock,
		MinStock:     req.MinStock,
		Price:        req.Price,
		CostPrice:    req.CostPrice,
		RepasseValue: req.RepasseValue,
		IsLabor:      req.IsLabor,
	})
	if err != nil {
		h.fail(w, r, "PatchInventoryItem", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ImportInventory upserts the rows of an uploaded stock sheet, xlsx or csv.
func (h *Handler) ImportInventory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	rows, err := excel.ParseStockSheet(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, updated, err := h.svc.ImportInventory(r.Context(), rows)
	if err != nil {
		h.fail(w, r, "ImportInventory", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":  header.Filename,
		"total_rows": len(rows),
		"created":    created,
		"updated":    updated,
	})
}
