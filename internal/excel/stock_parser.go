package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"oficina/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	colSKU      = "sku"
	colName     = "name"
	colStock    = "stock"
	colMinStock = "min_stock"
	colCost     = "cost_price"
	colPrice    = "price"

	sniffBytes = 2048
)

// headerAliases is keyed by normalizeHeader output.
var headerAliases = map[string]string{
	"sku":                  colSKU,
	"código":               colSKU,
	"codigo":               colSKU,
	"cod":                  colSKU,
	"ref":                  colSKU,
	"name":                 colName,
	"descrição":            colName,
	"descricao":            colName,
	"produto":              colName,
	"descrição do produto": colName,
	"stock":                colStock,
	"qtd":                  colStock,
	"quantidade":           colStock,
	"min stock":            colMinStock,
	"estoque mínimo":       colMinStock,
	"estoque minimo":       colMinStock,
	"minimo":               colMinStock,
	"mínimo":               colMinStock,
	"cost price":           colCost,
	"custo":                colCost,
	"unit.(r$)":            colCost,
	"unit":                 colCost,
	"unitario":             colCost,
	"unitário":             colCost,
	"price":                colPrice,
	"preço":                colPrice,
	"preco":                colPrice,
	"valor":                colPrice,
	"vl. item(r$)":         colPrice,
	"vl item":              colPrice,
}

var (
	firstFloat = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	firstInt   = regexp.MustCompile(`-?\d+`)
)

// ParseStockSheet reads a stock sheet, xlsx or csv, picked by the file
// extension. Unknown extensions are tried as xlsx first, then as csv.
func ParseStockSheet(fileName string, reader io.Reader) ([]domain.InventoryImportRow, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	switch strings.ToLower(strings.TrimSpace(filepath.Ext(fileName))) {
	case ".csv", ".txt":
		rows, err := parseCSVRows(data)
		if err != nil {
			return nil, err
		}
		return parseStockTable(rows, false)
	case ".xlsx", ".xlsm":
		rows, err := parseExcelRows(data)
		if err != nil {
			return nil, err
		}
		return parseStockTable(rows, true)
	default:
		if rows, err := parseExcelRows(data); err == nil {
			return parseStockTable(rows, true)
		}
		rows, err := parseCSVRows(data)
		if err != nil {
			return nil, fmt.Errorf("unsupported or invalid stock file format")
		}
		return parseStockTable(rows, false)
	}
}

// parseCSVRows splits on ';' unless the head of the file has more commas.
func parseCSVRows(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}
	return rows, nil
}

func detectDelimiter(data []byte) rune {
	sample := data
	if len(sample) > sniffBytes {
		sample = sample[:sniffBytes]
	}
	if bytes.Count(sample, []byte(";")) >= bytes.Count(sample, []byte(",")) {
		return ';'
	}
	return ','
}

// parseExcelRows reads the first sheet with raw cell values, so numbers come
// back unformatted.
func parseExcelRows(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}
	return rows, nil
}

// parseStockTable maps the header row and converts every data row. Cells
// that are not numbers count as zero. Rows without name and SKU are skipped,
// a missing name becomes "Item <sku>" and a zero price takes the cost.
func parseStockTable(rows [][]string, rawNumbers bool) ([]domain.InventoryImportRow, error) {
	colMap := mapColumns(rows[0])
	if _, ok := colMap[colSKU]; !ok {
		if _, ok := colMap[colName]; !ok {
			return nil, fmt.Errorf("missing required column: sku or name")
		}
	}

	toFloat := parseBRLFloat
	toInt := parseBRLInt
	if rawNumbers {
		toFloat = parseRawFloat
		toInt = func(raw string) float64 { return float64(int64(parseRawFloat(raw))) }
	}

	result := make([]domain.InventoryImportRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		sku := strings.TrimSpace(readOptionalCell(cells, colMap, colSKU))
		name := strings.TrimSpace(readOptionalCell(cells, colMap, colName))
		if sku == "" && name == "" {
			continue
		}
		if name == "" {
			name = "Item " + sku
		}

		row := domain.InventoryImportRow{
			SKU:       sku,
			Name:      name,
			Stock:     toInt(readOptionalCell(cells, colMap, colStock)),
			MinStock:  toInt(readOptionalCell(cells, colMap, colMinStock)),
			CostPrice: toFloat(readOptionalCell(cells, colMap, colCost)),
			Price:     toFloat(readOptionalCell(cells, colMap, colPrice)),
		}
		if row.Price == 0 && row.CostPrice != 0 {
			row.Price = row.CostPrice
		}
		result = append(result, row)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("stock file has no valid data rows")
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := headerAliases[normalizeHeader(col)]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

func readOptionalCell(cells []string, colMap map[string]int, key string) string {
	idx, ok := colMap[key]
	if !ok || idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// parseBRLFloat reads Brazilian formatted money: "R$ 1.234,56" is 1234.56.
// Anything else falls back to the first number in the text, or zero.
func parseBRLFloat(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	value = strings.ReplaceAll(value, "R$", "")
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, ".", "")
	value = strings.ReplaceAll(value, ",", ".")
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	if match := firstFloat.FindString(value); match != "" {
		parsed, _ := strconv.ParseFloat(match, 64)
		return parsed
	}
	return 0
}

// parseBRLInt drops thousands dots and takes the first integer.
func parseBRLInt(raw string) float64 {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	match := firstInt.FindString(value)
	if match == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0
	}
	return float64(parsed)
}

// parseRawFloat reads an unformatted spreadsheet number, falling back to the
// Brazilian notation for cells typed as text.
func parseRawFloat(raw string) float64 {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(value, 64); err == nil {
		return parsed
	}
	return parseBRLFloat(value)
}
