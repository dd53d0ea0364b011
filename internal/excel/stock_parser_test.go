package excel

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseStockSheetCSVSemicolon(t *testing.T) {
	data := "\ufeffCódigo;Descrição;Quantidade;Custo;Preço;Estoque mínimo\n" +
		"flt-01;Filtro de óleo;1.200;R$ 12,50;R$ 25,00;10\n" +
		"PAS-9;;3;8,00;;\n" +
		";;;;;\n"
	rows, err := ParseStockSheet("estoque.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseStockSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	first := rows[0]
	if first.SKU != "flt-01" || first.Name != "Filtro de óleo" {
		t.Errorf("unexpected identity: %+v", first)
	}
	if first.Stock != 1200 || first.MinStock != 10 || first.CostPrice != 12.5 || first.Price != 25 {
		t.Errorf("unexpected numbers: %+v", first)
	}
	second := rows[1]
	if second.Name != "Item PAS-9" {
		t.Errorf("missing name should fall back, got %q", second.Name)
	}
	if second.Price != 8 {
		t.Errorf("zero price should take the cost, got %v", second.Price)
	}
}

func TestParseStockSheetCSVComma(t *testing.T) {
	data := "sku,name,stock,cost_price,price\nA1,Vela,4,\"10,5\",abc\n"
	rows, err := ParseStockSheet("stock.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseStockSheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Stock != 4 || rows[0].CostPrice != 10.5 || rows[0].Price != 10.5 {
		t.Errorf("unexpected row: %+v", rows[0])
	}
}

func TestParseStockSheetXLSX(t *testing.T) {
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	if err := file.SetSheetRow(sheet, "A1", &[]any{"SKU", "Produto", "Qtd", "Unitário", "Valor"}); err != nil {
		t.Fatalf("header: %v", err)
	}
	if err := file.SetSheetRow(sheet, "A2", &[]any{"OL-5W30", "Óleo 5W30", 12, 31.9, 54.5}); err != nil {
		t.Fatalf("row: %v", err)
	}
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	rows, err := ParseStockSheet("estoque.xlsx", &buf)
	if err != nil {
		t.Fatalf("ParseStockSheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.SKU != "OL-5W30" || row.Stock != 12 || row.CostPrice != 31.9 || row.Price != 54.5 {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestParseStockSheetErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
	}{
		{"empty", "estoque.csv", ""},
		{"no known columns", "estoque.csv", "foo;bar\n1;2\n"},
		{"no data rows", "estoque.csv", "sku;name\n;\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseStockSheet(tc.file, strings.NewReader(tc.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseBRLFloat(t *testing.T) {
	cases := map[string]float64{
		"":            0,
		"R$ 1.234,56": 1234.56,
		"12,5":        12.5,
		"7":           7,
		"cerca de 9":  9,
		"n/a":         0,
	}
	for raw, want := range cases {
		if got := parseBRLFloat(raw); got != want {
			t.Errorf("parseBRLFloat(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseBRLInt(t *testing.T) {
	cases := map[string]float64{
		"":        0,
		"1.500":   1500,
		"3 un":    3,
		"-2":      -2,
		"sem qtd": 0,
	}
	for raw, want := range cases {
		if got := parseBRLInt(raw); got != want {
			t.Errorf("parseBRLInt(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestDetectDelimiter(t *testing.T) {
	if got := detectDelimiter([]byte("a;b;c\n1,5;2;3")); got != ';' {
		t.Errorf("got %q, want ';'", got)
	}
	if got := detectDelimiter([]byte("a,b,c\n1,2,3")); got != ',' {
		t.Errorf("got %q, want ','", got)
	}
}
