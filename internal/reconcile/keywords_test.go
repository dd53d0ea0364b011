package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"oficina/internal/domain"
)

func TestNormalizeStatus(t *testing.T) {
	kw := DefaultKeywords()
	cases := []struct {
		raw    string
		want   domain.WorkOrderStatus
		wantOK bool
	}{
		{"Aberta", domain.StatusOpen, true},
		{"open", domain.StatusOpen, true},
		{"Em andamento", domain.StatusInProgress, true},
		{"  em   ANDAMENTO ", domain.StatusInProgress, true},
		{"Fechada", domain.StatusClosed, true},
		{"FINALIZADO", domain.StatusClosed, true},
		{"Concluída", domain.StatusClosed, true},
		{"concluido", domain.StatusClosed, true},
		{"closed", domain.StatusClosed, true},
		{"Cancelada", domain.StatusCancelled, true},
		{"cancelled", domain.StatusCancelled, true},
		{"Finished", domain.StatusClosed, true},
		{"Completed", domain.StatusClosed, true},
		{"done", domain.StatusClosed, true},
		{"In-Progress", domain.StatusInProgress, true},
		{"in progress", domain.StatusInProgress, true},
		{"in_progress", domain.StatusInProgress, true},
		{"aguardando peça", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := kw.NormalizeStatus(tc.raw)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("NormalizeStatus(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestIsConsuming(t *testing.T) {
	kw := DefaultKeywords()
	for _, raw := range []string{"fechada", "fechado", "finalizada", "finalizado", "concluida", "concluída", "concluido", "concluído", "closed", "Finished", "completed"} {
		if !kw.IsConsuming(raw) {
			t.Errorf("IsConsuming(%q) = false", raw)
		}
	}
	for _, raw := range []string{"Aberta", "Em andamento", "In-Progress", "Cancelada", "qualquer"} {
		if kw.IsConsuming(raw) {
			t.Errorf("IsConsuming(%q) = true", raw)
		}
	}
}

func TestTransactionStatus(t *testing.T) {
	kw := DefaultKeywords()
	cases := []struct {
		pay   string
		order domain.WorkOrderStatus
		want  domain.TransactionStatus
	}{
		{"Pago", domain.StatusClosed, domain.TxSettled},
		{"efetivado", domain.StatusOpen, domain.TxSettled},
		{"Recebida", domain.StatusInProgress, domain.TxSettled},
		{"feito", domain.StatusClosed, domain.TxSettled},
		{"settled", domain.StatusClosed, domain.TxSettled},
		{"paid", domain.StatusClosed, domain.TxSettled},
		{"Received", domain.StatusClosed, domain.TxSettled},
		{"unpaid", domain.StatusClosed, domain.TxPending},
		{"Cancelado", domain.StatusClosed, domain.TxCancelled},
		{"Pendente", domain.StatusClosed, domain.TxPending},
		{"", domain.StatusClosed, domain.TxPending},
		{"talvez", domain.StatusOpen, domain.TxPending},
		{"Pago", domain.StatusCancelled, domain.TxCancelled},
	}
	for _, tc := range cases {
		if got := kw.TransactionStatus(tc.pay, tc.order); got != tc.want {
			t.Errorf("TransactionStatus(%q, %s) = %s, want %s", tc.pay, tc.order, got, tc.want)
		}
	}
}

func TestPurchaseStatus(t *testing.T) {
	kw := DefaultKeywords()
	cases := map[string]domain.TransactionStatus{
		"":          domain.TxPending,
		"PENDENTE":  domain.TxPending,
		"EFETIVADO": domain.TxSettled,
		"CANCELADO": domain.TxCancelled,
		"settled":   domain.TxSettled,
	}
	for raw, want := range cases {
		got, ok := kw.PurchaseStatus(raw)
		if !ok || got != want {
			t.Errorf("PurchaseStatus(%q) = %s, %v; want %s", raw, got, ok, want)
		}
	}
	if _, ok := kw.PurchaseStatus("em trânsito"); ok {
		t.Errorf("PurchaseStatus accepted an unknown value")
	}
}

func TestLoadKeywordsOverridesLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	body := "payment_settled:\n  - quitado\n  - liquidado\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	kw, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := kw.TransactionStatus("Quitado", domain.StatusClosed); got != domain.TxSettled {
		t.Fatalf("quitado = %s, want settled", got)
	}
	if got := kw.TransactionStatus("pago", domain.StatusClosed); got != domain.TxPending {
		t.Fatalf("replaced list still matches pago: %s", got)
	}
	if !kw.IsConsuming("fechada") {
		t.Fatalf("untouched lists lost their defaults")
	}
}

func TestLoadKeywordsEmptyPath(t *testing.T) {
	kw, err := LoadKeywords("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !kw.IsConsuming("Fechada") {
		t.Fatalf("defaults not loaded")
	}
}

func TestLoadKeywordsMissingFile(t *testing.T) {
	if _, err := LoadKeywords(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
