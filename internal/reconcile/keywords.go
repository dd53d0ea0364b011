package reconcile

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"oficina/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

type keywordFile struct {
	Closed           []string `yaml:"closed"`
	InProgress       []string `yaml:"in_progress"`
	Cancelled        []string `yaml:"cancelled"`
	Open             []string `yaml:"open"`
	PaymentSettled   []string `yaml:"payment_settled"`
	PaymentCancelled []string `yaml:"payment_cancelled"`
	PaymentPending   []string `yaml:"payment_pending"`
}

// Keywords maps legacy free-text spellings onto the closed status sets.
type Keywords struct {
	status  map[string]domain.WorkOrderStatus
	payment map[string]domain.TransactionStatus
}

// DefaultKeywords returns the embedded keyword table.
func DefaultKeywords() Keywords {
	kw, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded keywords: %v", err))
	}
	return kw
}

// LoadKeywords reads a YAML keyword table from path. Lists missing from the
// file keep their embedded defaults. An empty path returns the defaults.
func LoadKeywords(path string) (Keywords, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultKeywords(), nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("read keywords %s: %w", path, err)
	}

	var base keywordFile
	if err := yaml.Unmarshal(defaultKeywordsYAML, &base); err != nil {
		return Keywords{}, fmt.Errorf("parse embedded keywords: %w", err)
	}
	var override keywordFile
	if err := yaml.Unmarshal(body, &override); err != nil {
		return Keywords{}, fmt.Errorf("parse keywords %s: %w", path, err)
	}
	return buildKeywords(mergeKeywordFiles(base, override)), nil
}

func ParseKeywords(body []byte) (Keywords, error) {
	var file keywordFile
	if err := yaml.Unmarshal(body, &file); err != nil {
		return Keywords{}, fmt.Errorf("parse keywords: %w", err)
	}
	return buildKeywords(file), nil
}

func mergeKeywordFiles(base, override keywordFile) keywordFile {
	pick := func(a, b []string) []string {
		if len(b) > 0 {
			return b
		}
		return a
	}
	return keywordFile{
		Closed:           pick(base.Closed, override.Closed),
		InProgress:       pick(base.InProgress, override.InProgress),
		Cancelled:        pick(base.Cancelled, override.Cancelled),
		Open:             pick(base.Open, override.Open),
		PaymentSettled:   pick(base.PaymentSettled, override.PaymentSettled),
		PaymentCancelled: pick(base.PaymentCancelled, override.PaymentCancelled),
		PaymentPending:   pick(base.PaymentPending, override.PaymentPending),
	}
}

func buildKeywords(file keywordFile) Keywords {
	kw := Keywords{
		status:  make(map[string]domain.WorkOrderStatus),
		payment: make(map[string]domain.TransactionStatus),
	}
	addStatus := func(words []string, status domain.WorkOrderStatus) {
		for _, word := range words {
			if key := normalizeKeyword(word); key != "" {
				kw.status[key] = status
			}
		}
	}
	addPayment := func(words []string, status domain.TransactionStatus) {
		for _, word := range words {
			if key := normalizeKeyword(word); key != "" {
				kw.payment[key] = status
			}
		}
	}
	addStatus(file.Open, domain.StatusOpen)
	addStatus(file.InProgress, domain.StatusInProgress)
	addStatus(file.Cancelled, domain.StatusCancelled)
	addStatus(file.Closed, domain.StatusClosed)
	addPayment(file.PaymentPending, domain.TxPending)
	addPayment(file.PaymentCancelled, domain.TxCancelled)
	addPayment(file.PaymentSettled, domain.TxSettled)
	return kw
}

func normalizeKeyword(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// NormalizeStatus resolves a canonical or legacy status spelling.
func (k Keywords) NormalizeStatus(raw string) (domain.WorkOrderStatus, bool) {
	key := normalizeKeyword(raw)
	if key == "" {
		return "", false
	}
	if status := domain.WorkOrderStatus(key); status.Valid() {
		return status, true
	}
	status, ok := k.status[key]
	return status, ok
}

// IsConsuming reports whether a free-text status debits stock.
func (k Keywords) IsConsuming(raw string) bool {
	status, ok := k.NormalizeStatus(raw)
	return ok && status.ConsumesStock()
}

// TransactionStatus derives the ledger status of a work order from its
// payment status. A cancelled order always yields a cancelled transaction.
func (k Keywords) TransactionStatus(payStatus string, order domain.WorkOrderStatus) domain.TransactionStatus {
	if order == domain.StatusCancelled {
		return domain.TxCancelled
	}
	key := normalizeKeyword(payStatus)
	if status := domain.TransactionStatus(key); status.Valid() {
		return status
	}
	if status, ok := k.payment[key]; ok {
		return status
	}
	return domain.TxPending
}

// PurchaseStatus resolves a canonical or legacy purchase status. Empty input
// is pending.
func (k Keywords) PurchaseStatus(raw string) (domain.TransactionStatus, bool) {
	key := normalizeKeyword(raw)
	if key == "" {
		return domain.TxPending, true
	}
	if status := domain.TransactionStatus(key); status.Valid() {
		return status, true
	}
	status, ok := k.payment[key]
	return status, ok
}
