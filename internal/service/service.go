package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oficina/internal/config"
	"oficina/internal/domain"
	"oficina/internal/reconcile"
	"oficina/internal/repository"

	"github.com/sirupsen/logrus"
)

const moduleName = "service"

// ErrValidation marks input the caller has to fix.
var ErrValidation = errors.New("validation failed")

type Service struct {
	repo          *repository.Repository
	keywords      reconcile.Keywords
	logger        *logrus.Logger
	defaultMethod string
	now           func() time.Time
}

func New(repo *repository.Repository, keywords reconcile.Keywords, logger *logrus.Logger, defaultMethod string) *Service {
	if strings.TrimSpace(defaultMethod) == "" {
		defaultMethod = reconcile.DefaultPaymentMethod
	}
	return &Service{
		repo:          repo,
		keywords:      keywords,
		logger:        logger,
		defaultMethod: defaultMethod,
		now:           time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// parseDay reads a YYYY-MM-DD date, falling back when raw is blank.
func parseDay(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, invalid("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return parsed, nil
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

// bestEffort runs fn in a savepoint of tx. A failure is logged and only the
// savepoint is rolled back.
func (s *Service) bestEffort(ctx context.Context, tx *repository.Tx, funcName string, data any, fn func(*repository.Tx) error) {
	if err := tx.Savepoint(ctx, fn); err != nil {
		config.LogError(s.logger, moduleName, funcName, "ledger sync skipped", data, err)
	}
}

func (s *Service) PaymentMethods(ctx context.Context) ([]domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}
