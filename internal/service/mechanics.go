package service

import (
	"context"
	"strings"

	"oficina/internal/domain"

	"github.com/shopspring/decimal"
)

const defaultRepassePercent = 50

func (s *Service) ListMechanics(ctx context.Context) ([]domain.Mechanic, error) {
	return s.repo.ListMechanics(ctx)
}

func (s *Service) CreateMechanic(ctx context.Context, name string) (domain.Mechanic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Mechanic{}, invalid("name is required")
	}
	return s.repo.CreateMechanic(ctx, domain.Mechanic{Name: name})
}

func (s *Service) DeleteMechanic(ctx context.Context, id int64) error {
	return s.repo.DeleteMechanic(ctx, id)
}

// MechanicReport aggregates the work orders created between start and end,
// both inclusive. The period defaults to the last seven days and the
// repasse percent to 50.
func (s *Service) MechanicReport(ctx context.Context, start, end string, repassePercent *float64) (domain.MechanicReport, error) {
	to, err := parseDay(end, s.today())
	if err != nil {
		return domain.MechanicReport{}, err
	}
	from, err := parseDay(start, to.AddDate(0, 0, -6))
	if err != nil {
		return domain.MechanicReport{}, err
	}
	if from.After(to) {
		return domain.MechanicReport{}, invalid("start must not be after end")
	}

	percent := float64(defaultRepassePercent)
	if repassePercent != nil {
		percent = clampPercent(*repassePercent)
	}

	exclusiveEnd := to.AddDate(0, 0, 1)
	totals, err := s.repo.MechanicTotals(ctx, from, exclusiveEnd)
	if err != nil {
		return domain.MechanicReport{}, err
	}
	orders, err := s.repo.MechanicOrders(ctx, from, exclusiveEnd)
	if err != nil {
		return domain.MechanicReport{}, err
	}

	report := buildMechanicReport(totals, percent)
	report.Start = from.Format(domain.DateLayout)
	report.End = to.Format(domain.DateLayout)
	report.Orders = orders
	return report, nil
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// buildMechanicReport fills the derived columns of every row and the period
// totals. Leaders only consider mechanics with revenue.
func buildMechanicReport(rows []domain.MechanicReportRow, percent float64) domain.MechanicReport {
	report := domain.MechanicReport{
		RepassePercent: percent,
		Rows:           make([]domain.MechanicReportRow, 0, len(rows)),
	}
	share := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	var labor, parts, grand decimal.Decimal

	var topRevenue, topOrders *domain.MechanicReportRow
	for _, row := range rows {
		total := decimal.NewFromFloat(row.Total)
		if row.OrderCount > 0 {
			row.AverageTicket = total.Div(decimal.NewFromInt(int64(row.OrderCount))).Round(4).InexactFloat64()
		}
		if row.Total > 0 {
			row.LaborShare = decimal.NewFromFloat(row.LaborTotal).Div(total).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
		}
		row.Repasse = total.Mul(share).Round(4).InexactFloat64()

		report.TotalOrders += row.OrderCount
		labor = labor.Add(decimal.NewFromFloat(row.LaborTotal))
		parts = parts.Add(decimal.NewFromFloat(row.PartsTotal))
		grand = grand.Add(total)
		report.Rows = append(report.Rows, row)

		current := row
		if row.Total > 0 {
			if topRevenue == nil || row.Total > topRevenue.Total {
				topRevenue = &current
			}
			if row.OrderCount > 0 && (topOrders == nil || row.OrderCount > topOrders.OrderCount) {
				topOrders = &current
			}
		}
	}

	report.TotalLabor = labor.Round(4).InexactFloat64()
	report.TotalParts = parts.Round(4).InexactFloat64()
	report.GrandTotal = grand.Round(4).InexactFloat64()
	report.TopRevenue = topRevenue
	report.TopOrders = topOrders
	return report
}
