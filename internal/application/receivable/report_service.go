package receivable

import (
	"context"
	"sort"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecentlyBrokenWindow is how far back the daily list shows broken promises
const RecentlyBrokenWindow = 7 * 24 * time.Hour

// dailyListPageSize is the largest page the promise repository serves
const dailyListPageSize = 200

// CustomerBalance is a row of the outstanding report
type CustomerBalance struct {
	CustomerID  uuid.UUID           `json:"customer_id"`
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Outstanding decimal.Decimal     `json:"outstanding_amount"`
	Overdue     decimal.Decimal     `json:"overdue_amount"`
	CreditLimit decimal.NullDecimal `json:"credit_limit"`
	RiskTier    receivable.RiskTier `json:"risk_tier"`
}

// CreditUtilizationRow is a row of the credit utilization report
type CreditUtilizationRow struct {
	CustomerID     uuid.UUID           `json:"customer_id"`
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	CreditLimit    decimal.Decimal     `json:"credit_limit"`
	CreditUsed     decimal.Decimal     `json:"credit_used"`
	Available      decimal.Decimal     `json:"available"`
	UtilizationPct decimal.Decimal     `json:"utilization_pct"`
	RiskTier       receivable.RiskTier `json:"risk_tier"`
}

// PromisePerformance summarizes promise outcomes
type PromisePerformance struct {
	Pending  int64           `json:"pending"`
	Kept     int64           `json:"kept"`
	Broken   int64           `json:"broken"`
	KeptRate decimal.Decimal `json:"kept_rate_pct"` // kept / (kept + broken)
}

// DailyList is the collector's worklist for one day
type DailyList struct {
	Date             time.Time                 `json:"date"`
	OverdueCustomers []CustomerBalance         `json:"overdue_customers"`
	DueToday         []*receivable.Invoice     `json:"due_today"`
	PromisesDueToday []*receivable.PromiseDate `json:"promises_due_today"`
	RecentlyBroken   []*receivable.PromiseDate `json:"recently_broken"`
}

// ReportService builds read-only portfolio views
type ReportService struct {
	deps Deps
}

// NewReportService creates a ReportService
func NewReportService(deps Deps) *ReportService {
	return &ReportService{deps: deps.withDefaults()}
}

// Aging buckets every open balance by age at ref; a zero ref means now
func (s *ReportService) Aging(ctx context.Context, ref time.Time) (*receivable.AgingReport, error) {
	if ref.IsZero() {
		ref = s.deps.Clock()
	}
	var report *receivable.AgingReport
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		invoices, err := repos.Invoices().FindOpen(ctx)
		if err != nil {
			return err
		}
		seen := make(map[uuid.UUID]struct{})
		ids := make([]uuid.UUID, 0)
		for _, inv := range invoices {
			if _, ok := seen[inv.CustomerID]; !ok {
				seen[inv.CustomerID] = struct{}{}
				ids = append(ids, inv.CustomerID)
			}
		}
		customers, err := repos.Customers().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		report = receivable.BuildAgingReport(customers, invoices, ref)
		return nil
	})
	return report, err
}

// Outstanding returns the limit customers owing the most; limit <= 0 returns all
func (s *ReportService) Outstanding(ctx context.Context, limit int) ([]CustomerBalance, error) {
	customers, err := s.activeCustomers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]CustomerBalance, 0, len(customers))
	for _, c := range customers {
		if c.OutstandingAmount.IsPositive() {
			rows = append(rows, balanceOf(c))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Outstanding.GreaterThan(rows[j].Outstanding)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// CreditUtilization lists customers with a credit limit, most utilized first
func (s *ReportService) CreditUtilization(ctx context.Context) ([]CreditUtilizationRow, error) {
	customers, err := s.activeCustomers(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]CreditUtilizationRow, 0, len(customers))
	for _, c := range customers {
		if !c.HasCreditLimit() {
			continue
		}
		rows = append(rows, CreditUtilizationRow{
			CustomerID:     c.ID,
			Code:           c.Code,
			Name:           c.Name,
			CreditLimit:    c.CreditLimit.Decimal,
			CreditUsed:     c.CreditUsed,
			Available:      c.CreditLimit.Decimal.Sub(c.CreditUsed),
			UtilizationPct: receivable.CreditUtilization(c.CreditUsed, c.CreditLimit).Round(2),
			RiskTier:       c.RiskTier,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].UtilizationPct.GreaterThan(rows[j].UtilizationPct)
	})
	return rows, nil
}

// PromisePerformance counts promises by outcome
func (s *ReportService) PromisePerformance(ctx context.Context) (*PromisePerformance, error) {
	var counts map[receivable.PromiseStatus]int64
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		counts, err = repos.Promises().CountByStatus(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	perf := &PromisePerformance{
		Pending:  counts[receivable.PromiseStatusPending],
		Kept:     counts[receivable.PromiseStatusKept],
		Broken:   counts[receivable.PromiseStatusBroken],
		KeptRate: decimal.Zero,
	}
	if resolved := perf.Kept + perf.Broken; resolved > 0 {
		perf.KeptRate = decimal.NewFromInt(perf.Kept).Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(resolved)).Round(2)
	}
	return perf, nil
}

// DailyList gathers what needs chasing on day: customers with overdue
// balances, invoices falling due, promises falling due, and promises broken
// in the last week.
func (s *ReportService) DailyList(ctx context.Context, day time.Time) (*DailyList, error) {
	if day.IsZero() {
		day = s.deps.Clock()
	}
	start := receivable.StartOfDay(day)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	list := &DailyList{Date: start}

	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		customers, err := repos.Customers().FindActive(ctx)
		if err != nil {
			return err
		}
		for _, c := range customers {
			if c.OverdueAmount.IsPositive() {
				list.OverdueCustomers = append(list.OverdueCustomers, balanceOf(c))
			}
		}
		sort.SliceStable(list.OverdueCustomers, func(i, j int) bool {
			return list.OverdueCustomers[i].Overdue.GreaterThan(list.OverdueCustomers[j].Overdue)
		})

		open, err := repos.Invoices().FindOpen(ctx)
		if err != nil {
			return err
		}
		for _, inv := range open {
			if !inv.DueDate.Before(start) && !inv.DueDate.After(end) {
				list.DueToday = append(list.DueToday, inv)
			}
		}

		if list.PromisesDueToday, err = promisesDueBetween(ctx, repos, start, end); err != nil {
			return err
		}
		list.RecentlyBroken, err = repos.Promises().BrokenSince(ctx, start.Add(-RecentlyBrokenWindow))
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// promisesDueBetween collects every PENDING promise dated in [start, end],
// one page at a time
func promisesDueBetween(ctx context.Context, repos TransactionalRepositories, start, end time.Time) ([]*receivable.PromiseDate, error) {
	pending := receivable.PromiseStatusPending
	filter := receivable.PromiseFilter{
		Filter:   shared.Filter{Page: 1, PageSize: dailyListPageSize},
		Status:   &pending,
		DateFrom: &start,
		DateTo:   &end,
	}
	var out []*receivable.PromiseDate
	for {
		items, total, err := repos.Promises().FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < filter.PageSize || int64(len(out)) >= total {
			return out, nil
		}
		filter.Page++
	}
}

func (s *ReportService) activeCustomers(ctx context.Context) ([]*receivable.Customer, error) {
	var customers []*receivable.Customer
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		customers, err = repos.Customers().FindActive(ctx)
		return err
	})
	return customers, err
}

func balanceOf(c *receivable.Customer) CustomerBalance {
	return CustomerBalance{
		CustomerID:  c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Outstanding: c.OutstandingAmount,
		Overdue:     c.OverdueAmount,
		CreditLimit: c.CreditLimit,
		RiskTier:    c.RiskTier,
	}
}
