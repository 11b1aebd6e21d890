package receivable

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgingBucket classifies a balance by how long it has been past due
type AgingBucket string

const (
	AgingCurrent    AgingBucket = "CURRENT"
	AgingDays1To30  AgingBucket = "DAYS_1_30"
	AgingDays31To60 AgingBucket = "DAYS_31_60"
	AgingDays61To90 AgingBucket = "DAYS_61_90"
	AgingDays90Plus AgingBucket = "DAYS_90_PLUS"
)

// AgingBuckets lists the buckets in ascending age order
func AgingBuckets() []AgingBucket {
	return []AgingBucket{AgingCurrent, AgingDays1To30, AgingDays31To60, AgingDays61To90, AgingDays90Plus}
}

// DaysOverdue returns floor((ref - due) / 1 day). Negative when not yet due.
func DaysOverdue(dueDate, ref time.Time) int {
	return int(math.Floor(ref.Sub(dueDate).Hours() / 24))
}

// AgeOf buckets an invoice by its due date relative to ref
func AgeOf(dueDate, ref time.Time) (AgingBucket, int) {
	days := DaysOverdue(dueDate, ref)
	switch {
	case days <= 0:
		return AgingCurrent, days
	case days <= 30:
		return AgingDays1To30, days
	case days <= 60:
		return AgingDays31To60, days
	case days <= 90:
		return AgingDays61To90, days
	default:
		return AgingDays90Plus, days
	}
}

// AgingTotals holds balances summed per bucket
type AgingTotals struct {
	Buckets map[AgingBucket]decimal.Decimal `json:"buckets"`
	Total   decimal.Decimal                 `json:"total"`
}

// NewAgingTotals returns totals with every bucket present at zero
func NewAgingTotals() AgingTotals {
	buckets := make(map[AgingBucket]decimal.Decimal, 5)
	for _, b := range AgingBuckets() {
		buckets[b] = decimal.Zero
	}
	return AgingTotals{Buckets: buckets, Total: decimal.Zero}
}

// Add places a balance into its bucket
func (t *AgingTotals) Add(bucket AgingBucket, balance decimal.Decimal) {
	t.Buckets[bucket] = t.Buckets[bucket].Add(balance)
	t.Total = t.Total.Add(balance)
}

// CustomerAging is one customer's row in the aging report
type CustomerAging struct {
	CustomerID     uuid.UUID   `json:"customer_id"`
	CustomerCode   string      `json:"customer_code"`
	CustomerName   string      `json:"customer_name"`
	RiskTier       RiskTier    `json:"risk_tier"`
	Totals         AgingTotals `json:"totals"`
	MaxOverdueDays int         `json:"max_overdue_days"`
}

// AgingReport is a portfolio-wide aging summary
type AgingReport struct {
	ReferenceDate time.Time       `json:"reference_date"`
	Portfolio     AgingTotals     `json:"portfolio"`
	Customers     []CustomerAging `json:"customers"`
}

// BuildAgingReport sums the balances of open invoices into buckets per
// customer and across the portfolio. Customers are sorted by total desc.
func BuildAgingReport(customers []*Customer, invoices []*Invoice, ref time.Time) *AgingReport {
	rows := make(map[uuid.UUID]*CustomerAging, len(customers))
	order := make([]uuid.UUID, 0, len(customers))
	for _, c := range customers {
		rows[c.ID] = &CustomerAging{
			CustomerID:   c.ID,
			CustomerCode: c.Code,
			CustomerName: c.Name,
			RiskTier:     c.RiskTier,
			Totals:       NewAgingTotals(),
		}
		order = append(order, c.ID)
	}

	report := &AgingReport{ReferenceDate: ref, Portfolio: NewAgingTotals()}
	for _, inv := range invoices {
		if !inv.Status.IsOpen() {
			continue
		}
		row, ok := rows[inv.CustomerID]
		if !ok {
			continue
		}
		bucket, days := AgeOf(inv.DueDate, ref)
		row.Totals.Add(bucket, inv.BalanceAmount)
		report.Portfolio.Add(bucket, inv.BalanceAmount)
		if days > row.MaxOverdueDays {
			row.MaxOverdueDays = days
		}
	}

	report.Customers = make([]CustomerAging, 0, len(order))
	for _, id := range order {
		report.Customers = append(report.Customers, *rows[id])
	}
	sort.SliceStable(report.Customers, func(i, j int) bool {
		return report.Customers[i].Totals.Total.GreaterThan(report.Customers[j].Totals.Total)
	})
	return report
}
