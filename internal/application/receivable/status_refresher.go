package receivable

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRefreshBatchSize bounds the ids written by one status update
const DefaultRefreshBatchSize = 500

// RefreshSummary reports one status sweep
type RefreshSummary struct {
	Scanned   int                              `json:"scanned"`
	Changed   int                              `json:"changed"`
	ByStatus  map[receivable.InvoiceStatus]int `json:"by_status"`
	Customers int                              `json:"customers"`
}

// StatusRefresher moves open invoices to the status the calendar implies,
// mostly UNPAID/PARTIAL to OVERDUE as due dates pass.
type StatusRefresher struct {
	deps      Deps
	recalc    *Recalculator
	batchSize int
}

// NewStatusRefresher creates a StatusRefresher. batchSize <= 0 uses
// DefaultRefreshBatchSize.
func NewStatusRefresher(deps Deps, recalc *Recalculator, batchSize int) *StatusRefresher {
	if batchSize <= 0 {
		batchSize = DefaultRefreshBatchSize
	}
	return &StatusRefresher{deps: deps.withDefaults(), recalc: recalc, batchSize: batchSize}
}

// statusMove is one from/to pair of a status sweep
type statusMove struct {
	from, to receivable.InvoiceStatus
}

// RefreshAll reclassifies every open invoice. Changed ids are grouped by
// their old and new status and written in batches, each its own short
// transaction; afterwards every customer that had a change is refreshed
// separately. A batch only moves rows still in the status the sweep read,
// so an invoice paid or written off in between keeps its new status.
func (r *StatusRefresher) RefreshAll(ctx context.Context) (summary RefreshSummary, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "refresh_statuses")
	defer func() { telemetry.End(span, err) }()

	summary.ByStatus = make(map[receivable.InvoiceStatus]int)
	var (
		invoices []*receivable.Invoice
		settings receivable.Settings
	)
	err = r.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		if settings, err = repos.Settings().Get(ctx); err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		invoices, err = repos.Invoices().FindOpen(ctx)
		return err
	})
	if err != nil {
		return summary, err
	}
	summary.Scanned = len(invoices)

	ref := settings.OverdueReference(r.deps.Clock())
	groups := make(map[statusMove][]uuid.UUID)
	touched := make(map[uuid.UUID]struct{})
	for _, inv := range invoices {
		next := receivable.ClassifyInvoice(inv.TotalAmount, inv.PaidAmount, inv.DueDate, inv.Status, ref)
		if next == inv.Status {
			continue
		}
		move := statusMove{from: inv.Status, to: next}
		groups[move] = append(groups[move], inv.ID)
		touched[inv.CustomerID] = struct{}{}
	}

	moves := make([]statusMove, 0, len(groups))
	for move := range groups {
		moves = append(moves, move)
	}
	sort.Slice(moves, func(i, j int) bool {
		if moves[i].to != moves[j].to {
			return moves[i].to < moves[j].to
		}
		return moves[i].from < moves[j].from
	})

	changed := make(map[receivable.InvoiceStatus]int)
	for _, move := range moves {
		ids := groups[move]
		for start := 0; start < len(ids); start += r.batchSize {
			batch := ids[start:min(start+r.batchSize, len(ids))]
			var n int64
			err := r.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
				var err error
				n, err = repos.Invoices().UpdateStatuses(ctx, batch, move.from, move.to)
				return err
			})
			if err != nil {
				return summary, fmt.Errorf("update %s to %s statuses: %w", move.from, move.to, err)
			}
			changed[move.to] += int(n)
			summary.Changed += int(n)
		}
	}
	for status, n := range changed {
		summary.ByStatus[status] = n
		r.deps.Metrics.InvoiceStatusesRefreshed(ctx, status, n)
	}

	ids := make([]uuid.UUID, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	summary.Customers, err = r.recalc.refreshEach(ctx, ids)

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, summary.Changed)
	r.deps.Logger.Info("invoice statuses refreshed",
		zap.Int("scanned", summary.Scanned),
		zap.Int("changed", summary.Changed),
		zap.Int("customers", summary.Customers),
	)
	return summary, err
}
