package receivable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromiseTracker breaks promises whose date has passed
type PromiseTracker struct {
	deps Deps
	risk *RiskService
}

// NewPromiseTracker creates a PromiseTracker
func NewPromiseTracker(deps Deps, risk *RiskService) *PromiseTracker {
	return &PromiseTracker{deps: deps.withDefaults(), risk: risk}
}

// DetectBroken marks every PENDING promise dated before the start of ref's
// day as BROKEN and reclassifies the customers involved. The update only
// touches PENDING rows, so running it again marks nothing new.
func (t *PromiseTracker) DetectBroken(ctx context.Context, ref time.Time) (count int, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promise", "detect_broken")
	defer func() { telemetry.End(span, err) }()

	// the database keeps microseconds; resolvedAt on emitted events matches it
	now := t.deps.Clock().Truncate(time.Microsecond)
	var broken []*receivable.PromiseDate
	err = t.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		lapsed, err := repos.Promises().FindLapsed(ctx, receivable.StartOfDay(ref))
		if err != nil {
			return fmt.Errorf("find lapsed promises: %w", err)
		}
		if len(lapsed) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(lapsed))
		for i, p := range lapsed {
			ids[i] = p.ID
		}
		changed, err := repos.Promises().MarkBroken(ctx, ids, now)
		if err != nil {
			return fmt.Errorf("mark broken: %w", err)
		}
		// promises resolved elsewhere since FindLapsed are not in changed
		marked := make(map[uuid.UUID]struct{}, len(changed))
		for _, id := range changed {
			marked[id] = struct{}{}
		}
		for _, p := range lapsed {
			if _, ok := marked[p.ID]; ok {
				broken = append(broken, p)
			}
		}
		count = len(broken)
		return nil
	})
	if err != nil || count == 0 {
		return count, err
	}

	var errs []error
	seen := make(map[uuid.UUID]struct{})
	for _, p := range broken {
		p.Status = receivable.PromiseStatusBroken
		p.ResolvedAt = &now
		if _, ok := seen[p.CustomerID]; !ok {
			seen[p.CustomerID] = struct{}{}
			if _, err := t.risk.Classify(ctx, p.CustomerID); err != nil {
				errs = append(errs, fmt.Errorf("classify customer %s: %w", p.CustomerID, err))
			}
		}
		t.deps.Events.EmitSafe(ctx, receivable.NewPromiseBrokenEvent(p))
	}

	t.deps.Metrics.PromisesBroken(ctx, count)
	telemetry.SetAttributes(span, telemetry.SpanAttrCount, count)
	t.deps.Logger.Info("broken promises detected",
		zap.Int("count", count),
		zap.Int("customers", len(seen)),
		zap.Time("reference", ref),
	)
	return count, errors.Join(errs...)
}
