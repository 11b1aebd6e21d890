package receivable

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromiseInput is a promise made during a call
type PromiseInput struct {
	Amount decimal.NullDecimal
	Date   time.Time
	Notes  string
}

// CreateCallLogInput holds one collection call
type CreateCallLogInput struct {
	CustomerID uuid.UUID
	CallDate   time.Time
	Status     receivable.CallStatus
	Notes      string
	CalledBy   string
	Promise    *PromiseInput
}

// CallLogResult is the stored call and the promise it produced, if any
type CallLogResult struct {
	CallLog *receivable.CallLog
	Promise *receivable.PromiseDate
}

// CallLogService records collection calls
type CallLogService struct {
	deps     Deps
	promises *PromiseService
}

// NewCallLogService creates a CallLogService
func NewCallLogService(deps Deps, promises *PromiseService) *CallLogService {
	return &CallLogService{deps: deps.withDefaults(), promises: promises}
}

// Create stores the call and, when a promise was made, a linked PENDING promise
func (s *CallLogService) Create(ctx context.Context, in CreateCallLogInput) (*CallLogResult, error) {
	if in.CallDate.IsZero() {
		in.CallDate = s.deps.Clock()
	}
	var result *CallLogResult
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Customers().FindByIDForUpdate(ctx, in.CustomerID); err != nil {
			return err
		}
		call, err := receivable.NewCallLog(in.CustomerID, in.CallDate, in.Status, in.Notes, in.CalledBy)
		if err != nil {
			return err
		}
		if err := repos.CallLogs().Save(ctx, call); err != nil {
			return fmt.Errorf("save call log: %w", err)
		}
		result = &CallLogResult{CallLog: call}
		if in.Promise == nil {
			return nil
		}

		result.Promise, err = s.promises.create(ctx, repos, CreatePromiseInput{
			CustomerID:     in.CustomerID,
			PromisedAmount: in.Promise.Amount,
			PromisedDate:   in.Promise.Date,
			Notes:          in.Promise.Notes,
			CallLogID:      &call.ID,
		})
		if err != nil {
			return err
		}
		call.AttachPromise(result.Promise.ID)
		return nil
	})
	return result, err
}

// ListByCustomer returns the customer's calls, newest first
func (s *CallLogService) ListByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) (shared.Paginated[*receivable.CallLog], error) {
	filter = filter.Normalize()
	var page shared.Paginated[*receivable.CallLog]
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Customers().FindByID(ctx, customerID); err != nil {
			return err
		}
		items, total, err := repos.CallLogs().FindByCustomer(ctx, customerID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}
