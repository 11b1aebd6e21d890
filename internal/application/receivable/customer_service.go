package receivable

import (
	"context"
	"fmt"

	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerService manages customer master data
type CustomerService struct {
	deps   Deps
	risk   *RiskService
	recalc *Recalculator
}

// NewCustomerService creates a CustomerService
func NewCustomerService(deps Deps, risk *RiskService, recalc *Recalculator) *CustomerService {
	return &CustomerService{deps: deps.withDefaults(), risk: risk, recalc: recalc}
}

// Create registers an active customer with a generated code
func (s *CustomerService) Create(ctx context.Context, details receivable.CustomerDetails) (*receivable.Customer, error) {
	if err := details.Validate(); err != nil {
		return nil, err
	}
	var customer *receivable.Customer
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		code, err := repos.Sequences().Next(ctx, receivable.SequenceCustomer)
		if err != nil {
			return fmt.Errorf("next customer code: %w", err)
		}
		if customer, err = receivable.NewCustomer(code, details); err != nil {
			return err
		}
		return repos.Customers().Save(ctx, customer)
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("customer created", zap.String("customer", customer.Code), zap.String("name", customer.Name))
	return customer, nil
}

// Get returns one customer, active or not
func (s *CustomerService) Get(ctx context.Context, id uuid.UUID) (*receivable.Customer, error) {
	var customer *receivable.Customer
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		customer, err = repos.Customers().FindByID(ctx, id)
		return err
	})
	return customer, err
}

// List returns a page of customers
func (s *CustomerService) List(ctx context.Context, filter receivable.CustomerFilter) (shared.Paginated[*receivable.Customer], error) {
	filter.Filter = filter.Filter.Normalize()
	var page shared.Paginated[*receivable.Customer]
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		items, total, err := repos.Customers().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

// Update replaces the contact and credit fields. A credit limit change
// moves utilization, so the risk tier is recomputed.
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, details receivable.CustomerDetails) (*receivable.Customer, error) {
	var customer *receivable.Customer
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		c, err := repos.Customers().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		limitChanged := !nullDecimalEqual(c.CreditLimit, details.CreditLimit)
		if err := c.UpdateDetails(details); err != nil {
			return err
		}
		if err := repos.Customers().Save(ctx, c); err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		if limitChanged {
			if c.RiskTier, err = s.risk.Classify(ctx, c.ID); err != nil {
				return fmt.Errorf("classify risk: %w", err)
			}
		}
		customer = c
		return nil
	})
	return customer, err
}

// Deactivate soft-deletes a customer; its history stays
func (s *CustomerService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		c, err := repos.Customers().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Deactivate(); err != nil {
			return err
		}
		if err := repos.Customers().Save(ctx, c); err != nil {
			return fmt.Errorf("save customer: %w", err)
		}
		s.deps.Logger.Info("customer deactivated", zap.String("customer", c.Code))
		return nil
	})
}

// Refresh recomputes the customer's totals and risk tier and returns the
// updated record
func (s *CustomerService) Refresh(ctx context.Context, id uuid.UUID) (*receivable.Customer, error) {
	var customer *receivable.Customer
	err := s.deps.Scope.Execute(ctx, func(ctx context.Context, repos TransactionalRepositories) error {
		if _, err := repos.Customers().FindByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if err := s.recalc.Refresh(ctx, id); err != nil {
			return err
		}
		var err error
		customer, err = repos.Customers().FindByID(ctx, id)
		return err
	})
	return customer, err
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
