package persistence

import (
	"context"
	"time"

	appreceivable "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"gorm.io/gorm"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or db bound to ctx.
// Every repository query goes through it so that work started inside
// GormTransactionScope.Execute stays on one connection.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// GormTransactionScope implements TransactionScope using GORM transactions
type GormTransactionScope struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTransactionScope creates a scope. A positive timeout bounds each
// outermost transaction.
func NewGormTransactionScope(db *gorm.DB, timeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, timeout: timeout}
}

// Execute runs fn inside a transaction, joining the one already carried by
// ctx when there is one.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos appreceivable.TransactionalRepositories) error) error {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx, &gormTransactionalRepositories{tx: tx})
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx, &gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Customers() receivable.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormTransactionalRepositories) Invoices() receivable.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() receivable.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Allocations() receivable.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Promises() receivable.PromiseRepository {
	return NewGormPromiseRepository(r.tx)
}

func (r *gormTransactionalRepositories) CallLogs() receivable.CallLogRepository {
	return NewGormCallLogRepository(r.tx)
}

func (r *gormTransactionalRepositories) Settings() receivable.SettingsRepository {
	return NewGormSettingsRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() receivable.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

var (
	_ appreceivable.TransactionScope          = (*GormTransactionScope)(nil)
	_ appreceivable.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
