package receivable

import (
	"context"

	"github.com/erp/collections/internal/domain/receivable"
)

// TransactionScope runs use cases atomically.
//
// fn receives a context bound to the transaction. Passing that context to
// another Execute call joins the running transaction instead of opening a
// new one, which lets synchronous event handlers write under the caller's
// transaction. If fn returns an error everything is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes every ledger repository bound to one
// transaction. The customer row, locked through Customers().FindByIDForUpdate,
// serializes writers of that customer's invoices, payments and allocations.
type TransactionalRepositories interface {
	Customers() receivable.CustomerRepository
	Invoices() receivable.InvoiceRepository
	Payments() receivable.PaymentRepository
	Allocations() receivable.AllocationRepository
	Promises() receivable.PromiseRepository
	CallLogs() receivable.CallLogRepository
	Settings() receivable.SettingsRepository
	Sequences() receivable.SequenceRepository
}
