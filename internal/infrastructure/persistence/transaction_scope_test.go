package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	appreceivable "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_RollbackOnError(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	scope := NewGormTransactionScope(db, time.Second)
	ctx := context.Background()
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(ctx context.Context, repos appreceivable.TransactionalRepositories) error {
		if _, err := repos.Sequences().Next(ctx, receivable.SequenceInvoice); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	next, err := NewGormSequenceRepository(db).Next(ctx, receivable.SequenceInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", next, "rolled back increment must not be visible")
}

func TestGormTransactionScope_NestedExecuteJoinsOuter(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	scope := NewGormTransactionScope(db, 0)
	ctx := context.Background()
	boom := errors.New("outer failed")

	err := scope.Execute(ctx, func(txCtx context.Context, _ appreceivable.TransactionalRepositories) error {
		inner := scope.Execute(txCtx, func(ctx context.Context, repos appreceivable.TransactionalRepositories) error {
			_, err := repos.Sequences().Next(ctx, receivable.SequencePayment)
			return err
		})
		require.NoError(t, inner)

		// a plain repository handed the tx context also joins
		_, err := NewGormSequenceRepository(db).Next(txCtx, receivable.SequencePayment)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	next, err := NewGormSequenceRepository(db).Next(ctx, receivable.SequencePayment)
	require.NoError(t, err)
	assert.Equal(t, "PAY-0001", next)
}

func TestGormTransactionScope_CommitsAndLocks(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	scope := NewGormTransactionScope(mdb.DB, 0)
	id := uuid.New()

	mdb.Mock.ExpectBegin()
	mdb.Mock.ExpectQuery(`SELECT \* FROM "customers" WHERE id = \$1 ORDER BY "customers"."id" LIMIT \$2 FOR UPDATE`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name", "risk_tier", "is_active"}).
			AddRow(id, "CUST-0001", "Acme", "SAFE", true))
	mdb.Mock.ExpectCommit()

	err := scope.Execute(context.Background(), func(ctx context.Context, repos appreceivable.TransactionalRepositories) error {
		c, err := repos.Customers().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		assert.Equal(t, "Acme", c.Name)
		return nil
	})
	require.NoError(t, err)
	mdb.ExpectationsWereMet(t)
}

func TestGormInvoiceRepository_UpdateStatusesIsOneStatement(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := NewGormInvoiceRepository(mdb.DB)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	mdb.Mock.ExpectExec(`UPDATE "invoices" SET "status"=\$1,"updated_at"=\$2 WHERE .*id IN \(\$3,\$4,\$5\) AND status = \$6`).
		WithArgs("OVERDUE", sqlmock.AnyArg(), ids[0], ids[1], ids[2], "PARTIAL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.UpdateStatuses(context.Background(), ids, receivable.InvoiceStatusPartial, receivable.InvoiceStatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	mdb.ExpectationsWereMet(t)
}

func TestGormPromiseRepository_FindByIDForUpdateLocksRow(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := NewGormPromiseRepository(mdb.DB)
	id, customerID := uuid.New(), uuid.New()
	now := time.Now()

	mdb.Mock.ExpectQuery(`SELECT \* FROM "promise_dates" WHERE id = \$1 ORDER BY .* LIMIT \$2 FOR UPDATE`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "created_at", "updated_at", "customer_id", "promised_amount",
			"promised_date", "status", "notes", "resolved_at",
		}).AddRow(id, now, now, customerID, "100", now, "BROKEN", "", now))

	p, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, receivable.PromiseStatusBroken, p.Status)
	mdb.ExpectationsWereMet(t)
}
