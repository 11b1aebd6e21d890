package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/erp/collections/internal/application/receivable"
	"github.com/erp/collections/internal/domain/receivable"
	"github.com/erp/collections/internal/infrastructure/auth"
	"github.com/erp/collections/internal/infrastructure/config"
	"github.com/erp/collections/internal/infrastructure/event"
	"github.com/erp/collections/internal/infrastructure/persistence"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/erp/collections/internal/interfaces/http/handler"
	"github.com/erp/collections/internal/interfaces/http/middleware"
	"github.com/erp/collections/internal/interfaces/http/router"
	"github.com/erp/collections/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type api struct {
	t       *testing.T
	engine  *gin.Engine
	jwt     *auth.JWTService
	headers map[auth.Role]map[string]string
}

// newAPI wires the full HTTP stack over an in-memory database
func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db := testutil.NewSQLiteDB(t)

	bus := event.NewInMemoryEventBus(logger)
	deps := app.Deps{
		Scope:  persistence.NewGormTransactionScope(db, 5*time.Second),
		Events: bus,
		Logger: logger,
	}
	risk := app.NewRiskService(deps)
	recalc := app.NewRecalculator(deps, risk)
	alloc := app.NewAllocationService(deps)
	promises := app.NewPromiseService(deps, risk)
	bus.Subscribe(app.NewAggregateRefreshHandler(recalc))
	bus.Subscribe(app.NewAlertLogHandler(logger))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())

	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "api-test-secret-0123456789abcdef", Issuer: "collections-test"})
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddleware(jwtSvc))
	router.RegisterAPI(r, router.Handlers{
		Customers: handler.NewCustomerHandler(app.NewCustomerService(deps, risk, recalc), risk),
		Invoices:  handler.NewInvoiceHandler(app.NewInvoiceService(deps)),
		Payments:  handler.NewPaymentHandler(app.NewPaymentService(deps, alloc)),
		Promises:  handler.NewPromiseHandler(promises),
		CallLogs:  handler.NewCallLogHandler(app.NewCallLogService(deps, promises)),
		Settings:  handler.NewSettingsHandler(app.NewSettingsService(deps)),
		Reports:   handler.NewReportHandler(app.NewReportService(deps)),
	})
	r.Setup()

	a := &api{t: t, engine: engine, jwt: jwtSvc, headers: map[auth.Role]map[string]string{}}
	for _, role := range []auth.Role{auth.RoleViewer, auth.RoleCollector, auth.RoleAdmin} {
		token, _, err := jwtSvc.Issue(auth.IssueInput{UserID: uuid.New(), Username: "user-" + string(role), Role: role})
		require.NoError(t, err)
		a.headers[role] = map[string]string{"Authorization": "Bearer " + token}
	}
	return a
}

func (a *api) call(role auth.Role, method, path string, body any) *httptest.ResponseRecorder {
	return testutil.PerformJSON(a.t, a.engine, method, "/api/v1"+path, body, a.headers[role])
}

func today() string { return time.Now().UTC().Format(handler.DateLayout) }

func TestAPI_CollectionsFlow(t *testing.T) {
	a := newAPI(t)

	w := a.call(auth.RoleCollector, http.MethodPost, "/customers", gin.H{
		"name":         "Sharma Traders",
		"phone":        "9800000001",
		"credit_limit": "1000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	customer := testutil.DecodeData[handler.CustomerResponse](t, w)
	assert.Equal(t, receivable.RiskSafe, customer.RiskTier)

	// over the limit: created, with a warning
	w = a.call(auth.RoleCollector, http.MethodPost, "/invoices", gin.H{
		"customer_id":  customer.ID,
		"invoice_date": today(),
		"total_amount": "1500",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env := testutil.DecodeEnvelope(t, w)
	require.Len(t, env.Warnings, 1)
	invoice := testutil.DecodeData[handler.InvoiceWithCreditResponse](t, w)
	assert.True(t, invoice.CreditCheck.Warning)
	assert.Equal(t, receivable.InvoiceStatusUnpaid, invoice.Status)
	assert.NotEmpty(t, invoice.DueDate)

	w = a.call(auth.RoleCollector, http.MethodPost, "/payments", gin.H{
		"customer_id":   customer.ID,
		"payment_date":  today(),
		"amount":        "600",
		"payment_mode":  "UPI",
		"auto_allocate": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := testutil.DecodeData[handler.PaymentCreatedResponse](t, w)
	require.NotNil(t, payment.Allocation)
	assert.True(t, payment.Allocation.TotalAllocated.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, receivable.PaymentStatusApplied, payment.Status)

	w = a.call(auth.RoleViewer, http.MethodGet, "/payments/"+payment.ID+"/allocations", nil)
	allocations := testutil.DecodeData[[]handler.AllocationResponse](t, w)
	require.Len(t, allocations, 1)
	assert.Equal(t, invoice.ID, allocations[0].InvoiceID)

	w = a.call(auth.RoleViewer, http.MethodGet, "/invoices/"+invoice.ID, nil)
	detail := testutil.DecodeData[handler.InvoiceDetailResponse](t, w)
	assert.Equal(t, receivable.InvoiceStatusPartial, detail.Status)
	assert.True(t, detail.BalanceAmount.Equal(decimal.NewFromInt(900)))
	assert.Len(t, detail.Allocations, 1)

	testutil.RequireEventually(t, func() bool {
		w := a.call(auth.RoleViewer, http.MethodGet, "/customers/"+customer.ID, nil)
		c := testutil.DecodeData[handler.CustomerResponse](t, w)
		return c.OutstandingAmount.Equal(decimal.NewFromInt(900))
	}, 2*time.Second, "customer outstanding follows the allocation")

	w = a.call(auth.RoleViewer, http.MethodGet, "/invoices?status=partial&customer_id="+customer.ID, nil)
	assert.Len(t, testutil.DecodeData[[]handler.InvoiceResponse](t, w), 1)

	w = a.call(auth.RoleViewer, http.MethodGet, "/reports/aging", nil)
	aging := testutil.DecodeData[receivable.AgingReport](t, w)
	require.Len(t, aging.Customers, 1)

	// deleting the payment hands the money back to the invoice
	w = a.call(auth.RoleCollector, http.MethodDelete, "/payments/"+payment.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = a.call(auth.RoleViewer, http.MethodGet, "/invoices/"+invoice.ID, nil)
	detail = testutil.DecodeData[handler.InvoiceDetailResponse](t, w)
	assert.Equal(t, receivable.InvoiceStatusUnpaid, detail.Status)
	assert.Empty(t, detail.Allocations)
}

func TestAPI_CallLogWithPromise(t *testing.T) {
	a := newAPI(t)

	w := a.call(auth.RoleCollector, http.MethodPost, "/customers", gin.H{"name": "Gupta Stores"})
	customer := testutil.DecodeData[handler.CustomerResponse](t, w)

	promised := time.Now().UTC().AddDate(0, 0, 3).Format(handler.DateLayout)
	w = a.call(auth.RoleCollector, http.MethodPost, "/call-logs", gin.H{
		"customer_id": customer.ID,
		"call_status": "CONNECTED",
		"notes":       "will pay friday",
		"promise":     gin.H{"amount": "250", "date": promised},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := testutil.DecodeData[handler.CallLogCreatedResponse](t, w)
	require.NotNil(t, created.Promise)
	assert.True(t, created.CallLog.PromiseMade)
	assert.Equal(t, "user-COLLECTOR", created.CallLog.CalledBy)
	assert.Equal(t, receivable.PromiseStatusPending, created.Promise.Status)

	w = a.call(auth.RoleViewer, http.MethodGet, "/customers/"+customer.ID+"/call-logs", nil)
	assert.Len(t, testutil.DecodeData[[]handler.CallLogResponse](t, w), 1)

	w = a.call(auth.RoleCollector, http.MethodPost, "/promises/"+created.Promise.ID+"/keep", nil)
	kept := testutil.DecodeData[handler.PromiseResponse](t, w)
	assert.Equal(t, receivable.PromiseStatusKept, kept.Status)

	// resolved promises are frozen
	w = a.call(auth.RoleCollector, http.MethodPut, "/promises/"+created.Promise.ID, gin.H{"promised_date": promised, "status": "BROKEN"})
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
}

func TestAPI_Settings(t *testing.T) {
	a := newAPI(t)

	w := a.call(auth.RoleViewer, http.MethodGet, "/settings", nil)
	s := testutil.DecodeData[handler.SettingsResponse](t, w)
	assert.Equal(t, 30, s.DefaultPaymentTerms)

	body := gin.H{
		"default_payment_terms":     15,
		"overdue_grace_days":        2,
		"watchlist_threshold_pct":   75,
		"high_risk_overdue_days":    45,
		"broken_promises_threshold": 3,
		"currency":                  "inr",
	}
	w = a.call(auth.RoleCollector, http.MethodPut, "/settings", body)
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, dto.ErrCodeForbidden)

	w = a.call(auth.RoleAdmin, http.MethodPut, "/settings", body)
	s = testutil.DecodeData[handler.SettingsResponse](t, w)
	assert.Equal(t, 15, s.DefaultPaymentTerms)
	assert.Equal(t, "INR", s.Currency)
}

func TestAPI_Errors(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		role   auth.Role
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing token", "", http.MethodGet, "/customers", nil, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"viewer cannot create", auth.RoleViewer, http.MethodPost, "/customers", gin.H{"name": "x"}, http.StatusForbidden, dto.ErrCodeForbidden},
		{"collector cannot write off", auth.RoleCollector, http.MethodPost, "/invoices/" + uuid.NewString() + "/write-off", gin.H{"reason": "x"}, http.StatusForbidden, dto.ErrCodeForbidden},
		{"unknown customer", auth.RoleViewer, http.MethodGet, "/customers/" + uuid.NewString(), nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"malformed id", auth.RoleViewer, http.MethodGet, "/payments/abc", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"missing fields", auth.RoleCollector, http.MethodPost, "/payments", gin.H{"amount": "10"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad payment mode", auth.RoleCollector, http.MethodPost, "/payments", gin.H{
			"customer_id": uuid.NewString(), "payment_date": today(), "amount": "10", "payment_mode": "BITCOIN",
		}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad status filter", auth.RoleViewer, http.MethodGet, "/invoices?status=LOST", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad date", auth.RoleViewer, http.MethodGet, "/reports/daily-list?date=15-04-2026", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"payment for unknown customer", auth.RoleCollector, http.MethodPost, "/payments", gin.H{
			"customer_id": uuid.NewString(), "payment_date": today(), "amount": "10", "payment_mode": "CASH",
		}, http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.call(tt.role, tt.method, tt.path, tt.body)
			testutil.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestAPI_ManualAllocationOverBalance(t *testing.T) {
	a := newAPI(t)

	w := a.call(auth.RoleCollector, http.MethodPost, "/customers", gin.H{"name": "Mehta & Sons"})
	customer := testutil.DecodeData[handler.CustomerResponse](t, w)
	w = a.call(auth.RoleCollector, http.MethodPost, "/invoices", gin.H{
		"customer_id": customer.ID, "invoice_date": today(), "total_amount": "100",
	})
	invoice := testutil.DecodeData[handler.InvoiceWithCreditResponse](t, w)
	w = a.call(auth.RoleCollector, http.MethodPost, "/payments", gin.H{
		"customer_id": customer.ID, "payment_date": today(), "amount": "500", "payment_mode": "CASH",
	})
	payment := testutil.DecodeData[handler.PaymentCreatedResponse](t, w)
	assert.Nil(t, payment.Allocation)

	w = a.call(auth.RoleCollector, http.MethodPost, "/payments/"+payment.ID+"/allocate", gin.H{
		"strategy": "MANUAL",
		"items":    []gin.H{{"invoice_id": invoice.ID, "amount": "150"}},
	})
	testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, dto.ErrCodeAllocation)

	w = a.call(auth.RoleCollector, http.MethodPost, "/payments/"+payment.ID+"/allocate", gin.H{
		"strategy": "MANUAL",
		"items":    []gin.H{{"invoice_id": invoice.ID, "amount": "100"}},
	})
	res := testutil.DecodeData[app.AllocationResult](t, w)
	assert.True(t, res.TotalAllocated.Equal(decimal.NewFromInt(100)))
	assert.True(t, res.Unallocated.Equal(decimal.NewFromInt(400)))
}
