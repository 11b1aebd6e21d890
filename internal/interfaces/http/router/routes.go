package router

import (
	"github.com/erp/collections/internal/infrastructure/auth"
	"github.com/erp/collections/internal/interfaces/http/handler"
	"github.com/erp/collections/internal/interfaces/http/middleware"
)

// Handlers bundles the API handlers. Jobs may be nil when the scheduler is
// disabled; its routes are then not registered.
type Handlers struct {
	Customers *handler.CustomerHandler
	Invoices  *handler.InvoiceHandler
	Payments  *handler.PaymentHandler
	Promises  *handler.PromiseHandler
	CallLogs  *handler.CallLogHandler
	Settings  *handler.SettingsHandler
	Reports   *handler.ReportHandler
	Jobs      *handler.JobHandler
	System    *handler.SystemHandler
}

// Groups builds the collections API route groups. Reads need VIEWER,
// ledger mutations COLLECTOR, and destructive or global changes ADMIN.
func Groups(h Handlers) []*DomainGroup {
	viewer := middleware.RequireRole(auth.RoleViewer)
	collector := middleware.RequireRole(auth.RoleCollector)
	admin := middleware.RequireRole(auth.RoleAdmin)

	customers := NewDomainGroup("customers", "/customers").
		GET("", viewer, h.Customers.List).
		POST("", collector, h.Customers.Create).
		GET("/:id", viewer, h.Customers.GetByID).
		PUT("/:id", collector, h.Customers.Update).
		DELETE("/:id", admin, h.Customers.Deactivate).
		POST("/:id/refresh", collector, h.Customers.Refresh).
		POST("/:id/risk", collector, h.Customers.ClassifyRisk).
		GET("/:id/call-logs", viewer, h.CallLogs.ListByCustomer)

	invoices := NewDomainGroup("invoices", "/invoices").
		GET("", viewer, h.Invoices.List).
		POST("", collector, h.Invoices.Create).
		GET("/:id", viewer, h.Invoices.GetByID).
		PUT("/:id", collector, h.Invoices.Update).
		DELETE("/:id", collector, h.Invoices.Delete).
		POST("/:id/write-off", admin, h.Invoices.WriteOff).
		POST("/:id/undo-write-off", admin, h.Invoices.UndoWriteOff)

	payments := NewDomainGroup("payments", "/payments").
		GET("", viewer, h.Payments.List).
		POST("", collector, h.Payments.Create).
		GET("/:id", viewer, h.Payments.GetByID).
		PUT("/:id", collector, h.Payments.Update).
		DELETE("/:id", collector, h.Payments.Delete).
		POST("/:id/allocate", collector, h.Payments.Allocate).
		GET("/:id/allocations", viewer, h.Payments.ListAllocations)

	promises := NewDomainGroup("promises", "/promises").
		GET("", viewer, h.Promises.List).
		POST("", collector, h.Promises.Create).
		GET("/:id", viewer, h.Promises.GetByID).
		PUT("/:id", collector, h.Promises.Update).
		DELETE("/:id", collector, h.Promises.Delete).
		POST("/:id/keep", collector, h.Promises.MarkKept)

	callLogs := NewDomainGroup("call-logs", "/call-logs").
		POST("", collector, h.CallLogs.Create)

	settings := NewDomainGroup("settings", "/settings").
		GET("", viewer, h.Settings.Get).
		PUT("", admin, h.Settings.Update)

	reports := NewDomainGroup("reports", "/reports").Use(viewer).
		GET("/aging", h.Reports.Aging).
		GET("/outstanding", h.Reports.Outstanding).
		GET("/credit-utilization", h.Reports.CreditUtilization).
		GET("/promise-performance", h.Reports.PromisePerformance).
		GET("/daily-list", h.Reports.DailyList)

	groups := []*DomainGroup{customers, invoices, payments, promises, callLogs, settings, reports}

	if h.Jobs != nil {
		jobs := NewDomainGroup("jobs", "/jobs").Use(admin).
			GET("", h.Jobs.History).
			POST("", h.Jobs.TriggerAll).
			GET("/:id", h.Jobs.GetByID).
			POST("/:type", h.Jobs.Trigger)
		groups = append(groups, jobs)
	}
	if h.System != nil {
		groups = append(groups, NewDomainGroup("system", "/system").
			GET("/info", viewer, h.System.GetSystemInfo))
	}
	return groups
}

// RegisterAPI registers every group on r
func RegisterAPI(r *Router, h Handlers) {
	for _, g := range Groups(h) {
		r.Register(g)
	}
}
