package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/collections/internal/infrastructure/scheduler"
	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/erp/collections/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobRunner is the part of the scheduler the job endpoints drive
type JobRunner interface {
	Submit(jobType scheduler.JobType, triggeredBy string) (scheduler.Job, error)
	SubmitAll(triggeredBy string) ([]scheduler.Job, error)
	Lookup(id uuid.UUID) (scheduler.Job, error)
	History(limit int) []scheduler.Job
}

// JobHistoryQuery limits the job history
type JobHistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// JobHandler lets admins trigger the nightly sweeps on demand
type JobHandler struct {
	BaseHandler
	jobs JobRunner
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobs JobRunner) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Trigger handles POST /jobs/:type
func (h *JobHandler) Trigger(c *gin.Context) {
	jobType, err := scheduler.ParseJobType(strings.ToUpper(c.Param("type")))
	if err != nil {
		h.jobError(c, err)
		return
	}

	job, err := h.jobs.Submit(jobType, triggeredBy(c))
	if err != nil {
		h.jobError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(job))
}

// TriggerAll handles POST /jobs: submits every sweep in nightly order
func (h *JobHandler) TriggerAll(c *gin.Context) {
	jobs, err := h.jobs.SubmitAll(triggeredBy(c))
	if err != nil {
		h.jobError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(jobs))
}

// GetByID handles GET /jobs/:id
func (h *JobHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	job, err := h.jobs.Lookup(id)
	if err != nil {
		h.jobError(c, err)
		return
	}
	h.Success(c, job)
}

// History handles GET /jobs
func (h *JobHandler) History(c *gin.Context) {
	var q JobHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = 50
	}
	h.Success(c, h.jobs.History(limit))
}

func (h *JobHandler) jobError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidJobType):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "unknown job type; expected one of REFRESH_INVOICE_STATUSES, DETECT_BROKEN_PROMISES, RECALCULATE_CUSTOMERS")
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.NotFound(c, "job not found")
	case errors.Is(err, scheduler.ErrSchedulerNotRunning), errors.Is(err, scheduler.ErrJobQueueFull):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, err.Error())
	default:
		h.HandleDomainError(c, err)
	}
}

func triggeredBy(c *gin.Context) string {
	if actor := middleware.GetActor(c); actor != "" {
		return "api:" + actor
	}
	return "api"
}
