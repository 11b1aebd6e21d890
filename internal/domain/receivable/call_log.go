package receivable

import (
	"time"

	"github.com/erp/collections/internal/domain/shared"
	"github.com/google/uuid"
)

// CallStatus is the outcome of a collection call
type CallStatus string

const (
	CallStatusConnected     CallStatus = "CONNECTED"
	CallStatusNotReachable  CallStatus = "NOT_REACHABLE"
	CallStatusCallBackLater CallStatus = "CALL_BACK_LATER"
	CallStatusLeftMessage   CallStatus = "LEFT_MESSAGE"
	CallStatusWrongNumber   CallStatus = "WRONG_NUMBER"
)

// IsValid checks if the status is a valid CallStatus
func (s CallStatus) IsValid() bool {
	switch s {
	case CallStatusConnected, CallStatusNotReachable, CallStatusCallBackLater,
		CallStatusLeftMessage, CallStatusWrongNumber:
		return true
	}
	return false
}

// CallLog records one collection interaction with a customer
type CallLog struct {
	shared.BaseEntity
	CustomerID  uuid.UUID
	CallDate    time.Time
	Status      CallStatus
	Notes       string
	CalledBy    string
	PromiseMade bool
	PromiseID   *uuid.UUID
}

// AttachPromise links the promise made during this call
func (l *CallLog) AttachPromise(promiseID uuid.UUID) {
	l.PromiseMade = true
	l.PromiseID = &promiseID
}

// NewCallLog creates a call log entry
func NewCallLog(customerID uuid.UUID, callDate time.Time, status CallStatus, notes, calledBy string) (*CallLog, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("customer is required")
	}
	if !status.IsValid() {
		return nil, shared.NewValidationError("invalid call status %q", status)
	}
	if callDate.IsZero() {
		callDate = time.Now()
	}
	return &CallLog{
		BaseEntity: shared.NewBaseEntity(),
		CustomerID: customerID,
		CallDate:   callDate,
		Status:     status,
		Notes:      notes,
		CalledBy:   calledBy,
	}, nil
}
