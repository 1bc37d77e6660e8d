package models

import "time"

// SessionStatus represents the lifecycle state of a coordination session.
type SessionStatus string

const (
	// SessionActive indicates the session is still dispatching specialists.
	SessionActive SessionStatus = "active"
	// SessionCompleted indicates the session finished and was archived.
	SessionCompleted SessionStatus = "completed"
	// SessionCancelled indicates the session was cancelled before finishing.
	SessionCancelled SessionStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

// InvocationStatus represents the state of one specialist invocation.
type InvocationStatus string

const (
	// InvocationPending indicates the invocation has not started.
	InvocationPending InvocationStatus = "pending"
	// InvocationRunning indicates the specialist is currently working.
	InvocationRunning InvocationStatus = "running"
	// InvocationDone indicates the specialist returned findings.
	InvocationDone InvocationStatus = "done"
	// InvocationFailed indicates the specialist returned an error.
	InvocationFailed InvocationStatus = "failed"
	// InvocationTimedOut indicates the specialist exceeded its timeout.
	InvocationTimedOut InvocationStatus = "timed_out"
	// InvocationCancelled indicates the owning session was cancelled.
	InvocationCancelled InvocationStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s InvocationStatus) Valid() bool {
	switch s {
	case InvocationPending, InvocationRunning, InvocationDone,
		InvocationFailed, InvocationTimedOut, InvocationCancelled:
		return true
	default:
		return false
	}
}

// Invocation records one specialist call within a session.
type Invocation struct {
	// SpecialistID is the specialist that was invoked.
	SpecialistID SpecialistID `json:"specialist_id"`
	// Batch is the zero-based batch index this invocation belonged to.
	Batch int `json:"batch"`
	// Status is the final state of the invocation.
	Status InvocationStatus `json:"status"`
	// StartedAt is when the invocation began.
	StartedAt time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the invocation finished, if it did.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Error holds the failure reason for failed or timed-out invocations.
	Error string `json:"error,omitempty"`
}

// SessionEvent is one append-only entry in a session's event log.
type SessionEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// Type names the kind of event (session_started, batch_completed, ...).
	Type string `json:"type"`
	// SpecialistID is the related specialist, if any.
	SpecialistID SpecialistID `json:"specialist_id,omitempty"`
	// Message provides additional context.
	Message string `json:"message,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// CorrelationSession tracks one multi-step coordination session. The event
// log is append-only; the session is archived to history on completion.
type CorrelationSession struct {
	// ID is the unique correlation identifier.
	ID string `json:"id"`
	// Requester identifies who submitted the problem.
	Requester string `json:"requester"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// Status is the lifecycle state.
	Status SessionStatus `json:"status"`
	// Invocations is the ordered list of specialist invocations.
	Invocations []Invocation `json:"invocations"`
	// Events is the append-only event log.
	Events []SessionEvent `json:"events"`
}

// SessionRef is a read-only reference to an archived session, carried in the
// historical context layer.
type SessionRef struct {
	// CorrelationID is the archived session's identifier.
	CorrelationID string `json:"correlation_id"`
	// Requester identifies who submitted the archived problem.
	Requester string `json:"requester"`
	// Status is the final status of the archived session.
	Status SessionStatus `json:"status"`
	// CompletedAt is when the archived session finished.
	CompletedAt time.Time `json:"completed_at"`
}
