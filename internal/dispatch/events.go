// Package dispatch plans and executes specialist fan-out: strategy
// selection, batch execution, result merging, and session archival.
package dispatch

import (
	"time"

	"github.com/mkarlsen/switchboard/pkg/models"
)

// EventType represents the type of dispatch event.
type EventType string

const (
	// EventSessionStarted indicates a coordination session has started.
	EventSessionStarted EventType = "session_started"
	// EventSpecialistStarted indicates a specialist invocation has started.
	EventSpecialistStarted EventType = "specialist_started"
	// EventSpecialistCompleted indicates a specialist returned findings.
	EventSpecialistCompleted EventType = "specialist_completed"
	// EventSpecialistFailed indicates a specialist returned an error.
	EventSpecialistFailed EventType = "specialist_failed"
	// EventSpecialistTimedOut indicates a specialist exceeded its timeout.
	EventSpecialistTimedOut EventType = "specialist_timed_out"
	// EventBatchCompleted indicates a parallel batch fully joined.
	EventBatchCompleted EventType = "batch_completed"
	// EventSynthesisStarted indicates the meta specialist took over.
	EventSynthesisStarted EventType = "synthesis_started"
	// EventSessionCompleted indicates the session finished and was archived.
	EventSessionCompleted EventType = "session_completed"
	// EventSessionCancelled indicates the session was cancelled mid-flight.
	EventSessionCancelled EventType = "session_cancelled"
)

// Event represents an event emitted during dispatch execution. Subscribers
// use these to track session progress.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// CorrelationID is the owning session.
	CorrelationID string
	// SpecialistID is the related specialist, if applicable.
	SpecialistID models.SpecialistID
	// Batch is the zero-based batch index, if applicable.
	Batch int
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
