// Package audit is the side channel for workflow audit events. Recording is
// informational; it never influences the outcome of an operation.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Outcome of an audited operation.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one audited workflow operation.
type Event struct {
	ID      string `json:"id"`
	DocID   string `json:"doc_id"`
	Action  string `json:"action"`
	ActorID string `json:"actor_id"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	At      string `json:"ts"`
}

// Recorder receives audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// NewEvent fills in id and timestamp for an event.
func NewEvent(docID, action, actorID, outcome, reason string) Event {
	return Event{
		ID:      uuid.NewString(),
		DocID:   docID,
		Action:  action,
		ActorID: actorID,
		Outcome: outcome,
		Reason:  reason,
		At:      time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// logRecorder writes one JSON object per event to the process log.
type logRecorder struct{}

// NewLogRecorder returns a recorder that emits JSON-line audit events.
func NewLogRecorder() Recorder {
	return logRecorder{}
}

func (logRecorder) Record(_ context.Context, ev Event) {
	b, err := json.Marshal(map[string]any{
		"level":    "info",
		"msg":      "audit_event",
		"event_id": ev.ID,
		"doc_id":   ev.DocID,
		"action":   ev.Action,
		"actor_id": ev.ActorID,
		"outcome":  ev.Outcome,
		"reason":   ev.Reason,
		"ts":       ev.At,
	})
	if err != nil {
		log.Printf("failed to marshal audit event: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}

// nopRecorder discards events. Useful in tests.
type nopRecorder struct{}

// NewNopRecorder returns a recorder that drops every event.
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) Record(context.Context, Event) {}
