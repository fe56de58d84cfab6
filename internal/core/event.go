package core

import (
	"time"

	"github.com/rs/xid"
)

// Event is the audit record of a single gate decision. It is written
// after the decision is rendered, whatever the outcome. Events carry no
// token material beyond the key ID; the audit sink must never become a
// credential store.
type Event struct {
	// ID is unique per evaluation.
	ID string `json:"id"`

	// Time is the timestamp of the decision.
	Time time.Time `json:"time"`

	// CorrelationID ties the event to the request that caused it
	// (X-Correlation-ID on the dev harness, the AWS request ID on
	// Lambda).
	CorrelationID string `json:"correlation_id,omitempty"`

	// Effect is "Allow" or "Deny".
	Effect string `json:"effect"`

	// FailureKind is empty for allowed requests.
	FailureKind Kind `json:"failure_kind,omitempty"`

	// Principal the decision was rendered for.
	Principal string `json:"principal,omitempty"`

	// Resource is the method ARN the caller asked for.
	Resource string `json:"resource,omitempty"`

	// KeyID is the key the token named, when one could be read.
	KeyID string `json:"key_id,omitempty"`

	// Error holds the sanitized failure detail.
	Error string `json:"error,omitempty"`
}

// NewEvent stamps a fresh event with an ID and the current time.
func NewEvent() Event {
	return Event{
		ID:   xid.New().String(),
		Time: time.Now().UTC(),
	}
}
