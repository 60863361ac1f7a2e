// Package core provides the delivery coordination shared by both trigger
// paths (poll loop and signed webhook). It owns the idempotency contract:
// at most one send enqueue per work item, guarded by the sent marker and a
// per-item lock within the process.
package core

import (
	"context"
	"errors"

	"mailroom/internal/types"
)

// ErrNoContent is returned by a Builder when the work item has nothing to
// say (an empty digest batch). The Coordinator treats it as a successful
// no-op: no email goes out and the item is not committed.
var ErrNoContent = errors.New("work item has no content")

// Outcome is the result of offering a work item to the Coordinator.
type Outcome string

const (
	// OutcomeSent: this call caused the email to go out (or dry-run
	// equivalent) and the item is (or was attempted to be) marked sent.
	OutcomeSent Outcome = "sent"

	// OutcomeAlreadySent: the sent marker was already set; no send
	// occurred on this call.
	OutcomeAlreadySent Outcome = "already_sent"

	// OutcomeNotPending: the item exists but its status is not pending;
	// no send occurred.
	OutcomeNotPending Outcome = "not_pending"
)

// WorkItemStore is the narrow persistence interface the Coordinator needs.
// Reload re-reads the authoritative eligibility view immediately before
// processing; MarkSent flips the sent marker at most once, reporting
// whether this call performed the flip.
type WorkItemStore interface {
	Reload(ctx context.Context, ref types.WorkRef) (types.WorkSnapshot, error)
	MarkSent(ctx context.Context, ref types.WorkRef) (bool, error)
}

// Builder assembles the fully rendered send input for one work item of a
// single kind.
type Builder interface {
	Build(ctx context.Context, id string) (types.SendInput, error)
}

// Sender delivers one rendered email, applying the provider-side throttle
// and retry policy, and returns the provider message ID.
type Sender interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}
