package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"mailroom/internal/types"
)

// Coordinator drives delivery of a single work item end to end: reload,
// eligibility check, render, send, commit. Both trigger paths share one
// Coordinator instance so the per-item lock actually serializes them.
//
// The commit deliberately happens AFTER the send. Committing first could
// permanently suppress an email that was never delivered; sending first
// bounds the failure mode to a possible duplicate behind an operator-visible
// anomaly log, which is the right trade-off for notification email.
type Coordinator struct {
	store    WorkItemStore
	builders map[types.WorkKind]Builder
	sender   Sender
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*itemLock
}

type itemLock struct {
	mu   sync.Mutex
	refs int
}

// NewCoordinator creates a Coordinator. builders maps each work kind to the
// component that renders it.
func NewCoordinator(store WorkItemStore, builders map[types.WorkKind]Builder, sender Sender, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		builders: builders,
		sender:   sender,
		logger:   logger,
		locks:    make(map[string]*itemLock),
	}
}

// Deliver processes one work item. It is safe to call concurrently for the
// same item from both trigger paths: calls for one item are serialized, and
// the eligibility re-read inside the lock ensures the loser of the race
// observes the winner's sent marker and reports OutcomeAlreadySent.
//
// On error the item is left untouched in the store, eligible for a future
// cycle. The single exception is the commit anomaly: when the send has
// already gone out and only the marker update failed, Deliver still reports
// OutcomeSent and logs the anomaly distinctly. Re-sending at that point
// would guarantee a duplicate email.
func (c *Coordinator) Deliver(ctx context.Context, ref types.WorkRef) (Outcome, error) {
	unlock := c.lockItem(ref)
	defer unlock()

	snap, err := c.store.Reload(ctx, ref)
	if err != nil {
		return "", err
	}

	if snap.SentAt != nil {
		c.logger.InfoContext(ctx, "item already sent; skipping",
			"kind", ref.Kind, "id", ref.ID, "sent_at", snap.SentAt)
		return OutcomeAlreadySent, nil
	}
	if !snap.Eligible() {
		c.logger.InfoContext(ctx, "item not pending; skipping",
			"kind", ref.Kind, "id", ref.ID, "status", snap.Status)
		return OutcomeNotPending, nil
	}

	builder, ok := c.builders[ref.Kind]
	if !ok {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("no builder registered for work kind %q", ref.Kind),
			nil,
		)
	}

	input, err := builder.Build(ctx, ref.ID)
	if errors.Is(err, ErrNoContent) {
		c.logger.InfoContext(ctx, "item has no content; skipping without a send",
			"kind", ref.Kind, "id", ref.ID)
		return OutcomeNotPending, nil
	}
	if err != nil {
		return "", err
	}
	if input.HTML == "" || input.Text == "" {
		return "", types.NewAppError(
			types.ErrCodeTemplateUnavailable,
			"rendered email has an empty body",
			nil,
		)
	}

	msgID, err := c.sender.Send(ctx, input)
	if err != nil {
		return "", err
	}

	flipped, err := c.store.MarkSent(ctx, ref)
	switch {
	case err != nil:
		// The email is irrevocably out. Reporting failure here would
		// invite a retry and a guaranteed duplicate.
		c.logger.ErrorContext(ctx, "commit anomaly: email sent but item not marked",
			"error_code", types.ErrCodeCommitAnomaly,
			"kind", ref.Kind, "id", ref.ID,
			"message_id", msgID,
			"error", err,
		)
	case !flipped:
		// Someone else set the marker between our send and our commit.
		// The customer may have received two emails; same anomaly class.
		c.logger.ErrorContext(ctx, "commit anomaly: sent marker was already set by another writer",
			"error_code", types.ErrCodeCommitAnomaly,
			"kind", ref.Kind, "id", ref.ID,
			"message_id", msgID,
		)
	default:
		c.logger.InfoContext(ctx, "item delivered",
			"kind", ref.Kind, "id", ref.ID, "message_id", msgID)
	}

	return OutcomeSent, nil
}

// lockItem acquires the per-item lock, creating it on first use and
// releasing the map entry once no caller holds or awaits it.
func (c *Coordinator) lockItem(ref types.WorkRef) func() {
	key := string(ref.Kind) + ":" + ref.ID

	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &itemLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
