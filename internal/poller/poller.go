// Package poller implements the background trigger path: a loop that scans
// the store for pending work items on a fixed interval and feeds each one
// to the delivery coordinator.
package poller

import (
	"context"
	"log/slog"
	"time"

	"mailroom/internal/notifications/core"
	"mailroom/internal/types"
)

// InviteLister lists invites awaiting an email.
type InviteLister interface {
	FetchPending(ctx context.Context, limit int) ([]types.Invite, error)
}

// DigestLister lists digest batches awaiting an email.
type DigestLister interface {
	FetchPending(ctx context.Context, limit int) ([]types.DigestBatch, error)
}

// Deliverer processes one work item end to end.
type Deliverer interface {
	Deliver(ctx context.Context, ref types.WorkRef) (core.Outcome, error)
}

// Poller runs the poll loop. Items within a cycle are processed
// sequentially; the provider throttle in the send path is the rate
// governor, so there is nothing to gain from parallelism here.
type Poller struct {
	invites   InviteLister
	digests   DigestLister
	deliverer Deliverer

	interval   time.Duration
	batchLimit int
	logger     *slog.Logger
}

// Config holds the dependencies and knobs for creating a Poller.
type Config struct {
	Invites    InviteLister
	Digests    DigestLister
	Deliverer  Deliverer
	Interval   time.Duration
	BatchLimit int
	Logger     *slog.Logger
}

// New creates a Poller.
func New(cfg Config) *Poller {
	return &Poller{
		invites:    cfg.Invites,
		digests:    cfg.Digests,
		deliverer:  cfg.Deliverer,
		interval:   cfg.Interval,
		batchLimit: cfg.BatchLimit,
		logger:     cfg.Logger,
	}
}

// Run executes poll cycles until ctx is cancelled, then returns ctx.Err().
// Cancellation is honored between items within a cycle and during the
// inter-cycle sleep; an in-flight item is always finished, never aborted.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		"interval", p.interval,
		"batch_limit", p.batchLimit,
	)

	var totalProcessed, totalFailed int
	for {
		start := time.Now()
		processed, failed := p.runCycle(ctx)
		totalProcessed += processed
		totalFailed += failed
		elapsed := time.Since(start)

		if err := ctx.Err(); err != nil {
			p.logger.Info("poller stopping",
				"total_processed", totalProcessed, "total_failed", totalFailed)
			return err
		}

		if elapsed >= p.interval {
			p.logger.Warn("poll cycle overran the interval; starting next cycle immediately",
				"elapsed", elapsed, "interval", p.interval)
			continue
		}

		timer := time.NewTimer(p.interval - elapsed)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopping",
				"total_processed", totalProcessed, "total_failed", totalFailed)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runCycle processes one batch of pending work from every source and
// reports how many items it touched and how many failed. A failing source
// or item is logged and counted; it never aborts the cycle.
func (p *Poller) runCycle(ctx context.Context) (int, int) {
	refs := p.collect(ctx)
	if len(refs) == 0 {
		p.logger.Debug("no pending work")
		return 0, 0
	}

	var sent, skipped, failed int
	for _, ref := range refs {
		if ctx.Err() != nil {
			p.logger.Info("shutdown requested; leaving remaining items for the next run",
				"remaining", len(refs)-(sent+skipped+failed))
			break
		}

		outcome, err := p.deliverer.Deliver(ctx, ref)
		switch {
		case err != nil:
			failed++
			p.logger.Error("item delivery failed",
				"kind", ref.Kind, "id", ref.ID,
				"error_code", types.CodeOf(err), "error", err)
		case outcome == core.OutcomeSent:
			sent++
		default:
			skipped++
		}
	}

	p.logger.Info("poll cycle complete",
		"pending", len(refs), "sent", sent, "skipped", skipped, "failed", failed)
	return sent + skipped + failed, failed
}

// collect gathers pending refs from both sources, invites first.
func (p *Poller) collect(ctx context.Context) []types.WorkRef {
	var refs []types.WorkRef

	invites, err := p.invites.FetchPending(ctx, p.batchLimit)
	if err != nil {
		p.logger.Error("failed to fetch pending invites", "error", err)
	}
	for _, inv := range invites {
		refs = append(refs, types.WorkRef{Kind: types.WorkKindInvite, ID: inv.ID})
	}

	digests, err := p.digests.FetchPending(ctx, p.batchLimit)
	if err != nil {
		p.logger.Error("failed to fetch pending digests", "error", err)
	}
	for _, d := range digests {
		refs = append(refs, types.WorkRef{Kind: types.WorkKindDigest, ID: d.ID})
	}

	return refs
}
