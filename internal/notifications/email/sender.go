package email

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mailroom/internal/external"
	"mailroom/internal/types"
)

// Sender wraps an EmailProvider with the delivery policy: recipient
// overrides, a throttle before every attempt, bounded retry on rate
// limiting, and a dry-run short circuit.
//
// Retry policy: the provider is attempted at most MaxAttempts times. Before
// attempt n the sender sleeps Throttle*n (Throttle before the first), so the
// backoff grows with pressure from the provider. Only rate-limit errors are
// retried; every other provider error is terminal for the attempt loop.
type Sender struct {
	provider    external.EmailProvider
	recipients  *RecipientPolicy
	throttle    time.Duration
	maxAttempts int
	dryRun      bool
	logger      *slog.Logger
	sleepFn     func(context.Context, time.Duration) error
}

// SenderConfig holds the knobs for creating a Sender.
type SenderConfig struct {
	Provider    external.EmailProvider
	Recipients  *RecipientPolicy
	Throttle    time.Duration
	MaxAttempts int
	DryRun      bool
	Logger      *slog.Logger
}

// SenderOption is a functional option for configuring a Sender.
type SenderOption func(*Sender)

// WithSleepFunc overrides the sleep function used for throttling.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(context.Context, time.Duration) error) SenderOption {
	return func(s *Sender) {
		s.sleepFn = fn
	}
}

// NewSender creates a Sender.
func NewSender(cfg SenderConfig, opts ...SenderOption) *Sender {
	s := &Sender{
		provider:    cfg.Provider,
		recipients:  cfg.Recipients,
		throttle:    cfg.Throttle,
		maxAttempts: cfg.MaxAttempts,
		dryRun:      cfg.DryRun,
		logger:      cfg.Logger,
		sleepFn:     sleepWithContext,
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers one rendered email and returns the provider message ID.
//
// In dry-run mode the fully rendered message is logged, nothing is sent,
// and a synthetic message ID is returned as a success. Callers commit the
// sent marker exactly as they would for a real send, so dry-run exercises
// the complete pipeline without emailing anyone.
func (s *Sender) Send(ctx context.Context, input types.SendInput) (string, error) {
	actualTo := s.recipients.Resolve(input.To)
	if actualTo != input.To {
		s.logger.InfoContext(ctx, "recipient overridden",
			"original", input.To,
			"actual", actualTo,
		)
	}
	input.To = actualTo

	if s.dryRun {
		s.logger.InfoContext(ctx, "dry run: not sending email",
			"to", input.To,
			"subject", input.Subject,
			"html_bytes", len(input.HTML),
			"text_bytes", len(input.Text),
		)
		return "dry-run-" + uuid.NewString(), nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		// Throttle before every attempt, scaling with the attempt
		// number after a rate limit.
		if err := s.sleepFn(ctx, s.throttle*time.Duration(attempt)); err != nil {
			return "", err
		}

		msgID, err := s.provider.Send(ctx, input)
		if err == nil {
			s.logger.InfoContext(ctx, "email sent",
				"to", input.To,
				"subject", input.Subject,
				"message_id", msgID,
				"attempt", attempt,
			)
			return msgID, nil
		}

		lastErr = err
		if types.CodeOf(err) != types.ErrCodeUpstreamRateLimited {
			return "", err
		}
		s.logger.WarnContext(ctx, "rate limited by email provider",
			"to", input.To,
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
		)
	}
	return "", lastErr
}

// sleepWithContext sleeps for d or until ctx is done, whichever comes first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
