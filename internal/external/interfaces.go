package external

import (
	"context"

	"mailroom/internal/types"
)

// EmailProvider is the outbound email gateway. Send transmits one fully
// rendered message and returns the provider's message ID.
//
// Implementations must classify failures via types.AppError codes so the
// delivery layer can decide retry behavior:
//   - ErrCodeUpstreamRateLimited: retryable, provider asked us to slow down
//   - ErrCodeUpstreamUnavailable: provider outage or transport failure
//   - ErrCodeUpstreamEmailProvider: request rejected, not retryable
//
// An empty message ID from a nominally successful call is a failure;
// implementations return an error instead.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}
