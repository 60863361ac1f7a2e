package email

import "log/slog"

// RecipientPolicy decides where an email actually goes. Resolution order:
//
//  1. ForceTo set: always that address, even over test mode.
//  2. TestMode on: the configured test recipient.
//  3. Otherwise: the item's real recipient.
//
// The work item's own recipient is never mutated; the override applies only
// to the outbound send.
type RecipientPolicy struct {
	ForceTo       string
	TestMode      bool
	TestRecipient string

	logger *slog.Logger
}

// NewRecipientPolicy creates a RecipientPolicy.
func NewRecipientPolicy(forceTo string, testMode bool, testRecipient string, logger *slog.Logger) *RecipientPolicy {
	return &RecipientPolicy{
		ForceTo:       forceTo,
		TestMode:      testMode,
		TestRecipient: testRecipient,
		logger:        logger,
	}
}

// Resolve returns the address the email should be sent to.
func (p *RecipientPolicy) Resolve(real string) string {
	if p.ForceTo != "" {
		return p.ForceTo
	}
	if p.TestMode {
		if p.TestRecipient != "" {
			return p.TestRecipient
		}
		p.logger.Warn("test mode enabled but no test recipient configured; sending to real address",
			"recipient", real)
	}
	return real
}
