package external

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"mailroom/internal/types"
)

// StubEmailProvider implements EmailProvider by logging the send and
// returning a synthetic message ID. Used when APP_ENV=local or no provider
// API key is configured, so the service can boot without credentials and
// nothing ever leaves the process.
type StubEmailProvider struct {
	logger *slog.Logger
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	msgID := "stub-" + uuid.NewString()
	s.logger.InfoContext(ctx, "stub: email send",
		"to", input.To,
		"subject", input.Subject,
		"message_id", msgID,
	)
	return msgID, nil
}

var _ EmailProvider = (*StubEmailProvider)(nil)
