package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"mailroom/internal/types"
)

// resendAPIBase is the default Resend API base URL.
// Overridable in tests via ResendClientConfig.BaseURL.
const resendAPIBase = "https://api.resend.com"

// ResendClientConfig holds the configuration for creating a ResendClient.
type ResendClientConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing; defaults to resendAPIBase
	Logger  *slog.Logger
}

// ResendClient implements EmailProvider by making direct HTTP calls to the
// Resend Emails API through BaseClient. Direct HTTP keeps the status-code
// classification (429 vs terminal rejection) in our hands, which the
// delivery retry policy depends on, and makes testing with httptest
// straightforward.
type ResendClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewResendClient creates a new ResendClient.
func NewResendClient(httpClient *http.Client, cfg ResendClientConfig) *ResendClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = resendAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ResendClient{
		base:    NewBaseClient(httpClient, "resend", "Mailroom/1.0"),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// resendSendPayload is the Resend POST /emails JSON request body.
type resendSendPayload struct {
	From    string      `json:"from"`
	To      []string    `json:"to"`
	Subject string      `json:"subject"`
	HTML    string      `json:"html,omitempty"`
	Text    string      `json:"text,omitempty"`
	Tags    []types.Tag `json:"tags,omitempty"`
}

// resendSendResponse is the success body of POST /emails.
type resendSendResponse struct {
	ID string `json:"id"`
}

// resendErrorResponse is the JSON error body returned by Resend.
type resendErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send transmits an email via POST /emails and returns the provider message
// ID on success.
//
// Error mapping:
//   - 429 Too Many Requests -> types.ErrCodeUpstreamRateLimited (retryable)
//   - 5xx -> types.ErrCodeUpstreamUnavailable
//   - Other non-2xx -> types.ErrCodeUpstreamEmailProvider (terminal)
//   - 2xx with empty id -> types.ErrCodeUpstreamEmailProvider
func (c *ResendClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	payload := resendSendPayload{
		From:    input.From,
		To:      []string{input.To},
		Subject: input.Subject,
		HTML:    input.HTML,
		Text:    input.Text,
		Tags:    input.Tags,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to marshal Resend send payload",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create Resend send request",
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.classifyError(resp)
	}

	var result resendSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			"failed to decode Resend send response",
			err,
		)
	}
	if result.ID == "" {
		// A send without a message ID cannot be confirmed; treat it as
		// a failure rather than committing the sent marker on faith.
		return "", types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			"Resend returned success without a message id",
			nil,
		)
	}

	c.logger.DebugContext(ctx, "resend send complete", "message_id", result.ID)
	return result.ID, nil
}

// classifyError maps a non-2xx Resend response to a domain error. The body
// is read for diagnostics but the status code drives classification.
func (c *ResendClient) classifyError(resp *http.Response) error {
	detail := readResendError(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"Resend rate limit exceeded",
			fmt.Errorf("status %d: %s", resp.StatusCode, detail),
		)
	case resp.StatusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"Resend service unavailable",
			fmt.Errorf("status %d: %s", resp.StatusCode, detail),
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			"Resend rejected the send request",
			fmt.Errorf("status %d: %s", resp.StatusCode, detail),
		)
	}
}

// readResendError extracts a human-readable message from an error body.
func readResendError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no error detail"
	}
	var parsed resendErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Message != "" {
		if parsed.Name != "" {
			return parsed.Name + ": " + parsed.Message
		}
		return parsed.Message
	}
	return string(raw)
}

var _ EmailProvider = (*ResendClient)(nil)
