// Package config defines the global configuration structure for the mailroom
// service. Configuration is loaded once at process start and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating
// code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"mailroom/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the mailroom service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"mailroom"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Email    EmailConfig
	Webhook  WebhookConfig
	Poller   PollerConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Public base URL of the web app, used to build invite accept links
	// (no trailing slash), e.g. https://app.capmatch.com
	AppBaseURL string `envconfig:"APP_BASE_URL" validate:"required,url"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// EmailConfig holds email delivery provider credentials and delivery policy.
type EmailConfig struct {
	// ResendAPIKey may be empty in local mode, in which case a stub
	// provider is used and nothing leaves the process.
	ResendAPIKey SecretString `envconfig:"RESEND_API_KEY"`
	FromAddress  string       `envconfig:"EMAIL_FROM" default:"CapMatch <noreply@capmatch.com>"`

	// DryRun renders and logs emails without calling the provider.
	// It defaults to on so that a fresh deployment cannot accidentally
	// email real users.
	DryRun bool `envconfig:"EMAIL_DRY_RUN" default:"true"`

	// TestMode reroutes all mail to TestRecipient.
	TestMode      bool   `envconfig:"RESEND_TEST_MODE" default:"false"`
	TestRecipient string `envconfig:"RESEND_TEST_RECIPIENT" default:"delivered@resend.dev"`
	// ForceToEmail overrides every recipient unconditionally, taking
	// precedence over TestMode. Empty disables the override.
	ForceToEmail string `envconfig:"RESEND_FORCE_TO_EMAIL"`

	// Throttle is the minimum delay before every provider attempt.
	Throttle    time.Duration `envconfig:"EMAIL_THROTTLE" default:"500ms"`
	MaxAttempts int           `envconfig:"EMAIL_MAX_ATTEMPTS" default:"3" validate:"min=1"`

	// Template file locations, tried in order.
	InviteTemplatePaths []string `envconfig:"INVITE_TEMPLATE_PATHS" default:"templates/invite-template.html,invite-template.html"`
	DigestTemplatePaths []string `envconfig:"DIGEST_TEMPLATE_PATHS" default:"templates/digest-template.html,digest-template.html"`
}

// WebhookConfig holds settings for inbound trigger webhook verification.
type WebhookConfig struct {
	// SigningSecret is the shared HMAC secret. Empty means the webhook
	// endpoint is disabled and returns a misconfiguration error.
	SigningSecret SecretString `envconfig:"INVITE_WEBHOOK_SECRET"`
	// Tolerance is the maximum accepted age (or clock skew) of a signed
	// request timestamp.
	Tolerance   time.Duration `envconfig:"WEBHOOK_TOLERANCE" default:"300s"`
	MaxBodySize int64         `envconfig:"WEBHOOK_MAX_BODY_SIZE" default:"65536"`
}

// PollerConfig holds the background poll loop settings.
type PollerConfig struct {
	Interval   time.Duration `envconfig:"POLL_INTERVAL" default:"60s" validate:"min=1s"`
	BatchLimit int           `envconfig:"POLL_BATCH_LIMIT" default:"50" validate:"min=1"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
