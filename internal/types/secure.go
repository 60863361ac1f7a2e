package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential (API key, shared secret, connection URL)
// and refuses to reveal it through fmt, JSON, or slog output. Call Unmask
// only at the point the raw value is genuinely required, such as building an
// Authorization header or opening a database pool.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string { return redactedPlaceholder }

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// LogValue keeps secrets out of structured log records.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// IsSet reports whether a value has been configured at all, without
// exposing it.
func (s SecretString) IsSet() bool { return s != "" }

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string { return string(s) }
