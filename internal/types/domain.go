// Package types defines the domain records, error taxonomy, and shared
// primitives used across the mailroom service. Records are explicit typed
// structs validated at the store-adapter boundary; optional columns are
// nullable pointers, never implicit missing-key behavior.
package types

import "time"

// WorkKind identifies which family of work item a reference points at.
type WorkKind string

const (
	// WorkKindInvite is an organization-invite email work item.
	WorkKindInvite WorkKind = "invite"
	// WorkKindDigest is a daily activity digest work item.
	WorkKindDigest WorkKind = "digest"
)

// WorkRef is the minimal handle the delivery coordinator operates on.
// The full typed record is loaded by the kind-specific builder.
type WorkRef struct {
	Kind WorkKind
	ID   string
}

// WorkSnapshot is the eligibility view of a work item, re-read from the
// store immediately before processing. SentAt is the sole idempotency
// guard: once non-nil the item must never be sent again.
type WorkSnapshot struct {
	Status         InviteStatus
	SentAt         *time.Time
	RecipientEmail string
}

// Eligible reports whether the snapshot may proceed to rendering.
func (s WorkSnapshot) Eligible() bool {
	return s.Status == InviteStatusPending && s.SentAt == nil
}

// InviteStatus is the lifecycle state of an invite (and, by convention,
// of a digest batch). Only "pending" is actionable by this service.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// Invite is one organization-invite work item. It is created upstream,
// mutated exactly once by this service (SentAt set), and never deleted here.
type Invite struct {
	ID           string
	Status       InviteStatus
	Token        string
	OrgID        string
	InvitedBy    string
	InvitedEmail string
	ExpiresAt    *time.Time
	SentAt       *time.Time
}

// Snapshot projects the invite into its eligibility view.
func (i *Invite) Snapshot() WorkSnapshot {
	return WorkSnapshot{Status: i.Status, SentAt: i.SentAt, RecipientEmail: i.InvitedEmail}
}

// DigestBatch is one daily digest work item for a single user.
type DigestBatch struct {
	ID             string
	UserID         string
	UserName       string
	RecipientEmail string
	DigestDate     time.Time
	Status         InviteStatus
	SentAt         *time.Time
}

// Snapshot projects the batch into its eligibility view.
func (b *DigestBatch) Snapshot() WorkSnapshot {
	return WorkSnapshot{Status: b.Status, SentAt: b.SentAt, RecipientEmail: b.RecipientEmail}
}

// EventType categorizes a digest activity event.
type EventType string

const (
	EventChatMessageSent  EventType = "chat_message_sent"
	EventDocumentUploaded EventType = "document_uploaded"
)

// EventPayload is the typed payload attached to a digest event. Chat events
// carry the list of user IDs mentioned in the message.
type EventPayload struct {
	MentionedUserIDs []string `json:"mentioned_user_ids,omitempty"`
}

// DigestEvent is one activity record rolled into a digest email. Events are
// grouped by ProjectID then EventType; grouping preserves first-seen project
// order for deterministic output.
type DigestEvent struct {
	ID        string
	ProjectID string
	EventType EventType
	Payload   EventPayload
}

// Organization is the denormalized display record for an invite's org.
// Looked up lazily per item; absence falls back to a default display string.
type Organization struct {
	ID   string
	Name string
}

// Profile is the display record for the inviting user.
type Profile struct {
	ID       string
	FullName string
}

// Tag is a categorization label attached to an outbound provider send.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendInput is the provider-facing send request: pre-rendered bodies plus
// addressing and categorization tags.
type SendInput struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    []Tag
}
