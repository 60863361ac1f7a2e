package webhook

// Header names for the signed trigger request.
const (
	HeaderTimestamp = "X-Mailroom-Timestamp"
	HeaderSignature = "X-Mailroom-Signature"
)

// TriggerPayload is the JSON body of a signed trigger request. It names
// exactly one invite; the coordinator re-reads the authoritative record, so
// nothing else in the payload is trusted for delivery decisions.
type TriggerPayload struct {
	InviteID string `json:"invite_id" validate:"required"`
}

// DeliveryStatus is the status tag reported back to the webhook caller.
type DeliveryStatus string

const (
	// StatusSent: this request caused the email to go out.
	StatusSent DeliveryStatus = "sent"
	// StatusAlreadySent: the item was sent earlier; no email went out now.
	StatusAlreadySent DeliveryStatus = "already_sent"
	// StatusNotPending: the item exists but is not in a sendable state.
	StatusNotPending DeliveryStatus = "not_pending"
)

// TriggerResponse is the success body returned to the webhook caller.
type TriggerResponse struct {
	InviteID string         `json:"invite_id"`
	Status   DeliveryStatus `json:"status"`
}
