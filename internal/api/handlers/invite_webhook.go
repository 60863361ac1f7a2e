// Package handlers contains the HTTP handler implementations for the mailroom
// service.
//
// The webhook endpoints are NOT behind auth middleware; they are called
// directly by the application backend when an invite is created. Security is
// provided by verifying the HMAC-SHA256 signature headers.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mailroom/internal/core"
	notifcore "mailroom/internal/notifications/core"
	"mailroom/internal/notifications/webhook"
	"mailroom/internal/types"
)

// WorkDeliverer executes a notification delivery end to end. Implemented by
// the notifications coordinator.
type WorkDeliverer interface {
	Deliver(ctx context.Context, ref types.WorkRef) (notifcore.Outcome, error)
}

// InviteWebhookHandler handles signed invite-delivery triggers from the
// application backend. A trigger asks the service to deliver the invite email
// immediately instead of waiting for the next poll cycle.
type InviteWebhookHandler struct {
	verifier    *webhook.Verifier
	deliverer   WorkDeliverer
	maxBodySize int64
	logger      *slog.Logger
}

// NewInviteWebhookHandler creates a new InviteWebhookHandler with the provided
// dependencies.
func NewInviteWebhookHandler(
	verifier *webhook.Verifier,
	deliverer WorkDeliverer,
	maxBodySize int64,
	logger *slog.Logger,
) *InviteWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteWebhookHandler{
		verifier:    verifier,
		deliverer:   deliverer,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// RegisterRoutes mounts the invite webhook endpoint. The route group is
// mounted under /webhooks by the server.
func (h *InviteWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/invite", h.Handle)
}

// Handle processes an invite delivery trigger.
//
//  1. Reads the raw body with a size limit.
//  2. Verifies the timestamp and signature headers against the raw body.
//     Verification happens before any JSON parsing so unauthenticated callers
//     cannot probe the decoder.
//  3. Decodes the payload and delivers the invite through the coordinator.
//  4. Maps the delivery outcome to the response status vocabulary.
func (h *InviteWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidJSON,
				"request body too large",
				err,
			))
			return
		}
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"failed to read request body",
			err,
		))
		return
	}

	if err := h.verifier.Verify(
		r.Header.Get(webhook.HeaderTimestamp),
		r.Header.Get(webhook.HeaderSignature),
		body,
	); err != nil {
		h.logger.WarnContext(r.Context(), "webhook verification failed",
			"error_code", string(types.CodeOf(err)),
			"remote_addr", r.RemoteAddr,
		)
		core.Error(w, r, err)
		return
	}

	var payload webhook.TriggerPayload
	if err := core.DecodeJSON(body, &payload); err != nil {
		core.Error(w, r, err)
		return
	}
	if payload.InviteID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"invite_id is required",
			nil,
		))
		return
	}

	outcome, err := h.deliverer.Deliver(r.Context(), types.WorkRef{
		Kind: types.WorkKindInvite,
		ID:   payload.InviteID,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "invite delivery failed",
			"invite_id", payload.InviteID,
			"error_code", string(types.CodeOf(err)),
			"error", err,
		)
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: webhook.TriggerResponse{
			InviteID: payload.InviteID,
			Status:   statusForOutcome(outcome),
		},
	})
}

// statusForOutcome maps a coordinator outcome to the wire-level status.
func statusForOutcome(outcome notifcore.Outcome) webhook.DeliveryStatus {
	switch outcome {
	case notifcore.OutcomeAlreadySent:
		return webhook.StatusAlreadySent
	case notifcore.OutcomeNotPending:
		return webhook.StatusNotPending
	default:
		return webhook.StatusSent
	}
}
