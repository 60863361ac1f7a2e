package email

import (
	"context"
	"log/slog"

	"mailroom/internal/types"
)

// InviteStore is the narrow read interface the invite builder needs.
type InviteStore interface {
	GetByID(ctx context.Context, id string) (*types.Invite, error)
}

// Directory resolves display names for invite copy.
type Directory interface {
	GetOrganization(ctx context.Context, id string) (*types.Organization, error)
	GetProfile(ctx context.Context, id string) (*types.Profile, error)
}

// InviteBuilder assembles the full send input for an invite work item:
// loads the record, resolves display names, and renders the bodies.
type InviteBuilder struct {
	invites   InviteStore
	directory Directory
	renderer  *InviteRenderer
	logger    *slog.Logger
}

// NewInviteBuilder creates an InviteBuilder.
func NewInviteBuilder(invites InviteStore, directory Directory, renderer *InviteRenderer, logger *slog.Logger) *InviteBuilder {
	return &InviteBuilder{
		invites:   invites,
		directory: directory,
		renderer:  renderer,
		logger:    logger,
	}
}

// Build renders the invite email for the given item ID. Directory lookup
// failures are tolerated (fallback copy is used); a missing template or a
// missing invite row fails the item.
func (b *InviteBuilder) Build(ctx context.Context, id string) (types.SendInput, error) {
	if b.renderer.template == "" {
		return types.SendInput{}, types.NewAppError(
			types.ErrCodeTemplateUnavailable,
			"invite template is not loaded",
			nil,
		)
	}

	invite, err := b.invites.GetByID(ctx, id)
	if err != nil {
		return types.SendInput{}, err
	}

	if invite.Token == "" {
		b.logger.WarnContext(ctx, "invite has no token; accept link will point at the app root",
			"invite_id", invite.ID)
	}

	var org *types.Organization
	if invite.OrgID != "" {
		org, err = b.directory.GetOrganization(ctx, invite.OrgID)
		if err != nil {
			b.logger.WarnContext(ctx, "org lookup failed; using fallback name",
				"invite_id", invite.ID, "org_id", invite.OrgID, "error", err)
			org = nil
		}
	}

	var inviter *types.Profile
	if invite.InvitedBy != "" {
		inviter, err = b.directory.GetProfile(ctx, invite.InvitedBy)
		if err != nil {
			b.logger.WarnContext(ctx, "inviter lookup failed; using fallback name",
				"invite_id", invite.ID, "inviter_id", invite.InvitedBy, "error", err)
			inviter = nil
		}
	}

	return b.renderer.Render(invite, org, inviter), nil
}
