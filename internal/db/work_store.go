package db

import (
	"context"
	"fmt"

	"mailroom/internal/types"
)

// WorkStore adapts the kind-specific repositories to the uniform work-item
// view the delivery coordinator operates on.
type WorkStore struct {
	invites *InviteRepository
	digests *DigestRepository
}

// NewWorkStore creates a WorkStore over the given repositories.
func NewWorkStore(invites *InviteRepository, digests *DigestRepository) *WorkStore {
	return &WorkStore{invites: invites, digests: digests}
}

// Reload re-reads the authoritative eligibility snapshot of one work item.
func (s *WorkStore) Reload(ctx context.Context, ref types.WorkRef) (types.WorkSnapshot, error) {
	switch ref.Kind {
	case types.WorkKindInvite:
		invite, err := s.invites.GetByID(ctx, ref.ID)
		if err != nil {
			return types.WorkSnapshot{}, err
		}
		return invite.Snapshot(), nil
	case types.WorkKindDigest:
		batch, err := s.digests.GetByID(ctx, ref.ID)
		if err != nil {
			return types.WorkSnapshot{}, err
		}
		return batch.Snapshot(), nil
	default:
		return types.WorkSnapshot{}, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("unknown work kind %q", ref.Kind),
			nil,
		)
	}
}

// MarkSent flips the sent marker for one work item, reporting whether this
// call performed the flip.
func (s *WorkStore) MarkSent(ctx context.Context, ref types.WorkRef) (bool, error) {
	switch ref.Kind {
	case types.WorkKindInvite:
		return s.invites.MarkSent(ctx, ref.ID)
	case types.WorkKindDigest:
		return s.digests.MarkSent(ctx, ref.ID)
	default:
		return false, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("unknown work kind %q", ref.Kind),
			nil,
		)
	}
}
