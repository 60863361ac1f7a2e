package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mailroom/internal/types"
)

// InviteRepository provides data access for the invites table.
//
// The sent marker (email_sent_at) is the sole idempotency guard for invite
// email delivery: MarkSent only flips it when it is still NULL, so a row can
// be marked at most once no matter how many workers race on it.
type InviteRepository struct {
	db DBTX
}

// NewInviteRepository creates a new InviteRepository backed by the given
// database connection (pool or transaction).
func NewInviteRepository(db DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

const inviteColumns = `id, status, email_sent_at, expires_at, token, org_id, invited_email, invited_by`

// FetchPending returns invites that still need an email: status is pending
// and the sent marker is unset. Rows come back in store-default order. A
// limit of 0 or less means no limit.
func (r *InviteRepository) FetchPending(ctx context.Context, limit int) ([]types.Invite, error) {
	query := `SELECT ` + inviteColumns + `
		 FROM invites
		 WHERE status = 'pending' AND email_sent_at IS NULL`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch pending invites", err)
	}
	defer rows.Close()

	var invites []types.Invite
	for rows.Next() {
		var inv types.Invite
		if err := scanInvite(rows, &inv); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan invite row", err)
		}
		invites = append(invites, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate invite rows", err)
	}
	return invites, nil
}

// GetByID fetches a single invite regardless of its status or sent marker.
// Returns ErrCodeNotFoundInvite when no row exists.
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*types.Invite, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id)

	var inv types.Invite
	if err := scanInvite(row, &inv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundInvite, "invite not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get invite", err)
	}
	return &inv, nil
}

// MarkSent sets email_sent_at to now, guarded by it still being NULL.
// It returns true when this call performed the flip, false when another
// worker already committed the marker.
func (r *InviteRepository) MarkSent(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE invites SET email_sent_at = NOW()
		 WHERE id = $1 AND email_sent_at IS NULL`, id)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to mark invite sent", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanInvite reads one invite row into inv. It works for both pgx.Row and
// pgx.Rows since Scan has the same shape on each.
func scanInvite(row pgx.Row, inv *types.Invite) error {
	var (
		status    string
		invitedBy *string
	)
	if err := row.Scan(
		&inv.ID,
		&status,
		&inv.SentAt,
		&inv.ExpiresAt,
		&inv.Token,
		&inv.OrgID,
		&inv.InvitedEmail,
		&invitedBy,
	); err != nil {
		return err
	}
	inv.Status = types.InviteStatus(status)
	if invitedBy != nil {
		inv.InvitedBy = *invitedBy
	}
	return nil
}
