package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mailroom/internal/types"
)

// DigestRepository provides data access for the digest_batches and
// digest_events tables. A batch rolls up one user's activity for one day;
// its events are loaded separately when the batch is actually rendered.
//
// Like invites, the sent marker (sent_at) is the sole idempotency guard.
type DigestRepository struct {
	db DBTX
}

// NewDigestRepository creates a new DigestRepository backed by the given
// database connection (pool or transaction).
func NewDigestRepository(db DBTX) *DigestRepository {
	return &DigestRepository{db: db}
}

const digestColumns = `id, user_id, COALESCE(user_name, ''), recipient_email, digest_date, status, sent_at`

// FetchPending returns digest batches that still need an email. A limit of
// 0 or less means no limit.
func (r *DigestRepository) FetchPending(ctx context.Context, limit int) ([]types.DigestBatch, error) {
	query := `SELECT ` + digestColumns + `
		 FROM digest_batches
		 WHERE status = 'pending' AND sent_at IS NULL`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch pending digests", err)
	}
	defer rows.Close()

	var batches []types.DigestBatch
	for rows.Next() {
		var b types.DigestBatch
		if err := scanDigestBatch(rows, &b); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan digest row", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate digest rows", err)
	}
	return batches, nil
}

// GetByID fetches a single digest batch regardless of its status or sent
// marker. Returns ErrCodeNotFoundDigest when no row exists.
func (r *DigestRepository) GetByID(ctx context.Context, id string) (*types.DigestBatch, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+digestColumns+` FROM digest_batches WHERE id = $1`, id)

	var b types.DigestBatch
	if err := scanDigestBatch(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundDigest, "digest batch not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get digest batch", err)
	}
	return &b, nil
}

// EventsForBatch loads the activity events rolled into a batch, preserving
// insertion order so grouping output stays deterministic.
func (r *DigestRepository) EventsForBatch(ctx context.Context, batchID string) ([]types.DigestEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, project_id, event_type, COALESCE(payload, '{}'::jsonb)
		 FROM digest_events
		 WHERE batch_id = $1
		 ORDER BY created_at, id`, batchID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch digest events", err)
	}
	defer rows.Close()

	var events []types.DigestEvent
	for rows.Next() {
		var (
			ev        types.DigestEvent
			eventType string
		)
		if err := rows.Scan(&ev.ID, &ev.ProjectID, &eventType, &ev.Payload); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan digest event", err)
		}
		ev.EventType = types.EventType(eventType)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate digest events", err)
	}
	return events, nil
}

// MarkSent sets sent_at to now, guarded by it still being NULL. It returns
// true when this call performed the flip.
func (r *DigestRepository) MarkSent(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE digest_batches SET sent_at = NOW()
		 WHERE id = $1 AND sent_at IS NULL`, id)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to mark digest sent", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanDigestBatch(row pgx.Row, b *types.DigestBatch) error {
	var status string
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.UserName,
		&b.RecipientEmail,
		&b.DigestDate,
		&status,
		&b.SentAt,
	); err != nil {
		return err
	}
	b.Status = types.InviteStatus(status)
	return nil
}
