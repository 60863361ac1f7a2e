package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"mailroom/internal/types"
)

// DirectoryRepository resolves display names for emails: organizations,
// inviter profiles, and project names. Lookups here are tolerant by
// contract; callers substitute fallback copy when a record is missing, so
// a bad foreign key never blocks a send.
type DirectoryRepository struct {
	db DBTX
}

// NewDirectoryRepository creates a new DirectoryRepository backed by the
// given database connection (pool or transaction).
func NewDirectoryRepository(db DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetOrganization fetches an org display record. Returns (nil, nil) when
// the org does not exist.
func (r *DirectoryRepository) GetOrganization(ctx context.Context, id string) (*types.Organization, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name FROM orgs WHERE id = $1`, id)

	var org types.Organization
	if err := row.Scan(&org.ID, &org.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get organization", err)
	}
	return &org, nil
}

// GetProfile fetches a user profile display record. Returns (nil, nil)
// when the profile does not exist.
func (r *DirectoryRepository) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(full_name, '') FROM profiles WHERE id = $1`, id)

	var p types.Profile
	if err := row.Scan(&p.ID, &p.FullName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get profile", err)
	}
	return &p, nil
}

// ProjectNames resolves project IDs to display names in one query. IDs with
// no matching row are simply absent from the result map.
func (r *DirectoryRepository) ProjectNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, name FROM projects WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch project names", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan project row", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate project rows", err)
	}
	return names, nil
}
