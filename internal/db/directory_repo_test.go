package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailroom/internal/types"
)

func TestDirectoryRepository_GetOrganization_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDirectoryRepository(db)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "org_1"
			*dest[1].(*string) = "Acme Capital"
			return nil
		},
	}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	org, err := repo.GetOrganization(context.Background(), "org_1")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, "Acme Capital", org.Name)
}

func TestDirectoryRepository_GetOrganization_Missing(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDirectoryRepository(db)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	// Missing directory records are not errors; callers fall back to
	// default display copy.
	org, err := repo.GetOrganization(context.Background(), "org_gone")
	require.NoError(t, err)
	assert.Nil(t, org)
}

func TestDirectoryRepository_GetProfile_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDirectoryRepository(db)

	row := &mockRow{scanErr: errors.New("connection reset")}
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.GetProfile(context.Background(), "user_1")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestDirectoryRepository_ProjectNames_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDirectoryRepository(db)

	rows := newMockRows([]func(dest ...any) error{
		func(dest ...any) error {
			*dest[0].(*string) = "proj_a"
			*dest[1].(*string) = "Harbor Tower"
			return nil
		},
	})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	// proj_b has no row; it is simply absent from the result.
	names, err := repo.ProjectNames(context.Background(), []string{"proj_a", "proj_b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"proj_a": "Harbor Tower"}, names)
}

func TestDirectoryRepository_ProjectNames_EmptyInput(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDirectoryRepository(db)

	names, err := repo.ProjectNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	// No query should be issued for an empty ID list.
	db.AssertNotCalled(t, "Query")
}
