package repository

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
)

func openTestStore(t *testing.T, driver string) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "pallets.db")
	if driver == constants.DriverBadger {
		dsn = ":memory:"
	}
	s, err := OpenStore(context.Background(), common.DatabaseConfig{Driver: driver, DSN: dsn}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestAssociationRepositories(t *testing.T) {
	for _, driver := range []string{constants.DriverSQLite, constants.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := openTestStore(t, driver)
			repo := s.Associations

			rows := []entity.Association{
				{Identifier: "111111111111111111", DocumentName: "b.pdf", PageNumber: 2},
				{Identifier: "222222222222222222", DocumentName: "a.pdf", PageNumber: 1},
				{Identifier: "111111111111111111", DocumentName: "a.pdf", PageNumber: 7},
				{Identifier: "111111111111111111", DocumentName: "b.pdf", PageNumber: 2},
			}
			for _, a := range rows {
				require.NoError(t, repo.Create(ctx, a))
			}

			got, err := repo.ListByIdentifier(ctx, "111111111111111111")
			require.NoError(t, err)
			assert.Equal(t, []entity.Association{rows[0], rows[2], rows[3]}, got, "insertion order, duplicates kept")

			got, err = repo.ListByIdentifier(ctx, "222222222222222222")
			require.NoError(t, err)
			assert.Equal(t, []entity.Association{rows[1]}, got)

			got, err = repo.ListByIdentifier(ctx, "not-a-pallet")
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)

			assert.NoError(t, s.HealthCheck(ctx, 0))
			assert.Equal(t, driver, s.Driver())
		})
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t, constants.DriverSQLite)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestMigrateCreatesTableAndIndex(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	drv, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "schema.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })

	require.NoError(t, Migrate(ctx, drv, logger))
	require.NoError(t, Migrate(ctx, drv, logger))

	var names []string
	rows, err := drv.DB().QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE tbl_name = ? AND type IN ('table', 'index') AND name NOT LIKE 'sqlite_%' ORDER BY name",
		constants.AssociationsTable)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{constants.AssociationsTable, constants.AssociationsTable + "_pallet_id_idx"}, names)

	repo := NewSQLAssociationRepository(drv, logger)
	require.NoError(t, repo.Create(ctx, entity.Association{Identifier: "333333333333333333", DocumentName: "c.pdf", PageNumber: 4}))
	got, err := repo.ListByIdentifier(ctx, "333333333333333333")
	require.NoError(t, err)
	assert.Equal(t, []entity.Association{{Identifier: "333333333333333333", DocumentName: "c.pdf", PageNumber: 4}}, got)
}

func TestSQLiteRejectsNonPositivePage(t *testing.T) {
	s := openTestStore(t, constants.DriverSQLite)
	err := s.Associations.Create(context.Background(), entity.Association{
		Identifier: "111111111111111111", DocumentName: "a.pdf", PageNumber: 0,
	})
	require.Error(t, err)
}

func TestBadgerPrefixesDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, constants.DriverBadger)

	require.NoError(t, s.Associations.Create(ctx, entity.Association{Identifier: "ab", DocumentName: "x.pdf", PageNumber: 1}))

	got, err := s.Associations.ListByIdentifier(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), common.DatabaseConfig{Driver: "mongo", DSN: "x"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestRepositoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := openTestStore(t, constants.DriverBadger)
	_, err := s.Associations.ListByIdentifier(ctx, "111111111111111111")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Associations.Create(ctx, entity.Association{Identifier: "1", DocumentName: "d", PageNumber: 1}), context.Canceled)
}
