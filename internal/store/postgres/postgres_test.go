package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackside/testday/internal/models"
	"github.com/trackside/testday/internal/store/postgres"
	"github.com/trackside/testday/internal/testutils"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		poolErr error

		wantErr bool
	}{
		"Valid config": {},

		"Error when the pool cannot be created": {poolErr: errors.New("error requested by test"), wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var gotDSN string
			s, err := postgres.Connect(context.Background(), postgres.Config{Host: "localhost", Port: 5432, DBName: "testday"},
				postgres.WithNewPool(func(_ context.Context, dsn string) (postgres.DBPool, error) {
					gotDSN = dsn
					if tc.poolErr != nil {
						return nil, tc.poolErr
					}
					return &mockDBPool{}, nil
				}))
			if tc.wantErr {
				require.Error(t, err, "Connect should return an error")
				return
			}
			require.NoError(t, err, "Connect should not return an error")
			defer s.Close()

			assert.Contains(t, gotDSN, "host=localhost port=5432", "Connect should build the DSN from the config")
			assert.Contains(t, gotDSN, "dbname=testday", "Connect should build the DSN from the config")
		})
	}
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		earlyClose bool
		beginErr   error
		queryErr   error
	}{
		"Error when the store is closed":          {earlyClose: true},
		"Error when the query fails":              {queryErr: errors.New("error requested by test")},
		"Error when the transaction cannot start": {beginErr: errors.New("error requested by test")},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			pool := &mockDBPool{beginErr: tc.beginErr, queryErr: tc.queryErr}
			s, err := postgres.Connect(context.Background(), postgres.Config{}, postgres.WithNewPool(
				func(context.Context, string) (postgres.DBPool, error) { return pool, nil }))
			require.NoError(t, err, "Setup: Connect should not return an error")
			defer s.Close()

			if tc.earlyClose {
				require.NoError(t, s.Close(), "Setup: Close should not return an error")
				require.True(t, pool.closed, "Close should close the pool")
				require.NoError(t, s.Close(), "Closing twice should not return an error")
			}

			if tc.earlyClose || tc.queryErr != nil {
				_, err = s.Load(context.Background())
				require.Error(t, err, "Load should return an error")
			}
			if tc.earlyClose || tc.beginErr != nil {
				require.Error(t, s.Save(context.Background(), models.Dataset{}), "Save should return an error")
			}
		})
	}
}

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg  postgres.Config
		want string
	}{
		"With ssl mode":       {cfg: postgres.Config{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "testday", SSLMode: "disable"}, want: "pgx5://u:p@db:5432/testday?sslmode=disable"},
		"Without ssl mode":    {cfg: postgres.Config{Host: "db", Port: 6432, User: "u", Password: "p", DBName: "testday"}, want: "pgx5://u:p@db:6432/testday"},
		"Password is escaped": {cfg: postgres.Config{Host: "db", Port: 5432, User: "u", Password: "p@ss/word", DBName: "testday"}, want: "pgx5://u:p%40ss%2Fword@db:5432/testday"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.cfg.MigrateURL(), "MigrateURL returned an unexpected URL")
		})
	}
}

func TestMigrateSaveLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	pc := testutils.StartPostgresContainer(t)
	cfg := postgres.Config{Host: pc.Host, Port: pc.Port, User: pc.User, Password: pc.Password, DBName: pc.Name, SSLMode: "disable"}

	require.NoError(t, postgres.Migrate(cfg), "Migrate should not return an error")
	require.NoError(t, postgres.Migrate(cfg), "Migrating an up to date database should not return an error")

	s, err := postgres.Connect(context.Background(), cfg, postgres.WithTimeout(30*time.Second))
	require.NoError(t, err, "Connect should not return an error")
	defer s.Close()

	got, err := s.Load(context.Background())
	require.NoError(t, err, "Load should not return an error")
	assert.Equal(t, models.Dataset{TestDays: []models.TestDay{}, Runs: []models.Run{}, Setups: []models.SetupRecord{}, Tires: []models.TireSet{}}, got,
		"A fresh database should hold an empty dataset")

	require.NoError(t, s.Save(context.Background(), sample(2)), "Save should not return an error")
	edited := sample(3)
	edited.Setups[0].Name = "Edited"
	require.NoError(t, s.Save(context.Background(), edited), "Saving again should not return an error")

	got, err = s.Load(context.Background())
	require.NoError(t, err, "Load should not return an error")
	assert.Equal(t, sample(3), got, "Stored setups should win and run counts should be updated")
}

func sample(runCount int) models.Dataset {
	mod := time.Date(2025, 4, 11, 10, 32, 0, 0, time.UTC)
	return models.Dataset{
		TestDays: []models.TestDay{
			{Key: "2025-04-11 - villa", Name: "2025-4-11 - Villa", Date: civil.Date{Year: 2025, Month: 4, Day: 11}, Venue: "Villa", RunCount: runCount},
		},
		Runs: []models.Run{
			{Key: "2025-4-11 - Villa/run1.xrk", ID: models.RunID("2025-4-11 - Villa/run1.xrk"), TestDayKey: "2025-04-11 - villa",
				TestDayName: "2025-4-11 - Villa", Sequence: 1, Driver: "Unassigned",
				Source: models.FileEntry{Path: "2025-4-11 - Villa/run1.xrk", Size: 2048, ModTime: mod}},
		},
		Setups: []models.SetupRecord{
			{Key: "baseline.json", Path: "Setups/baseline.json", Name: "Baseline", Aero: &models.Aero{FrontWingAngle: 12}},
		},
		Tires: []models.TireSet{{ID: "t1", Name: "Set A", Compound: "soft", HeatCycles: 2}},
	}
}

type mockDBPool struct {
	beginErr error
	queryErr error
	closed   bool
}

func (m *mockDBPool) Begin(context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return nil, errors.New("transactions are not supported by the mock")
}

func (m *mockDBPool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return nil, errors.New("queries are not supported by the mock")
}

func (m *mockDBPool) Close() {
	m.closed = true
}
