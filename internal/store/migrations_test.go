package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBareDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenRaw(filepath.Join(t.TempDir(), "bare.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func latestVersion() int {
	return migrations[len(migrations)-1].Version
}

func tableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestRunMigrationsBuildsSchemaOnce(t *testing.T) {
	db := openBareDB(t)

	require.NoError(t, runMigrations(db))
	require.NoError(t, runMigrations(db), "rerun must be a no-op")

	version, err := currentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), version)

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, len(migrations), applied)

	assert.Subset(t, tableNames(t, db), []string{"users", "sessions", "blobs", "prototypes", "comments"})
}

func TestMigrationPlanReportsPendingSteps(t *testing.T) {
	for applied := 0; applied <= len(migrations); applied++ {
		db := openBareDB(t)
		require.NoError(t, ensureMigrationsTable(db))
		for _, m := range migrations[:applied] {
			_, err := db.Exec(m.SQL)
			require.NoError(t, err, "apply %d", m.Version)
			_, err = db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version)
			require.NoError(t, err)
		}

		plan, err := MigrationPlan(db)
		require.NoError(t, err)
		assert.Equal(t, latestVersion(), plan.AvailableVersion)
		assert.Len(t, plan.Pending, len(migrations)-applied)
		if applied > 0 {
			assert.Equal(t, migrations[applied-1].Version, plan.CurrentVersion)
		} else {
			assert.Zero(t, plan.CurrentVersion)
		}
		if len(plan.Pending) > 0 {
			assert.Equal(t, migrations[applied].Version, plan.Pending[0].Version)
			assert.NotEmpty(t, plan.Pending[0].Description)
		}

		require.NoError(t, runMigrations(db))
		after, err := MigrationPlan(db)
		require.NoError(t, err)
		assert.Empty(t, after.Pending)
	}
}

func TestMigrationsDescribeThemselves(t *testing.T) {
	require.NotEmpty(t, migrations)
	assert.Equal(t, "users and sessions", migrations[0].Description)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.NotEmpty(t, m.SQL)
	}
}
