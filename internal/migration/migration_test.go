package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/repairdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpAndDownWithAutoMigrate(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, Up(conn, "sqlite"))
	for _, table := range []string{
		"departments",
		"users",
		"customers",
		"daily_sequences",
		"service_requests",
		"request_costs",
		"spare_parts",
		"request_parts",
		"spare_part_history",
		"request_activities",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}

	require.NoError(t, Up(conn, "sqlite"))

	require.NoError(t, Down(conn, "sqlite"))
	assert.False(t, conn.Migrator().HasTable("service_requests"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestNilConnection(t *testing.T) {
	assert.ErrorIs(t, Up(nil, "sqlite"), ErrNoDatabase)
	assert.ErrorIs(t, RunMigrations(nil), ErrNoDatabase)
}
