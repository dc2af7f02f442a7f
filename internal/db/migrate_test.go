package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_OrderedAndComplete(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)

	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}

	schema := ms[0].SQL
	for _, table := range []string{"sessions", "media", "ratings", "reports", "feedback", "app_settings", "admin_users", "analytics_events"} {
		assert.Contains(t, schema, "CREATE TABLE "+table+" (", table)
	}
	assert.Contains(t, schema, "UNIQUE (session_id, media_id)")
	assert.Contains(t, schema, "CHECK (rating BETWEEN 1 AND 100)")
	assert.Contains(t, schema, "media_id         UUID REFERENCES media (id) ON DELETE SET NULL")
}
