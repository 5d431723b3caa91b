package database

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrations, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	body, err := io.ReadAll(up)
	require.NoError(t, err)
	sql := string(body)

	for _, table := range []string{"users", "projects", "project_members", "issues", "comments"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, sql, "order_index INTEGER NOT NULL")
	assert.Contains(t, sql, "'in-progress'")
	assert.False(t, strings.Contains(sql, "REFERENCES comments"), "parent_id must not cascade")

	_, _, err = src.ReadDown(first)
	assert.NoError(t, err)
}

func TestMigrateDownRejectsZeroSteps(t *testing.T) {
	err := MigrateDown("postgres://unused", 0, nil)
	assert.Error(t, err)
}
