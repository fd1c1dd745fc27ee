package database

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg, err := mysql.ParseDSN(DSN("app", "p@ss:word", "db", "3306", "courses", false))
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "courses", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.False(t, cfg.MultiStatements)

	cfg, err = mysql.ParseDSN(DSN("app", "", "db", "3306", "courses", true))
	require.NoError(t, err)
	assert.Empty(t, cfg.Passwd)
	assert.True(t, cfg.MultiStatements)
}
