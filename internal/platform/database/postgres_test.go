package database

import (
	"authgate/internal/platform/database/migrations"
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_auth_events.sql"}, names)

	body, err := fs.ReadFile(migrations.FS, "00001_create_users.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "UNIQUE INDEX")
}

func TestConnect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	_, err := Connect(ctx, "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable", log)
	assert.Error(t, err)
}

func TestGooseLogger(t *testing.T) {
	var buf bytes.Buffer
	l := gooseLogger{log: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Printf("OK   %s (%v)\n", "00001_create_users.sql", "1ms")

	assert.Contains(t, buf.String(), "component=goose")
	assert.Contains(t, buf.String(), "00001_create_users.sql")
}
