package queue

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	rdb, err := ConnectRedis(context.Background(), RedisOptions{Addr: mr.Addr()}, log)
	require.NoError(t, err)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
	assert.Contains(t, buf.String(), "connected to Redis")
}

func TestConnectRedis_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	_, err := ConnectRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"}, log)
	assert.Error(t, err)
}
