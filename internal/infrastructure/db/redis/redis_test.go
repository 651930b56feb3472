package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Password(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireAuth("s3cret")
	ctx := context.Background()

	_, err := Connect(ctx, Config{Addr: srv.Addr(), Timeout: time.Second})
	assert.Error(t, err, "server requires auth")

	_, err = Connect(ctx, Config{Addr: srv.Addr(), Password: "wrong", Timeout: time.Second})
	assert.Error(t, err)

	client, err := Connect(ctx, Config{Addr: srv.Addr(), Password: "s3cret", Timeout: time.Second})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Set(ctx, "k", "v", 0).Err())
}
