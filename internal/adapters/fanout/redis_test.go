package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/breakout/internal/core"
)

func TestChannel(t *testing.T) {
	room := core.Target{Room: "r1"}
	user := core.Target{User: "u1"}

	assert.Equal(t, "breakout:room:r1", Channel(room))
	assert.Equal(t, "breakout:user:u1", Channel(user))

	got, ok := ParseChannel(Channel(room))
	require.True(t, ok)
	assert.Equal(t, room, got)
	got, ok = ParseChannel(Channel(user))
	require.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = ParseChannel("other:thing")
	assert.False(t, ok)
}

type delivery struct {
	to core.Target
	f  string
}

func TestRedis_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	fo := NewRedis(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan delivery, 4)
	done := make(chan error, 1)
	go func() {
		done <- fo.Subscribe(ctx, func(to core.Target, f core.Frame) {
			got <- delivery{to: to, f: string(f)}
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, fo.Publish(ctx, core.Target{Room: "r1"}, core.Frame(`{"type":"pong"}`)))
	require.NoError(t, fo.Publish(ctx, core.Target{User: "u1"}, core.Frame(`{"type":"kicked"}`)))

	select {
	case d := <-got:
		assert.Equal(t, core.Target{Room: "r1"}, d.to)
		assert.JSONEq(t, `{"type":"pong"}`, d.f)
	case <-time.After(time.Second):
		t.Fatal("room frame not delivered")
	}
	select {
	case d := <-got:
		assert.Equal(t, core.Target{User: "u1"}, d.to)
	case <-time.After(time.Second):
		t.Fatal("user frame not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return")
	}
}
