// Package fanout relays gateway frames between server instances over Redis
// pub/sub. Every instance subscribes to breakout:* and delivers to its own
// connections.
package fanout

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/breakout/internal/core"
	"github.com/dkeye/breakout/internal/domain"
)

const (
	prefix      = "breakout:"
	roomChannel = prefix + "room:"
	userChannel = prefix + "user:"
)

type Redis struct {
	rdb *redis.Client
}

var _ core.Fanout = (*Redis)(nil)

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Channel maps a target to its pub/sub channel.
func Channel(to core.Target) string {
	if to.User != "" {
		return userChannel + string(to.User)
	}
	return roomChannel + string(to.Room)
}

// ParseChannel is the inverse of Channel.
func ParseChannel(ch string) (core.Target, bool) {
	switch {
	case strings.HasPrefix(ch, roomChannel):
		return core.Target{Room: domain.RoomID(strings.TrimPrefix(ch, roomChannel))}, true
	case strings.HasPrefix(ch, userChannel):
		return core.Target{User: domain.UserID(strings.TrimPrefix(ch, userChannel))}, true
	}
	return core.Target{}, false
}

func (r *Redis) Publish(ctx context.Context, to core.Target, f core.Frame) error {
	if err := r.rdb.Publish(ctx, Channel(to), []byte(f)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", Channel(to), err)
	}
	return nil
}

// Subscribe blocks until ctx is done, calling deliver for every frame,
// including the ones this instance published.
func (r *Redis) Subscribe(ctx context.Context, deliver func(core.Target, core.Frame)) error {
	sub := r.rdb.PSubscribe(ctx, prefix+"*")
	defer func() {
		_ = sub.Close()
	}()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	log.Info().Str("module", "fanout").Msg("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			to, ok := ParseChannel(msg.Channel)
			if !ok {
				log.Warn().Str("module", "fanout").Str("channel", msg.Channel).Msg("unknown channel")
				continue
			}
			deliver(to, core.Frame(msg.Payload))
		}
	}
}
