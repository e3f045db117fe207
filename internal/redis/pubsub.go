package redisx

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// CallPubSub carries call announcements between the call service and
// whatever is fanning them out to connected clients. Unlike session
// broadcasts, this is a single global channel.
type CallPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewCallPubSub(rdb *redis.Client) *CallPubSub {
	return &CallPubSub{
		rdb:     rdb,
		channel: ChannelCallUpdates(),
	}
}

type callUpdateMsg struct {
	Code      string `json:"code"`
	UpdatedAt int64  `json:"updated_at"`
}

func (p *CallPubSub) PublishCallUpdate(ctx context.Context, code string, updatedAt int64) error {
	b, _ := json.Marshal(callUpdateMsg{Code: code, UpdatedAt: updatedAt})
	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *CallPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, code string, updatedAt int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg callUpdateMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil {
				handler(ctx, msg.Code, msg.UpdatedAt)
			}
		}
	}
}
