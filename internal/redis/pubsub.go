package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingsChanged is broadcast whenever a listing is reserved, sold,
// released or edited.
type ListingsChanged struct {
	Type       string   `json:"type"`
	ListingIDs []string `json:"listing_ids"`
	Reason     string   `json:"reason,omitempty"`
	TsUnix     int64    `json:"ts_unix"`
}

type ListingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewListingsPubSub(rdb *redis.Client) *ListingsPubSub {
	return &ListingsPubSub{
		rdb:     rdb,
		channel: ChannelListingsChanged(),
	}
}

func (p *ListingsPubSub) PublishListingsChanged(ctx context.Context, reason string, ids []string) error {
	msg := ListingsChanged{
		Type:       "listings_changed",
		ListingIDs: ids,
		Reason:     reason,
		TsUnix:     time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, handing every well-formed message to handler until ctx
// is done or the subscription closes.
func (p *ListingsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg ListingsChanged)) error {
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
			var msg ListingsChanged
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.Type == "listings_changed" {
				handler(ctx, msg)
			}
		}
	}
}
