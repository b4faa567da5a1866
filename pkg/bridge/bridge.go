// Package bridge republishes reassembled transfers onto Redis pub/sub
// channels, a telemetry fan-out analogous to the teacher's HTTP gateway
// that re-exposes CANopen SDO access over another transport. It is
// grounded on the pack's own Redis client wrapper, which wraps
// github.com/redis/go-redis/v9 behind a small Write/Publish surface.
package bridge

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/opencyphal-go/serard"
)

// Bridge publishes delivered transfers to Redis, one channel per port.
type Bridge struct {
	client       *redis.Client
	ctx          context.Context
	channelPrefix string
}

// Config configures a Bridge's Redis connection.
type Config struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string // defaults to "serard" if empty
}

// New connects to Redis and returns a Bridge.
func New(cfg Config) (*Bridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("bridge: connect to redis: %w", err)
	}

	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = "serard"
	}

	return &Bridge{client: client, ctx: ctx, channelPrefix: prefix}, nil
}

// Close releases the underlying Redis connection.
func (b *Bridge) Close() error {
	return b.client.Close()
}

// Publish republishes transfer on a channel keyed by its kind and port,
// e.g. "serard:message:1000". The payload is published as a raw byte
// string; transfer-ID and timestamp are published alongside as a hash so
// subscribers that only need the latest value can read it without
// replaying the pub/sub stream.
func (b *Bridge) Publish(transfer *serard.RxTransfer) error {
	channel := b.channel(transfer.Metadata.Kind, transfer.Metadata.PortID)

	pipe := b.client.Pipeline()
	pipe.HSet(b.ctx, channel,
		"transfer_id", transfer.Metadata.TransferID,
		"remote_node", transfer.Metadata.RemoteNode,
		"timestamp_usec", transfer.TimestampUsec,
		"payload", transfer.Payload,
	)
	pipe.Publish(b.ctx, channel, transfer.Payload)
	_, err := pipe.Exec(b.ctx)
	if err != nil {
		return fmt.Errorf("bridge: publish to %s: %w", channel, err)
	}
	return nil
}

func (b *Bridge) channel(kind serard.Kind, port uint16) string {
	var kindName string
	switch kind {
	case serard.KindMessage:
		kindName = "message"
	case serard.KindResponse:
		kindName = "response"
	case serard.KindRequest:
		kindName = "request"
	default:
		kindName = "unknown"
	}
	return fmt.Sprintf("%s:%s:%d", b.channelPrefix, kindName, port)
}
