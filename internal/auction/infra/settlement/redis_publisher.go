package settlement

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/proxybidEngine/internal/auction/domain"
	"github.com/cristianortiz/proxybidEngine/internal/shared/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const defaultStream = "auction:closed"

// RedisPublisher appends closed auctions to a Redis stream consumed by the settlement service.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	if stream == "" {
		stream = defaultStream
	}
	return &RedisPublisher{client: client, stream: stream}
}

func (p *RedisPublisher) PublishAuctionClosed(ctx context.Context, event domain.AuctionClosedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal auction closed event: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"auction_id": event.AuctionID.String(),
			"status":     string(event.Status),
			"payload":    payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	log.Info("Auction closed event published",
		zap.String("auctionID", event.AuctionID.String()),
		zap.String("stream", p.stream),
		zap.String("entryID", id),
	)
	return nil
}

// LogPublisher only logs the hand-off. Used when no Redis is configured.
type LogPublisher struct{}

func (LogPublisher) PublishAuctionClosed(ctx context.Context, event domain.AuctionClosedEvent) error {
	fields := []zap.Field{
		zap.String("auctionID", event.AuctionID.String()),
		zap.String("status", string(event.Status)),
		zap.Stringer("finalPrice", event.FinalPrice),
	}
	if event.WinnerID.Valid {
		fields = append(fields, zap.String("winnerID", event.WinnerID.UUID.String()))
	}
	log.Info("Auction closed, settlement hand-off", fields...)
	return nil
}
