package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-portal/internal/domain"
)

const (
	keyPrefix = "ticket:view:"
	// tombstone marks a deleted ticket so late fills cannot resurrect it.
	tombstone = "deleted"
)

// TicketCache stores projected ticket views. Implementations are best effort:
// failures are logged and reported as misses.
type TicketCache interface {
	Get(ctx context.Context, id int64) (*domain.TicketView, bool)
	// Set stores view unless the cache already holds a newer one (by
	// UpdatedAt) or the ticket was deleted.
	Set(ctx context.Context, view domain.TicketView)
	// Invalidate replaces the entry with a tombstone that lives for the TTL.
	Invalidate(ctx context.Context, id int64)
}

type redisTicketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTicketCache builds a cache on an existing go-redis client.
func NewRedisTicketCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) TicketCache {
	return &redisTicketCache{client: client, ttl: ttl, logger: logger}
}

func (c *redisTicketCache) Get(ctx context.Context, id int64) (*domain.TicketView, bool) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("ticket cache get failed", zap.Int64("ticket_id", id), zap.Error(err))
		}
		return nil, false
	}
	if string(raw) == tombstone {
		return nil, false
	}
	var view domain.TicketView
	if err := json.Unmarshal(raw, &view); err != nil {
		c.logger.Warn("ticket cache entry corrupt", zap.Int64("ticket_id", id), zap.Error(err))
		c.client.Del(ctx, key(id))
		return nil, false
	}
	return &view, true
}

func (c *redisTicketCache) Set(ctx context.Context, view domain.TicketView) {
	payload, err := json.Marshal(view)
	if err != nil {
		c.logger.Warn("ticket cache encode failed", zap.Int64("ticket_id", view.ID), zap.Error(err))
		return
	}
	k := key(view.ID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		case string(raw) == tombstone:
			return nil
		default:
			var cached domain.TicketView
			if json.Unmarshal(raw, &cached) == nil && cached.UpdatedAt.After(view.UpdatedAt) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, c.ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// A concurrent writer touched the key; its value wins.
		c.logger.Debug("ticket cache set lost race", zap.Int64("ticket_id", view.ID))
	case err != nil:
		c.logger.Warn("ticket cache set failed", zap.Int64("ticket_id", view.ID), zap.Error(err))
	}
}

func (c *redisTicketCache) Invalidate(ctx context.Context, id int64) {
	if err := c.client.Set(ctx, key(id), tombstone, c.ttl).Err(); err != nil {
		c.logger.Warn("ticket cache invalidate failed", zap.Int64("ticket_id", id), zap.Error(err))
	}
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}
