package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/ranking"
)

// LaneCache stores the grouped lanes of a board in Redis.
type LaneCache struct {
	redis *redis.Client
	ttl   time.Duration
}

var _ ranking.LaneCache = (*LaneCache)(nil)

func NewLaneCache(client *redis.Client, ttl time.Duration) *LaneCache {
	if client == nil {
		panic("cache.NewLaneCache: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LaneCache{redis: client, ttl: ttl}
}

// Get returns (nil, false, nil) on a miss. An undecodable entry is evicted
// and reported as a miss.
func (c *LaneCache) Get(ctx context.Context, boardID uuid.UUID) (*ranking.Lanes, bool, error) {
	data, err := c.redis.Get(ctx, lanesKey(boardID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var lanes ranking.Lanes
	if err := json.Unmarshal(data, &lanes); err != nil {
		_ = c.redis.Del(ctx, lanesKey(boardID)).Err()
		return nil, false, nil
	}
	return &lanes, true, nil
}

// Version returns the invalidation counter of a board, 0 if it was never
// invalidated.
func (c *LaneCache) Version(ctx context.Context, boardID uuid.UUID) (int64, error) {
	v, err := c.redis.Get(ctx, versionKey(boardID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set stores lanes read while the board was at version. The write is
// dropped when an Invalidate bumped the version in between, so a slow
// reader cannot put back lanes older than the last commit.
func (c *LaneCache) Set(ctx context.Context, boardID uuid.UUID, version int64, lanes *ranking.Lanes) error {
	if c.ttl == 0 {
		return nil
	}
	data, err := json.Marshal(lanes)
	if err != nil {
		return err
	}

	vKey := versionKey(boardID)
	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vKey).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, lanesKey(boardID), data, c.ttl)
			return nil
		})
		return err
	}, vKey)
	if errors.Is(err, redis.TxFailedErr) {
		// инвалидация прошла между WATCH и EXEC
		return nil
	}
	return err
}

// Invalidate drops the cached lanes and bumps the board version.
func (c *LaneCache) Invalidate(ctx context.Context, boardID uuid.UUID) error {
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(boardID))
		pipe.Del(ctx, lanesKey(boardID))
		return nil
	})
	return err
}

func lanesKey(boardID uuid.UUID) string {
	return "lanes:" + boardID.String()
}

func versionKey(boardID uuid.UUID) string {
	return "lanes:" + boardID.String() + ":v"
}
