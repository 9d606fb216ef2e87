package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/port"
)

const (
	snapshotKeyPrefix = "tariff:snap:"
	zoneIndexPrefix   = "tariff:snapidx:"
	ruleChangeChannel = "tariff.rules.changed"
)

// SnapshotCache caches rule snapshots per spot with a TTL that bounds
// staleness. A cached snapshot is internally consistent by construction
// (it was captured atomically by the inner source), which is all pricing
// correctness requires; rule edits additionally invalidate the affected
// zone eagerly.
type SnapshotCache struct {
	client *redis.Client
	inner  port.RuleSource
	ttl    time.Duration
	log    *zap.Logger
}

func NewSnapshotCache(client *redis.Client, inner port.RuleSource, ttl time.Duration, log *zap.Logger) *SnapshotCache {
	return &SnapshotCache{client: client, inner: inner, ttl: ttl, log: log}
}

func (c *SnapshotCache) Snapshot(ctx context.Context, spotID uuid.UUID) (domain.RuleSnapshot, error) {
	key := snapshotKeyPrefix + spotID.String()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var snap domain.RuleSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return snap, nil
		}
		// Unreadable entry, fall through to a fresh load.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warn("snapshot cache read failed", zap.Error(err))
	}

	snap, err := c.inner.Snapshot(ctx, spotID)
	if err != nil {
		return domain.RuleSnapshot{}, err
	}

	if raw, err := json.Marshal(snap); err == nil {
		pipe := c.client.Pipeline()
		pipe.Set(ctx, key, raw, c.ttl)
		idx := zoneIndexPrefix + snap.ZoneID.String()
		pipe.SAdd(ctx, idx, key)
		pipe.Expire(ctx, idx, 2*c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn("snapshot cache write failed", zap.Error(err))
		}
	}

	return snap, nil
}

// InvalidateZone drops every cached snapshot belonging to the zone.
func (c *SnapshotCache) InvalidateZone(ctx context.Context, zoneID uuid.UUID) {
	idx := zoneIndexPrefix + zoneID.String()
	keys, err := c.client.SMembers(ctx, idx).Result()
	if err != nil {
		c.log.Warn("snapshot cache invalidation failed", zap.Error(err))
		return
	}
	keys = append(keys, idx)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
}

// RuleChange is the event published when the admin surface mutates the
// rule set.
type RuleChange struct {
	ZoneID uuid.UUID `json:"zone_id"`
	RuleID uuid.UUID `json:"rule_id"`
	Action string    `json:"action"`
}

func (c *SnapshotCache) PublishRuleChange(ctx context.Context, change RuleChange) {
	raw, err := json.Marshal(change)
	if err != nil {
		return
	}
	if err := c.client.Publish(ctx, ruleChangeChannel, raw).Err(); err != nil {
		c.log.Warn("rule change publish failed", zap.Error(err))
	}
}

// ListenRuleChanges delivers published rule changes to fn until ctx is
// cancelled.
func (c *SnapshotCache) ListenRuleChanges(ctx context.Context, fn func(RuleChange)) {
	sub := c.client.Subscribe(ctx, ruleChangeChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var change RuleChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				c.log.Warn("malformed rule change event", zap.Error(err))
				continue
			}
			fn(change)
		}
	}
}
