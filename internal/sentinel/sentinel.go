// Package sentinel implements the SMTP-Blocked Sentinel (C4): a
// shared, Redis-backed flag that flips when enough distinct MX hosts
// time out inside a window, so the scorer can fall back to alternate
// signals instead of penalizing a domain for infrastructure that
// blocks outbound port 25.
//
// Grounded on the teacher's Redis cache key conventions
// (forgedlabs-mail_sorter's "validation:result:", "mx:records:" style
// prefixes) and on original_source's smtp_blocked_detector.py, which
// uses the same zadd/zremrangebyscore/zcard/setex primitives.
package sentinel

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyTimeoutHosts = "smtp:timeout_hosts"
	keyBlocked      = "smtp:outbound_blocked"
)

// Config holds the detection thresholds.
type Config struct {
	ThresholdHosts int
	Window         time.Duration
	BlockedTTL     time.Duration
}

// DefaultConfig returns K=3, W=300s, T_block=900s.
func DefaultConfig() Config {
	return Config{ThresholdHosts: 3, Window: 300 * time.Second, BlockedTTL: 900 * time.Second}
}

// Sentinel is the shared SMTP-blocked detector.
type Sentinel struct {
	rdb *redis.Client
	cfg Config
}

// New wraps an existing Redis client. rdb may be nil, in which case
// the sentinel degrades safely: RecordTimeout becomes a no-op and
// IsBlocked always reports false.
func New(rdb *redis.Client, cfg Config) *Sentinel {
	return &Sentinel{rdb: rdb, cfg: cfg}
}

// RecordTimeout records a timeout/connection-refused event for host.
// If the number of distinct hosts with a recent timeout reaches the
// threshold, it sets the blocked flag with its TTL.
func (s *Sentinel) RecordTimeout(ctx context.Context, host string) {
	if s.rdb == nil {
		return
	}

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, keyTimeoutHosts, redis.Z{Score: now, Member: host})
	cutoff := strconv.FormatFloat(now-s.cfg.Window.Seconds(), 'f', -1, 64)
	pipe.ZRemRangeByScore(ctx, keyTimeoutHosts, "-inf", cutoff)
	pipe.Expire(ctx, keyTimeoutHosts, s.cfg.Window+60*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return
	}

	count, err := s.rdb.ZCard(ctx, keyTimeoutHosts).Result()
	if err != nil {
		return
	}
	if count >= int64(s.cfg.ThresholdHosts) {
		s.rdb.SetEx(ctx, keyBlocked, "1", s.cfg.BlockedTTL)
	}
}

// IsBlocked reports whether SMTP outbound is currently flagged as
// blocked. An unreachable store conservatively reports false so the
// engine keeps making progress.
func (s *Sentinel) IsBlocked(ctx context.Context) bool {
	if s.rdb == nil {
		return false
	}
	n, err := s.rdb.Exists(ctx, keyBlocked).Result()
	if err != nil {
		return false
	}
	return n == 1
}
