package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sliding window over a sorted set, one member per hit. Runs as one
// script so concurrent session-creation bursts from the same caller
// cannot slip between the trim and the count.
// KEYS[1] = window key
// ARGV[1] = now in ms
// ARGV[2] = window length in ms
// ARGV[3] = max hits inside the window
// ARGV[4] = unique member for this hit
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
redis.call('ZADD', key, 'NX', now, member)
local count = redis.call('ZCARD', key)
redis.call('PEXPIRE', key, window)

if count > limit then
  local earliest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local earliestScore = tonumber(earliest[2]) or (now - window)
  local retry_ms = window - (now - earliestScore)
  if retry_ms < 0 then retry_ms = 0 end
  return {0, count, retry_ms}
end
return {1, count, 0}
`

// SlidingWindowLimiter throttles session creation per caller so one
// client cannot burn through the 4 digit code space. Keys are built
// from the configured prefix plus the caller id, typically an IP.
type SlidingWindowLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
}

func NewSlidingWindowLimiter(
	rdb *redis.Client,
	prefix string,
	limit int,
	window time.Duration,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowScript),
	}
}

// Allow records a hit for the caller and reports whether it is still
// inside the limit. When it is not, retryAfter says how long until the
// oldest counted hit slides out of the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, callerID string) (allowed bool, current int64, retryAfter time.Duration, err error) {
	key := fmt.Sprintf("%s:%s", l.prefix, callerID)
	nowMs := time.Now().UnixMilli()
	member := randomHex(12)

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{key},
		nowMs, l.window.Milliseconds(), l.limit, member,
	).Result()
	if err != nil {
		return false, 0, 0, err
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 3 {
		return false, 0, 0, fmt.Errorf("rate limit script returned %v", res)
	}

	allowed = scriptInt(arr[0]) == 1
	current = scriptInt(arr[1])
	retryAfter = time.Duration(scriptInt(arr[2])) * time.Millisecond

	return
}

// scriptInt normalizes the numeric shapes redis hands back for Lua
// return values.
func scriptInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		var x int64
		fmt.Sscan(t, &x)
		return x
	default:
		return 0
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
