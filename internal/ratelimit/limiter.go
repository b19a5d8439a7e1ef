package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/repairdesk/internal/config"
	"go.uber.org/zap"
)

const writeKeyPrefix = "repairdesk:ratelimit:write:"

// takeToken refills the bucket from the elapsed Redis time, then tries to take
// one token. Tokens are stored as strings so fractional refills survive; the
// reply is {allowed, whole tokens left, retry after in ms}.
const takeToken = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
if now > ts then
  tokens = math.min(burst, tokens + (now - ts) * rate / 1000)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) * 1000 / rate)
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], math.ceil(burst / rate * 2000))

return {allowed, math.floor(tokens), wait}
`

var (
	ErrEmptyActor   = errors.New("rate_limit_actor_empty")
	ErrInvalidReply = errors.New("rate_limit_reply_invalid")
)

// Decision is the outcome of one write attempt against an actor's quota.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// WriteLimiter throttles mutating API calls per actor with a token bucket kept
// in Redis, so every replica draws from the same quota. A nil limiter allows
// everything.
type WriteLimiter struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
}

func NewWriteLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *WriteLimiter {
	limits := cfg.RateLimit
	switch {
	case !limits.Enabled:
		return nil
	case client == nil:
		log.Warn("rate limit enabled without redis, writes are not throttled")
		return nil
	case limits.WriteRate <= 0 || limits.WriteBurst <= 0:
		log.Warn("rate limit disabled, write rate and burst must be positive",
			zap.Float64("rate", limits.WriteRate),
			zap.Int("burst", limits.WriteBurst),
		)
		return nil
	}
	return &WriteLimiter{
		client: client,
		script: redis.NewScript(takeToken),
		rate:   limits.WriteRate,
		burst:  limits.WriteBurst,
	}
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// AllowActor spends one write token of actorID.
func (l *WriteLimiter) AllowActor(ctx context.Context, actorID string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Decision{}, ErrEmptyActor
	}

	reply, err := l.script.Run(ctx, l.client, []string{writeKeyPrefix + actorID}, l.rate, l.burst).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(reply) != 3 {
		return Decision{}, ErrInvalidReply
	}
	return Decision{
		Allowed:    reply[0] == 1,
		Limit:      l.burst,
		Remaining:  int(reply[1]),
		RetryAfter: time.Duration(reply[2]) * time.Millisecond,
	}, nil
}
