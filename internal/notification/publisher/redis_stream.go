package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/repairdesk/internal/notification/domain"
)

const defaultStreamMaxLen = 100000

// RedisStream appends intents to a Redis stream for an external delivery worker.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(client *redis.Client, stream string) *RedisStream {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = "repairdesk:notifications"
	}
	return &RedisStream{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (p *RedisStream) Publish(ctx context.Context, intent domain.Intent) error {
	if p == nil || p.client == nil {
		return errors.New("redis stream publisher not configured")
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	values := map[string]any{
		"id":                intent.ID,
		"type":              string(intent.Type),
		"recipient_user_id": intent.RecipientUserID.String(),
		"title":             intent.Title,
		"message":           intent.Message,
		"created_at":        intent.CreatedAt.UTC().Format(time.RFC3339Nano),
		"payload":           string(payload),
	}
	if intent.RequestID != nil {
		values["request_id"] = intent.RequestID.String()
	}
	if intent.ActingUserID != nil {
		values["acting_user_id"] = intent.ActingUserID.String()
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}
