package publisher

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/notification/domain"
	"go.uber.org/zap"
)

// Log writes intents to the application log. Used when no transport is configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notification.log")}
}

func (p *Log) Publish(ctx context.Context, intent domain.Intent) error {
	fields := []zap.Field{
		zap.String("intent_id", intent.ID),
		zap.String("type", string(intent.Type)),
		zap.String("recipient_user_id", intent.RecipientUserID.String()),
		zap.String("title", intent.Title),
	}
	if intent.RequestID != nil {
		fields = append(fields, zap.String("request_id", intent.RequestID.String()))
	}
	p.log.Info("notification intent", fields...)
	return nil
}
