package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// QueryLogConfig controls which statements reach the log stream.
type QueryLogConfig struct {
	Level     gormlogger.LogLevel
	SlowQuery time.Duration
}

// ParseQueryLogLevel maps DATABASE_LOG_LEVEL values onto gorm levels.
// Unknown values fall back to warn.
func ParseQueryLogLevel(value string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent", "off":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// QueryLogger writes gorm statements through the request-scoped zap logger so
// every query line carries the request id and the acting user.
//
// Record-not-found results are never reported as errors: repositories turn
// them into domain not-found errors and the HTTP layer answers 404.
type QueryLogger struct {
	cfg QueryLogConfig
}

func NewQueryLogger(cfg QueryLogConfig) *QueryLogger {
	if cfg.SlowQuery < 0 {
		cfg.SlowQuery = 0
	}
	return &QueryLogger{cfg: cfg}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Info {
		FromContext(ctx).Info(formatGormMessage(msg, data), zap.String("component", "db"))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Warn {
		FromContext(ctx).Warn(formatGormMessage(msg, data), zap.String("component", "db"))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.cfg.Level >= gormlogger.Error {
		FromContext(ctx).Error(formatGormMessage(msg, data), zap.String("component", "db"))
	}
}

func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.cfg.SlowQuery > 0 && elapsed > l.cfg.SlowQuery

	switch {
	case err != nil:
		if l.cfg.Level >= gormlogger.Error {
			FromContext(ctx).Error("db.query failed", queryFields(fc, elapsed, slow, err)...)
		}
	case slow:
		if l.cfg.Level >= gormlogger.Warn {
			FromContext(ctx).Warn("db.query slow", queryFields(fc, elapsed, slow, nil)...)
		}
	default:
		if l.cfg.Level >= gormlogger.Info {
			FromContext(ctx).Debug("db.query", queryFields(fc, elapsed, slow, nil)...)
		}
	}
}

// ParamsFilter drops bound values. Customer phone numbers and emails travel
// as parameters and must not reach the log stream.
func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func queryFields(fc func() (string, int64), elapsed time.Duration, slow bool, err error) []zap.Field {
	sql, rows := fc()
	sql = strings.TrimSpace(sql)
	statement, table := describeStatement(sql)

	fields := []zap.Field{
		zap.String("component", "db"),
		zap.String("statement", statement),
		zap.String("table", table),
		zap.String("sql", sql),
		zap.Duration("elapsed", elapsed),
		zap.Bool("slow", slow),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// describeStatement returns the statement kind and the first table it
// touches, e.g. ("UPDATE", "spare_parts").
func describeStatement(sql string) (string, string) {
	tokens := strings.Fields(sql)
	statement := "UNKNOWN"
	for i := 0; i < len(tokens); i++ {
		word := strings.ToUpper(strings.Trim(tokens[i], "();"))
		switch word {
		case "SELECT", "DELETE":
			if statement == "UNKNOWN" {
				statement = word
			}
		case "INSERT", "UPDATE":
			statement = word
			if word == "UPDATE" && i+1 < len(tokens) {
				return statement, cleanTableName(tokens[i+1])
			}
		case "FROM", "INTO":
			if statement != "UNKNOWN" && i+1 < len(tokens) {
				return statement, cleanTableName(tokens[i+1])
			}
		}
	}
	return statement, ""
}

func cleanTableName(token string) string {
	return strings.ToLower(strings.Trim(token, "\"`();"))
}

func formatGormMessage(msg string, data []interface{}) string {
	if len(data) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, data...)
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
