package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestDescribeStatement(t *testing.T) {
	cases := []struct {
		sql       string
		statement string
		table     string
	}{
		{`SELECT * FROM "spare_parts" WHERE id = $1 FOR UPDATE`, "SELECT", "spare_parts"},
		{`INSERT INTO "request_parts" ("id") VALUES ($1)`, "INSERT", "request_parts"},
		{`UPDATE "requests" SET "status"=$1`, "UPDATE", "requests"},
		{"DELETE FROM `spare_parts` WHERE id = ?", "DELETE", "spare_parts"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		statement, table := describeStatement(tc.sql)
		assert.Equal(t, tc.statement, statement, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestQueryLoggerSlowQueryCarriesActor(t *testing.T) {
	logs := observeGlobal(t)
	l := NewQueryLogger(QueryLogConfig{Level: gormlogger.Warn, SlowQuery: time.Millisecond})

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "technician", "77")
	l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) {
		return `UPDATE "spare_parts" SET present_pieces = 3`, 1
	}, nil)

	entries := logs.FilterMessage("db.query slow").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "spare_parts", fields["table"])
	assert.Equal(t, "UPDATE", fields["statement"])
	assert.Equal(t, "77", fields["actor_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, true, fields["slow"])
}

func TestQueryLoggerIgnoresRecordNotFound(t *testing.T) {
	logs := observeGlobal(t)
	l := NewQueryLogger(QueryLogConfig{Level: gormlogger.Warn, SlowQuery: time.Hour})

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "customers" WHERE id = $1`, 0
	}, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `SELECT * FROM "customers" WHERE id = $1`, -1
	}, errors.New("connection reset"))
	entries := logs.FilterMessage("db.query failed").All()
	require.Len(t, entries, 1)
	_, hasRows := entries[0].ContextMap()["rows"]
	assert.False(t, hasRows)
}

func TestParseQueryLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseQueryLogLevel("off"))
	assert.Equal(t, gormlogger.Error, ParseQueryLogLevel("ERROR"))
	assert.Equal(t, gormlogger.Info, ParseQueryLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, ParseQueryLogLevel("bogus"))
}
