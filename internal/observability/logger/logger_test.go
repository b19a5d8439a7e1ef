package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
)

func TestNewWritesRotatedFile(t *testing.T) {
	restore := zap.ReplaceGlobals(zap.NewNop())
	t.Cleanup(restore)

	path := filepath.Join(t.TempDir(), "repairdesk.log")
	log, err := New(nil, Config{ServiceName: "repairdesk", Environment: "test", Level: "info", File: path})
	require.NoError(t, err)

	log.Info("request closed", zap.String("request_number", "REQ-2025-0001"))
	log.Debug("dropped below level")
	_ = log.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"request_number":"REQ-2025-0001"`)
	assert.Contains(t, string(raw), `"service":"repairdesk"`)
	assert.NotContains(t, string(raw), "dropped below level")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContextOmitsEmptyFields(t *testing.T) {
	logs := observeGlobal(t)

	FromContext(context.Background()).Info("no scope")
	ctx := obscontext.WithActor(context.Background(), "storage_manager", "9")
	FromContext(ctx).Info("scoped")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "actor_id")
	assert.NotContains(t, entries[0].ContextMap(), "request_id")
	assert.Equal(t, "storage_manager", entries[1].ContextMap()["actor_role"])
}
