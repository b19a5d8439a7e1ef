package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
)

func newLoggedEngine(cfg MiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(cfg))
	r.Use(func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), "technician", "501")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	return r
}

func TestRequestLogCarriesActorAndRequestID(t *testing.T) {
	logs := observeGlobal(t)
	r := newLoggedEngine(MiddlewareConfig{})
	r.GET("/api/requests/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/12", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	entries := logs.FilterMessage("http.request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/requests/:id", fields["route"])
	assert.Equal(t, "501", fields["actor_id"])
	assert.Equal(t, "technician", fields["actor_role"])
	assert.Equal(t, "abc-123", fields["request_id"])
}

func TestRequestLogClassifiesErrors(t *testing.T) {
	logs := observeGlobal(t)
	r := newLoggedEngine(MiddlewareConfig{
		ErrorClassifier: func(err error) (string, string) {
			return "conflict", "version_conflict"
		},
	})
	r.PUT("/api/storage/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("version_conflict"))
		c.AbortWithStatus(http.StatusConflict)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/storage/9", nil))

	entries := logs.FilterMessage("http.request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "conflict", fields["error_type"])
	assert.Equal(t, "version_conflict", fields["error_code"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
