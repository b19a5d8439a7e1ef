package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
	"go.uber.org/zap"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	contextActorKey = "actor"
)

// ActorRequired resolves the caller from the identity headers set by the
// upstream gateway.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.Parse(c.GetHeader(HeaderActorID), c.GetHeader(HeaderActorRole))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actor)
		ctx = obscontext.WithActor(ctx, actor.Role.String(), actor.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

// WriteRateLimit throttles mutating calls per actor. Redis failures let the
// call through.
func (s *Server) WriteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() || isReadOnlyMethod(c.Request.Method) {
			c.Next()
			return
		}
		actor, ok := actorFrom(c)
		if !ok {
			c.Next()
			return
		}

		res, err := s.limiter.AllowActor(c.Request.Context(), actor.ID.String())
		if err != nil {
			s.log.Warn("write rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			seconds := int(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) (actorcontext.Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return actorcontext.Actor{}, false
	}
	actor, ok := value.(actorcontext.Actor)
	return actor, ok
}

func isReadOnlyMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
