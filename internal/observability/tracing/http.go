package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/repairdesk/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type httpOptions struct {
	tracerName string
	skipRoutes map[string]struct{}
}

type HTTPOption func(*httpOptions)

// WithTracerName overrides the instrumentation scope name.
func WithTracerName(name string) HTTPOption {
	return func(o *httpOptions) {
		if name = strings.TrimSpace(name); name != "" {
			o.tracerName = name
		}
	}
}

// WithSkipRoutes disables spans for the given gin route patterns.
func WithSkipRoutes(routes ...string) HTTPOption {
	return func(o *httpOptions) {
		for _, route := range routes {
			o.skipRoutes[route] = struct{}{}
		}
	}
}

// GinMiddleware opens one server span per request. The span is named after
// the matched route and tagged with the acting user once the actor
// middleware further down the chain has resolved it.
func GinMiddleware(opts ...HTTPOption) gin.HandlerFunc {
	o := httpOptions{
		tracerName: "repairdesk/http",
		skipRoutes: map[string]struct{}{"/health": {}, "/metrics": {}},
	}
	for _, opt := range opts {
		opt(&o)
	}
	tracer := otel.Tracer(o.tracerName)

	return func(c *gin.Context) {
		if _, skip := o.skipRoutes[c.FullPath()]; skip {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx = withRequestBaggage(ctx)
		ctx, span := tracer.Start(ctx, c.Request.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName(c.Request.Method + " " + route)
		span.SetAttributes(SafeAttributes(requestAttributes(c, route, status)...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func requestAttributes(c *gin.Context, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
	reqCtx := c.Request.Context()
	if requestID := obscontext.RequestIDFromContext(reqCtx); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if role, id := obscontext.ActorFromContext(reqCtx); id != "" {
		attrs = append(attrs,
			attribute.String("repairdesk.actor.role", role),
			attribute.String("repairdesk.actor.id", id),
		)
	}
	if resource := resourceFromRoute(route); resource != "" {
		attrs = append(attrs, attribute.String("repairdesk.resource", resource))
	}
	if id := c.Param("id"); id != "" {
		attrs = append(attrs, attribute.String("repairdesk.resource.id", id))
	}
	if status == http.StatusTooManyRequests {
		attrs = append(attrs, attribute.Bool("repairdesk.rate_limited", true))
	}
	return attrs
}

// resourceFromRoute maps "/api/requests/:id/status" to "requests".
func resourceFromRoute(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return ""
	}
	return parts[1]
}

// withRequestBaggage forwards the request id to downstream services.
func withRequestBaggage(ctx context.Context) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
