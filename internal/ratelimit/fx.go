package ratelimit

import "go.uber.org/fx"

// Module provides a *WriteLimiter, nil unless RATE_LIMIT_ENABLED is set and
// redis is configured.
var Module = fx.Module("ratelimit", fx.Provide(NewWriteLimiter))
