package actorcontext

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
)

// Actor is the caller identity resolved upstream of the core.
type Actor struct {
	ID   snowflake.ID
	Role authorization.Role
}

func (a Actor) Valid() bool {
	return a.ID != 0 && a.Role.Valid()
}

// ErrUnauthenticated means no usable caller identity reached the core.
var ErrUnauthenticated = errors.New("unauthenticated")

type actorContextKey struct{}

// SystemActor is used by background jobs.
var SystemActor = Actor{ID: 0, Role: authorization.RoleSystem}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok {
		return Actor{}, false
	}
	return actor, true
}

// Parse builds an actor from raw header values.
func Parse(rawID, rawRole string) (Actor, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(rawID))
	if err != nil || id == 0 {
		return Actor{}, false
	}
	role, ok := authorization.ParseRole(rawRole)
	if !ok || role == authorization.RoleSystem {
		return Actor{}, false
	}
	return Actor{ID: id, Role: role}, true
}

// Require rejects actors that cannot be attributed to a staff member.
func Require(actor Actor) error {
	if !actor.Valid() || actor.Role == authorization.RoleSystem {
		return ErrUnauthenticated
	}
	return nil
}
