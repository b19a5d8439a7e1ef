package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
)

// Notifier accepts events after commit. It never blocks on delivery and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type Planner interface {
	Plan(ctx context.Context, event Event) ([]Intent, error)
}

type Publisher interface {
	Publish(ctx context.Context, intent Intent) error
}

// Directory is the slice of the user directory the planner needs.
type Directory interface {
	ListManagers(ctx context.Context, departmentID *snowflake.ID) ([]userdomain.User, error)
	ListActiveByRole(ctx context.Context, role authorization.Role) ([]userdomain.User, error)
}
