package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/notification/domain"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
)

type planner struct {
	directory domain.Directory
	clock     clock.Clock
}

func NewPlanner(directory domain.Directory, clk clock.Clock) domain.Planner {
	return &planner{directory: directory, clock: clk}
}

// Plan resolves recipients for event. The acting user is never a recipient
// and each recipient appears once.
func (p *planner) Plan(ctx context.Context, event domain.Event) ([]domain.Intent, error) {
	var recipients []snowflake.ID

	switch event.Kind {
	case domain.EventStatusChanged, domain.EventRequestClosed:
		// The assigned technician hears of every change but their own; the
		// actor is dropped below.
		if event.AssignedTechnicianID != nil {
			recipients = append(recipients, *event.AssignedTechnicianID)
		}
		if event.ActorRole == authorization.RoleTechnician {
			managers, err := p.directory.ListManagers(ctx, event.DepartmentID)
			if err != nil {
				return nil, err
			}
			recipients = appendUsers(recipients, managers)
		}
	case domain.EventAssigned:
		if event.AssignedTechnicianID != nil {
			recipients = append(recipients, *event.AssignedTechnicianID)
		}
	case domain.EventPartReserved, domain.EventCostWithPart:
		keepers, err := p.directory.ListActiveByRole(ctx, authorization.RoleWarehouseKeeper)
		if err != nil {
			return nil, err
		}
		recipients = appendUsers(recipients, keepers)
		managers, err := p.directory.ListManagers(ctx, event.DepartmentID)
		if err != nil {
			return nil, err
		}
		recipients = appendUsers(recipients, managers)
	case domain.EventSLAOverdue:
		if event.AssignedTechnicianID != nil {
			recipients = append(recipients, *event.AssignedTechnicianID)
		}
		managers, err := p.directory.ListManagers(ctx, event.DepartmentID)
		if err != nil {
			return nil, err
		}
		recipients = appendUsers(recipients, managers)
	default:
		return nil, nil
	}

	recipients = dedupeExcluding(recipients, event.ActorID)
	if len(recipients) == 0 {
		return nil, nil
	}

	intentType, title, message := describe(event)
	requestID := event.RequestID
	var actingUserID *snowflake.ID
	if event.ActorID != 0 {
		actor := event.ActorID
		actingUserID = &actor
	}
	now := p.clock.Now()

	intents := make([]domain.Intent, 0, len(recipients))
	for _, recipient := range recipients {
		intents = append(intents, domain.Intent{
			ID:              ulid.Make().String(),
			RecipientUserID: recipient,
			RequestID:       &requestID,
			Title:           title,
			Message:         message,
			Type:            intentType,
			ActingUserID:    actingUserID,
			CreatedAt:       now,
		})
	}
	return intents, nil
}

func describe(event domain.Event) (domain.IntentType, string, string) {
	number := event.RequestNumber
	switch event.Kind {
	case domain.EventStatusChanged:
		return domain.IntentStatusChange,
			fmt.Sprintf("Request %s status changed", number),
			fmt.Sprintf("Status changed from %s to %s", event.FromStatus, event.ToStatus)
	case domain.EventRequestClosed:
		return domain.IntentRequestClosed,
			fmt.Sprintf("Request %s closed", number),
			fmt.Sprintf("Status changed from %s to %s", event.FromStatus, event.ToStatus)
	case domain.EventAssigned:
		return domain.IntentAssignment,
			fmt.Sprintf("Request %s assigned to you", number),
			fmt.Sprintf("You have been assigned request %s", number)
	case domain.EventPartReserved:
		return domain.IntentPartReserved,
			fmt.Sprintf("Parts reserved for %s", number),
			fmt.Sprintf("%d x %s reserved for request %s", event.Quantity, event.PartName, number)
	case domain.EventCostWithPart:
		return domain.IntentCostAdded,
			fmt.Sprintf("Part cost added to %s", number),
			fmt.Sprintf("%d x %s used on request %s", event.Quantity, event.PartName, number)
	case domain.EventSLAOverdue:
		return domain.IntentSLAOverdue,
			fmt.Sprintf("Request %s is overdue", number),
			fmt.Sprintf("Request %s has passed its SLA due date", number)
	default:
		return "", "", ""
	}
}

func appendUsers(ids []snowflake.ID, users []userdomain.User) []snowflake.ID {
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	return ids
}

func dedupeExcluding(ids []snowflake.ID, exclude snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
