package domain

import (
	"time"

	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	"github.com/smallbiznis/repairdesk/internal/authorization"
)

var technicianEdges = map[Status][]Status{
	StatusNew:      {StatusAssigned},
	StatusAssigned: {StatusUnderInspection, StatusWaitingParts, StatusInRepair},
	StatusInRepair: {StatusCompleted},
}

var managerTargets = map[Status]bool{
	StatusAssigned:        true,
	StatusUnderInspection: true,
	StatusWaitingParts:    true,
	StatusInRepair:        true,
	StatusCompleted:       true,
}

// CheckTransition decides whether actor may move req to target. It does not
// mutate req.
func CheckTransition(actor actorcontext.Actor, req Request, target Status) error {
	if !target.Valid() {
		return ErrInvalidStatus
	}
	if target == StatusClosed {
		if !actor.Role.IsManager() {
			return ErrForbidden
		}
		return ErrCloseRequired
	}

	switch {
	case actor.Role.IsManager():
		if !managerTargets[target] {
			return ErrForbidden
		}
		if req.Status == StatusClosed && !actor.Role.IsTop() {
			return ErrForbidden
		}
		return nil
	case actor.Role == authorization.RoleTechnician:
		if !req.IsAssignedTo(actor.ID) {
			return ErrForbidden
		}
		for _, allowed := range technicianEdges[req.Status] {
			if allowed == target {
				return nil
			}
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// CheckClose enforces the COMPLETED to CLOSED edge.
func CheckClose(actor actorcontext.Actor, req Request) error {
	if !actor.Role.IsManager() {
		return ErrForbidden
	}
	if req.Status != StatusCompleted {
		return ErrNotCompleted
	}
	return nil
}

// EnterStatus sets req.Status and stamps the first-entry timestamp for it.
func EnterStatus(req *Request, target Status, now time.Time) {
	req.Status = target
	switch target {
	case StatusUnderInspection:
		if req.StartedAt == nil {
			req.StartedAt = &now
		}
	case StatusCompleted:
		if req.CompletedAt == nil {
			req.CompletedAt = &now
		}
	case StatusClosed:
		if req.ClosedAt == nil {
			req.ClosedAt = &now
		}
	case StatusNew, StatusAssigned, StatusWaitingParts, StatusInRepair:
	}
}

// StatusAfterAssignment is where an assignment leaves the request.
func StatusAfterAssignment(current Status) Status {
	switch current {
	case StatusClosed:
		return StatusNew
	case StatusCompleted:
		return StatusCompleted
	default:
		return StatusAssigned
	}
}
