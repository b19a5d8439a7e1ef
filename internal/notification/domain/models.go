package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
)

// EventKind names a committed change that may warrant notifying staff.
type EventKind string

const (
	EventStatusChanged EventKind = "status_changed"
	EventRequestClosed EventKind = "request_closed"
	EventAssigned      EventKind = "assigned"
	EventPartReserved  EventKind = "part_reserved"
	EventCostWithPart  EventKind = "cost_with_part"
	EventSLAOverdue    EventKind = "sla_overdue"
)

// Event describes a committed mutation. It is built by the mutating service
// and turned into per-recipient intents after commit.
type Event struct {
	Kind                 EventKind
	RequestID            snowflake.ID
	RequestNumber        string
	DepartmentID         *snowflake.ID
	AssignedTechnicianID *snowflake.ID
	ActorID              snowflake.ID
	ActorRole            authorization.Role
	FromStatus           string
	ToStatus             string
	PartName             string
	Quantity             int
	OccurredAt           time.Time
}

type IntentType string

const (
	IntentStatusChange  IntentType = "STATUS_CHANGE"
	IntentRequestClosed IntentType = "REQUEST_CLOSED"
	IntentAssignment    IntentType = "ASSIGNMENT"
	IntentPartReserved  IntentType = "PART_RESERVED"
	IntentCostAdded     IntentType = "COST_ADDED"
	IntentSLAOverdue    IntentType = "SLA_OVERDUE"
)

// Intent is one notification addressed to one user. Delivery is someone else's job.
type Intent struct {
	ID              string        `json:"id"`
	RecipientUserID snowflake.ID  `json:"recipient_user_id"`
	RequestID       *snowflake.ID `json:"request_id,omitempty"`
	Title           string        `json:"title"`
	Message         string        `json:"message"`
	Type            IntentType    `json:"type"`
	ActingUserID    *snowflake.ID `json:"acting_user_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}
