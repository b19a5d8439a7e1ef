package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusNew             Status = "NEW"
	StatusAssigned        Status = "ASSIGNED"
	StatusUnderInspection Status = "UNDER_INSPECTION"
	StatusWaitingParts    Status = "WAITING_PARTS"
	StatusInRepair        Status = "IN_REPAIR"
	StatusCompleted       Status = "COMPLETED"
	StatusClosed          Status = "CLOSED"
)

func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	return status, status.Valid()
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusUnderInspection, StatusWaitingParts,
		StatusInRepair, StatusCompleted, StatusClosed:
		return true
	default:
		return false
	}
}

// Finished reports whether the request no longer counts against its SLA.
func (s Status) Finished() bool {
	switch s {
	case StatusCompleted, StatusClosed:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(value string) (Priority, bool) {
	priority := Priority(strings.ToUpper(strings.TrimSpace(value)))
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return priority, true
	case "":
		return PriorityMedium, true
	default:
		return "", false
	}
}

type WarrantyStatus string

const (
	WarrantyUnder WarrantyStatus = "UNDER_WARRANTY"
	WarrantyOut   WarrantyStatus = "OUT_OF_WARRANTY"
)

func ParseWarrantyStatus(value string) (WarrantyStatus, bool) {
	warranty := WarrantyStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch warranty {
	case WarrantyUnder, WarrantyOut:
		return warranty, true
	default:
		return "", false
	}
}

type ExecutionMethod string

const (
	ExecutionOnSite   ExecutionMethod = "ON_SITE"
	ExecutionWorkshop ExecutionMethod = "WORKSHOP"
)

func ParseExecutionMethod(value string) (ExecutionMethod, bool) {
	method := ExecutionMethod(strings.ToUpper(strings.TrimSpace(value)))
	switch method {
	case ExecutionOnSite, ExecutionWorkshop:
		return method, true
	default:
		return "", false
	}
}

type CostType string

const (
	CostParts     CostType = "PARTS"
	CostLabor     CostType = "LABOR"
	CostTransport CostType = "TRANSPORT"
	CostOther     CostType = "OTHER"
)

func ParseCostType(value string) (CostType, bool) {
	costType := CostType(strings.ToUpper(strings.TrimSpace(value)))
	switch costType {
	case CostParts, CostLabor, CostTransport, CostOther:
		return costType, true
	default:
		return "", false
	}
}

// Request is a service ticket. Lifecycle timestamps are written on first
// entry into their status and never overwritten.
type Request struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	RequestNumber        string          `gorm:"not null;uniqueIndex" json:"request_number"`
	Status               Status          `gorm:"type:varchar(32);not null;index" json:"status"`
	Priority             Priority        `gorm:"type:varchar(16);not null" json:"priority"`
	WarrantyStatus       WarrantyStatus  `gorm:"type:varchar(32);not null" json:"warranty_status"`
	ExecutionMethod      ExecutionMethod `gorm:"type:varchar(16);not null" json:"execution_method"`
	Description          string          `gorm:"not null" json:"description"`
	DepartmentID         snowflake.ID    `gorm:"not null;index" json:"department_id"`
	CustomerID           snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	AssignedTechnicianID *snowflake.ID   `gorm:"index" json:"assigned_technician_id,omitempty"`
	ReceivedByID         snowflake.ID    `gorm:"not null" json:"received_by_id"`
	SLADueDate           *time.Time      `gorm:"index" json:"sla_due_date,omitempty"`
	IsOverdue            bool            `gorm:"not null;default:false" json:"is_overdue"`
	AssignedAt           *time.Time      `json:"assigned_at,omitempty"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
	ClosedAt             *time.Time      `json:"closed_at,omitempty"`
	FinalNotes           *string         `json:"final_notes,omitempty"`
	CustomerSatisfaction *int            `json:"customer_satisfaction,omitempty"`
	TotalCost            int64           `gorm:"not null;default:0" json:"total_cost"`
	Currency             string          `gorm:"type:char(3);not null" json:"currency"`
	CreatedAt            time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null" json:"updated_at"`
}

func (Request) TableName() string { return "service_requests" }

// IsAssignedTo reports whether userID is the technician or the receiver.
func (r Request) IsAssignedTo(userID snowflake.ID) bool {
	if r.AssignedTechnicianID != nil && *r.AssignedTechnicianID == userID {
		return true
	}
	return r.ReceivedByID == userID
}

// RequestCost is an expense booked against a request. A parts cost may carry
// the reservation it was recorded with.
type RequestCost struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	RequestID     snowflake.ID  `gorm:"not null;index" json:"request_id"`
	Description   string        `gorm:"not null" json:"description"`
	Amount        int64         `gorm:"not null" json:"amount"`
	CostType      CostType      `gorm:"type:varchar(16);not null" json:"cost_type"`
	Currency      string        `gorm:"type:char(3);not null" json:"currency"`
	SparePartID   *snowflake.ID `json:"spare_part_id,omitempty"`
	Quantity      *int          `json:"quantity,omitempty"`
	RequestPartID *snowflake.ID `json:"request_part_id,omitempty"`
	CreatedByID   snowflake.ID  `gorm:"not null" json:"created_by_id"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
}

func (RequestCost) TableName() string { return "request_costs" }
