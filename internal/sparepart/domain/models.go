package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SparePart is a warehouse stock line. PresentPieces never goes below zero and
// every change to it bumps Version and is paired with a history row.
type SparePart struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	PartNumber    string        `gorm:"not null;uniqueIndex" json:"part_number"`
	Name          string        `gorm:"not null" json:"name"`
	PresentPieces int           `gorm:"not null" json:"present_pieces"`
	UnitPrice     int64         `gorm:"not null" json:"unit_price"`
	Currency      string        `gorm:"type:char(3);not null" json:"currency"`
	DepartmentID  *snowflake.ID `gorm:"index" json:"department_id,omitempty"`
	Version       int64         `gorm:"not null" json:"version"`
	CreatedByID   snowflake.ID  `gorm:"not null" json:"created_by_id"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (SparePart) TableName() string { return "spare_parts" }

// RequestPart reserves units of a spare part for a request. Price is
// snapshotted when the reservation is made.
type RequestPart struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	RequestID    snowflake.ID `gorm:"not null;index" json:"request_id"`
	SparePartID  snowflake.ID `gorm:"not null;index" json:"spare_part_id"`
	QuantityUsed int          `gorm:"not null" json:"quantity_used"`
	UnitPrice    int64        `gorm:"not null" json:"unit_price"`
	TotalCost    int64        `gorm:"not null" json:"total_cost"`
	Currency     string       `gorm:"type:char(3);not null" json:"currency"`
	CreatedByID  snowflake.ID `gorm:"not null" json:"created_by_id"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (RequestPart) TableName() string { return "request_parts" }

// RequestRef is the part of a request the ledger needs to know about.
type RequestRef struct {
	ID                   snowflake.ID
	RequestNumber        string
	DepartmentID         snowflake.ID
	AssignedTechnicianID *snowflake.ID
	ReceivedByID         snowflake.ID
	Closed               bool
}

// HandledBy reports whether userID is the assigned technician or the staff
// member who received the request.
func (r RequestRef) HandledBy(userID snowflake.ID) bool {
	if r.AssignedTechnicianID != nil && *r.AssignedTechnicianID == userID {
		return true
	}
	return r.ReceivedByID == userID
}
