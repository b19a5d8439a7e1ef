package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type PartChangeType string

const (
	PartChangeCreated         PartChangeType = "CREATED"
	PartChangeUpdated         PartChangeType = "UPDATED"
	PartChangeQuantityChanged PartChangeType = "QUANTITY_CHANGED"
	PartChangeUsedInRequest   PartChangeType = "USED_IN_REQUEST"
)

type ActivityType string

const (
	ActivityCreated       ActivityType = "CREATED"
	ActivityStatusChanged ActivityType = "STATUS_CHANGED"
	ActivityAssigned      ActivityType = "ASSIGNED"
	ActivityClosed        ActivityType = "CLOSED"
	ActivityCostAdded     ActivityType = "COST_ADDED"
	ActivityPartAdded     ActivityType = "PART_ADDED"
	ActivityPartRemoved   ActivityType = "PART_REMOVED"
	ActivityPartUpdated   ActivityType = "PART_UPDATED"
)

// PartHistory is one append-only row describing a spare part change.
type PartHistory struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	SparePartID    snowflake.ID   `json:"spare_part_id" gorm:"not null;index"`
	ChangeType     PartChangeType `json:"change_type" gorm:"type:varchar(32);not null"`
	FieldChanged   *string        `json:"field_changed,omitempty"`
	OldValue       *string        `json:"old_value,omitempty"`
	NewValue       *string        `json:"new_value,omitempty"`
	QuantityChange *int           `json:"quantity_change,omitempty"`
	Description    string         `json:"description" gorm:"not null"`
	RequestID      *snowflake.ID  `json:"request_id,omitempty"`
	ChangedByID    snowflake.ID   `json:"changed_by_id" gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at" gorm:"not null"`
}

func (PartHistory) TableName() string { return "spare_part_history" }

// RequestActivity is one append-only row on a request timeline.
type RequestActivity struct {
	ID           snowflake.ID      `json:"id" gorm:"primaryKey"`
	RequestID    snowflake.ID      `json:"request_id" gorm:"not null;index"`
	ActorID      snowflake.ID      `json:"actor_id" gorm:"not null"`
	ActivityType ActivityType      `json:"activity_type" gorm:"type:varchar(32);not null"`
	Description  string            `json:"description" gorm:"not null"`
	OldValue     *string           `json:"old_value,omitempty"`
	NewValue     *string           `json:"new_value,omitempty"`
	Comment      *string           `json:"comment,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null"`
}

func (RequestActivity) TableName() string { return "request_activities" }

type ListFilter struct {
	SubjectID snowflake.ID
	BeforeID  *snowflake.ID
	Limit     int
}
