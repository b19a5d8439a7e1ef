package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/authorization"
)

type Department struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// User is a staff member. The core only reads users; identity and sessions
// are managed elsewhere.
type User struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"id"`
	Name         string             `gorm:"not null" json:"name"`
	Email        string             `gorm:"not null;uniqueIndex" json:"email"`
	Role         authorization.Role `gorm:"type:varchar(32);not null;index" json:"role"`
	DepartmentID *snowflake.ID      `gorm:"index" json:"department_id,omitempty"`
	Active       bool               `gorm:"not null" json:"active"`
	CreatedAt    time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null" json:"updated_at"`
}

func (u User) IsActiveTechnician() bool {
	return u.Active && u.Role == authorization.RoleTechnician
}
