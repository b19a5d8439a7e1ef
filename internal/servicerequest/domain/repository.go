package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status               *Status
	DepartmentID         *snowflake.ID
	AssignedTechnicianID *snowflake.ID
	CustomerID           *snowflake.ID
	Overdue              *bool
	BeforeID             *snowflake.ID
	Limit                int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *Request) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	// FindForUpdate reads the request with a row lock where the dialect supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Request, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Request, error)
	// Update writes the lifecycle columns of req.
	Update(ctx context.Context, db *gorm.DB, req *Request) error
	AddTotalCost(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) error

	// ListOverdueCandidates returns unfinished, unflagged requests due before now.
	ListOverdueCandidates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Request, error)
	// MarkOverdue flags one request if it still qualifies and reports whether it did.
	MarkOverdue(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	InsertCost(ctx context.Context, db *gorm.DB, cost *RequestCost) error
	ListCosts(ctx context.Context, db *gorm.DB, requestID snowflake.ID) ([]*RequestCost, error)
}
