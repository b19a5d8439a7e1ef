package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Name         string
	DepartmentID *snowflake.ID
	BeforeID     *snowflake.ID
	Limit        int
}

type RequestPartFilter struct {
	RequestID snowflake.ID
	BeforeID  *snowflake.ID
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, part *SparePart) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SparePart, error)
	// FindForUpdate reads the part with a row lock where the dialect supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SparePart, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*SparePart, error)
	// UpdateDetails writes the mutable fields if the stored version still
	// matches part.Version and reports whether a row was written.
	UpdateDetails(ctx context.Context, db *gorm.DB, part *SparePart, now time.Time) (bool, error)
	// DecrementStock removes quantity only if enough pieces are present.
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int, now time.Time) (bool, error)
	IncrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, quantity int, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	CountReservations(ctx context.Context, db *gorm.DB, sparePartID snowflake.ID) (int64, error)
	InsertRequestPart(ctx context.Context, db *gorm.DB, rp *RequestPart) error
	FindRequestPartForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RequestPart, error)
	UpdateRequestPartQuantity(ctx context.Context, db *gorm.DB, rp *RequestPart) error
	DeleteRequestPart(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListRequestParts(ctx context.Context, db *gorm.DB, filter RequestPartFilter) ([]*RequestPart, error)
}

// RequestReader looks up requests for the ledger without importing the
// request package. LockRequestRef must run inside the caller's transaction.
type RequestReader interface {
	FindRequestRef(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RequestRef, error)
	LockRequestRef(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*RequestRef, error)
}
