package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Actor         actorcontext.Actor
	Name          string
	PresentPieces int
	UnitPrice     int64
	Currency      string
	DepartmentID  *snowflake.ID
}

// UpdateRequest carries a partial edit. Nil fields are left unchanged.
type UpdateRequest struct {
	Actor           actorcontext.Actor
	ID              snowflake.ID
	Name            *string
	PresentPieces   *int
	UnitPrice       *int64
	Currency        *string
	DepartmentID    *snowflake.ID
	ClearDepartment bool
	ExpectedVersion *int64
}

type AdjustQuantityRequest struct {
	Actor      actorcontext.Actor
	ID         snowflake.ID
	Adjustment int
	Reason     string
}

type ReserveRequest struct {
	Actor       actorcontext.Actor
	RequestID   snowflake.ID
	SparePartID snowflake.ID
	Quantity    int
}

type ReleaseRequest struct {
	Actor         actorcontext.Actor
	RequestPartID snowflake.ID
}

type AdjustReservationRequest struct {
	Actor         actorcontext.Actor
	RequestPartID snowflake.ID
	NewQuantity   int
}

type ListRequest struct {
	pagination.Pagination
	Name         string
	DepartmentID *snowflake.ID
}

type ListRequestPartsRequest struct {
	pagination.Pagination
	RequestID snowflake.ID
}

type ListRequestPartsResponse struct {
	pagination.PageInfo
	RequestParts []RequestPart `json:"request_parts"`
}

type ListResponse struct {
	pagination.PageInfo
	SpareParts []SparePart `json:"spare_parts"`
}

// Reservation is the outcome of a stock movement against a request.
type Reservation struct {
	RequestPart RequestPart `json:"request_part"`
	SparePart   SparePart   `json:"spare_part"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (SparePart, error)
	Get(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) (SparePart, error)
	List(ctx context.Context, actor actorcontext.Actor, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (SparePart, error)
	Delete(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) error
	AdjustQuantity(ctx context.Context, req AdjustQuantityRequest) (SparePart, error)
	ListHistory(ctx context.Context, actor actorcontext.Actor, req auditdomain.ListPartHistoryRequest) (auditdomain.ListPartHistoryResponse, error)

	Reserve(ctx context.Context, req ReserveRequest) (Reservation, error)
	Release(ctx context.Context, req ReleaseRequest) error
	Adjust(ctx context.Context, req AdjustReservationRequest) (Reservation, error)
	ListRequestParts(ctx context.Context, actor actorcontext.Actor, req ListRequestPartsRequest) (ListRequestPartsResponse, error)
}

// Ledger exposes the reservation step to callers that already hold a
// transaction, such as recording a parts cost on a request.
type Ledger interface {
	ReserveTx(ctx context.Context, tx *gorm.DB, actor actorcontext.Actor, ref RequestRef, sparePartID snowflake.ID, quantity int) (Reservation, error)
}

var (
	ErrNotFound            = errors.New("spare_part_not_found")
	ErrRequestNotFound     = errors.New("request_not_found")
	ErrRequestPartNotFound = errors.New("request_part_not_found")
	ErrRequestClosed       = errors.New("request_closed")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidAdjustment   = errors.New("invalid_adjustment")
	ErrReasonRequired      = errors.New("reason_required")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrNegativeStock       = errors.New("negative_stock")
	ErrHasReservations     = errors.New("spare_part_has_reservations")
	ErrVersionConflict     = errors.New("version_conflict")
	ErrInvalidPageToken    = pagination.ErrInvalidToken
)
