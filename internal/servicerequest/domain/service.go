package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
)

type CreateRequest struct {
	Actor           actorcontext.Actor
	CustomerID      snowflake.ID
	DepartmentID    snowflake.ID
	Priority        string
	WarrantyStatus  string
	ExecutionMethod string
	Description     string
	Currency        string
}

type ListRequest struct {
	pagination.Pagination
	Status               string
	DepartmentID         *snowflake.ID
	AssignedTechnicianID *snowflake.ID
	CustomerID           *snowflake.ID
	Overdue              *bool
}

type ListResponse struct {
	pagination.PageInfo
	Requests []Request `json:"requests"`
}

type ChangeStatusRequest struct {
	Actor   actorcontext.Actor
	ID      snowflake.ID
	Status  string
	Comment string
}

type AssignRequest struct {
	Actor        actorcontext.Actor
	ID           snowflake.ID
	TechnicianID snowflake.ID
}

type CloseRequest struct {
	Actor                actorcontext.Actor
	ID                   snowflake.ID
	FinalNotes           string
	CustomerSatisfaction *int
}

type AddCostRequest struct {
	Actor       actorcontext.Actor
	RequestID   snowflake.ID
	Description string
	Amount      int64
	CostType    string
	Currency    string
	SparePartID *snowflake.ID
	Quantity    *int
}

type AddCostResponse struct {
	Cost      RequestCost                `json:"cost"`
	SparePart *sparepartdomain.SparePart `json:"spare_part,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Request, error)
	// Get refreshes the overdue flag before returning the request.
	Get(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) (Request, error)
	List(ctx context.Context, actor actorcontext.Actor, req ListRequest) (ListResponse, error)
	ChangeStatus(ctx context.Context, req ChangeStatusRequest) (Request, error)
	Assign(ctx context.Context, req AssignRequest) (Request, error)
	Close(ctx context.Context, req CloseRequest) (Request, error)
	AddCost(ctx context.Context, req AddCostRequest) (AddCostResponse, error)
	ListCosts(ctx context.Context, actor actorcontext.Actor, requestID snowflake.ID) ([]RequestCost, error)
	ListActivities(ctx context.Context, actor actorcontext.Actor, req auditdomain.ListActivitiesRequest) (auditdomain.ListActivitiesResponse, error)
}

var (
	ErrForbidden = authorization.ErrForbidden

	ErrNotFound            = errors.New("request_not_found")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPriority     = errors.New("invalid_priority")
	ErrInvalidWarranty     = errors.New("invalid_warranty_status")
	ErrInvalidExecution    = errors.New("invalid_execution_method")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidDepartment   = errors.New("invalid_department")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrInvalidTechnician   = errors.New("invalid_technician")
	ErrCloseRequired       = errors.New("close_required")
	ErrNotCompleted        = errors.New("request_not_completed")
	ErrInvalidSatisfaction = errors.New("invalid_customer_satisfaction")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidCostType     = errors.New("invalid_cost_type")
	ErrQuantityRequired    = errors.New("quantity_required")
	ErrCurrencyMismatch    = errors.New("currency_mismatch")
	ErrRequestClosed       = errors.New("request_closed")
	ErrInvalidPageToken    = pagination.ErrInvalidToken
)

// RefOf is the view of req handed to the spare part ledger.
func RefOf(req Request) sparepartdomain.RequestRef {
	return sparepartdomain.RequestRef{
		ID:                   req.ID,
		RequestNumber:        req.RequestNumber,
		DepartmentID:         req.DepartmentID,
		AssignedTechnicianID: req.AssignedTechnicianID,
		ReceivedByID:         req.ReceivedByID,
		Closed:               req.Status == StatusClosed,
	}
}
