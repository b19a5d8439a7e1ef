package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

// Service registers the people who bring devices in. Requests reference a
// customer by id, so customers are never deleted.
type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, snowflake.ID) (Customer, error)
}

type CreateCustomerRequest struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// ListCustomerRequest searches the intake list. Name matches by
// case-insensitive prefix, Phone matches the normalized number exactly.
type ListCustomerRequest struct {
	pagination.Pagination
	Name  string
	Phone string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	Search(ctx context.Context, db *gorm.DB, filter SearchFilter) ([]*Customer, error)
}

// SearchFilter is a keyset page: rows with id below BeforeID, newest first.
type SearchFilter struct {
	NamePrefix string
	Phone      string
	BeforeID   *snowflake.ID
	Limit      int
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidPageToken = pagination.ErrInvalidToken
	ErrNotFound         = errors.New("customer_not_found")
)
