package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPartHistory(ctx context.Context, db *gorm.DB, entry *PartHistory) error
	InsertActivity(ctx context.Context, db *gorm.DB, entry *RequestActivity) error
	ListPartHistory(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PartHistory, error)
	ListActivities(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*RequestActivity, error)
}

// Recorder appends audit rows inside the caller's transaction. It never
// returns an error: a failed write is rolled back to a savepoint, logged and
// counted, and the surrounding mutation still commits.
type Recorder interface {
	RecordPartChange(ctx context.Context, tx *gorm.DB, entry PartHistory)
	RecordActivity(ctx context.Context, tx *gorm.DB, entry RequestActivity)
}

type ListPartHistoryRequest struct {
	pagination.Pagination
	SparePartID snowflake.ID
}

type ListPartHistoryResponse struct {
	pagination.PageInfo
	History []PartHistory `json:"history"`
}

type ListActivitiesRequest struct {
	pagination.Pagination
	RequestID snowflake.ID
}

type ListActivitiesResponse struct {
	pagination.PageInfo
	Activities []RequestActivity `json:"activities"`
}

type Service interface {
	ListPartHistory(ctx context.Context, req ListPartHistoryRequest) (ListPartHistoryResponse, error)
	ListActivities(ctx context.Context, req ListActivitiesRequest) (ListActivitiesResponse, error)
}

var (
	ErrInvalidPageToken = pagination.ErrInvalidToken
	ErrInvalidSubject   = errors.New("invalid_subject")
)
