package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// NewRequestReader exposes request lookups to the spare part ledger.
func NewRequestReader() sparepartdomain.RequestReader {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, req *domain.Request) error {
	return conn.WithContext(ctx).Create(req).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	var rows []domain.Request
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Request, error) {
	var rows []domain.Request
	err := db.ForUpdate(conn.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) FindRequestRef(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*sparepartdomain.RequestRef, error) {
	req, err := r.FindByID(ctx, conn, id)
	if err != nil || req == nil {
		return nil, err
	}
	ref := domain.RefOf(*req)
	return &ref, nil
}

func (r *repo) LockRequestRef(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*sparepartdomain.RequestRef, error) {
	req, err := r.FindForUpdate(ctx, tx, id)
	if err != nil || req == nil {
		return nil, err
	}
	ref := domain.RefOf(*req)
	return &ref, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Request, error) {
	var items []*domain.Request
	stmt := conn.WithContext(ctx).Model(&domain.Request{})
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.DepartmentID != nil {
		stmt = stmt.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.AssignedTechnicianID != nil {
		stmt = stmt.Where("assigned_technician_id = ?", *filter.AssignedTechnicianID)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Overdue != nil {
		stmt = stmt.Where("is_overdue = ?", *filter.Overdue)
	}
	if filter.BeforeID != nil {
		stmt = stmt.Where("id < ?", *filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, req *domain.Request) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE service_requests
		 SET status = ?, assigned_technician_id = ?, assigned_at = ?, started_at = ?,
		     completed_at = ?, closed_at = ?, final_notes = ?, customer_satisfaction = ?,
		     updated_at = ?
		 WHERE id = ?`,
		req.Status,
		req.AssignedTechnicianID,
		req.AssignedAt,
		req.StartedAt,
		req.CompletedAt,
		req.ClosedAt,
		req.FinalNotes,
		req.CustomerSatisfaction,
		req.UpdatedAt,
		req.ID,
	).Error
}

func (r *repo) AddTotalCost(ctx context.Context, conn *gorm.DB, id snowflake.ID, amount int64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE service_requests SET total_cost = total_cost + ?, updated_at = ? WHERE id = ?`,
		amount,
		now,
		id,
	).Error
}

func (r *repo) ListOverdueCandidates(ctx context.Context, conn *gorm.DB, now time.Time, limit int) ([]*domain.Request, error) {
	var items []*domain.Request
	stmt := conn.WithContext(ctx).
		Where("is_overdue = ?", false).
		Where("sla_due_date IS NOT NULL AND sla_due_date < ?", now).
		Where("status NOT IN ?", []domain.Status{domain.StatusCompleted, domain.StatusClosed}).
		Order("sla_due_date asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkOverdue(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE service_requests
		 SET is_overdue = ?, updated_at = ?
		 WHERE id = ? AND is_overdue = ? AND sla_due_date IS NOT NULL AND sla_due_date < ?
		   AND status NOT IN (?, ?)`,
		true,
		now,
		id,
		false,
		now,
		domain.StatusCompleted,
		domain.StatusClosed,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertCost(ctx context.Context, conn *gorm.DB, cost *domain.RequestCost) error {
	return conn.WithContext(ctx).Create(cost).Error
}

func (r *repo) ListCosts(ctx context.Context, conn *gorm.DB, requestID snowflake.ID) ([]*domain.RequestCost, error) {
	var items []*domain.RequestCost
	err := conn.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
