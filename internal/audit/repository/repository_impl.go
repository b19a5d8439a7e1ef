package repository

import (
	"context"

	"github.com/smallbiznis/repairdesk/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPartHistory(ctx context.Context, db *gorm.DB, entry *domain.PartHistory) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO spare_part_history (
			id, spare_part_id, change_type, field_changed, old_value, new_value,
			quantity_change, description, request_id, changed_by_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SparePartID,
		entry.ChangeType,
		entry.FieldChanged,
		entry.OldValue,
		entry.NewValue,
		entry.QuantityChange,
		entry.Description,
		entry.RequestID,
		entry.ChangedByID,
		entry.CreatedAt,
	).Error
}

func (r *repo) InsertActivity(ctx context.Context, db *gorm.DB, entry *domain.RequestActivity) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListPartHistory(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PartHistory, error) {
	var rows []*domain.PartHistory
	stmt := db.WithContext(ctx).Model(&domain.PartHistory{}).
		Where("spare_part_id = ?", filter.SubjectID)
	if filter.BeforeID != nil {
		stmt = stmt.Where("id < ?", *filter.BeforeID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListActivities(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.RequestActivity, error) {
	var rows []*domain.RequestActivity
	stmt := db.WithContext(ctx).Model(&domain.RequestActivity{}).
		Where("request_id = ?", filter.SubjectID)
	if filter.BeforeID != nil {
		stmt = stmt.Where("id < ?", *filter.BeforeID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
