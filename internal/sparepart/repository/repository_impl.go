package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const partColumns = `id, part_number, name, present_pieces, unit_price, currency, department_id,
	version, created_by_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, part *domain.SparePart) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO spare_parts (`+partColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		part.ID,
		part.PartNumber,
		part.Name,
		part.PresentPieces,
		part.UnitPrice,
		part.Currency,
		part.DepartmentID,
		part.Version,
		part.CreatedByID,
		part.CreatedAt,
		part.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.SparePart, error) {
	var part domain.SparePart
	err := conn.WithContext(ctx).Raw(
		`SELECT `+partColumns+` FROM spare_parts WHERE id = ?`,
		id,
	).Scan(&part).Error
	if err != nil {
		return nil, err
	}
	if part.ID == 0 {
		return nil, nil
	}
	return &part, nil
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.SparePart, error) {
	var parts []domain.SparePart
	err := db.ForUpdate(conn.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&parts).Error
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &parts[0], nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.SparePart, error) {
	var parts []*domain.SparePart
	stmt := conn.WithContext(ctx).Model(&domain.SparePart{})
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+filter.Name+"%")
	}
	if filter.DepartmentID != nil {
		stmt = stmt.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.BeforeID != nil {
		stmt = stmt.Where("id < ?", *filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repo) UpdateDetails(ctx context.Context, conn *gorm.DB, part *domain.SparePart, now time.Time) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE spare_parts
		 SET name = ?, present_pieces = ?, unit_price = ?, currency = ?, department_id = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND ? >= 0`,
		part.Name,
		part.PresentPieces,
		part.UnitPrice,
		part.Currency,
		part.DepartmentID,
		now,
		part.ID,
		part.Version,
		part.PresentPieces,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) DecrementStock(ctx context.Context, conn *gorm.DB, id snowflake.ID, quantity int, now time.Time) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE spare_parts
		 SET present_pieces = present_pieces - ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND present_pieces >= ?`,
		quantity,
		now,
		id,
		quantity,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) IncrementStock(ctx context.Context, conn *gorm.DB, id snowflake.ID, quantity int, now time.Time) error {
	res := conn.WithContext(ctx).Exec(
		`UPDATE spare_parts
		 SET present_pieces = present_pieces + ?, version = version + 1, updated_at = ?
		 WHERE id = ?`,
		quantity,
		now,
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(`DELETE FROM spare_parts WHERE id = ?`, id).Error
}

func (r *repo) CountReservations(ctx context.Context, conn *gorm.DB, sparePartID snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).Model(&domain.RequestPart{}).
		Where("spare_part_id = ?", sparePartID).
		Count(&count).Error
	return count, err
}

func (r *repo) InsertRequestPart(ctx context.Context, conn *gorm.DB, rp *domain.RequestPart) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO request_parts (
			id, request_id, spare_part_id, quantity_used, unit_price, total_cost,
			currency, created_by_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rp.ID,
		rp.RequestID,
		rp.SparePartID,
		rp.QuantityUsed,
		rp.UnitPrice,
		rp.TotalCost,
		rp.Currency,
		rp.CreatedByID,
		rp.CreatedAt,
		rp.UpdatedAt,
	).Error
}

func (r *repo) FindRequestPartForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.RequestPart, error) {
	var rows []domain.RequestPart
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

func (r *repo) UpdateRequestPartQuantity(ctx context.Context, conn *gorm.DB, rp *domain.RequestPart) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE request_parts SET quantity_used = ?, total_cost = ?, updated_at = ? WHERE id = ?`,
		rp.QuantityUsed,
		rp.TotalCost,
		rp.UpdatedAt,
		rp.ID,
	).Error
}

func (r *repo) DeleteRequestPart(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(`DELETE FROM request_parts WHERE id = ?`, id).Error
}

func (r *repo) ListRequestParts(ctx context.Context, conn *gorm.DB, filter domain.RequestPartFilter) ([]*domain.RequestPart, error) {
	var rows []*domain.RequestPart
	stmt := conn.WithContext(ctx).Where("request_id = ?", filter.RequestID)
	if filter.BeforeID != nil {
		stmt = stmt.Where("id < ?", *filter.BeforeID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
