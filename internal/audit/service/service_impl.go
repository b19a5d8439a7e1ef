package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const savepointName = "audit_write"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    auditdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    auditdomain.Repository
	metrics *metrics.Metrics
}

func newService(p Params) *Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func NewService(p Params) auditdomain.Service {
	return newService(p)
}

func NewRecorder(p Params) auditdomain.Recorder {
	return newService(p)
}

func (s *Service) RecordPartChange(ctx context.Context, tx *gorm.DB, entry auditdomain.PartHistory) {
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	entry.Description = strings.TrimSpace(entry.Description)

	err := s.guarded(tx, func() error {
		return s.repo.InsertPartHistory(ctx, tx, &entry)
	})
	if err != nil {
		s.log.Warn("failed to write spare part history",
			zap.String("spare_part_id", entry.SparePartID.String()),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err),
		)
		s.metrics.RecordAuditFailure(ctx, "part_history")
	}
}

func (s *Service) RecordActivity(ctx context.Context, tx *gorm.DB, entry auditdomain.RequestActivity) {
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	entry.Description = strings.TrimSpace(entry.Description)

	err := s.guarded(tx, func() error {
		return s.repo.InsertActivity(ctx, tx, &entry)
	})
	if err != nil {
		s.log.Warn("failed to write request activity",
			zap.String("request_id", entry.RequestID.String()),
			zap.String("activity_type", string(entry.ActivityType)),
			zap.Error(err),
		)
		s.metrics.RecordAuditFailure(ctx, "request_activity")
	}
}

// guarded runs write behind a savepoint so a failed insert leaves the outer
// transaction usable on dialects that abort on statement errors.
func (s *Service) guarded(tx *gorm.DB, write func() error) error {
	if err := tx.SavePoint(savepointName).Error; err != nil {
		return err
	}
	if err := write(); err != nil {
		if rbErr := tx.RollbackTo(savepointName).Error; rbErr != nil {
			s.log.Error("failed to roll back audit savepoint", zap.Error(rbErr))
		}
		return err
	}
	return nil
}

func (s *Service) ListPartHistory(ctx context.Context, req auditdomain.ListPartHistoryRequest) (auditdomain.ListPartHistoryResponse, error) {
	if req.SparePartID == 0 {
		return auditdomain.ListPartHistoryResponse{}, auditdomain.ErrInvalidSubject
	}
	before, err := req.Before()
	if err != nil {
		return auditdomain.ListPartHistoryResponse{}, err
	}
	pageSize := req.Size()

	items, err := s.repo.ListPartHistory(ctx, s.db, auditdomain.ListFilter{
		SubjectID: req.SparePartID,
		BeforeID:  before,
		Limit:     pageSize,
	})
	if err != nil {
		return auditdomain.ListPartHistoryResponse{}, err
	}

	history, pageInfo := pagination.Page(items, pageSize, func(item *auditdomain.PartHistory) snowflake.ID { return item.ID })
	return auditdomain.ListPartHistoryResponse{PageInfo: pageInfo, History: history}, nil
}

func (s *Service) ListActivities(ctx context.Context, req auditdomain.ListActivitiesRequest) (auditdomain.ListActivitiesResponse, error) {
	if req.RequestID == 0 {
		return auditdomain.ListActivitiesResponse{}, auditdomain.ErrInvalidSubject
	}
	before, err := req.Before()
	if err != nil {
		return auditdomain.ListActivitiesResponse{}, err
	}
	pageSize := req.Size()

	items, err := s.repo.ListActivities(ctx, s.db, auditdomain.ListFilter{
		SubjectID: req.RequestID,
		BeforeID:  before,
		Limit:     pageSize,
	})
	if err != nil {
		return auditdomain.ListActivitiesResponse{}, err
	}

	activities, pageInfo := pagination.Page(items, pageSize, func(item *auditdomain.RequestActivity) snowflake.ID { return item.ID })
	return auditdomain.ListActivitiesResponse{PageInfo: pageInfo, Activities: activities}, nil
}
