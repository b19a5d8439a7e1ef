package sla

import (
	"context"
	"time"

	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	notifydomain "github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SourceSweep = "sweep"
	SourceRead  = "read"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Holder   *config.SLAConfigHolder
	Repo     domain.Repository
	Notifier notifydomain.Notifier
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service flags overdue requests. Flagging only ever sets is_overdue and is
// safe to repeat.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	holder   *config.SLAConfigHolder
	repo     domain.Repository
	notifier notifydomain.Notifier
	metrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("sla.service"),
		clock:    p.Clock,
		holder:   p.Holder,
		repo:     p.Repo,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

// SweepOverdue flags up to limit overdue requests and returns how many it
// flagged. A non-positive limit uses the configured batch size.
func (s *Service) SweepOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = s.holder.Get().SweepBatchSize
	}
	now := s.clock.Now()

	candidates, err := s.repo.ListOverdueCandidates(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, req := range candidates {
		if err := ctx.Err(); err != nil {
			return flagged, err
		}
		ok, err := s.repo.MarkOverdue(ctx, s.db, req.ID, now)
		if err != nil {
			return flagged, err
		}
		if !ok {
			continue
		}
		flagged++
		req.IsOverdue = true
		s.notifier.Notify(ctx, overdueEvent(*req, now))
	}

	if flagged > 0 {
		s.metrics.RecordOverdueFlagged(ctx, SourceSweep, flagged)
		s.log.Info("flagged overdue requests",
			zap.Int("flagged", flagged),
			zap.Int("candidates", len(candidates)),
		)
	}
	return flagged, nil
}

// Refresh flags req if it is overdue at the current time and updates the
// caller's copy.
func (s *Service) Refresh(ctx context.Context, req *domain.Request) (bool, error) {
	now := s.clock.Now()
	if req == nil || !Due(*req, now) {
		return false, nil
	}

	ok, err := s.repo.MarkOverdue(ctx, s.db, req.ID, now)
	if err != nil {
		return false, err
	}
	if !ok {
		// lost a race with the sweep or a status change
		fresh, err := s.repo.FindByID(ctx, s.db, req.ID)
		if err != nil {
			return false, err
		}
		if fresh != nil {
			*req = *fresh
		}
		return false, nil
	}
	req.IsOverdue = true

	s.metrics.RecordOverdueFlagged(ctx, SourceRead, 1)
	s.notifier.Notify(ctx, overdueEvent(*req, now))
	return true, nil
}

func overdueEvent(req domain.Request, now time.Time) notifydomain.Event {
	dept := req.DepartmentID
	return notifydomain.Event{
		Kind:                 notifydomain.EventSLAOverdue,
		RequestID:            req.ID,
		RequestNumber:        req.RequestNumber,
		DepartmentID:         &dept,
		AssignedTechnicianID: req.AssignedTechnicianID,
		ActorID:              actorcontext.SystemActor.ID,
		ActorRole:            actorcontext.SystemActor.Role,
		FromStatus:           string(req.Status),
		ToStatus:             string(req.Status),
		OccurredAt:           now,
	}
}
