package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	notifydomain "github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	movementReserve = "reserve"
	movementRelease = "release"
	movementAdjust  = "adjust"
	movementEdit    = "edit"
	movementCreate  = "create"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Tx        *db.TxManager
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Requests  domain.RequestReader
	Numbering numbering.Generator
	Recorder  auditdomain.Recorder
	Audit     auditdomain.Service
	Authz     authorization.Service
	Notifier  notifydomain.Notifier
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	tx        *db.TxManager
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	requests  domain.RequestReader
	numbering numbering.Generator
	recorder  auditdomain.Recorder
	audit     auditdomain.Service
	authz     authorization.Service
	notifier  notifydomain.Notifier
	metrics   *metrics.Metrics
}

func newService(p Params) *Service {
	return &Service{
		db:        p.DB,
		tx:        p.Tx,
		log:       p.Log.Named("sparepart.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		requests:  p.Requests,
		numbering: p.Numbering,
		recorder:  p.Recorder,
		audit:     p.Audit,
		authz:     p.Authz,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

func New(p Params) domain.Service {
	return newService(p)
}

func NewLedger(p Params) domain.Ledger {
	return newService(p)
}

func (s *Service) authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	if err := actorcontext.Require(actor); err != nil {
		return err
	}
	return s.authz.Authorize(ctx, actor.Role, object, action)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.SparePart, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectSparePart, authorization.ActionSparePartCreate); err != nil {
		return domain.SparePart{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.SparePart{}, domain.ErrInvalidName
	}
	if req.PresentPieces < 0 {
		return domain.SparePart{}, domain.ErrInvalidQuantity
	}
	if req.UnitPrice < 0 {
		return domain.SparePart{}, domain.ErrInvalidUnitPrice
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return domain.SparePart{}, err
	}

	now := s.clock.Now()
	part := domain.SparePart{
		ID:            s.genID.Generate(),
		Name:          name,
		PresentPieces: req.PresentPieces,
		UnitPrice:     req.UnitPrice,
		Currency:      currency,
		DepartmentID:  req.DepartmentID,
		Version:       1,
		CreatedByID:   req.Actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbering.Next(ctx, tx, numbering.ScopeSparePart, now)
		if err != nil {
			return err
		}
		part.PartNumber = number

		if err := s.repo.Insert(ctx, tx, &part); err != nil {
			return err
		}

		pieces := part.PresentPieces
		s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID:    part.ID,
			ChangeType:     auditdomain.PartChangeCreated,
			QuantityChange: &pieces,
			Description:    fmt.Sprintf("Spare part %s created with %d pieces", part.Name, part.PresentPieces),
			ChangedByID:    req.Actor.ID,
			CreatedAt:      now,
		})
		return nil
	})
	if err != nil {
		return domain.SparePart{}, err
	}

	s.metrics.RecordStockMovement(ctx, movementCreate, part.PresentPieces)
	s.log.Info("spare part created",
		zap.String("spare_part_id", part.ID.String()),
		zap.String("part_number", part.PartNumber),
	)
	return part, nil
}

func (s *Service) Get(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) (domain.SparePart, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectSparePart, authorization.ActionSparePartView); err != nil {
		return domain.SparePart{}, err
	}
	if id == 0 {
		return domain.SparePart{}, domain.ErrInvalidID
	}

	part, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SparePart{}, err
	}
	if part == nil {
		return domain.SparePart{}, domain.ErrNotFound
	}
	return *part, nil
}

func (s *Service) List(ctx context.Context, actor actorcontext.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectSparePart, authorization.ActionSparePartView); err != nil {
		return domain.ListResponse{}, err
	}

	pageSize := req.Size()
	before, err := req.Before()
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Name:         strings.ToLower(strings.TrimSpace(req.Name)),
		DepartmentID: req.DepartmentID,
		BeforeID:     before,
		Limit:        pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	parts, pageInfo := pagination.Page(items, pageSize, func(part *domain.SparePart) snowflake.ID { return part.ID })
	return domain.ListResponse{PageInfo: pageInfo, SpareParts: parts}, nil
}

// Update applies a partial edit and writes one UPDATED row per changed field
// followed by a summary row.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.SparePart, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectSparePart, authorization.ActionSparePartUpdate); err != nil {
		return domain.SparePart{}, err
	}
	if req.ID == 0 {
		return domain.SparePart{}, domain.ErrInvalidID
	}

	var name, currency string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.SparePart{}, domain.ErrInvalidName
		}
	}
	if req.PresentPieces != nil && *req.PresentPieces < 0 {
		return domain.SparePart{}, domain.ErrNegativeStock
	}
	if req.UnitPrice != nil && *req.UnitPrice < 0 {
		return domain.SparePart{}, domain.ErrInvalidUnitPrice
	}
	if req.Currency != nil {
		value, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return domain.SparePart{}, err
		}
		currency = value
	}

	var (
		updated    domain.SparePart
		stockDelta int
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		part, err := s.repo.FindForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.ErrNotFound
		}
		if req.ExpectedVersion != nil && *req.ExpectedVersion != part.Version {
			return domain.ErrVersionConflict
		}

		next := *part
		var changes []fieldChange
		if req.Name != nil && name != part.Name {
			changes = append(changes, fieldChange{field: "name", oldValue: part.Name, newValue: name})
			next.Name = name
		}
		if req.PresentPieces != nil && *req.PresentPieces != part.PresentPieces {
			delta := *req.PresentPieces - part.PresentPieces
			changes = append(changes, fieldChange{
				field:    "present_pieces",
				oldValue: strconv.Itoa(part.PresentPieces),
				newValue: strconv.Itoa(*req.PresentPieces),
				quantity: &delta,
			})
			next.PresentPieces = *req.PresentPieces
			stockDelta = delta
		}
		if req.UnitPrice != nil && *req.UnitPrice != part.UnitPrice {
			changes = append(changes, fieldChange{
				field:    "unit_price",
				oldValue: strconv.FormatInt(part.UnitPrice, 10),
				newValue: strconv.FormatInt(*req.UnitPrice, 10),
			})
			next.UnitPrice = *req.UnitPrice
		}
		if req.Currency != nil && currency != part.Currency {
			changes = append(changes, fieldChange{field: "currency", oldValue: part.Currency, newValue: currency})
			next.Currency = currency
		}
		switch {
		case req.ClearDepartment && part.DepartmentID != nil:
			changes = append(changes, fieldChange{field: "department_id", oldValue: part.DepartmentID.String()})
			next.DepartmentID = nil
		case !req.ClearDepartment && req.DepartmentID != nil &&
			(part.DepartmentID == nil || *part.DepartmentID != *req.DepartmentID):
			changes = append(changes, fieldChange{
				field:    "department_id",
				oldValue: idString(part.DepartmentID),
				newValue: req.DepartmentID.String(),
			})
			dept := *req.DepartmentID
			next.DepartmentID = &dept
		}

		if len(changes) == 0 {
			updated = *part
			return nil
		}

		now := s.clock.Now()
		ok, err := s.repo.UpdateDetails(ctx, tx, &next, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrVersionConflict
		}
		next.Version++
		next.UpdatedAt = now

		fields := make([]string, 0, len(changes))
		for _, change := range changes {
			fields = append(fields, change.field)
			s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
				SparePartID:    part.ID,
				ChangeType:     auditdomain.PartChangeUpdated,
				FieldChanged:   stringPtr(change.field),
				OldValue:       optionalString(change.oldValue),
				NewValue:       optionalString(change.newValue),
				QuantityChange: change.quantity,
				Description:    fmt.Sprintf("%s changed from %q to %q", change.field, change.oldValue, change.newValue),
				ChangedByID:    req.Actor.ID,
				CreatedAt:      now,
			})
		}
		s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID: part.ID,
			ChangeType:  auditdomain.PartChangeUpdated,
			Description: "Updated fields: " + strings.Join(fields, ", "),
			ChangedByID: req.Actor.ID,
			CreatedAt:   now,
		})

		updated = next
		return nil
	})
	if err != nil {
		return domain.SparePart{}, err
	}

	if stockDelta != 0 {
		s.metrics.RecordStockMovement(ctx, movementEdit, stockDelta)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) error {
	if err := s.authorize(ctx, actor, authorization.ObjectSparePart, authorization.ActionSparePartDelete); err != nil {
		return err
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		part, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.ErrNotFound
		}
		count, err := s.repo.CountReservations(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrHasReservations
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("spare part deleted",
		zap.String("spare_part_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return nil
}

func (s *Service) AdjustQuantity(ctx context.Context, req domain.AdjustQuantityRequest) (domain.SparePart, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectSparePart, authorization.ActionSparePartAdjust); err != nil {
		return domain.SparePart{}, err
	}
	if req.ID == 0 {
		return domain.SparePart{}, domain.ErrInvalidID
	}
	if req.Adjustment == 0 {
		return domain.SparePart{}, domain.ErrInvalidAdjustment
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.SparePart{}, domain.ErrReasonRequired
	}

	var updated domain.SparePart
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		part, err := s.repo.FindForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := s.moveStock(ctx, tx, part.ID, req.Adjustment, now, domain.ErrNegativeStock); err != nil {
			return err
		}

		after, err := s.repo.FindByID(ctx, tx, part.ID)
		if err != nil {
			return err
		}
		if after == nil {
			return domain.ErrNotFound
		}

		delta := req.Adjustment
		s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID:    part.ID,
			ChangeType:     auditdomain.PartChangeQuantityChanged,
			FieldChanged:   stringPtr("present_pieces"),
			OldValue:       stringPtr(strconv.Itoa(part.PresentPieces)),
			NewValue:       stringPtr(strconv.Itoa(after.PresentPieces)),
			QuantityChange: &delta,
			Description:    fmt.Sprintf("Quantity adjusted by %+d: %s", delta, reason),
			ChangedByID:    req.Actor.ID,
			CreatedAt:      now,
		})

		updated = *after
		return nil
	})
	if err != nil {
		return domain.SparePart{}, err
	}

	s.metrics.RecordStockMovement(ctx, movementAdjust, req.Adjustment)
	return updated, nil
}

func (s *Service) ListHistory(ctx context.Context, actor actorcontext.Actor, req auditdomain.ListPartHistoryRequest) (auditdomain.ListPartHistoryResponse, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectSparePart, authorization.ActionSparePartView); err != nil {
		return auditdomain.ListPartHistoryResponse{}, err
	}
	if req.SparePartID == 0 {
		return auditdomain.ListPartHistoryResponse{}, domain.ErrInvalidID
	}

	part, err := s.repo.FindByID(ctx, s.db, req.SparePartID)
	if err != nil {
		return auditdomain.ListPartHistoryResponse{}, err
	}
	if part == nil {
		return auditdomain.ListPartHistoryResponse{}, domain.ErrNotFound
	}
	return s.audit.ListPartHistory(ctx, req)
}

func (s *Service) Reserve(ctx context.Context, req domain.ReserveRequest) (domain.Reservation, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectRequestPart, authorization.ActionRequestPartManage); err != nil {
		return domain.Reservation{}, err
	}
	if req.RequestID == 0 || req.SparePartID == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if req.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	var (
		reservation domain.Reservation
		ref         *domain.RequestRef
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		var err error
		ref, err = s.lockRequest(ctx, tx, req.Actor, req.RequestID)
		if err != nil {
			return err
		}
		reservation, err = s.ReserveTx(ctx, tx, req.Actor, *ref, req.SparePartID, req.Quantity)
		return err
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.metrics.RecordStockMovement(ctx, movementReserve, -req.Quantity)
	s.notifier.Notify(ctx, s.partEvent(notifydomain.EventPartReserved, req.Actor, *ref, reservation))
	return reservation, nil
}

// ReserveTx takes quantity units out of stock for ref inside tx. The caller
// owns the transaction and any notification for the enclosing operation.
func (s *Service) ReserveTx(ctx context.Context, tx *gorm.DB, actor actorcontext.Actor, ref domain.RequestRef, sparePartID snowflake.ID, quantity int) (domain.Reservation, error) {
	if quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	if ref.Closed {
		return domain.Reservation{}, domain.ErrRequestClosed
	}

	part, err := s.repo.FindForUpdate(ctx, tx, sparePartID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if part == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}

	now := s.clock.Now()
	ok, err := s.repo.DecrementStock(ctx, tx, part.ID, quantity, now)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !ok {
		return domain.Reservation{}, domain.ErrInsufficientStock
	}

	after, err := s.repo.FindByID(ctx, tx, part.ID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if after == nil {
		return domain.Reservation{}, domain.ErrNotFound
	}

	rp := domain.RequestPart{
		ID:           s.genID.Generate(),
		RequestID:    ref.ID,
		SparePartID:  part.ID,
		QuantityUsed: quantity,
		UnitPrice:    part.UnitPrice,
		TotalCost:    part.UnitPrice * int64(quantity),
		Currency:     part.Currency,
		CreatedByID:  actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertRequestPart(ctx, tx, &rp); err != nil {
		return domain.Reservation{}, err
	}

	change := -quantity
	requestID := ref.ID
	s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
		SparePartID:    part.ID,
		ChangeType:     auditdomain.PartChangeUsedInRequest,
		OldValue:       stringPtr(strconv.Itoa(part.PresentPieces)),
		NewValue:       stringPtr(strconv.Itoa(after.PresentPieces)),
		QuantityChange: &change,
		Description:    fmt.Sprintf("%d pieces used in request %s", quantity, ref.RequestNumber),
		RequestID:      &requestID,
		ChangedByID:    actor.ID,
		CreatedAt:      now,
	})
	s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
		RequestID:    ref.ID,
		ActorID:      actor.ID,
		ActivityType: auditdomain.ActivityPartAdded,
		Description:  fmt.Sprintf("Added %d x %s", quantity, part.Name),
		NewValue:     stringPtr(strconv.Itoa(quantity)),
		Metadata: map[string]any{
			"request_part_id": rp.ID.String(),
			"spare_part_id":   part.ID.String(),
			"quantity":        quantity,
			"total_cost":      rp.TotalCost,
		},
		CreatedAt: now,
	})

	return domain.Reservation{RequestPart: rp, SparePart: *after}, nil
}

func (s *Service) Release(ctx context.Context, req domain.ReleaseRequest) error {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectRequestPart, authorization.ActionRequestPartManage); err != nil {
		return err
	}
	if req.RequestPartID == 0 {
		return domain.ErrInvalidID
	}

	var quantity int
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		rp, err := s.repo.FindRequestPartForUpdate(ctx, tx, req.RequestPartID)
		if err != nil {
			return err
		}
		if rp == nil {
			return domain.ErrRequestPartNotFound
		}
		ref, err := s.lockRequest(ctx, tx, req.Actor, rp.RequestID)
		if err != nil {
			return err
		}
		if ref.Closed {
			return domain.ErrRequestClosed
		}

		part, err := s.repo.FindForUpdate(ctx, tx, rp.SparePartID)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		if err := s.repo.IncrementStock(ctx, tx, part.ID, rp.QuantityUsed, now); err != nil {
			return err
		}
		if err := s.repo.DeleteRequestPart(ctx, tx, rp.ID); err != nil {
			return err
		}

		change := rp.QuantityUsed
		requestID := rp.RequestID
		s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID:    part.ID,
			ChangeType:     auditdomain.PartChangeQuantityChanged,
			OldValue:       stringPtr(strconv.Itoa(part.PresentPieces)),
			NewValue:       stringPtr(strconv.Itoa(part.PresentPieces + rp.QuantityUsed)),
			QuantityChange: &change,
			Description:    fmt.Sprintf("%d pieces returned from request %s", rp.QuantityUsed, ref.RequestNumber),
			RequestID:      &requestID,
			ChangedByID:    req.Actor.ID,
			CreatedAt:      now,
		})
		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    rp.RequestID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityPartRemoved,
			Description:  fmt.Sprintf("Removed %d x %s", rp.QuantityUsed, part.Name),
			OldValue:     stringPtr(strconv.Itoa(rp.QuantityUsed)),
			Metadata: map[string]any{
				"request_part_id": rp.ID.String(),
				"spare_part_id":   part.ID.String(),
			},
			CreatedAt: now,
		})

		quantity = rp.QuantityUsed
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordStockMovement(ctx, movementRelease, quantity)
	return nil
}

// Adjust changes a reservation to newQuantity, moving only the difference
// in or out of stock.
func (s *Service) Adjust(ctx context.Context, req domain.AdjustReservationRequest) (domain.Reservation, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectRequestPart, authorization.ActionRequestPartManage); err != nil {
		return domain.Reservation{}, err
	}
	if req.RequestPartID == 0 {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if req.NewQuantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	var (
		reservation domain.Reservation
		delta       int
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		rp, err := s.repo.FindRequestPartForUpdate(ctx, tx, req.RequestPartID)
		if err != nil {
			return err
		}
		if rp == nil {
			return domain.ErrRequestPartNotFound
		}
		ref, err := s.lockRequest(ctx, tx, req.Actor, rp.RequestID)
		if err != nil {
			return err
		}
		if ref.Closed {
			return domain.ErrRequestClosed
		}

		part, err := s.repo.FindForUpdate(ctx, tx, rp.SparePartID)
		if err != nil {
			return err
		}
		if part == nil {
			return domain.ErrNotFound
		}

		delta = req.NewQuantity - rp.QuantityUsed
		if delta == 0 {
			reservation = domain.Reservation{RequestPart: *rp, SparePart: *part}
			return nil
		}

		now := s.clock.Now()
		if err := s.moveStock(ctx, tx, part.ID, -delta, now, domain.ErrNegativeStock); err != nil {
			return err
		}

		before := rp.QuantityUsed
		rp.QuantityUsed = req.NewQuantity
		rp.TotalCost = rp.UnitPrice * int64(req.NewQuantity)
		rp.UpdatedAt = now
		if err := s.repo.UpdateRequestPartQuantity(ctx, tx, rp); err != nil {
			return err
		}

		after, err := s.repo.FindByID(ctx, tx, part.ID)
		if err != nil {
			return err
		}
		if after == nil {
			return domain.ErrNotFound
		}

		stockChange := -delta
		requestID := rp.RequestID
		s.recorder.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID:    part.ID,
			ChangeType:     auditdomain.PartChangeQuantityChanged,
			FieldChanged:   stringPtr("quantity_used"),
			OldValue:       stringPtr(strconv.Itoa(before)),
			NewValue:       stringPtr(strconv.Itoa(req.NewQuantity)),
			QuantityChange: &stockChange,
			Description: fmt.Sprintf("Reservation on request %s changed from %d to %d",
				ref.RequestNumber, before, req.NewQuantity),
			RequestID:   &requestID,
			ChangedByID: req.Actor.ID,
			CreatedAt:   now,
		})
		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    rp.RequestID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityPartUpdated,
			Description:  fmt.Sprintf("%s quantity changed from %d to %d", part.Name, before, req.NewQuantity),
			OldValue:     stringPtr(strconv.Itoa(before)),
			NewValue:     stringPtr(strconv.Itoa(req.NewQuantity)),
			Metadata: map[string]any{
				"request_part_id": rp.ID.String(),
				"spare_part_id":   part.ID.String(),
				"delta":           delta,
			},
			CreatedAt: now,
		})

		reservation = domain.Reservation{RequestPart: *rp, SparePart: *after}
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	if delta != 0 {
		s.metrics.RecordStockMovement(ctx, movementAdjust, -delta)
	}
	return reservation, nil
}

func (s *Service) ListRequestParts(ctx context.Context, actor actorcontext.Actor, req domain.ListRequestPartsRequest) (domain.ListRequestPartsResponse, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectRequest, authorization.ActionRequestView); err != nil {
		return domain.ListRequestPartsResponse{}, err
	}
	if req.RequestID == 0 {
		return domain.ListRequestPartsResponse{}, domain.ErrInvalidID
	}

	ref, err := s.requests.FindRequestRef(ctx, s.db, req.RequestID)
	if err != nil {
		return domain.ListRequestPartsResponse{}, err
	}
	if ref == nil {
		return domain.ListRequestPartsResponse{}, domain.ErrRequestNotFound
	}

	pageSize := req.Size()
	before, err := req.Before()
	if err != nil {
		return domain.ListRequestPartsResponse{}, err
	}

	items, err := s.repo.ListRequestParts(ctx, s.db, domain.RequestPartFilter{
		RequestID: req.RequestID,
		BeforeID:  before,
		Limit:     pageSize,
	})
	if err != nil {
		return domain.ListRequestPartsResponse{}, err
	}

	parts, pageInfo := pagination.Page(items, pageSize, func(rp *domain.RequestPart) snowflake.ID { return rp.ID })
	return domain.ListRequestPartsResponse{PageInfo: pageInfo, RequestParts: parts}, nil
}

// lockRequest locks the request row inside tx. A technician may only touch
// requests they are assigned to or received.
func (s *Service) lockRequest(ctx context.Context, tx *gorm.DB, actor actorcontext.Actor, requestID snowflake.ID) (*domain.RequestRef, error) {
	ref, err := s.requests.LockRequestRef(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, domain.ErrRequestNotFound
	}
	if actor.Role == authorization.RoleTechnician && !ref.HandledBy(actor.ID) {
		return nil, authorization.ErrForbidden
	}
	return ref, nil
}

// moveStock applies a signed change. Removals use the guarded decrement and
// fail with shortage when fewer pieces are present.
func (s *Service) moveStock(ctx context.Context, tx *gorm.DB, id snowflake.ID, change int, now time.Time, shortage error) error {
	if change >= 0 {
		return s.repo.IncrementStock(ctx, tx, id, change, now)
	}
	ok, err := s.repo.DecrementStock(ctx, tx, id, -change, now)
	if err != nil {
		return err
	}
	if !ok {
		return shortage
	}
	return nil
}

func (s *Service) partEvent(kind notifydomain.EventKind, actor actorcontext.Actor, ref domain.RequestRef, reservation domain.Reservation) notifydomain.Event {
	dept := ref.DepartmentID
	return notifydomain.Event{
		Kind:                 kind,
		RequestID:            ref.ID,
		RequestNumber:        ref.RequestNumber,
		DepartmentID:         &dept,
		AssignedTechnicianID: ref.AssignedTechnicianID,
		ActorID:              actor.ID,
		ActorRole:            actor.Role,
		PartName:             reservation.SparePart.Name,
		Quantity:             reservation.RequestPart.QuantityUsed,
		OccurredAt:           reservation.RequestPart.CreatedAt,
	}
}

type fieldChange struct {
	field    string
	oldValue string
	newValue string
	quantity *int
}

func normalizeCurrency(value string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(value))
	if len(currency) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return "", domain.ErrInvalidCurrency
		}
	}
	return currency, nil
}

func stringPtr(value string) *string {
	return &value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func idString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
