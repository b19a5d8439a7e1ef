package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	notifydomain "github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/observability/metrics"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	"github.com/smallbiznis/repairdesk/internal/sla"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	"github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Tx        *db.TxManager
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Numbering numbering.Generator
	Recorder  auditdomain.Recorder
	Audit     auditdomain.Service
	Authz     authorization.Service
	Users     userdomain.Service
	Customers customerdomain.Service
	Ledger    sparepartdomain.Ledger
	Policy    *sla.Policy
	Overdue   *sla.Service
	Notifier  notifydomain.Notifier
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	currency  string
	db        *gorm.DB
	tx        *db.TxManager
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	numbering numbering.Generator
	recorder  auditdomain.Recorder
	audit     auditdomain.Service
	authz     authorization.Service
	users     userdomain.Service
	customers customerdomain.Service
	ledger    sparepartdomain.Ledger
	policy    *sla.Policy
	overdue   *sla.Service
	notifier  notifydomain.Notifier
	metrics   *metrics.Metrics
}

func newService(p Params) *Service {
	currency := strings.ToUpper(strings.TrimSpace(p.Config.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		currency:  currency,
		db:        p.DB,
		tx:        p.Tx,
		log:       p.Log.Named("servicerequest.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		numbering: p.Numbering,
		recorder:  p.Recorder,
		audit:     p.Audit,
		authz:     p.Authz,
		users:     p.Users,
		customers: p.Customers,
		ledger:    p.Ledger,
		policy:    p.Policy,
		overdue:   p.Overdue,
		notifier:  p.Notifier,
		metrics:   p.Metrics,
	}
}

func New(p Params) domain.Service {
	return newService(p)
}

func (s *Service) authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error {
	if err := actorcontext.Require(actor); err != nil {
		return err
	}
	return s.authz.Authorize(ctx, actor.Role, object, action)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Request, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectRequest, authorization.ActionRequestCreate); err != nil {
		return domain.Request{}, err
	}

	priority, ok := domain.ParsePriority(req.Priority)
	if !ok {
		return domain.Request{}, domain.ErrInvalidPriority
	}
	warranty, ok := domain.ParseWarrantyStatus(req.WarrantyStatus)
	if !ok {
		return domain.Request{}, domain.ErrInvalidWarranty
	}
	method, ok := domain.ParseExecutionMethod(req.ExecutionMethod)
	if !ok {
		return domain.Request{}, domain.ErrInvalidExecution
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.Request{}, domain.ErrInvalidDescription
	}
	currency := s.currency
	if strings.TrimSpace(req.Currency) != "" {
		value, err := normalizeCurrency(req.Currency)
		if err != nil {
			return domain.Request{}, err
		}
		currency = value
	}
	if err := s.checkCustomer(ctx, req.CustomerID); err != nil {
		return domain.Request{}, err
	}
	if err := s.checkDepartment(ctx, req.DepartmentID); err != nil {
		return domain.Request{}, err
	}

	now := s.clock.Now()
	due := s.policy.DueDate(now, warranty, method)
	item := domain.Request{
		ID:              s.genID.Generate(),
		Status:          domain.StatusNew,
		Priority:        priority,
		WarrantyStatus:  warranty,
		ExecutionMethod: method,
		Description:     description,
		DepartmentID:    req.DepartmentID,
		CustomerID:      req.CustomerID,
		ReceivedByID:    req.Actor.ID,
		SLADueDate:      &due,
		Currency:        currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbering.Next(ctx, tx, numbering.ScopeRequest, now)
		if err != nil {
			return err
		}
		item.RequestNumber = number

		if err := s.repo.Insert(ctx, tx, &item); err != nil {
			return err
		}

		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    item.ID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityCreated,
			Description:  fmt.Sprintf("Request %s created", item.RequestNumber),
			NewValue:     stringPtr(string(item.Status)),
			Metadata: map[string]any{
				"priority":         string(priority),
				"warranty_status":  string(warranty),
				"execution_method": string(method),
				"sla_due_date":     due,
			},
			CreatedAt: now,
		})
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.log.Info("request created",
		zap.String("request_id", item.ID.String()),
		zap.String("request_number", item.RequestNumber),
	)
	return item, nil
}

func (s *Service) Get(ctx context.Context, actor actorcontext.Actor, id snowflake.ID) (domain.Request, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectRequest, authorization.ActionRequestView); err != nil {
		return domain.Request{}, err
	}
	item, err := s.find(ctx, id)
	if err != nil {
		return domain.Request{}, err
	}

	if _, err := s.overdue.Refresh(ctx, item); err != nil {
		s.log.Warn("overdue refresh failed",
			zap.String("request_id", item.ID.String()),
			zap.Error(err),
		)
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, actor actorcontext.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectRequest, authorization.ActionRequestView); err != nil {
		return domain.ListResponse{}, err
	}

	filter := domain.ListFilter{
		DepartmentID:         req.DepartmentID,
		AssignedTechnicianID: req.AssignedTechnicianID,
		CustomerID:           req.CustomerID,
		Overdue:              req.Overdue,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	before, err := req.Before()
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter.BeforeID = before
	pageSize := req.Size()
	filter.Limit = pageSize

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	requests, pageInfo := pagination.Page(items, pageSize, func(item *domain.Request) snowflake.ID { return item.ID })
	return domain.ListResponse{PageInfo: pageInfo, Requests: requests}, nil
}

func (s *Service) ChangeStatus(ctx context.Context, req domain.ChangeStatusRequest) (domain.Request, error) {
	if err := actorcontext.Require(req.Actor); err != nil {
		return domain.Request{}, err
	}
	if req.ID == 0 {
		return domain.Request{}, domain.ErrInvalidID
	}
	target, ok := domain.ParseStatus(req.Status)
	if !ok {
		return domain.Request{}, domain.ErrInvalidStatus
	}

	var (
		item domain.Request
		from domain.Status
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if err := domain.CheckTransition(req.Actor, *current, target); err != nil {
			return err
		}

		now := s.clock.Now()
		from = current.Status
		domain.EnterStatus(current, target, now)
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}

		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    current.ID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityStatusChanged,
			Description:  fmt.Sprintf("Status changed from %s to %s", from, target),
			OldValue:     stringPtr(string(from)),
			NewValue:     stringPtr(string(target)),
			Comment:      optionalString(req.Comment),
			CreatedAt:    now,
		})

		item = *current
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.metrics.RecordStatusTransition(ctx, string(from), string(target))
	s.notifier.Notify(ctx, statusEvent(notifydomain.EventStatusChanged, req.Actor, item, from))
	return item, nil
}

// Assign hands the request to a technician. Assigning a closed request
// reopens it, which only top-tier roles may do.
func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (domain.Request, error) {
	if err := actorcontext.Require(req.Actor); err != nil {
		return domain.Request{}, err
	}
	if !req.Actor.Role.IsManager() {
		return domain.Request{}, domain.ErrForbidden
	}
	if req.ID == 0 {
		return domain.Request{}, domain.ErrInvalidID
	}
	technician, err := s.checkTechnician(ctx, req.TechnicianID)
	if err != nil {
		return domain.Request{}, err
	}

	var (
		item domain.Request
		from domain.Status
	)
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.Status == domain.StatusClosed && !req.Actor.Role.IsTop() {
			return domain.ErrForbidden
		}

		now := s.clock.Now()
		from = current.Status
		previous := current.AssignedTechnicianID
		techID := technician.ID
		current.AssignedTechnicianID = &techID
		if current.AssignedAt == nil {
			current.AssignedAt = &now
		}
		domain.EnterStatus(current, domain.StatusAfterAssignment(from), now)
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}

		var oldValue *string
		if previous != nil {
			oldValue = stringPtr(previous.String())
		}
		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    current.ID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityAssigned,
			Description:  fmt.Sprintf("Assigned to %s", technician.Name),
			OldValue:     oldValue,
			NewValue:     stringPtr(techID.String()),
			Metadata: map[string]any{
				"from_status": string(from),
				"to_status":   string(current.Status),
			},
			CreatedAt: now,
		})

		item = *current
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	if from != item.Status {
		s.metrics.RecordStatusTransition(ctx, string(from), string(item.Status))
	}
	s.notifier.Notify(ctx, statusEvent(notifydomain.EventAssigned, req.Actor, item, from))
	return item, nil
}

func (s *Service) Close(ctx context.Context, req domain.CloseRequest) (domain.Request, error) {
	if err := actorcontext.Require(req.Actor); err != nil {
		return domain.Request{}, err
	}
	if req.ID == 0 {
		return domain.Request{}, domain.ErrInvalidID
	}
	if req.CustomerSatisfaction != nil && (*req.CustomerSatisfaction < 1 || *req.CustomerSatisfaction > 5) {
		return domain.Request{}, domain.ErrInvalidSatisfaction
	}

	var (
		item domain.Request
		from domain.Status
	)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if err := domain.CheckClose(req.Actor, *current); err != nil {
			return err
		}

		now := s.clock.Now()
		from = current.Status
		domain.EnterStatus(current, domain.StatusClosed, now)
		if notes := optionalString(req.FinalNotes); notes != nil {
			current.FinalNotes = notes
		}
		if req.CustomerSatisfaction != nil {
			score := *req.CustomerSatisfaction
			current.CustomerSatisfaction = &score
		}
		current.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}

		metadata := map[string]any{}
		if current.CustomerSatisfaction != nil {
			metadata["customer_satisfaction"] = *current.CustomerSatisfaction
		}
		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    current.ID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityClosed,
			Description:  fmt.Sprintf("Status changed from %s to %s", from, domain.StatusClosed),
			OldValue:     stringPtr(string(from)),
			NewValue:     stringPtr(string(domain.StatusClosed)),
			Comment:      current.FinalNotes,
			Metadata:     metadata,
			CreatedAt:    now,
		})

		item = *current
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.metrics.RecordStatusTransition(ctx, string(from), string(domain.StatusClosed))
	s.notifier.Notify(ctx, statusEvent(notifydomain.EventRequestClosed, req.Actor, item, from))
	return item, nil
}

// AddCost books a cost. A cost that names a spare part reserves the stock in
// the same transaction, so either both exist afterwards or neither does.
func (s *Service) AddCost(ctx context.Context, req domain.AddCostRequest) (domain.AddCostResponse, error) {
	if err := s.authorize(ctx, req.Actor, authorization.ObjectRequestCost, authorization.ActionRequestCostCreate); err != nil {
		return domain.AddCostResponse{}, err
	}
	if req.RequestID == 0 {
		return domain.AddCostResponse{}, domain.ErrInvalidID
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return domain.AddCostResponse{}, domain.ErrInvalidDescription
	}
	if req.Amount <= 0 {
		return domain.AddCostResponse{}, domain.ErrInvalidAmount
	}
	costType, ok := domain.ParseCostType(req.CostType)
	if !ok {
		return domain.AddCostResponse{}, domain.ErrInvalidCostType
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return domain.AddCostResponse{}, err
	}
	if req.SparePartID != nil && (req.Quantity == nil || *req.Quantity <= 0) {
		return domain.AddCostResponse{}, domain.ErrQuantityRequired
	}

	var (
		resp    domain.AddCostResponse
		request domain.Request
	)
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.FindForUpdate(ctx, tx, req.RequestID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if current.Status == domain.StatusClosed {
			return domain.ErrRequestClosed
		}
		if req.Actor.Role == authorization.RoleTechnician && !current.IsAssignedTo(req.Actor.ID) {
			return domain.ErrForbidden
		}
		if currency != current.Currency {
			return domain.ErrCurrencyMismatch
		}

		now := s.clock.Now()
		cost := domain.RequestCost{
			ID:          s.genID.Generate(),
			RequestID:   current.ID,
			Description: description,
			Amount:      req.Amount,
			CostType:    costType,
			Currency:    currency,
			CreatedByID: req.Actor.ID,
			CreatedAt:   now,
		}

		if req.SparePartID != nil {
			reservation, err := s.ledger.ReserveTx(ctx, tx, req.Actor, domain.RefOf(*current), *req.SparePartID, *req.Quantity)
			if err != nil {
				return err
			}
			partID := *req.SparePartID
			quantity := *req.Quantity
			rpID := reservation.RequestPart.ID
			cost.SparePartID = &partID
			cost.Quantity = &quantity
			cost.RequestPartID = &rpID
			part := reservation.SparePart
			resp.SparePart = &part
		}

		if err := s.repo.InsertCost(ctx, tx, &cost); err != nil {
			return err
		}
		if err := s.repo.AddTotalCost(ctx, tx, current.ID, cost.Amount, now); err != nil {
			return err
		}

		metadata := map[string]any{
			"cost_id":   cost.ID.String(),
			"cost_type": string(cost.CostType),
			"amount":    cost.Amount,
			"currency":  cost.Currency,
		}
		if cost.SparePartID != nil {
			metadata["spare_part_id"] = cost.SparePartID.String()
			metadata["quantity"] = *cost.Quantity
		}
		s.recorder.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    current.ID,
			ActorID:      req.Actor.ID,
			ActivityType: auditdomain.ActivityCostAdded,
			Description:  fmt.Sprintf("Added %s cost %d %s: %s", cost.CostType, cost.Amount, cost.Currency, description),
			NewValue:     stringPtr(fmt.Sprintf("%d", cost.Amount)),
			Metadata:     metadata,
			CreatedAt:    now,
		})

		resp.Cost = cost
		request = *current
		return nil
	})
	if err != nil {
		return domain.AddCostResponse{}, err
	}

	if resp.SparePart != nil {
		s.metrics.RecordStockMovement(ctx, "reserve", -*resp.Cost.Quantity)
		event := statusEvent(notifydomain.EventCostWithPart, req.Actor, request, request.Status)
		event.PartName = resp.SparePart.Name
		event.Quantity = *resp.Cost.Quantity
		s.notifier.Notify(ctx, event)
	}
	return resp, nil
}

func (s *Service) ListCosts(ctx context.Context, actor actorcontext.Actor, requestID snowflake.ID) ([]domain.RequestCost, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectRequest, authorization.ActionRequestView); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, requestID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListCosts(ctx, s.db, requestID)
	if err != nil {
		return nil, err
	}
	costs := make([]domain.RequestCost, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		costs = append(costs, *item)
	}
	return costs, nil
}

func (s *Service) ListActivities(ctx context.Context, actor actorcontext.Actor, req auditdomain.ListActivitiesRequest) (auditdomain.ListActivitiesResponse, error) {
	if err := s.authorize(ctx, actor, authorization.ObjectRequest, authorization.ActionRequestView); err != nil {
		return auditdomain.ListActivitiesResponse{}, err
	}
	if _, err := s.find(ctx, req.RequestID); err != nil {
		return auditdomain.ListActivitiesResponse{}, err
	}
	return s.audit.ListActivities(ctx, req)
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*domain.Request, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) checkCustomer(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidCustomer
	}
	_, err := s.customers.GetByID(ctx, id)
	if errors.Is(err, customerdomain.ErrNotFound) {
		return domain.ErrInvalidCustomer
	}
	return err
}

func (s *Service) checkDepartment(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidDepartment
	}
	_, err := s.users.GetDepartment(ctx, id)
	if errors.Is(err, userdomain.ErrNotFound) || errors.Is(err, userdomain.ErrInvalidDepartment) {
		return domain.ErrInvalidDepartment
	}
	return err
}

func (s *Service) checkTechnician(ctx context.Context, id snowflake.ID) (userdomain.User, error) {
	if id == 0 {
		return userdomain.User{}, domain.ErrInvalidTechnician
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, userdomain.ErrNotFound) {
		return userdomain.User{}, domain.ErrInvalidTechnician
	}
	if err != nil {
		return userdomain.User{}, err
	}
	if !user.IsActiveTechnician() {
		return userdomain.User{}, domain.ErrInvalidTechnician
	}
	return user, nil
}

func statusEvent(kind notifydomain.EventKind, actor actorcontext.Actor, req domain.Request, from domain.Status) notifydomain.Event {
	dept := req.DepartmentID
	return notifydomain.Event{
		Kind:                 kind,
		RequestID:            req.ID,
		RequestNumber:        req.RequestNumber,
		DepartmentID:         &dept,
		AssignedTechnicianID: req.AssignedTechnicianID,
		ActorID:              actor.ID,
		ActorRole:            actor.Role,
		FromStatus:           string(from),
		ToStatus:             string(req.Status),
		OccurredAt:           req.UpdatedAt,
	}
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
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
