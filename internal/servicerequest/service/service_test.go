package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/actorcontext"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	auditrepo "github.com/smallbiznis/repairdesk/internal/audit/repository"
	auditservice "github.com/smallbiznis/repairdesk/internal/audit/service"
	"github.com/smallbiznis/repairdesk/internal/authorization"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/config"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	customerrepo "github.com/smallbiznis/repairdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/repairdesk/internal/customer/service"
	notifydomain "github.com/smallbiznis/repairdesk/internal/notification/domain"
	"github.com/smallbiznis/repairdesk/internal/numbering"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	"github.com/smallbiznis/repairdesk/internal/servicerequest/repository"
	"github.com/smallbiznis/repairdesk/internal/sla"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	sparepartrepo "github.com/smallbiznis/repairdesk/internal/sparepart/repository"
	sparepartservice "github.com/smallbiznis/repairdesk/internal/sparepart/service"
	userdomain "github.com/smallbiznis/repairdesk/internal/user/domain"
	userrepo "github.com/smallbiznis/repairdesk/internal/user/repository"
	userservice "github.com/smallbiznis/repairdesk/internal/user/service"
	pkgdb "github.com/smallbiznis/repairdesk/pkg/db"
	"github.com/smallbiznis/repairdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifydomain.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notifydomain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) kinds() []notifydomain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]notifydomain.EventKind, 0, len(n.events))
	for _, event := range n.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type fixture struct {
	svc        *Service
	parts      sparepartdomain.Service
	db         *gorm.DB
	clock      *clock.FakeClock
	notifier   *recordingNotifier
	department userdomain.Department
	customer   customerdomain.Customer

	ceo        actorcontext.Actor
	manager    actorcontext.Actor
	technician actorcontext.Actor
	other      actorcontext.Actor
	clerk      actorcontext.Actor
	keeper     actorcontext.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.Open(t,
		&domain.Request{},
		&domain.RequestCost{},
		&sparepartdomain.SparePart{},
		&sparepartdomain.RequestPart{},
		&auditdomain.PartHistory{},
		&auditdomain.RequestActivity{},
		&numbering.DailySequence{},
		&userdomain.Department{},
		&userdomain.User{},
		&customerdomain.Customer{},
	)
	node := dbtest.Node(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	tx := pkgdb.NewTxManager(db, pkgdb.Config{})
	notifier := &recordingNotifier{}

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	auditParams := auditservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()}
	recorder := auditservice.NewRecorder(auditParams)
	audit := auditservice.NewService(auditParams)

	users := userservice.New(userservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: userrepo.Provide()})
	customers := customerservice.New(customerservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: customerrepo.Provide()})

	partParams := sparepartservice.Params{
		DB:        db,
		Tx:        tx,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      sparepartrepo.Provide(),
		Requests:  repository.NewRequestReader(),
		Numbering: numbering.New(),
		Recorder:  recorder,
		Audit:     audit,
		Authz:     authz,
		Notifier:  notifier,
	}

	holder := config.NewStaticSLAConfigHolder(config.DefaultSLAConfig())
	repo := repository.Provide()
	overdue := sla.NewService(sla.Params{
		DB:       db,
		Log:      log,
		Clock:    clk,
		Holder:   holder,
		Repo:     repo,
		Notifier: notifier,
	})

	svc := newService(Params{
		Config:    config.Config{DefaultCurrency: "usd"},
		DB:        db,
		Tx:        tx,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      repo,
		Numbering: numbering.New(),
		Recorder:  recorder,
		Audit:     audit,
		Authz:     authz,
		Users:     users,
		Customers: customers,
		Ledger:    sparepartservice.NewLedger(partParams),
		Policy:    sla.NewPolicy(holder),
		Overdue:   overdue,
		Notifier:  notifier,
	})

	department, err := users.EnsureDepartment(ctx, "Cooling")
	require.NoError(t, err)
	customer, err := customers.Create(ctx, customerdomain.CreateCustomerRequest{Name: "Rina", Phone: "0812-3456-789"})
	require.NoError(t, err)

	mkUser := func(name string, role authorization.Role) actorcontext.Actor {
		var dept *snowflake.ID
		if role.DepartmentScoped() || role == authorization.RoleTechnician {
			dept = &department.ID
		}
		user, err := users.Create(ctx, userdomain.CreateUserRequest{
			Name:         name,
			Email:        name + "@repairdesk.test",
			Role:         role,
			DepartmentID: dept,
		})
		require.NoError(t, err)
		return actorcontext.Actor{ID: user.ID, Role: role}
	}

	return &fixture{
		svc:        svc,
		parts:      sparepartservice.New(partParams),
		db:         db,
		clock:      clk,
		notifier:   notifier,
		department: department,
		customer:   customer,
		ceo:        mkUser("ceo", authorization.RoleCompanyManager),
		manager:    mkUser("manager", authorization.RoleDepartmentManager),
		technician: mkUser("tech", authorization.RoleTechnician),
		other:      mkUser("othertech", authorization.RoleTechnician),
		clerk:      mkUser("clerk", authorization.RoleCustomerService),
		keeper:     mkUser("keeper", authorization.RoleWarehouseKeeper),
	}
}

func (f *fixture) create(t *testing.T, warranty, method string) domain.Request {
	t.Helper()
	item, err := f.svc.Create(context.Background(), domain.CreateRequest{
		Actor:           f.clerk,
		CustomerID:      f.customer.ID,
		DepartmentID:    f.department.ID,
		Priority:        "high",
		WarrantyStatus:  warranty,
		ExecutionMethod: method,
		Description:     "Fridge not cooling",
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) activities(t *testing.T, requestID snowflake.ID) []auditdomain.RequestActivity {
	t.Helper()
	var rows []auditdomain.RequestActivity
	require.NoError(t, f.db.Where("request_id = ?", requestID).Order("id asc").Find(&rows).Error)
	return rows
}

func (f *fixture) assign(t *testing.T, requestID snowflake.ID, tech actorcontext.Actor) domain.Request {
	t.Helper()
	item, err := f.svc.Assign(context.Background(), domain.AssignRequest{Actor: f.manager, ID: requestID, TechnicianID: tech.ID})
	require.NoError(t, err)
	return item
}

func TestCreate_NumbersAndSchedules(t *testing.T) {
	f := newFixture(t)

	workshop := f.create(t, "UNDER_WARRANTY", "WORKSHOP")
	onSite := f.create(t, "OUT_OF_WARRANTY", "ON_SITE")

	assert.Equal(t, "REQ-20250301-0001", workshop.RequestNumber)
	assert.Equal(t, "REQ-20250301-0002", onSite.RequestNumber)
	assert.Equal(t, domain.StatusNew, workshop.Status)
	assert.Equal(t, domain.PriorityHigh, workshop.Priority)
	assert.Equal(t, "USD", workshop.Currency)
	assert.Equal(t, f.clerk.ID, workshop.ReceivedByID)

	now := f.clock.Now()
	require.NotNil(t, workshop.SLADueDate)
	assert.Equal(t, now.Add(48*time.Hour), *workshop.SLADueDate)
	require.NotNil(t, onSite.SLADueDate)
	assert.Equal(t, now.Add(96*time.Hour), *onSite.SLADueDate)

	rows := f.activities(t, workshop.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, auditdomain.ActivityCreated, rows[0].ActivityType)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := domain.CreateRequest{
		Actor:           f.clerk,
		CustomerID:      f.customer.ID,
		DepartmentID:    f.department.ID,
		WarrantyStatus:  "UNDER_WARRANTY",
		ExecutionMethod: "WORKSHOP",
		Description:     "Noise",
	}

	req := base
	req.WarrantyStatus = "expired"
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidWarranty)

	req = base
	req.CustomerID = 12345
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	req = base
	req.DepartmentID = 12345
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidDepartment)

	req = base
	req.Actor = f.keeper
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestTechnicianConfirmsReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")

	// seed the assignment without going through Assign so status stays NEW
	require.NoError(t, f.db.Model(&domain.Request{}).
		Where("id = ?", item.ID).
		Update("assigned_technician_id", f.technician.ID).Error)

	updated, err := f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{
		Actor:  f.technician,
		ID:     item.ID,
		Status: "ASSIGNED",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, updated.Status)
	assert.Nil(t, updated.AssignedAt)

	rows := f.activities(t, item.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "Status changed from NEW to ASSIGNED", rows[1].Description)

	_, err = f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{
		Actor:  f.technician,
		ID:     item.ID,
		Status: "COMPLETED",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	current, err := f.svc.Get(ctx, f.technician, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, current.Status)
	assert.Len(t, f.activities(t, item.ID), 2)
}

func TestUnrelatedTechnicianCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")
	f.assign(t, item.ID, f.technician)

	for _, target := range []string{"UNDER_INSPECTION", "WAITING_PARTS", "IN_REPAIR", "COMPLETED"} {
		_, err := f.svc.ChangeStatus(context.Background(), domain.ChangeStatusRequest{
			Actor:  f.other,
			ID:     item.ID,
			Status: target,
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	}
	assert.Len(t, f.activities(t, item.ID), 2)
}

func TestCloseAndReopenByAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")
	assigned := f.assign(t, item.ID, f.technician)
	require.NotNil(t, assigned.AssignedAt)
	firstAssigned := *assigned.AssignedAt

	_, err := f.svc.Close(ctx, domain.CloseRequest{Actor: f.manager, ID: item.ID})
	assert.ErrorIs(t, err, domain.ErrNotCompleted)

	for _, target := range []string{"UNDER_INSPECTION", "IN_REPAIR", "COMPLETED"} {
		f.clock.Advance(time.Hour)
		_, err := f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{Actor: f.manager, ID: item.ID, Status: target})
		require.NoError(t, err)
	}

	score := 5
	_, err = f.svc.Close(ctx, domain.CloseRequest{Actor: f.technician, ID: item.ID, CustomerSatisfaction: &score})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	bad := 6
	_, err = f.svc.Close(ctx, domain.CloseRequest{Actor: f.manager, ID: item.ID, CustomerSatisfaction: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidSatisfaction)

	f.clock.Advance(time.Hour)
	closed, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:                f.manager,
		ID:                   item.ID,
		FinalNotes:           "Replaced relay",
		CustomerSatisfaction: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.clock.Now(), *closed.ClosedAt)
	assert.Equal(t, "Replaced relay", *closed.FinalNotes)
	assert.Equal(t, 5, *closed.CustomerSatisfaction)

	_, err = f.svc.Assign(ctx, domain.AssignRequest{Actor: f.manager, ID: item.ID, TechnicianID: f.other.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	f.clock.Advance(time.Hour)
	reopened, err := f.svc.Assign(ctx, domain.AssignRequest{Actor: f.ceo, ID: item.ID, TechnicianID: f.other.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, reopened.Status)
	assert.Equal(t, f.other.ID, *reopened.AssignedTechnicianID)
	assert.True(t, firstAssigned.Equal(*reopened.AssignedAt))
	assert.True(t, closed.ClosedAt.Equal(*reopened.ClosedAt))

	rows := f.activities(t, item.ID)
	last := rows[len(rows)-1]
	assert.Equal(t, auditdomain.ActivityAssigned, last.ActivityType)
	assert.Equal(t, "CLOSED", last.Metadata["from_status"])
	assert.Equal(t, "NEW", last.Metadata["to_status"])
}

func TestAssign_CompletedKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")

	_, err := f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{Actor: f.manager, ID: item.ID, Status: "COMPLETED"})
	require.NoError(t, err)

	updated := f.assign(t, item.ID, f.technician)
	assert.Equal(t, domain.StatusCompleted, updated.Status)

	_, err = f.svc.Assign(ctx, domain.AssignRequest{Actor: f.manager, ID: item.ID, TechnicianID: f.keeper.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTechnician)

	_, err = f.svc.Assign(ctx, domain.AssignRequest{Actor: f.technician, ID: item.ID, TechnicianID: f.technician.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStatusChangeTimestampsAreIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")

	first, err := f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{Actor: f.manager, ID: item.ID, Status: "UNDER_INSPECTION"})
	require.NoError(t, err)
	require.NotNil(t, first.StartedAt)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{Actor: f.manager, ID: item.ID, Status: "WAITING_PARTS"})
	require.NoError(t, err)
	again, err := f.svc.ChangeStatus(ctx, domain.ChangeStatusRequest{Actor: f.manager, ID: item.ID, Status: "UNDER_INSPECTION", Comment: "recheck"})
	require.NoError(t, err)

	assert.True(t, first.StartedAt.Equal(*again.StartedAt))
	rows := f.activities(t, item.ID)
	require.NotNil(t, rows[len(rows)-1].Comment)
	assert.Equal(t, "recheck", *rows[len(rows)-1].Comment)
}

func TestAddCost_WithPartReservesInSameTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "OUT_OF_WARRANTY", "WORKSHOP")
	f.assign(t, item.ID, f.technician)

	part, err := f.parts.Create(ctx, sparepartdomain.CreateRequest{
		Actor:         f.keeper,
		Name:          "Thermostat",
		PresentPieces: 3,
		UnitPrice:     4000,
		Currency:      "USD",
	})
	require.NoError(t, err)

	quantity := 2
	resp, err := f.svc.AddCost(ctx, domain.AddCostRequest{
		Actor:       f.technician,
		RequestID:   item.ID,
		Description: "Thermostat swap",
		Amount:      8000,
		CostType:    "parts",
		Currency:    "USD",
		SparePartID: &part.ID,
		Quantity:    &quantity,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SparePart)
	assert.Equal(t, 1, resp.SparePart.PresentPieces)
	assert.Equal(t, domain.CostParts, resp.Cost.CostType)
	require.NotNil(t, resp.Cost.RequestPartID)

	labor, err := f.svc.AddCost(ctx, domain.AddCostRequest{
		Actor:       f.manager,
		RequestID:   item.ID,
		Description: "Labor",
		Amount:      1500,
		CostType:    "LABOR",
		Currency:    "usd",
	})
	require.NoError(t, err)
	assert.Nil(t, labor.SparePart)

	current, err := f.svc.Get(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), current.TotalCost)

	costs, err := f.svc.ListCosts(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.Len(t, costs, 2)

	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{
		Actor:       f.technician,
		RequestID:   item.ID,
		Description: "Second thermostat",
		Amount:      8000,
		CostType:    "PARTS",
		Currency:    "USD",
		SparePartID: &part.ID,
		Quantity:    &quantity,
	})
	assert.ErrorIs(t, err, sparepartdomain.ErrInsufficientStock)

	costs, err = f.svc.ListCosts(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.Len(t, costs, 2)
	current, err = f.svc.Get(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), current.TotalCost)

	var reservations int64
	require.NoError(t, f.db.Model(&sparepartdomain.RequestPart{}).Count(&reservations).Error)
	assert.Equal(t, int64(1), reservations)

	assert.Contains(t, f.notifier.kinds(), notifydomain.EventCostWithPart)
}

func TestReceiverTechnicianMayBookParts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "OUT_OF_WARRANTY", "WORKSHOP")
	f.assign(t, item.ID, f.other)
	require.NoError(t, f.db.Model(&domain.Request{}).
		Where("id = ?", item.ID).
		Update("received_by_id", f.technician.ID).Error)

	part, err := f.parts.Create(ctx, sparepartdomain.CreateRequest{
		Actor:         f.keeper,
		Name:          "Fan motor",
		PresentPieces: 4,
		UnitPrice:     2500,
		Currency:      "USD",
	})
	require.NoError(t, err)

	quantity := 1
	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{
		Actor:       f.technician,
		RequestID:   item.ID,
		Description: "Fan motor",
		Amount:      2500,
		CostType:    "parts",
		Currency:    "USD",
		SparePartID: &part.ID,
		Quantity:    &quantity,
	})
	require.NoError(t, err)

	reservation, err := f.parts.Reserve(ctx, sparepartdomain.ReserveRequest{
		Actor:       f.technician,
		RequestID:   item.ID,
		SparePartID: part.ID,
		Quantity:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reservation.SparePart.PresentPieces)

	require.NoError(t, f.parts.Release(ctx, sparepartdomain.ReleaseRequest{
		Actor:         f.technician,
		RequestPartID: reservation.RequestPart.ID,
	}))
}

func TestAddCost_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "OUT_OF_WARRANTY", "WORKSHOP")
	partID := snowflake.ID(77)

	_, err := f.svc.AddCost(ctx, domain.AddCostRequest{Actor: f.manager, RequestID: item.ID, Description: "x", Amount: 0, CostType: "LABOR", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{Actor: f.manager, RequestID: item.ID, Description: "x", Amount: 10, CostType: "PARTS", Currency: "USD", SparePartID: &partID})
	assert.ErrorIs(t, err, domain.ErrQuantityRequired)

	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{Actor: f.manager, RequestID: item.ID, Description: "x", Amount: 10, CostType: "LABOR", Currency: "EUR"})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{Actor: f.keeper, RequestID: item.ID, Description: "x", Amount: 10, CostType: "LABOR", Currency: "USD"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = f.svc.AddCost(ctx, domain.AddCostRequest{Actor: f.other, RequestID: item.ID, Description: "x", Amount: 10, CostType: "LABOR", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGet_RefreshesOverdueFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")

	fresh, err := f.svc.Get(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.False(t, fresh.IsOverdue)

	f.clock.Advance(49 * time.Hour)
	late, err := f.svc.Get(ctx, f.clerk, item.ID)
	require.NoError(t, err)
	assert.True(t, late.IsOverdue)
	assert.Contains(t, f.notifier.kinds(), notifydomain.EventSLAOverdue)

	overdue := true
	list, err := f.svc.List(ctx, f.clerk, domain.ListRequest{Overdue: &overdue})
	require.NoError(t, err)
	require.Len(t, list.Requests, 1)
	assert.Equal(t, item.ID, list.Requests[0].ID)
}

func TestListActivities_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.create(t, "UNDER_WARRANTY", "WORKSHOP")
	f.assign(t, item.ID, f.technician)

	resp, err := f.svc.ListActivities(ctx, f.clerk, auditdomain.ListActivitiesRequest{RequestID: item.ID})
	require.NoError(t, err)
	require.Len(t, resp.Activities, 2)
	assert.Equal(t, auditdomain.ActivityAssigned, resp.Activities[0].ActivityType)
	assert.Equal(t, auditdomain.ActivityCreated, resp.Activities[1].ActivityType)

	_, err = f.svc.ListActivities(ctx, f.clerk, auditdomain.ListActivitiesRequest{RequestID: 4242})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
