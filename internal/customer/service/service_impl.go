package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.Join(strings.Fields(req.Name), " ")
	if name == "" || len(name) > 200 {
		return domain.Customer{}, domain.ErrInvalidName
	}
	phone := domain.NormalizePhone(req.Phone)
	if phone == "" {
		return domain.Customer{}, domain.ErrInvalidPhone
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Customer{}, err
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Email:     email,
		Address:   optional(req.Address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer registered", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

// List searches customers for the intake desk, newest first. An unparseable
// phone filter matches nobody rather than everybody.
func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	before, err := req.Before()
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	filter := domain.SearchFilter{
		NamePrefix: strings.TrimSpace(req.Name),
		BeforeID:   before,
		Limit:      req.Size(),
	}
	if raw := strings.TrimSpace(req.Phone); raw != "" {
		filter.Phone = domain.NormalizePhone(raw)
		if filter.Phone == "" {
			return domain.ListCustomerResponse{Customers: []domain.Customer{}}, nil
		}
	}

	rows, err := s.repo.Search(ctx, s.db, filter)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}
	customers, pageInfo := pagination.Page(rows, filter.Limit, func(c *domain.Customer) snowflake.ID { return c.ID })
	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Customer, error) {
	if id <= 0 {
		return domain.Customer{}, domain.ErrNotFound
	}
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

// normalizeEmail accepts a bare address only; display names such as
// "Rina <rina@mail.io>" are rejected so the stored value is mailable as is.
func normalizeEmail(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return nil, domain.ErrInvalidEmail
	}
	email := strings.ToLower(addr.Address)
	return &email, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
