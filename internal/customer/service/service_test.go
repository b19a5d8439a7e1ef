package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/customer/repository"
	"github.com/smallbiznis/repairdesk/pkg/db/dbtest"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, &domain.Customer{})
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateNormalizesIntake(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "  Rina   Wulandari ",
		Phone: "+62 (812) 3456-789",
		Email: "Rina@Mail.io",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rina Wulandari", created.Name)
	assert.Equal(t, "+628123456789", created.Phone)
	require.NotNil(t, created.Email)
	assert.Equal(t, "rina@mail.io", *created.Email)
	assert.Nil(t, created.Address)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "+628123456789", got.Phone)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateCustomerRequest
		want error
	}{
		{"blank name", domain.CreateCustomerRequest{Name: "   ", Phone: "0812345678"}, domain.ErrInvalidName},
		{"short phone", domain.CreateCustomerRequest{Name: "A", Phone: "0812"}, domain.ErrInvalidPhone},
		{"letters in phone", domain.CreateCustomerRequest{Name: "A", Phone: "0812-CALL-ME"}, domain.ErrInvalidPhone},
		{"plus inside phone", domain.CreateCustomerRequest{Name: "A", Phone: "0812+345678"}, domain.ErrInvalidPhone},
		{"bad email", domain.CreateCustomerRequest{Name: "A", Phone: "0812345678", Email: "bad"}, domain.ErrInvalidEmail},
		{"display name email", domain.CreateCustomerRequest{Name: "A", Phone: "0812345678", Email: "A <a@b.io>"}, domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetByID(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetByID(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListSearchesAndPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for _, c := range []struct{ name, phone string }{
		{"Rina", "0811111111"},
		{"rudi", "0812222222"},
		{"Budi", "0813333333"},
		{"Ratna_x", "0814444444"},
	} {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: c.name, Phone: c.phone})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListCustomerRequest{Name: "r", Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.Customers, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "Ratna_x", first.Customers[0].Name)
	assert.Equal(t, "rudi", first.Customers[1].Name)

	second, err := svc.List(ctx, domain.ListCustomerRequest{
		Name:       "r",
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Customers, 1)
	assert.Equal(t, "Rina", second.Customers[0].Name)
	assert.False(t, second.HasMore)

	wildcard, err := svc.List(ctx, domain.ListCustomerRequest{Name: "_"})
	require.NoError(t, err)
	assert.Empty(t, wildcard.Customers)

	byPhone, err := svc.List(ctx, domain.ListCustomerRequest{Phone: "0813-333-333"})
	require.NoError(t, err)
	require.Len(t, byPhone.Customers, 1)
	assert.Equal(t, "Budi", byPhone.Customers[0].Name)

	garbage, err := svc.List(ctx, domain.ListCustomerRequest{Phone: "call me"})
	require.NoError(t, err)
	assert.Empty(t, garbage.Customers)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
