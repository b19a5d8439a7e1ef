package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/repairdesk/internal/audit/domain"
	"github.com/smallbiznis/repairdesk/internal/audit/repository"
	"github.com/smallbiznis/repairdesk/internal/clock"
	"github.com/smallbiznis/repairdesk/pkg/db/dbtest"
	"github.com/smallbiznis/repairdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

type failingRepo struct {
	mock.Mock
	auditdomain.Repository
}

func (m *failingRepo) InsertPartHistory(ctx context.Context, db *gorm.DB, entry *auditdomain.PartHistory) error {
	args := m.Called(ctx, db, entry)
	return args.Error(0)
}

func (m *failingRepo) InsertActivity(ctx context.Context, db *gorm.DB, entry *auditdomain.RequestActivity) error {
	args := m.Called(ctx, db, entry)
	return args.Error(0)
}

func newTestService(t *testing.T, repo auditdomain.Repository, log *zap.Logger) (*Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, &auditdomain.PartHistory{}, &auditdomain.RequestActivity{}, &widget{})
	if repo == nil {
		repo = repository.Provide()
	}
	if log == nil {
		log = zap.NewNop()
	}
	svc := newService(Params{
		DB:    db,
		Log:   log,
		GenID: dbtest.Node(t),
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repo,
	})
	return svc, db
}

func TestRecordPartChange_CommitsWithMutation(t *testing.T) {
	svc, db := newTestService(t, nil, nil)
	ctx := context.Background()
	partID := snowflake.ID(101)
	delta := -2

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&widget{ID: 1, Name: "stock"}).Error; err != nil {
			return err
		}
		svc.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID:    partID,
			ChangeType:     auditdomain.PartChangeUsedInRequest,
			QuantityChange: &delta,
			Description:    "  Reserved 2 pieces  ",
			ChangedByID:    snowflake.ID(7),
		})
		return nil
	})
	require.NoError(t, err)

	var rows []auditdomain.PartHistory
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, partID, rows[0].SparePartID)
	assert.Equal(t, "Reserved 2 pieces", rows[0].Description)
	require.NotNil(t, rows[0].QuantityChange)
	assert.Equal(t, -2, *rows[0].QuantityChange)
	assert.NotZero(t, rows[0].ID)
}

func TestRecordPartChange_RollsBackWithMutation(t *testing.T) {
	svc, db := newTestService(t, nil, nil)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		svc.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID: 1,
			ChangeType:  auditdomain.PartChangeCreated,
			Description: "created",
			ChangedByID: 7,
		})
		return errors.New("primary mutation failed")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&auditdomain.PartHistory{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordActivity_FailureDoesNotAbortMutation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &failingRepo{}
	repo.On("InsertActivity", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc, db := newTestService(t, repo, zap.New(core))
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&widget{ID: 1, Name: "request"}).Error; err != nil {
			return err
		}
		svc.RecordActivity(ctx, tx, auditdomain.RequestActivity{
			RequestID:    1,
			ActorID:      2,
			ActivityType: auditdomain.ActivityStatusChanged,
			Description:  "Status changed from NEW to ASSIGNED",
		})
		return tx.Create(&widget{ID: 2, Name: "after audit"}).Error
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 1, logs.FilterMessage("failed to write request activity").Len())
	repo.AssertExpectations(t)
}

func TestRecordPartChange_MissingTableIsNonFatal(t *testing.T) {
	svc, db := newTestService(t, nil, nil)
	require.NoError(t, db.Migrator().DropTable(&auditdomain.PartHistory{}))
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		svc.RecordPartChange(ctx, tx, auditdomain.PartHistory{
			SparePartID: 1,
			ChangeType:  auditdomain.PartChangeUpdated,
			Description: "name changed",
			ChangedByID: 7,
		})
		return tx.Create(&widget{ID: 9, Name: "kept"}).Error
	})
	require.NoError(t, err)

	var kept widget
	require.NoError(t, db.First(&kept, 9).Error)
	assert.Equal(t, "kept", kept.Name)
}

func TestListActivities_NewestFirstWithCursor(t *testing.T) {
	svc, db := newTestService(t, nil, nil)
	ctx := context.Background()
	requestID := snowflake.ID(55)

	for i := 0; i < 5; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			svc.RecordActivity(ctx, tx, auditdomain.RequestActivity{
				RequestID:    requestID,
				ActorID:      1,
				ActivityType: auditdomain.ActivityStatusChanged,
				Description:  "step",
			})
			return nil
		})
		require.NoError(t, err)
	}

	first, err := svc.ListActivities(ctx, auditdomain.ListActivitiesRequest{RequestID: requestID, Pagination: paginationOf("", 3)})
	require.NoError(t, err)
	require.Len(t, first.Activities, 3)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextPageToken)
	assert.Greater(t, first.Activities[0].ID, first.Activities[1].ID)

	second, err := svc.ListActivities(ctx, auditdomain.ListActivitiesRequest{RequestID: requestID, Pagination: paginationOf(first.NextPageToken, 3)})
	require.NoError(t, err)
	require.Len(t, second.Activities, 2)
	assert.False(t, second.HasMore)
	assert.Less(t, second.Activities[0].ID, first.Activities[2].ID)
}

func TestListPartHistory_RejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t, nil, nil)

	_, err := svc.ListPartHistory(context.Background(), auditdomain.ListPartHistoryRequest{SparePartID: 1, Pagination: paginationOf("%%%", 10)})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	_, err = svc.ListPartHistory(context.Background(), auditdomain.ListPartHistoryRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidSubject)
}

func paginationOf(token string, size int) pagination.Pagination {
	return pagination.Pagination{PageToken: token, PageSize: size}
}
