// Package provider 服务商服务单元测试
package provider

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/models"
)

func setupProviderTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ServiceType{},
		&models.ServiceProvider{},
		&models.Booking{},
		&models.Review{},
	))

	serviceType := &models.ServiceType{
		Name:      "家政保洁",
		Category:  models.ServiceCategoryHome,
		BasePrice: decimal.NewFromInt(200),
		UnitPrice: decimal.NewFromInt(50),
		IsActive:  true,
	}
	require.NoError(t, db.Create(serviceType).Error)

	return NewService(db), db
}

func seedProvider(t *testing.T, db *gorm.DB, opts ...func(*models.ServiceProvider)) *models.ServiceProvider {
	t.Helper()
	provider := &models.ServiceProvider{
		UserID:            1,
		Name:              "清洁到家",
		ServiceTypeID:     1,
		Location:          "孟买",
		MaxBookingPerSlot: 5,
		IsActive:          true,
	}
	for _, opt := range opts {
		opt(provider)
	}
	require.NoError(t, db.Create(provider).Error)
	return provider
}

func seedCompletedBooking(t *testing.T, db *gorm.DB, providerID, userID int64, status string) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		BookingNo:       fmt.Sprintf("BK-%s-%d", status, userID),
		UserID:          userID,
		ProviderID:      providerID,
		ServiceTypeID:   1,
		ScheduledTime:   time.Now().Add(-24 * time.Hour),
		DurationMinutes: 60,
		Status:          status,
		Price:           decimal.NewFromInt(250),
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func TestCreateProvider(t *testing.T) {
	svc, _ := setupProviderTest(t)

	provider, err := svc.CreateProvider(context.Background(), 1, &CreateProviderRequest{
		Name:          "清洁到家",
		ServiceTypeID: 1,
		Location:      "孟买",
	})
	require.NoError(t, err)
	assert.NotZero(t, provider.ID)
	assert.True(t, provider.IsActive)
	// 未指定时使用默认并发容量
	assert.Equal(t, 5, provider.MaxBookingPerSlot)
}

func TestCreateProvider_UnknownServiceType(t *testing.T) {
	svc, _ := setupProviderTest(t)

	_, err := svc.CreateProvider(context.Background(), 1, &CreateProviderRequest{
		Name:          "清洁到家",
		ServiceTypeID: 999,
		Location:      "孟买",
	})
	assert.ErrorIs(t, err, apperrors.ErrServiceTypeNotFound)
}

func TestAddReview_UpdatesRatingIncrementally(t *testing.T) {
	svc, db := setupProviderTest(t)
	ctx := context.Background()

	provider := seedProvider(t, db)
	b1 := seedCompletedBooking(t, db, provider.ID, 1, models.BookingStatusCompleted)
	b2 := seedCompletedBooking(t, db, provider.ID, 2, models.BookingStatusCompleted)

	_, err := svc.AddReview(ctx, 1, &AddReviewRequest{BookingID: b1.ID, Rating: 5})
	require.NoError(t, err)
	_, err = svc.AddReview(ctx, 2, &AddReviewRequest{BookingID: b2.ID, Rating: 4})
	require.NoError(t, err)

	var stored models.ServiceProvider
	require.NoError(t, db.First(&stored, provider.ID).Error)
	assert.Equal(t, 4.5, stored.Rating)
	assert.Equal(t, 2, stored.TotalRatings)
	assert.EqualValues(t, 1, stored.RatingBreakdown["5"])
	assert.EqualValues(t, 1, stored.RatingBreakdown["4"])
}

func TestAddReview_OnlyCompletedAndOwn(t *testing.T) {
	svc, db := setupProviderTest(t)
	ctx := context.Background()

	provider := seedProvider(t, db)
	pending := seedCompletedBooking(t, db, provider.ID, 1, models.BookingStatusPending)
	done := seedCompletedBooking(t, db, provider.ID, 1, models.BookingStatusCompleted)

	_, err := svc.AddReview(ctx, 1, &AddReviewRequest{BookingID: pending.ID, Rating: 5})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)

	_, err = svc.AddReview(ctx, 2, &AddReviewRequest{BookingID: done.ID, Rating: 5})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestAddReview_RejectsDuplicate(t *testing.T) {
	svc, db := setupProviderTest(t)
	ctx := context.Background()

	provider := seedProvider(t, db)
	booking := seedCompletedBooking(t, db, provider.ID, 1, models.BookingStatusCompleted)

	_, err := svc.AddReview(ctx, 1, &AddReviewRequest{BookingID: booking.ID, Rating: 5})
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, 1, &AddReviewRequest{BookingID: booking.ID, Rating: 3})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyReviewed)
}

func TestRefreshCompletionRate(t *testing.T) {
	svc, db := setupProviderTest(t)
	ctx := context.Background()

	provider := seedProvider(t, db)
	seedCompletedBooking(t, db, provider.ID, 1, models.BookingStatusCompleted)
	seedCompletedBooking(t, db, provider.ID, 2, models.BookingStatusCompleted)
	seedCompletedBooking(t, db, provider.ID, 3, models.BookingStatusCompleted)
	seedCompletedBooking(t, db, provider.ID, 4, models.BookingStatusCancelled)

	rate, err := svc.RefreshCompletionRate(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, rate)

	var stored models.ServiceProvider
	require.NoError(t, db.First(&stored, provider.ID).Error)
	assert.Equal(t, 75.0, stored.CompletionRate)
}

func TestRefreshCompletionRate_NoHistory(t *testing.T) {
	svc, db := setupProviderTest(t)

	provider := seedProvider(t, db)

	rate, err := svc.RefreshCompletionRate(context.Background(), provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)
}

func TestAvailableAt(t *testing.T) {
	monday := time.Date(2025, 6, 9, 10, 0, 0, 0, time.Local)
	sunday := time.Date(2025, 6, 8, 10, 0, 0, 0, time.Local)
	tuesday := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)

	// 未配置出勤表视为不可用
	closed := &models.ServiceProvider{}
	assert.False(t, AvailableAt(closed, monday))

	scheduled := &models.ServiceProvider{
		Availability: models.JSON{"monday": true, "sunday": false},
	}
	assert.True(t, AvailableAt(scheduled, monday))
	assert.False(t, AvailableAt(scheduled, sunday))

	// 未提及的星期同样不可用
	assert.False(t, AvailableAt(scheduled, tuesday))

	// 具体日期键优先于星期键
	dated := &models.ServiceProvider{
		Availability: models.JSON{"monday": true, "2025-06-09": false, "2025-06-10": true},
	}
	assert.False(t, AvailableAt(dated, monday))
	assert.True(t, AvailableAt(dated, tuesday))
}
