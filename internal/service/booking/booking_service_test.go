package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-backend/internal/common/config"
	apperrors "github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/service/pricing"
	"github.com/dumeirei/marketplace-backend/internal/service/provider"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
)

type bookingTestEnv struct {
	db         *gorm.DB
	svc        *Service
	dispatcher *notify.MockDispatcher
	user       *models.User
	provider   *models.ServiceProvider
}

func setupBookingTest(t *testing.T) *bookingTestEnv {
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
	))

	serviceType := &models.ServiceType{
		Name:      "深度保洁",
		Category:  models.ServiceCategoryHome,
		BasePrice: decimal.NewFromInt(100),
		UnitPrice: decimal.NewFromInt(20),
		IsActive:  true,
	}
	require.NoError(t, db.Create(serviceType).Error)

	owner := &models.User{Username: "owner", Password: "x", Status: models.UserStatusNormal}
	require.NoError(t, db.Create(owner).Error)

	prov := &models.ServiceProvider{
		UserID:        owner.ID,
		Name:          "洁净到家",
		ServiceTypeID: serviceType.ID,
		Location:      "Mumbai",
		Availability: models.JSON{
			"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
			"friday": true, "saturday": true, "sunday": true,
		},
		MaxBookingPerSlot: 2,
		IsActive:          true,
	}
	require.NoError(t, db.Create(prov).Error)

	customer := &models.User{
		Username:       "customer",
		Password:       "x",
		MembershipTier: models.TierBronze,
		Status:         models.UserStatusNormal,
	}
	require.NoError(t, db.Create(customer).Error)

	pricingSvc := pricing.NewService(db, nil, &config.PricingConfig{
		SurgeThreshold: 100, // 测试中不触发动态加价
		SurgeFactor:    1.2,
		PeakStartHour:  9,
		PeakEndHour:    18,
		PeakFactor:     1.1,
	})
	providerSvc := provider.NewService(db)
	dispatcher := notify.NewMockDispatcher()

	svc := NewService(db, pricingSvc, providerSvc, dispatcher, &config.BookingConfig{
		DefaultSlotCapacity: 5,
		RecurrenceMaxSpan:   12,
	})

	return &bookingTestEnv{
		db:         db,
		svc:        svc,
		dispatcher: dispatcher,
		user:       customer,
		provider:   prov,
	}
}

// 次日非高峰时段
func offPeakSlot() time.Time {
	next := time.Now().AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 7, 0, 0, 0, time.Local)
}

func newUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Password: "x", Status: models.UserStatusNormal}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestCreate_PendingWhenSlotFree(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID:      env.provider.ID,
		ScheduledTime:   offPeakSlot(),
		DurationMinutes: 120,
	})
	require.NoError(t, err)

	assert.False(t, result.Waitlisted)
	assert.Equal(t, models.BookingStatusPending, result.Booking.Status)
	assert.Nil(t, result.Booking.WaitlistPosition)
	assert.NotEmpty(t, result.Booking.BookingNo)
	// base 100 + 20 * 2h = 140
	assert.True(t, result.Booking.Price.Equal(decimal.NewFromInt(140)),
		"got %s", result.Booking.Price)
}

func TestCreate_RejectsPastTime(t *testing.T) {
	env := setupBookingTest(t)

	_, err := env.svc.Create(context.Background(), env.user.ID, &CreateBookingRequest{
		ProviderID:    env.provider.ID,
		ScheduledTime: time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, apperrors.ErrBookingPast)
}

func TestCreate_OverflowGoesToWaitlist(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	// 容量为 2，第三、四个进入候补，位置连续
	for i, name := range []string{"u1", "u2"} {
		u := newUser(t, env.db, name)
		result, err := env.svc.Create(ctx, u.ID, &CreateBookingRequest{
			ProviderID:    env.provider.ID,
			ScheduledTime: slot,
		})
		require.NoError(t, err, "booking %d", i)
		assert.False(t, result.Waitlisted)
	}

	w1 := newUser(t, env.db, "w1")
	result, err := env.svc.Create(ctx, w1.ID, &CreateBookingRequest{
		ProviderID:    env.provider.ID,
		ScheduledTime: slot,
	})
	require.NoError(t, err)
	assert.True(t, result.Waitlisted)
	require.NotNil(t, result.Booking.WaitlistPosition)
	assert.Equal(t, 1, *result.Booking.WaitlistPosition)

	w2 := newUser(t, env.db, "w2")
	result2, err := env.svc.Create(ctx, w2.ID, &CreateBookingRequest{
		ProviderID:    env.provider.ID,
		ScheduledTime: slot,
	})
	require.NoError(t, err)
	require.NotNil(t, result2.Booking.WaitlistPosition)
	assert.Equal(t, 2, *result2.Booking.WaitlistPosition)
}

func TestNextOccurrence_ClampsShortMonths(t *testing.T) {
	svc := &Service{}
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 10, 0, 0, 0, time.Local)
	}

	// 1月31日按月步进钳制到 2月末，而不是顺延进 3月
	assert.Equal(t, at(2025, time.February, 28),
		svc.nextOccurrence(at(2025, time.January, 31), models.RecurrenceMonthly))
	assert.Equal(t, at(2025, time.April, 30),
		svc.nextOccurrence(at(2025, time.March, 31), models.RecurrenceMonthly))
	assert.Equal(t, at(2025, time.March, 15),
		svc.nextOccurrence(at(2025, time.February, 15), models.RecurrenceMonthly))

	// 闰日按年步进钳制到 2月28日
	assert.Equal(t, at(2025, time.February, 28),
		svc.nextOccurrence(at(2024, time.February, 29), models.RecurrenceYearly))
	assert.Equal(t, at(2026, time.June, 10),
		svc.nextOccurrence(at(2025, time.June, 10), models.RecurrenceYearly))
}

func TestCreate_RejectsUnscheduledDay(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	// 出勤表里没有目标日的星期键，预约应被拒绝
	otherDay := strings.ToLower(slot.AddDate(0, 0, 1).Weekday().String())
	require.NoError(t, env.db.Model(env.provider).
		Update("availability", models.JSON{otherDay: true}).Error)

	_, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID:    env.provider.ID,
		ScheduledTime: slot,
	})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)

	// 出勤表为空同样拒绝
	require.NoError(t, env.db.Model(env.provider).
		Update("availability", models.JSON{}).Error)
	_, err = env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID:    env.provider.ID,
		ScheduledTime: slot,
	})
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestCancel_PromotesWaitlistHead(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	u1 := newUser(t, env.db, "u1")
	first, err := env.svc.Create(ctx, u1.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)
	u2 := newUser(t, env.db, "u2")
	_, err = env.svc.Create(ctx, u2.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)

	w1 := newUser(t, env.db, "w1")
	waitlisted1, err := env.svc.Create(ctx, w1.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)
	w2 := newUser(t, env.db, "w2")
	waitlisted2, err := env.svc.Create(ctx, w2.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Cancel(ctx, u1.ID, first.Booking.ID, nil, false))

	var promoted models.Booking
	require.NoError(t, env.db.First(&promoted, waitlisted1.Booking.ID).Error)
	assert.Equal(t, models.BookingStatusConfirmed, promoted.Status)
	assert.NotNil(t, promoted.ConfirmedAt)
	assert.Nil(t, promoted.WaitlistPosition)

	// 队列整体前移
	var remaining models.Booking
	require.NoError(t, env.db.First(&remaining, waitlisted2.Booking.ID).Error)
	assert.Equal(t, models.BookingStatusWaitlisted, remaining.Status)
	require.NotNil(t, remaining.WaitlistPosition)
	assert.Equal(t, 1, *remaining.WaitlistPosition)

	// 转正通知已派发
	assert.Equal(t, 1, env.dispatcher.CountByKind(notify.KindWaitlistPromoted))
}

func TestCancel_WaitlistedCompactsQueue(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	for _, name := range []string{"u1", "u2"} {
		u := newUser(t, env.db, name)
		_, err := env.svc.Create(ctx, u.ID, &CreateBookingRequest{
			ProviderID: env.provider.ID, ScheduledTime: slot,
		})
		require.NoError(t, err)
	}

	var waitlisted []*models.Booking
	for _, name := range []string{"w1", "w2", "w3"} {
		u := newUser(t, env.db, name)
		result, err := env.svc.Create(ctx, u.ID, &CreateBookingRequest{
			ProviderID: env.provider.ID, ScheduledTime: slot,
		})
		require.NoError(t, err)
		waitlisted = append(waitlisted, result.Booking)
	}

	// 取消中间的候补，位置保持 1..N 连续
	require.NoError(t, env.svc.Cancel(ctx, waitlisted[1].UserID, waitlisted[1].ID, nil, false))

	var b1, b3 models.Booking
	require.NoError(t, env.db.First(&b1, waitlisted[0].ID).Error)
	require.NoError(t, env.db.First(&b3, waitlisted[2].ID).Error)
	require.NotNil(t, b1.WaitlistPosition)
	require.NotNil(t, b3.WaitlistPosition)
	assert.Equal(t, 1, *b1.WaitlistPosition)
	assert.Equal(t, 2, *b3.WaitlistPosition)
}

func TestCancel_OnlyOwnerOrStaff(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: offPeakSlot(),
	})
	require.NoError(t, err)

	other := newUser(t, env.db, "other")
	err = env.svc.Cancel(ctx, other.ID, result.Booking.ID, nil, false)
	assert.Error(t, err)

	// 管理人员可以代为取消
	require.NoError(t, env.svc.Cancel(ctx, other.ID, result.Booking.ID, nil, true))
}

func TestRecurrence_WeeklyExpansion(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()
	end := slot.AddDate(0, 0, 21) // 含首次共 4 周

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID:        env.provider.ID,
		ScheduledTime:     slot,
		RecurrenceRule:    models.RecurrenceWeekly,
		RecurrenceEndDate: &end,
	})
	require.NoError(t, err)

	assert.Len(t, result.Instances, 3)
	for _, child := range result.Instances {
		assert.Equal(t, models.RecurrenceNone, child.RecurrenceRule)
		assert.True(t, child.IsRecurringInstance)
		require.NotNil(t, child.ParentBookingID)
		assert.Equal(t, result.Booking.ID, *child.ParentBookingID)
	}
	assert.Equal(t, slot.AddDate(0, 0, 7).Unix(), result.Instances[0].ScheduledTime.Unix())
}

func TestRecurrence_SkipsFullSlots(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()
	conflictSlot := slot.AddDate(0, 0, 7)

	// 先占满下周同一时段
	for _, name := range []string{"u1", "u2"} {
		u := newUser(t, env.db, name)
		_, err := env.svc.Create(ctx, u.ID, &CreateBookingRequest{
			ProviderID: env.provider.ID, ScheduledTime: conflictSlot,
		})
		require.NoError(t, err)
	}

	end := slot.AddDate(0, 0, 14)
	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID:        env.provider.ID,
		ScheduledTime:     slot,
		RecurrenceRule:    models.RecurrenceWeekly,
		RecurrenceEndDate: &end,
	})
	require.NoError(t, err)

	// 冲突周被静默跳过，只展开无冲突的一周
	require.Len(t, result.Instances, 1)
	assert.Equal(t, slot.AddDate(0, 0, 14).Unix(), result.Instances[0].ScheduledTime.Unix())
}

func TestRecurrence_RequiresEndDate(t *testing.T) {
	env := setupBookingTest(t)

	_, err := env.svc.Create(context.Background(), env.user.ID, &CreateBookingRequest{
		ProviderID:     env.provider.ID,
		ScheduledTime:  offPeakSlot(),
		RecurrenceRule: models.RecurrenceWeekly,
	})
	assert.Error(t, err)
}

func TestReschedule_FreesOldSlot(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)

	newSlot := slot.AddDate(0, 0, 2)
	replacement, err := env.svc.Reschedule(ctx, env.user.ID, result.Booking.ID, newSlot)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, replacement.Status)
	assert.Equal(t, newSlot.Unix(), replacement.ScheduledTime.Unix())
	assert.NotEqual(t, result.Booking.BookingNo, replacement.BookingNo)

	var old models.Booking
	require.NoError(t, env.db.First(&old, result.Booking.ID).Error)
	assert.Equal(t, models.BookingStatusRescheduled, old.Status)
}

func TestConfirmAndComplete(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: offPeakSlot(),
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Confirm(ctx, result.Booking.ID))
	require.NoError(t, env.svc.Complete(ctx, result.Booking.ID))

	var booking models.Booking
	require.NoError(t, env.db.First(&booking, result.Booking.ID).Error)
	assert.Equal(t, models.BookingStatusCompleted, booking.Status)
	assert.NotNil(t, booking.ConfirmedAt)
	assert.NotNil(t, booking.CompletedAt)

	// 完成后刷新服务商完成率
	var prov models.ServiceProvider
	require.NoError(t, env.db.First(&prov, env.provider.ID).Error)
	assert.Equal(t, 100.0, prov.CompletionRate)
}

func TestWaitlistPosition(t *testing.T) {
	env := setupBookingTest(t)
	ctx := context.Background()
	slot := offPeakSlot()

	for _, name := range []string{"u1", "u2"} {
		u := newUser(t, env.db, name)
		_, err := env.svc.Create(ctx, u.ID, &CreateBookingRequest{
			ProviderID: env.provider.ID, ScheduledTime: slot,
		})
		require.NoError(t, err)
	}

	result, err := env.svc.Create(ctx, env.user.ID, &CreateBookingRequest{
		ProviderID: env.provider.ID, ScheduledTime: slot,
	})
	require.NoError(t, err)

	pos, err := env.svc.WaitlistPosition(ctx, env.user.ID, result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}
