// Package analytics 提供运营统计服务
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/cache"
	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
)

// 统计周期
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// 报表缓存时长
const reportCacheTTL = 10 * time.Minute

// Service 统计服务
type Service struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewService 创建统计服务
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb}
}

// SalesSummary 销售汇总
type SalesSummary struct {
	Revenue       decimal.Decimal `json:"revenue"`
	OrderCount    int64           `json:"order_count"`
	AvgOrderValue decimal.Decimal `json:"avg_order_value"`
}

// BookingSummary 预约汇总
type BookingSummary struct {
	Total         int64 `json:"total"`
	Completed     int64 `json:"completed"`
	Cancelled     int64 `json:"cancelled"`
	WaitlistDepth int64 `json:"waitlist_depth"`
}

// UserSummary 用户汇总
type UserSummary struct {
	NewUsers         int64            `json:"new_users"`
	TierDistribution map[string]int64 `json:"tier_distribution"`
}

// ProductEntry 商品销量条目
type ProductEntry struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Sold      int64  `json:"sold"`
}

// CategoryEntry 服务类别预约条目
type CategoryEntry struct {
	Category string `json:"category"`
	Bookings int64  `json:"bookings"`
}

// ReturnSummary 退货汇总
type ReturnSummary struct {
	RequestCount   int64           `json:"request_count"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
}

// Report 运营统计报表
type Report struct {
	Period      string          `json:"period"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	Sales       SalesSummary    `json:"sales"`
	Bookings    BookingSummary  `json:"bookings"`
	Users       UserSummary     `json:"users"`
	TopProducts []ProductEntry  `json:"top_products"`
	ByCategory  []CategoryEntry `json:"by_category"`
	Returns     ReturnSummary   `json:"returns"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Report 生成统计报表，短期内重复请求命中缓存
func (s *Service) Report(ctx context.Context, period string, date time.Time) (*Report, error) {
	start, end, err := periodRange(period, date)
	if err != nil {
		return nil, err
	}

	key := cache.KeyPrefixAnalytics + period + ":" + start.Format("20060102")
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var cached Report
			if jerr := json.Unmarshal([]byte(raw), &cached); jerr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			logger.Warn("report cache read failed", logger.Err(err))
		}
	}

	report, err := s.build(ctx, period, start, end)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, jerr := json.Marshal(report); jerr == nil {
			if err := s.rdb.Set(ctx, key, raw, reportCacheTTL).Err(); err != nil {
				logger.Warn("report cache write failed", logger.Err(err))
			}
		}
	}
	return report, nil
}

// build 全量聚合统计
func (s *Service) build(ctx context.Context, period string, start, end time.Time) (*Report, error) {
	report := &Report{
		Period:      period,
		StartDate:   start,
		EndDate:     end,
		GeneratedAt: time.Now(),
	}
	db := s.db.WithContext(ctx)

	// 销售：已送达订单的折后口径
	var sales struct {
		Revenue decimal.Decimal
		Count   int64
	}
	err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_price - discount_amount), 0) AS revenue, COUNT(*) AS count").
		Where("status = ?", models.OrderStatusDelivered).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&sales).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	report.Sales.Revenue = sales.Revenue
	report.Sales.OrderCount = sales.Count
	if sales.Count > 0 {
		report.Sales.AvgOrderValue = sales.Revenue.Div(decimal.NewFromInt(sales.Count)).Round(2)
	} else {
		report.Sales.AvgOrderValue = decimal.Zero
	}

	// 预约
	type statusCount struct {
		Status string
		Count  int64
	}
	var bookingCounts []statusCount
	err = db.Model(&models.Booking{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status").
		Scan(&bookingCounts).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	for _, row := range bookingCounts {
		report.Bookings.Total += row.Count
		switch row.Status {
		case models.BookingStatusCompleted:
			report.Bookings.Completed = row.Count
		case models.BookingStatusCancelled:
			report.Bookings.Cancelled = row.Count
		case models.BookingStatusWaitlisted:
			report.Bookings.WaitlistDepth = row.Count
		}
	}

	// 用户
	err = db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&report.Users.NewUsers).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	var tierCounts []struct {
		MembershipTier string
		Count          int64
	}
	err = db.Model(&models.User{}).
		Select("membership_tier, COUNT(*) AS count").
		Group("membership_tier").
		Scan(&tierCounts).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	report.Users.TierDistribution = make(map[string]int64, len(tierCounts))
	for _, row := range tierCounts {
		report.Users.TierDistribution[row.MembershipTier] = row.Count
	}

	// 热销商品：已送达订单的条目销量
	err = db.Model(&models.OrderItem{}).
		Select("order_items.product_id, products.name, SUM(order_items.quantity) AS sold").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.status = ?", models.OrderStatusDelivered).
		Where("orders.created_at >= ? AND orders.created_at < ?", start, end).
		Group("order_items.product_id, products.name").
		Order("sold DESC").
		Limit(10).
		Scan(&report.TopProducts).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	// 服务类别预约分布
	err = db.Model(&models.Booking{}).
		Select("service_types.category, COUNT(*) AS bookings").
		Joins("JOIN service_types ON service_types.id = bookings.service_type_id").
		Where("bookings.created_at >= ? AND bookings.created_at < ?", start, end).
		Where("bookings.status <> ?", models.BookingStatusCancelled).
		Group("service_types.category").
		Order("bookings DESC").
		Scan(&report.ByCategory).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	// 退货
	var returns struct {
		Count    int64
		Refunded decimal.Decimal
	}
	err = db.Model(&models.ReturnRequest{}).
		Select("COUNT(*) AS count, COALESCE(SUM(CASE WHEN status = ? THEN refund_amount ELSE 0 END), 0) AS refunded", models.ReturnStatusCompleted).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&returns).Error
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	report.Returns.RequestCount = returns.Count
	report.Returns.RefundedAmount = returns.Refunded

	logger.Debug("analytics report built",
		zap.String("period", period),
		zap.Time("start", start))
	return report, nil
}

// periodRange 计算统计周期的起止时间，周以周一为起点
func periodRange(period string, date time.Time) (time.Time, time.Time, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	switch period {
	case PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0), nil
	case PeriodYearly:
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, errors.ErrInvalidParams.WithMessage("无效的统计周期")
	}
}
