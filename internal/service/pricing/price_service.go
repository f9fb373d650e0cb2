// Package pricing 提供动态定价引擎
package pricing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/cache"
	"github.com/dumeirei/marketplace-backend/internal/common/config"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// 白金会员折扣率
var platinumDiscount = decimal.NewFromFloat(0.15)

// Service 定价服务
type Service struct {
	bookingRepo *repository.BookingRepository
	rdb         *redis.Client
	cfg         *config.PricingConfig
}

// NewService 创建定价服务
func NewService(db *gorm.DB, rdb *redis.Client, cfg *config.PricingConfig) *Service {
	return &Service{
		bookingRepo: repository.NewBookingRepository(db),
		rdb:         rdb,
		cfg:         cfg,
	}
}

// QuoteInput 报价输入
type QuoteInput struct {
	ServiceType     *models.ServiceType
	ScheduledTime   time.Time
	DurationMinutes int
	MembershipTier  string
}

// Quote 计算预约价格
// price = (base + unit * hours) * surge * peak * (1 - discount)
// 同一输入必然得到同一报价；每次创建或改期都重新计算
func (s *Service) Quote(ctx context.Context, in *QuoteInput) (decimal.Decimal, error) {
	demand, err := s.demandCount(ctx, in.ServiceType.ID, in.ScheduledTime)
	if err != nil {
		return decimal.Zero, err
	}
	return s.compute(in, demand), nil
}

// compute 纯函数部分，观测值（需求量）已经给定
func (s *Service) compute(in *QuoteInput, demand int64) decimal.Decimal {
	hours := decimal.NewFromInt(int64(in.DurationMinutes)).Div(decimal.NewFromInt(60))
	price := in.ServiceType.BasePrice.Add(in.ServiceType.UnitPrice.Mul(hours))

	if demand > int64(s.cfg.SurgeThreshold) {
		price = price.Mul(decimal.NewFromFloat(s.cfg.SurgeFactor))
	}

	hour := in.ScheduledTime.Hour()
	if hour >= s.cfg.PeakStartHour && hour <= s.cfg.PeakEndHour {
		price = price.Mul(decimal.NewFromFloat(s.cfg.PeakFactor))
	}

	// 仅白金会员享受预约折扣
	if in.MembershipTier == models.TierPlatinum {
		price = price.Mul(decimal.NewFromInt(1).Sub(platinumDiscount))
	}

	return price.Round(2)
}

// demandCount 获取同日同服务类型的预约量，优先读缓存，失败回落数据库
func (s *Service) demandCount(ctx context.Context, serviceTypeID int64, day time.Time) (int64, error) {
	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, s.demandKey(serviceTypeID, day)).Result()
		if err == nil {
			if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return n, nil
			}
		} else if err != redis.Nil {
			logger.Warn("demand cache read failed, falling back to db", logger.Err(err))
		}
	}
	return s.bookingRepo.CountSameDayByServiceType(ctx, serviceTypeID, day)
}

// RecordDemand 预约创建成功后累计需求计数
func (s *Service) RecordDemand(ctx context.Context, serviceTypeID int64, day time.Time) {
	if s.rdb == nil {
		return
	}
	key := s.demandKey(serviceTypeID, day)
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("demand cache update failed", logger.Err(err))
	}
}

// demandKey 需求计数缓存键
func (s *Service) demandKey(serviceTypeID int64, day time.Time) string {
	return fmt.Sprintf("%s%d:%s", cache.KeyPrefixDemand, serviceTypeID, day.Format("20060102"))
}
