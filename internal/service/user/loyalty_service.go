// Package user 提供用户服务
package user

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/config"
	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// 会员等级累计消费门槛
var (
	tierSilverThreshold   = decimal.NewFromInt(500)
	tierGoldThreshold     = decimal.NewFromInt(2000)
	tierPlatinumThreshold = decimal.NewFromInt(5000)
)

// LoyaltyService 积分会员服务
type LoyaltyService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	cfg      *config.LoyaltyConfig
}

// NewLoyaltyService 创建积分会员服务
func NewLoyaltyService(db *gorm.DB, cfg *config.LoyaltyConfig) *LoyaltyService {
	return &LoyaltyService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
		cfg:      cfg,
	}
}

// AccrueResult 积分累计结果
type AccrueResult struct {
	PointsAdded  int    `json:"points_added"`
	TotalPoints  int    `json:"total_points"`
	Tier         string `json:"tier"`
	TierUpgraded bool   `json:"tier_upgraded"`
}

// AccrueTx 在已有事务中累计消费积分并刷新会员等级
// 积分 = floor(消费金额 / points_per_unit)；首次得分时设置一年有效期
func (s *LoyaltyService) AccrueTx(ctx context.Context, tx *gorm.DB, userID int64, amountSpent decimal.Decimal) (*AccrueResult, error) {
	if amountSpent.IsNegative() {
		return nil, errors.ErrInvalidParams.WithMessage("消费金额不能为负")
	}

	var user models.User
	if err := tx.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	perUnit := int64(s.cfg.PointsPerUnit)
	if perUnit <= 0 {
		perUnit = 100
	}
	points := int(amountSpent.Div(decimal.NewFromInt(perUnit)).IntPart())

	updates := map[string]interface{}{
		"loyalty_points": gorm.Expr("loyalty_points + ?", points),
		"total_spent":    user.TotalSpent.Add(amountSpent),
	}
	if user.PointsExpiry == nil {
		expiry := time.Now().AddDate(0, 0, s.expireDays())
		updates["points_expiry"] = expiry
	}

	newTier := TierFor(user.TotalSpent.Add(amountSpent))
	upgraded := newTier != user.MembershipTier
	if upgraded {
		now := time.Now()
		updates["membership_tier"] = newTier
		updates["last_tier_update"] = now
	}

	if err := tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error; err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	return &AccrueResult{
		PointsAdded:  points,
		TotalPoints:  user.LoyaltyPoints + points,
		Tier:         newTier,
		TierUpgraded: upgraded,
	}, nil
}

// TierFor 根据累计消费计算会员等级
func TierFor(totalSpent decimal.Decimal) string {
	switch {
	case totalSpent.GreaterThanOrEqual(tierPlatinumThreshold):
		return models.TierPlatinum
	case totalSpent.GreaterThanOrEqual(tierGoldThreshold):
		return models.TierGold
	case totalSpent.GreaterThanOrEqual(tierSilverThreshold):
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// RefreshTier 重新计算单个用户的会员等级
func (s *LoyaltyService) RefreshTier(ctx context.Context, userID int64) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", errors.ErrUserNotFound
		}
		return "", errors.ErrDatabaseError.WithError(err)
	}

	newTier := TierFor(user.TotalSpent)
	if newTier == user.MembershipTier {
		return newTier, nil
	}

	now := time.Now()
	err = s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"membership_tier":  newTier,
		"last_tier_update": now,
	})
	if err != nil {
		return "", errors.ErrDatabaseError.WithError(err)
	}
	return newTier, nil
}

// ExpirePoints 清零已过期积分（定时任务调用）
func (s *LoyaltyService) ExpirePoints(ctx context.Context, batchSize int) (int, error) {
	users, err := s.userRepo.ListWithExpiredPoints(ctx, time.Now(), batchSize)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	expired := 0
	for _, u := range users {
		err := s.userRepo.UpdateFields(ctx, u.ID, map[string]interface{}{
			"loyalty_points": 0,
			"points_expiry":  nil,
		})
		if err != nil {
			logger.Error("expire points failed", logger.UserID(u.ID), logger.Err(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// LoyaltyInfo 积分会员信息
type LoyaltyInfo struct {
	Points         int             `json:"points"`
	PointsExpiry   *time.Time      `json:"points_expiry,omitempty"`
	Tier           string          `json:"tier"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	NextTier       *string         `json:"next_tier,omitempty"`
	SpendToNext    *string         `json:"spend_to_next,omitempty"`
	LastTierUpdate *time.Time      `json:"last_tier_update,omitempty"`
}

// GetLoyaltyInfo 获取积分会员信息
func (s *LoyaltyService) GetLoyaltyInfo(ctx context.Context, userID int64) (*LoyaltyInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	info := &LoyaltyInfo{
		Points:         user.LoyaltyPoints,
		PointsExpiry:   user.PointsExpiry,
		Tier:           user.MembershipTier,
		TotalSpent:     user.TotalSpent,
		LastTierUpdate: user.LastTierUpdate,
	}

	switch user.MembershipTier {
	case models.TierBronze:
		next := models.TierSilver
		gap := tierSilverThreshold.Sub(user.TotalSpent).StringFixed(2)
		info.NextTier, info.SpendToNext = &next, &gap
	case models.TierSilver:
		next := models.TierGold
		gap := tierGoldThreshold.Sub(user.TotalSpent).StringFixed(2)
		info.NextTier, info.SpendToNext = &next, &gap
	case models.TierGold:
		next := models.TierPlatinum
		gap := tierPlatinumThreshold.Sub(user.TotalSpent).StringFixed(2)
		info.NextTier, info.SpendToNext = &next, &gap
	}

	return info, nil
}

// expireDays 积分有效天数
func (s *LoyaltyService) expireDays() int {
	if s.cfg.PointsExpireDays > 0 {
		return s.cfg.PointsExpireDays
	}
	return 365
}
