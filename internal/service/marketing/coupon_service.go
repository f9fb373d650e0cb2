// Package marketing 提供营销服务
package marketing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// CouponService 优惠券服务
type CouponService struct {
	db         *gorm.DB
	couponRepo *repository.CouponRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(db *gorm.DB) *CouponService {
	return &CouponService{
		db:         db,
		couponRepo: repository.NewCouponRepository(db),
	}
}

// CartItem 参与优惠计算的条目
type CartItem struct {
	ProductID  int64           `json:"product_id"`
	CategoryID int64           `json:"category_id"`
	ShopID     int64           `json:"shop_id"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// ValidateInput 优惠券校验输入
type ValidateInput struct {
	Code   string
	UserID int64
	Amount decimal.Decimal
	Items  []CartItem
}

// DiscountResult 优惠计算结果
type DiscountResult struct {
	Coupon         *models.Coupon  `json:"coupon"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FreeShipping   bool            `json:"free_shipping"`
}

// CreateCouponRequest 创建优惠券请求
type CreateCouponRequest struct {
	Code              string          `json:"code" binding:"required,max=32"`
	Name              string          `json:"name" binding:"required,max=100"`
	DiscountType      string          `json:"discount_type" binding:"required"`
	DiscountValue     decimal.Decimal `json:"discount_value" binding:"required"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
	ValidFrom         time.Time       `json:"valid_from" binding:"required"`
	ValidUntil        time.Time       `json:"valid_until" binding:"required"`
	MaxUses           int             `json:"max_uses"`
	MaxUsesPerUser    int             `json:"max_uses_per_user"`
	ProductIDs        []int64         `json:"product_ids"`
	CategoryIDs       []int64         `json:"category_ids"`
	ShopIDs           []int64         `json:"shop_ids"`
}

// Create 创建优惠券（管理人员）
func (s *CouponService) Create(ctx context.Context, req *CreateCouponRequest) (*models.Coupon, error) {
	switch req.DiscountType {
	case models.CouponTypePercent:
		if req.DiscountValue.LessThanOrEqual(decimal.Zero) || req.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return nil, errors.ErrInvalidParams.WithMessage("折扣比例必须在 (0, 100] 之间")
		}
	case models.CouponTypeFixed:
		if req.DiscountValue.LessThanOrEqual(decimal.Zero) {
			return nil, errors.ErrInvalidParams.WithMessage("折扣金额必须大于 0")
		}
	case models.CouponTypeFreeShipping:
	default:
		return nil, errors.ErrInvalidParams.WithMessage("无效的优惠类型")
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		return nil, errors.ErrInvalidParams.WithMessage("失效时间必须晚于生效时间")
	}

	coupon := &models.Coupon{
		Code:              strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:              req.Name,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MinPurchaseAmount: req.MinPurchaseAmount,
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		MaxUses:           req.MaxUses,
		MaxUsesPerUser:    req.MaxUsesPerUser,
		IsActive:          true,
		ProductIDs:        models.IDList(req.ProductIDs),
		CategoryIDs:       models.IDList(req.CategoryIDs),
		ShopIDs:           models.IDList(req.ShopIDs),
	}
	if coupon.MaxUsesPerUser <= 0 {
		coupon.MaxUsesPerUser = 1
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("coupon created", zap.String("coupon_code", coupon.Code))
	return coupon, nil
}

// Validate 校验优惠券并计算折扣，不消耗使用次数
func (s *CouponService) Validate(ctx context.Context, in *ValidateInput) (*DiscountResult, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(in.Code)))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCouponNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := s.check(ctx, coupon, in); err != nil {
		return nil, err
	}

	discount, freeShipping := s.calculateDiscount(coupon, in.Amount)
	return &DiscountResult{
		Coupon:         coupon,
		DiscountAmount: discount,
		FreeShipping:   freeShipping,
	}, nil
}

// check 按固定顺序执行校验，返回第一个失败原因
func (s *CouponService) check(ctx context.Context, coupon *models.Coupon, in *ValidateInput) error {
	if !coupon.IsActive {
		return errors.ErrCouponInactive
	}

	now := time.Now()
	if now.Before(coupon.ValidFrom) {
		return errors.ErrCouponNotStarted
	}
	if now.After(coupon.ValidUntil) {
		return errors.ErrCouponExpired
	}

	if coupon.MaxUses > 0 && coupon.CurrentUses >= coupon.MaxUses {
		return errors.ErrCouponLimitExceed
	}

	used, err := s.couponRepo.CountUsagesByUser(ctx, coupon.ID, in.UserID)
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	if used >= int64(coupon.MaxUsesPerUser) {
		return errors.ErrCouponUserLimit
	}

	if in.Amount.LessThan(coupon.MinPurchaseAmount) {
		return errors.ErrCouponMinPurchase
	}

	if !s.applicable(coupon, in.Items) {
		return errors.ErrCouponNotApplicable
	}
	return nil
}

// applicable 判断券是否适用于订单条目
// 未配置任何限定范围的券适用于全部商品，否则至少命中一项
func (s *CouponService) applicable(coupon *models.Coupon, items []CartItem) bool {
	if len(coupon.ProductIDs) == 0 && len(coupon.CategoryIDs) == 0 && len(coupon.ShopIDs) == 0 {
		return true
	}
	for _, item := range items {
		if containsID(coupon.ProductIDs, item.ProductID) ||
			containsID(coupon.CategoryIDs, item.CategoryID) ||
			containsID(coupon.ShopIDs, item.ShopID) {
			return true
		}
	}
	return false
}

// calculateDiscount 按优惠类型计算折扣金额
// 固定金额券不超过订单金额，免运费券折扣为零
func (s *CouponService) calculateDiscount(coupon *models.Coupon, amount decimal.Decimal) (decimal.Decimal, bool) {
	switch coupon.DiscountType {
	case models.CouponTypePercent:
		return amount.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100)).Round(2), false
	case models.CouponTypeFixed:
		if coupon.DiscountValue.GreaterThan(amount) {
			return amount, false
		}
		return coupon.DiscountValue, false
	case models.CouponTypeFreeShipping:
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// RedeemTx 在事务中核销优惠券
// 事务内重新校验，并以守卫更新消耗全局使用次数，避免并发超发
func (s *CouponService) RedeemTx(ctx context.Context, tx *gorm.DB, in *ValidateInput, orderID *int64) (*DiscountResult, error) {
	var coupon models.Coupon
	err := tx.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(in.Code))).
		First(&coupon).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCouponNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if err := s.check(ctx, &coupon, in); err != nil {
		return nil, err
	}

	if coupon.MaxUses > 0 {
		result := tx.WithContext(ctx).Model(&models.Coupon{}).
			Where("id = ? AND current_uses < max_uses", coupon.ID).
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return nil, errors.ErrDatabaseError.WithError(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, errors.ErrCouponLimitExceed
		}
	} else {
		err := tx.WithContext(ctx).Model(&models.Coupon{}).
			Where("id = ?", coupon.ID).
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1")).Error
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
	}

	discount, freeShipping := s.calculateDiscount(&coupon, in.Amount)

	usage := &models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         in.UserID,
		OrderID:        orderID,
		DiscountAmount: discount,
	}
	if err := tx.WithContext(ctx).Create(usage).Error; err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordCouponRedemption(coupon.DiscountType)
	return &DiscountResult{
		Coupon:         &coupon,
		DiscountAmount: discount,
		FreeShipping:   freeShipping,
	}, nil
}

// Get 获取优惠券详情
func (s *CouponService) Get(ctx context.Context, id int64) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrCouponNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return coupon, nil
}

// List 获取优惠券列表
func (s *CouponService) List(ctx context.Context, offset, limit int, activeOnly bool) ([]*models.Coupon, int64, error) {
	coupons, total, err := s.couponRepo.List(ctx, offset, limit, activeOnly)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return coupons, total, nil
}

// Deactivate 停用优惠券（管理人员）
func (s *CouponService) Deactivate(ctx context.Context, id int64) error {
	coupon, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrCouponNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	coupon.IsActive = false
	if err := s.couponRepo.Update(ctx, coupon); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListUsages 获取优惠券使用记录（管理人员）
func (s *CouponService) ListUsages(ctx context.Context, couponID int64, offset, limit int) ([]*models.CouponUsage, int64, error) {
	usages, total, err := s.couponRepo.ListUsages(ctx, couponID, offset, limit)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return usages, total, nil
}

func containsID(list models.IDList, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
