package shop

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/internal/service/marketing"
)

// 订单状态机，仅列出的迁移被允许
var orderTransitions = map[string][]string{
	models.OrderStatusPending: {
		models.OrderStatusShipped,
		models.OrderStatusCancelled,
		models.OrderStatusRejected,
	},
	models.OrderStatusShipped: {
		models.OrderStatusDelivered,
	},
}

// OrderService 订单服务
type OrderService struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	productRepo *repository.ProductRepository
	couponSvc   *marketing.CouponService
}

// NewOrderService 创建订单服务
func NewOrderService(db *gorm.DB, couponSvc *marketing.CouponService) *OrderService {
	return &OrderService{
		db:          db,
		orderRepo:   repository.NewOrderRepository(db),
		productRepo: repository.NewProductRepository(db),
		couponSvc:   couponSvc,
	}
}

// OrderItemRequest 下单条目
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	ShopID          int64              `json:"shop_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress *string            `json:"shipping_address"`
	CouponCode      string             `json:"coupon_code"`
}

// CreateOrder 创建订单
// 下单只校验库存不扣减，库存在订单送达时一次性结算
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req *CreateOrderRequest) (*models.Order, error) {
	order := &models.Order{
		OrderNo:         utils.GenerateOrderNo("ORD"),
		UserID:          userID,
		ShopID:          req.ShopID,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		var items []models.OrderItem
		var cartItems []marketing.CartItem

		for _, line := range req.Items {
			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return errors.ErrProductNotFound
				}
				return errors.ErrDatabaseError.WithError(err)
			}
			if !product.IsActive {
				return errors.ErrProductOffShelf.WithMessage(product.Name + " 已下架")
			}
			if product.ShopID != req.ShopID {
				return errors.ErrInvalidParams.WithMessage(product.Name + " 不属于该店铺")
			}
			if line.Quantity < product.MinOrderQuantity || line.Quantity > product.MaxOrderQuantity {
				return errors.ErrQuantityOutOfRange.WithMessage(product.Name)
			}
			if product.StockQuantity < line.Quantity {
				return errors.ErrStockInsufficient.WithMessage(product.Name + " 库存不足")
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
			cartItems = append(cartItems, marketing.CartItem{
				ProductID:  product.ID,
				CategoryID: product.CategoryID,
				ShopID:     product.ShopID,
				Subtotal:   product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order.TotalPrice = total
		order.Items = items
		if err := tx.Create(order).Error; err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		if req.CouponCode != "" {
			result, err := s.couponSvc.RedeemTx(ctx, tx, &marketing.ValidateInput{
				Code:   req.CouponCode,
				UserID: userID,
				Amount: total,
				Items:  cartItems,
			}, &order.ID)
			if err != nil {
				return err
			}
			order.DiscountAmount = result.DiscountAmount
			order.CouponID = &result.Coupon.ID
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Updates(map[string]interface{}{
					"discount_amount": result.DiscountAmount,
					"coupon_id":       result.Coupon.ID,
				}).Error; err != nil {
				return errors.ErrDatabaseError.WithError(err)
			}
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordOrder(order.Status)
	logger.Info("order created",
		logger.OrderNo(order.OrderNo),
		logger.UserID(userID),
		zap.String("total", order.TotalPrice.String()))
	return order, nil
}

// TransitionStatus 推进订单状态
// 进入已送达时一次性扣减全部条目库存，任一条目不足则整体回滚并指明商品
func (s *OrderService) TransitionStatus(ctx context.Context, orderID int64, newStatus string, reason, detail *string) error {
	order, err := s.orderRepo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrOrderNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if !transitionAllowed(order.Status, newStatus) {
		return errors.ErrInvalidTransition.WithMessage(order.Status + " -> " + newStatus)
	}
	if newStatus == models.OrderStatusRejected && reason == nil {
		return errors.ErrInvalidParams.WithMessage("拒绝订单必须说明原因")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 防止并发下重复迁移
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Updates(statusFields(newStatus, reason, detail))
		if result.Error != nil {
			return errors.ErrDatabaseError.WithError(result.Error)
		}
		if result.RowsAffected == 0 {
			return errors.ErrOrderStatusError
		}

		if newStatus == models.OrderStatusDelivered {
			return s.settleStockTx(tx, order)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return appErr
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordOrder(newStatus)
	logger.Info("order status changed",
		logger.OrderNo(order.OrderNo),
		zap.String("from", order.Status),
		zap.String("to", newStatus))
	return nil
}

// settleStockTx 送达时结算库存，守卫更新保证不会扣成负数
func (s *OrderService) settleStockTx(tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		result := tx.Model(&models.Product{}).
			Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
			Updates(map[string]interface{}{
				"stock_quantity": gorm.Expr("stock_quantity - ?", item.Quantity),
				"sales_count":    gorm.Expr("sales_count + ?", item.Quantity),
			})
		if result.Error != nil {
			return errors.ErrDatabaseError.WithError(result.Error)
		}
		if result.RowsAffected == 0 {
			var product models.Product
			name := "未知商品"
			if err := tx.Select("name").First(&product, item.ProductID).Error; err == nil {
				name = product.Name
			}
			return errors.ErrStockInsufficient.WithMessage(name + " 库存不足，订单无法送达")
		}
	}
	return nil
}

// statusFields 状态迁移附带的字段更新
func statusFields(newStatus string, reason, detail *string) map[string]interface{} {
	now := time.Now()
	fields := map[string]interface{}{"status": newStatus}
	switch newStatus {
	case models.OrderStatusShipped:
		fields["shipped_at"] = now
	case models.OrderStatusDelivered:
		fields["delivered_at"] = now
	case models.OrderStatusCancelled:
		fields["cancelled_at"] = now
	case models.OrderStatusRejected:
		fields["rejection_reason"] = reason
		fields["rejection_detail"] = detail
	}
	return fields
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CancelOrder 用户取消待处理订单
func (s *OrderService) CancelOrder(ctx context.Context, userID int64, orderID int64) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrOrderNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if order.UserID != userID {
		return errors.ErrPermissionDenied
	}
	if order.Status != models.OrderStatusPending {
		return errors.ErrOrderCannotCancel
	}
	return s.TransitionStatus(ctx, orderID, models.OrderStatusCancelled, nil, nil)
}

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(ctx context.Context, userID int64, orderID int64, isStaff bool) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if order.UserID != userID && !isStaff {
		return nil, errors.ErrPermissionDenied
	}
	return order, nil
}

// ListOrders 获取订单列表
func (s *OrderService) ListOrders(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Order, int64, error) {
	orders, total, err := s.orderRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return orders, total, nil
}
