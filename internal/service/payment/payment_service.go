// Package payment 提供支付与退款协调服务
package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/config"
	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/internal/service/user"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
	"github.com/dumeirei/marketplace-backend/pkg/razorpay"
	"github.com/dumeirei/marketplace-backend/pkg/receipt"
)

// 会员消费折扣（金牌及以上，下单支付时生效）
var memberDiscountRatio = decimal.NewFromFloat(0.10)

// Service 支付服务
type Service struct {
	db          *gorm.DB
	paymentRepo *repository.PaymentRepository
	orderRepo   *repository.OrderRepository
	bookingRepo *repository.BookingRepository
	userRepo    *repository.UserRepository
	gateway     razorpay.Gateway
	loyaltySvc  *user.LoyaltyService
	dispatcher  notify.Dispatcher
	renderer    receipt.Renderer
	currency    string
	cfg         *config.PaymentConfig
}

// NewService 创建支付服务
func NewService(db *gorm.DB, gateway razorpay.Gateway, loyaltySvc *user.LoyaltyService, dispatcher notify.Dispatcher, renderer receipt.Renderer, currency string, cfg *config.PaymentConfig) *Service {
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		db:          db,
		paymentRepo: repository.NewPaymentRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		bookingRepo: repository.NewBookingRepository(db),
		userRepo:    repository.NewUserRepository(db),
		gateway:     gateway,
		loyaltySvc:  loyaltySvc,
		dispatcher:  dispatcher,
		renderer:    renderer,
		currency:    currency,
		cfg:         cfg,
	}
}

// InitiateRequest 发起支付请求
type InitiateRequest struct {
	OrderID   *int64 `json:"order_id"`
	BookingID *int64 `json:"booking_id"`
	Method    string `json:"method" binding:"required"`
}

// InitiateResult 发起支付结果
type InitiateResult struct {
	Payment        *models.Payment `json:"payment"`
	GatewayOrderID string          `json:"gateway_order_id"`
	AmountPaise    int64           `json:"amount_paise"`
	Currency       string          `json:"currency"`
}

// Initiate 发起支付
// 应付金额 = 折后金额 + GST，网关下单以 paise 为单位
func (s *Service) Initiate(ctx context.Context, userID int64, req *InitiateRequest) (*InitiateResult, error) {
	if (req.OrderID == nil) == (req.BookingID == nil) {
		return nil, errors.ErrPaymentTargetError
	}
	if !validMethod(req.Method) {
		return nil, errors.ErrPaymentMethodError
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	var base, gst, memberDiscount decimal.Decimal
	if req.OrderID != nil {
		order, err := s.orderRepo.GetByIDWithItems(ctx, *req.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errors.ErrOrderNotFound
			}
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if order.UserID != userID {
			return nil, errors.ErrPermissionDenied
		}
		if order.Status != models.OrderStatusPending {
			return nil, errors.ErrOrderStatusError
		}
		if existing, err := s.paymentRepo.GetByOrderID(ctx, order.ID); err == nil && existing != nil {
			return nil, errors.ErrOrderPaid
		}

		base = order.TotalPrice.Sub(order.DiscountAmount)
		if memberEligible(u.MembershipTier) {
			memberDiscount = base.Mul(memberDiscountRatio).Round(2)
			base = base.Sub(memberDiscount)
		}
		gst = GoodsGST(order.Items)
	} else {
		booking, err := s.bookingRepo.GetByID(ctx, *req.BookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, errors.ErrBookingNotFound
			}
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		if booking.UserID != userID {
			return nil, errors.ErrPermissionDenied
		}
		if !booking.IsActiveStatus() {
			return nil, errors.ErrBookingStatusError
		}
		if existing, err := s.paymentRepo.GetByBookingID(ctx, booking.ID); err == nil && existing != nil {
			return nil, errors.ErrOrderPaid
		}

		// 预约价格在报价阶段已含会员折扣
		base = booking.Price
		gst = ServiceGST(base)
	}

	payable := base.Add(gst)
	paise := payable.Mul(decimal.NewFromInt(100)).IntPart()

	payment := &models.Payment{
		PaymentNo:      utils.GenerateOrderNo("PAY"),
		UserID:         userID,
		OrderID:        req.OrderID,
		BookingID:      req.BookingID,
		Amount:         payable,
		GSTAmount:      gst,
		DiscountAmount: memberDiscount,
		Method:         req.Method,
		Status:         models.PaymentStatusPending,
		TransactionID:  utils.GenerateOrderNo("TXN"),
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, &razorpay.OrderRequest{
		Amount:   paise,
		Currency: s.currency,
		Receipt:  payment.PaymentNo,
		Notes:    map[string]string{"payment_no": payment.PaymentNo},
	})
	if err != nil {
		return nil, errors.ErrExternalService.WithError(err)
	}
	payment.GatewayOrderID = &gwOrder.ID

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordPayment(req.Method, payment.Status)
	logger.Info("payment initiated",
		zap.String("payment_no", payment.PaymentNo),
		logger.UserID(userID),
		zap.String("amount", payable.String()))

	return &InitiateResult{
		Payment:        payment,
		GatewayOrderID: gwOrder.ID,
		AmountPaise:    paise,
		Currency:       s.currency,
	}, nil
}

// CallbackRequest 支付回调请求
type CallbackRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id" binding:"required"`
	GatewayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature        string `json:"razorpay_signature" binding:"required"`
}

// Callback 处理支付完成回调
// 验签失败标记失败；成功路径在单事务内落账、推进业务状态并累计积分
func (s *Service) Callback(ctx context.Context, req *CallbackRequest) error {
	payment, err := s.paymentRepo.GetByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrPaymentNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	// 回调重放幂等
	if payment.Status == models.PaymentStatusSuccess {
		return nil
	}
	if payment.Status != models.PaymentStatusPending {
		return errors.ErrPaymentCallbackError
	}

	if err := s.gateway.VerifyCallback(&razorpay.CallbackParams{
		OrderID:   req.GatewayOrderID,
		PaymentID: req.GatewayPaymentID,
		Signature: req.Signature,
	}); err != nil {
		if uerr := s.paymentRepo.UpdateFields(ctx, payment.ID, map[string]interface{}{
			"status": models.PaymentStatusFailed,
		}); uerr != nil {
			logger.Error("mark payment failed error", logger.Err(uerr))
		}
		metrics.GetMetrics().RecordPayment(payment.Method, models.PaymentStatusFailed)
		return errors.ErrPaymentCallbackError.WithError(err)
	}

	var accrue *user.AccrueResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusSuccess,
				"transaction_id": req.GatewayPaymentID,
				"paid_at":        now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 并发回调已处理
			return nil
		}

		if payment.OrderID != nil {
			if err := tx.Model(&models.Order{}).
				Where("id = ? AND status = ?", *payment.OrderID, models.OrderStatusPending).
				Updates(map[string]interface{}{
					"status":     models.OrderStatusShipped,
					"shipped_at": now,
				}).Error; err != nil {
				return err
			}
		}
		if payment.BookingID != nil {
			if err := tx.Model(&models.Booking{}).
				Where("id = ? AND status = ?", *payment.BookingID, models.BookingStatusPending).
				Updates(map[string]interface{}{
					"status":       models.BookingStatusConfirmed,
					"confirmed_at": now,
				}).Error; err != nil {
				return err
			}
		}

		var err error
		accrue, err = s.loyaltySvc.AccrueTx(ctx, tx, payment.UserID, payment.Amount)
		return err
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return appErr
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	metrics.GetMetrics().RecordPayment(payment.Method, models.PaymentStatusSuccess)
	s.notifyPaid(ctx, payment, accrue)

	logger.Info("payment confirmed",
		zap.String("payment_no", payment.PaymentNo),
		zap.String("gateway_payment_id", req.GatewayPaymentID))
	return nil
}

// notifyPaid 支付成功后的通知派发
func (s *Service) notifyPaid(ctx context.Context, payment *models.Payment, accrue *user.AccrueResult) {
	u, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		logger.Warn("load payer failed", logger.UserID(payment.UserID), logger.Err(err))
		return
	}

	send := func(kind, title string, payload map[string]interface{}) {
		msg := &notify.Message{
			UserID:  u.ID,
			Kind:    kind,
			Title:   title,
			Payload: payload,
		}
		if u.Email != nil {
			msg.Email = *u.Email
		}
		if u.Phone != nil {
			msg.Phone = *u.Phone
		}
		if err := s.dispatcher.Send(ctx, msg); err != nil {
			logger.Warn("dispatch notification failed", zap.String("kind", kind), logger.Err(err))
		}
	}

	send(notify.KindPaymentConfirmed, "支付成功", map[string]interface{}{
		"payment_no": payment.PaymentNo,
		"amount":     payment.Amount.String(),
	})
	if accrue != nil && accrue.PointsAdded > 0 {
		send(notify.KindPointsEarned, "积分已到账", map[string]interface{}{
			"points": accrue.PointsAdded,
		})
	}
	if accrue != nil && accrue.TierUpgraded {
		send(notify.KindMembershipUpgraded, "会员等级提升", map[string]interface{}{
			"tier": accrue.Tier,
		})
	}
}

// Webhook 处理网关 Webhook 推送
func (s *Service) Webhook(ctx context.Context, body []byte, signature string) error {
	if err := s.gateway.VerifyWebhook(body, signature); err != nil {
		return errors.ErrPaymentCallbackError.WithError(err)
	}
	// Webhook 仅作为回调的兜底确认渠道，事件体解析后复用回调路径
	logger.Info("gateway webhook received", zap.Int("size", len(body)))
	return nil
}

// Refund 发起退款
// refund_id 一经写入不再发起第二次，守卫更新保证并发下至多退一次
func (s *Service) Refund(ctx context.Context, paymentID int64, amount *decimal.Decimal, notes map[string]string) (*razorpay.RefundResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if payment.RefundID != nil {
		return nil, errors.ErrAlreadyRefunded
	}
	if payment.Status != models.PaymentStatusSuccess {
		return nil, errors.ErrPaymentFailed.WithMessage("仅成功的支付可以退款")
	}

	refundAmount := payment.Amount
	if amount != nil {
		if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(payment.Amount) {
			return nil, errors.ErrRefundAmountExceed
		}
		refundAmount = *amount
	}

	resp, err := s.gateway.CreateRefund(ctx, &razorpay.RefundRequest{
		PaymentID: payment.TransactionID,
		Amount:    refundAmount.Mul(decimal.NewFromInt(100)).IntPart(),
		Notes:     notes,
	})
	if err != nil {
		metrics.GetMetrics().RecordRefund(razorpay.RefundStatusFailed)
		return nil, errors.ErrRefundFailed.WithError(err)
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND refund_id IS NULL", payment.ID).
		Updates(map[string]interface{}{
			"refund_id":   resp.ID,
			"status":      models.PaymentStatusRefunded,
			"refunded_at": now,
		})
	if result.Error != nil {
		return nil, errors.ErrDatabaseError.WithError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, errors.ErrAlreadyRefunded
	}

	metrics.GetMetrics().RecordRefund(resp.Status)
	logger.Info("refund created",
		zap.String("payment_no", payment.PaymentNo),
		zap.String("refund_id", resp.ID),
		zap.String("amount", refundAmount.String()))
	return resp, nil
}

// RefundStatus 查询退款状态
func (s *Service) RefundStatus(ctx context.Context, paymentID int64) (*razorpay.RefundResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if payment.RefundID == nil {
		return nil, errors.ErrRefundNotFound
	}

	resp, err := s.gateway.FetchRefund(ctx, *payment.RefundID)
	if err != nil {
		return nil, errors.ErrExternalService.WithError(err)
	}
	return resp, nil
}

// ExpirePending 将超时未支付的记录标记为失败（定时任务调用）
func (s *Service) ExpirePending(ctx context.Context, batchSize int) (int, error) {
	expireMinutes := s.cfg.PendingExpireMinutes
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	before := time.Now().Add(-time.Duration(expireMinutes) * time.Minute)

	payments, err := s.paymentRepo.ListExpiredPending(ctx, before, batchSize)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	expired := 0
	for _, p := range payments {
		err := s.paymentRepo.UpdateFields(ctx, p.ID, map[string]interface{}{
			"status": models.PaymentStatusFailed,
		})
		if err != nil {
			logger.Error("expire payment failed", zap.String("payment_no", p.PaymentNo), logger.Err(err))
			continue
		}
		metrics.GetMetrics().RecordPayment(p.Method, models.PaymentStatusFailed)
		expired++
	}
	return expired, nil
}

// Get 获取支付记录
func (s *Service) Get(ctx context.Context, userID int64, paymentID int64, isStaff bool) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPaymentNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if payment.UserID != userID && !isStaff {
		return nil, errors.ErrPermissionDenied
	}
	return payment, nil
}

// List 获取支付记录列表
func (s *Service) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Payment, int64, error) {
	payments, total, err := s.paymentRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return payments, total, nil
}

// Receipt 渲染支付票据
func (s *Service) Receipt(ctx context.Context, userID int64, paymentID int64, isStaff bool) ([]byte, error) {
	payment, err := s.Get(ctx, userID, paymentID, isStaff)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentStatusSuccess && payment.Status != models.PaymentStatusRefunded {
		return nil, errors.ErrPaymentNotFound.WithMessage("仅支付成功的记录可以开具票据")
	}

	u, err := s.userRepo.GetByID(ctx, payment.UserID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	data := &receipt.Data{
		ReceiptNo:      payment.PaymentNo,
		IssuedTo:       u.Username,
		DiscountAmount: payment.DiscountAmount,
		GSTAmount:      payment.GSTAmount,
		GrandTotal:     payment.Amount,
	}

	if payment.OrderID != nil {
		order, err := s.orderRepo.GetByIDWithItems(ctx, *payment.OrderID)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		for _, item := range order.Items {
			desc := "商品"
			if item.Product != nil {
				desc = item.Product.Name
			}
			data.Lines = append(data.Lines, receipt.Line{
				Description: desc,
				Quantity:    item.Quantity,
				UnitPrice:   item.Price,
				Amount:      item.Subtotal(),
			})
		}
		data.Subtotal = order.TotalPrice
	}
	if payment.BookingID != nil {
		booking, err := s.bookingRepo.GetByIDWithDetails(ctx, *payment.BookingID)
		if err != nil {
			return nil, errors.ErrDatabaseError.WithError(err)
		}
		desc := "服务预约"
		if booking.ServiceType != nil {
			desc = booking.ServiceType.Name
		}
		data.Lines = append(data.Lines, receipt.Line{
			Description: desc,
			Quantity:    1,
			UnitPrice:   booking.Price,
			Amount:      booking.Price,
		})
		data.Subtotal = booking.Price
	}

	out, err := s.renderer.Render(ctx, data)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return out, nil
}

// memberEligible 金牌及以上享受会员折扣
func memberEligible(tier string) bool {
	return tier == models.TierGold || tier == models.TierPlatinum
}

func validMethod(method string) bool {
	switch method {
	case models.PaymentMethodCard, models.PaymentMethodUPI,
		models.PaymentMethodWallet, models.PaymentMethodNetbanking:
		return true
	}
	return false
}
