// Package returns 提供退换货服务
package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/errors"
	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/common/utils"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/internal/service/payment"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
)

// Service 退换货服务
type Service struct {
	db          *gorm.DB
	returnRepo  *repository.ReturnRepository
	orderRepo   *repository.OrderRepository
	paymentRepo *repository.PaymentRepository
	paymentSvc  *payment.Service
	dispatcher  notify.Dispatcher
}

// NewService 创建退换货服务
func NewService(db *gorm.DB, paymentSvc *payment.Service, dispatcher notify.Dispatcher) *Service {
	return &Service{
		db:          db,
		returnRepo:  repository.NewReturnRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		paymentSvc:  paymentSvc,
		dispatcher:  dispatcher,
	}
}

// ReturnItemRequest 退货商品项
type ReturnItemRequest struct {
	OrderItemID int64 `json:"order_item_id" binding:"required"`
	Quantity    int   `json:"quantity" binding:"required,min=1"`
}

// CreateReturnRequest 发起退货申请
type CreateReturnRequest struct {
	OrderID int64               `json:"order_id" binding:"required"`
	Reason  string              `json:"reason" binding:"required,max=255"`
	Detail  *string             `json:"detail"`
	Items   []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Create 发起退货申请
// 仅已送达订单可退，同一订单同时只允许一个处理中的申请
func (s *Service) Create(ctx context.Context, userID int64, req *CreateReturnRequest) (*models.ReturnRequest, error) {
	order, err := s.orderRepo.GetByIDWithItems(ctx, req.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrOrderNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if order.UserID != userID {
		return nil, errors.ErrPermissionDenied
	}
	if order.Status != models.OrderStatusDelivered {
		return nil, errors.ErrReturnNotEligible
	}

	open, err := s.returnRepo.ExistsOpenByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if open {
		return nil, errors.ErrReturnAlreadyOpen
	}

	orderItems := make(map[int64]*models.OrderItem, len(order.Items))
	for i := range order.Items {
		orderItems[order.Items[i].ID] = &order.Items[i]
	}

	var items []models.ReturnRequestItem
	for _, line := range req.Items {
		orderItem, ok := orderItems[line.OrderItemID]
		if !ok {
			return nil, errors.ErrReturnItemInvalid
		}
		if line.Quantity > orderItem.Quantity {
			return nil, errors.ErrReturnItemInvalid.WithMessage("退货数量超过购买数量")
		}
		items = append(items, models.ReturnRequestItem{
			OrderItemID: line.OrderItemID,
			Quantity:    line.Quantity,
		})
	}

	request := &models.ReturnRequest{
		ReturnNo: utils.GenerateOrderNo("RET"),
		OrderID:  req.OrderID,
		UserID:   userID,
		Reason:   req.Reason,
		Detail:   req.Detail,
		Status:   models.ReturnStatusPending,
		Items:    items,
	}
	if err := s.returnRepo.Create(ctx, request); err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	logger.Info("return request created",
		zap.String("return_no", request.ReturnNo),
		logger.OrderNo(order.OrderNo))
	return request, nil
}

// ApproveRequest 审核通过参数
type ApproveRequest struct {
	RefundAmount *decimal.Decimal `json:"refund_amount"`
	AdminNotes   *string          `json:"admin_notes"`
}

// Approve 审核通过并发起退款（管理人员）
// 未指定退款金额时按退货商品快照价计算；退款失败时申请停留在已通过，
// 已通过和已完成的申请不可重复审核
func (s *Service) Approve(ctx context.Context, requestID int64, req *ApproveRequest) (*models.ReturnRequest, error) {
	request, err := s.returnRepo.GetByIDWithItems(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrReturnNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if request.Status != models.ReturnStatusPending {
		return nil, errors.ErrReturnStatusError
	}

	refundAmount := request.RefundAmount
	if req.RefundAmount != nil {
		refundAmount = *req.RefundAmount
	} else {
		refundAmount = itemsAmount(request.Items)
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, errors.ErrRefundAmountExceed.WithMessage("退款金额必须大于 0")
	}

	now := time.Now()
	err = s.returnRepo.UpdateFields(ctx, request.ID, map[string]interface{}{
		"status":        models.ReturnStatusApproved,
		"refund_amount": refundAmount,
		"admin_notes":   req.AdminNotes,
		"processed_at":  now,
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	pay, err := s.paymentRepo.GetByOrderID(ctx, request.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrPaymentNotFound.WithMessage("订单没有可退款的支付记录")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	refund, err := s.paymentSvc.Refund(ctx, pay.ID, &refundAmount, map[string]string{
		"return_no": request.ReturnNo,
	})
	if err != nil {
		// 退款失败不回滚审核结论，记录网关错误详情
		notes := fmt.Sprintf("退款发起失败: %v", err)
		_ = s.returnRepo.UpdateFields(ctx, request.ID, map[string]interface{}{
			"admin_notes": notes,
		})
		return nil, err
	}

	err = s.returnRepo.UpdateFields(ctx, request.ID, map[string]interface{}{
		"status":    models.ReturnStatusCompleted,
		"refund_id": refund.ID,
	})
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	s.notifyProcessed(ctx, request, "退货已通过，退款已发起")

	logger.Info("return approved",
		zap.String("return_no", request.ReturnNo),
		zap.String("refund_id", refund.ID))
	return s.returnRepo.GetByIDWithItems(ctx, requestID)
}

// Reject 拒绝退货申请（管理人员）
func (s *Service) Reject(ctx context.Context, requestID int64, notes *string) error {
	request, err := s.returnRepo.GetByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.ErrReturnNotFound
		}
		return errors.ErrDatabaseError.WithError(err)
	}
	if request.Status != models.ReturnStatusPending {
		return errors.ErrReturnStatusError
	}

	now := time.Now()
	err = s.returnRepo.UpdateFields(ctx, requestID, map[string]interface{}{
		"status":       models.ReturnStatusRejected,
		"admin_notes":  notes,
		"processed_at": now,
	})
	if err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}

	s.notifyProcessed(ctx, request, "退货申请未通过")
	return nil
}

// RefundStatus 查询退货对应的退款状态
func (s *Service) RefundStatus(ctx context.Context, userID int64, requestID int64, isStaff bool) (string, error) {
	request, err := s.returnRepo.GetByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", errors.ErrReturnNotFound
		}
		return "", errors.ErrDatabaseError.WithError(err)
	}
	if request.UserID != userID && !isStaff {
		return "", errors.ErrPermissionDenied
	}
	if request.RefundID == nil {
		return "", errors.ErrRefundNotFound
	}

	var pay models.Payment
	err = s.db.WithContext(ctx).
		Where("order_id = ? AND refund_id IS NOT NULL", request.OrderID).
		First(&pay).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", errors.ErrRefundNotFound
		}
		return "", errors.ErrDatabaseError.WithError(err)
	}
	resp, err := s.paymentSvc.RefundStatus(ctx, pay.ID)
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Get 获取退货申请详情
func (s *Service) Get(ctx context.Context, userID int64, requestID int64, isStaff bool) (*models.ReturnRequest, error) {
	request, err := s.returnRepo.GetByIDWithItems(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrReturnNotFound
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if request.UserID != userID && !isStaff {
		return nil, errors.ErrPermissionDenied
	}
	return request, nil
}

// List 获取退货申请列表
func (s *Service) List(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.ReturnRequest, int64, error) {
	requests, total, err := s.returnRepo.List(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	return requests, total, nil
}

// notifyProcessed 审核结果通知
func (s *Service) notifyProcessed(ctx context.Context, request *models.ReturnRequest, title string) {
	msg := &notify.Message{
		UserID: request.UserID,
		Kind:   notify.KindReturnProcessed,
		Title:  title,
		Payload: map[string]interface{}{
			"return_no": request.ReturnNo,
			"status":    request.Status,
		},
	}
	if err := s.dispatcher.Send(ctx, msg); err != nil {
		logger.Warn("dispatch return notification failed", logger.Err(err))
	}
}

// itemsAmount 按退货商品的下单价快照计算应退金额
func itemsAmount(items []models.ReturnRequestItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.OrderItem == nil {
			continue
		}
		total = total.Add(item.OrderItem.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
