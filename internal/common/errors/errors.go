// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配，使 WithMessage/WithError 的副本仍能命中哨兵错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown          = New(1000, "未知错误")
	ErrInvalidParams    = New(1001, "参数错误")
	ErrNotFound         = New(1002, "资源不存在")
	ErrAlreadyExists    = New(1003, "资源已存在")
	ErrDatabaseError    = New(1004, "数据库错误")
	ErrCacheError       = New(1005, "缓存错误")
	ErrInternalError    = New(1006, "内部错误")
	ErrExternalService  = New(1007, "外部服务错误")
	ErrRateLimitExceed  = New(1008, "请求过于频繁")
	ErrOperationFailed  = New(1009, "操作失败")
	ErrResourceNotFound = New(1010, "资源不存在")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
	ErrPasswordError    = New(2007, "密码错误")
	ErrStaffOnly        = New(2013, "仅限管理人员操作")
)

// 用户错误码 (3000-3999)
var (
	ErrUserNotFound   = New(3000, "用户不存在")
	ErrUserExists     = New(3001, "用户已存在")
	ErrPhoneExists    = New(3002, "手机号已被注册")
	ErrPhoneInvalid   = New(3003, "无效的手机号")
	ErrEmailExists    = New(3004, "邮箱已被注册")
	ErrPointsExpired  = New(3005, "积分已过期")
	ErrTierNotAllowed = New(3006, "会员等级不满足条件")
)

// 服务商错误码 (4000-4999)
var (
	ErrProviderNotFound     = New(4000, "服务商不存在")
	ErrProviderUnavailable  = New(4001, "服务商当日不接单")
	ErrProviderNotVerified  = New(4002, "服务商未通过审核")
	ErrServiceTypeNotFound  = New(4003, "服务类型不存在")
	ErrRatingInvalid        = New(4004, "无效的评分")
	ErrAlreadyReviewed      = New(4005, "已评价过该服务")
)

// 订单错误码 (5000-5999)
var (
	ErrOrderNotFound       = New(5000, "订单不存在")
	ErrOrderStatusError    = New(5001, "订单状态异常")
	ErrOrderExpired        = New(5002, "订单已过期")
	ErrOrderCancelled      = New(5003, "订单已取消")
	ErrOrderPaid           = New(5004, "订单已支付")
	ErrOrderCannotCancel   = New(5005, "订单无法取消")
	ErrProductNotFound     = New(5007, "商品不存在")
	ErrProductOffShelf     = New(5008, "商品已下架")
	ErrStockInsufficient   = New(5009, "库存不足")
	ErrQuantityOutOfRange  = New(5010, "购买数量超出限制")
	ErrProductHasStock     = New(5011, "商品仍有库存，不能下架")
	ErrInvalidTransition   = New(5012, "订单状态不允许该变更")
)

// 支付错误码 (6000-6999)
var (
	ErrPaymentNotFound      = New(6000, "支付记录不存在")
	ErrPaymentFailed        = New(6001, "支付失败")
	ErrPaymentExpired       = New(6002, "支付已过期")
	ErrRefundNotFound       = New(6003, "退款记录不存在")
	ErrRefundFailed         = New(6004, "退款失败")
	ErrRefundAmountExceed   = New(6005, "退款金额超限")
	ErrPaymentMethodError   = New(6006, "支付方式错误")
	ErrPaymentCallbackError = New(6007, "支付回调错误")
	ErrPaymentAmountError   = New(6008, "支付金额不符")
	ErrAlreadyRefunded      = New(6009, "已退款，不能重复退款")
	ErrPaymentTargetError   = New(6010, "支付必须且只能关联一个订单或预约")
)

// 退换货错误码 (7000-7999)
var (
	ErrReturnNotFound     = New(7000, "退货申请不存在")
	ErrReturnStatusError  = New(7001, "退货申请状态异常")
	ErrReturnItemInvalid  = New(7002, "退货商品不属于该订单")
	ErrReturnNotEligible  = New(7003, "订单当前状态不支持退货")
	ErrReturnAlreadyOpen  = New(7004, "该订单已有处理中的退货申请")
)

// 预约错误码 (8000-8999)
var (
	ErrBookingNotFound     = New(8000, "预约不存在")
	ErrBookingStatusError  = New(8001, "预约状态异常")
	ErrBookingConflict     = New(8002, "时段已约满")
	ErrBookingPast         = New(8003, "预约时间必须晚于当前时间")
	ErrSlotFull            = New(8004, "时段已满，已加入候补")
	ErrTimeSlotInvalid     = New(8005, "无效的时段")
	ErrRecurrenceInvalid   = New(8006, "无效的重复规则")
	ErrNotOnWaitlist       = New(8007, "不在候补队列中")
	ErrBookingNotCancelable = New(8008, "该预约无法取消")
)

// 营销错误码 (9000-9999)
var (
	ErrCouponNotFound      = New(9000, "优惠券不存在")
	ErrCouponExpired       = New(9001, "优惠券已过期")
	ErrCouponNotStarted    = New(9002, "优惠券尚未生效")
	ErrCouponNotApplicable = New(9003, "优惠券不适用")
	ErrCouponLimitExceed   = New(9004, "优惠券使用已达上限")
	ErrCouponInactive      = New(9005, "优惠券已停用")
	ErrCouponMinPurchase   = New(9006, "未达到优惠券最低消费金额")
	ErrCouponUserLimit     = New(9007, "您已达到该券的使用次数上限")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
