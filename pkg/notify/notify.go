// Package notify 通知派发服务
package notify

import (
	"context"
)

// Message 通知消息
type Message struct {
	UserID  int64
	Email   string
	Phone   string
	Kind    string
	Title   string
	Payload map[string]interface{}
}

// 通知类型
const (
	KindBookingConfirmed   = "booking_confirmed"
	KindOrderConfirmed     = "order_confirmed"
	KindPaymentConfirmed   = "payment_confirmed"
	KindMembershipUpgraded = "membership_upgraded"
	KindPointsEarned       = "points_earned"
	KindWaitlistPromoted   = "waitlist_promoted"
	KindReturnProcessed    = "return_processed"
)

// Dispatcher 通知派发器接口
// 派发失败只记录，不向调用方传播
type Dispatcher interface {
	Send(ctx context.Context, msg *Message) error
}
