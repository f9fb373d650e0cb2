package razorpay

import "context"

// Gateway 支付网关抽象，生产环境为 Client，开发与测试环境为 MockClient
type Gateway interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	VerifyCallback(params *CallbackParams) error
	VerifyWebhook(body []byte, signature string) error
	CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)
	FetchRefund(ctx context.Context, refundID string) (*RefundResponse, error)
}
