package razorpay

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockClient 模拟网关客户端（开发与测试环境使用）
type MockClient struct {
	mu      sync.Mutex
	orders  map[string]*OrderResponse
	refunds map[string]*RefundResponse

	// FailNextRefund 使下一次退款调用失败
	FailNextRefund bool
}

// NewMockClient 创建模拟网关客户端
func NewMockClient() *MockClient {
	return &MockClient{
		orders:  make(map[string]*OrderResponse),
		refunds: make(map[string]*RefundResponse),
	}
}

// CreateOrder 创建模拟网关订单
func (m *MockClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp := &OrderResponse{
		ID:        fmt.Sprintf("order_mock_%d", time.Now().UnixNano()),
		Amount:    req.Amount,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		CreatedAt: time.Now().Unix(),
	}
	m.orders[resp.ID] = resp
	return resp, nil
}

// VerifyCallback 模拟回调验签（非空签名即通过）
func (m *MockClient) VerifyCallback(params *CallbackParams) error {
	if params.Signature == "" {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyWebhook 模拟 Webhook 验签（非空签名即通过）
func (m *MockClient) VerifyWebhook(body []byte, signature string) error {
	if signature == "" {
		return ErrSignatureMismatch
	}
	return nil
}

// CreateRefund 发起模拟退款
func (m *MockClient) CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNextRefund {
		m.FailNextRefund = false
		return nil, ErrGatewayRequest
	}

	resp := &RefundResponse{
		ID:        fmt.Sprintf("rfnd_mock_%d", time.Now().UnixNano()),
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Status:    RefundStatusProcessed,
		CreatedAt: time.Now().Unix(),
	}
	m.refunds[resp.ID] = resp
	return resp, nil
}

// FetchRefund 查询模拟退款
func (m *MockClient) FetchRefund(ctx context.Context, refundID string) (*RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if resp, ok := m.refunds[refundID]; ok {
		return resp, nil
	}
	return nil, ErrGatewayRequest
}
