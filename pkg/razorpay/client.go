// Package razorpay 提供 Razorpay 支付网关封装
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config Razorpay 配置
type Config struct {
	KeyID         string `mapstructure:"key_id"`
	KeySecret     string `mapstructure:"key_secret"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	BaseURL       string `mapstructure:"base_url"`
	Timeout       time.Duration
}

// 预定义错误
var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrGatewayRequest    = errors.New("gateway request failed")
)

// Client Razorpay 客户端
type Client struct {
	config *Config
	http   *http.Client
}

// NewClient 创建 Razorpay 客户端
func NewClient(config *Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.razorpay.com/v1"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}
}

// OrderRequest 创建网关订单请求
type OrderRequest struct {
	Amount   int64             `json:"amount"` // 单位：paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// OrderResponse 网关订单响应
type OrderResponse struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// CreateOrder 创建网关订单
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var resp OrderResponse
	if err := c.post(ctx, "/orders", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CallbackParams 支付完成回调参数
type CallbackParams struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// VerifyCallback 验证支付回调签名
// 签名为 HMAC-SHA256(order_id + "|" + payment_id, key_secret)
func (c *Client) VerifyCallback(params *CallbackParams) error {
	payload := params.OrderID + "|" + params.PaymentID
	expected := c.sign([]byte(payload), c.config.KeySecret)
	if !hmac.Equal([]byte(expected), []byte(params.Signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyWebhook 验证 Webhook 签名
func (c *Client) VerifyWebhook(body []byte, signature string) error {
	expected := c.sign(body, c.config.WebhookSecret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// RefundRequest 退款请求
type RefundRequest struct {
	PaymentID string            `json:"-"`
	Amount    int64             `json:"amount,omitempty"` // 单位：paise，空表示全额
	Notes     map[string]string `json:"notes,omitempty"`
}

// RefundResponse 退款响应
type RefundResponse struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// RefundStatus 退款状态
const (
	RefundStatusPending   = "pending"
	RefundStatusProcessed = "processed"
	RefundStatusFailed    = "failed"
)

// CreateRefund 发起退款
func (c *Client) CreateRefund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	var resp RefundResponse
	path := fmt.Sprintf("/payments/%s/refund", req.PaymentID)
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchRefund 查询退款状态
func (c *Client) FetchRefund(ctx context.Context, refundID string) (*RefundResponse, error) {
	var resp RefundResponse
	if err := c.get(ctx, "/refunds/"+refundID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// sign 计算 HMAC-SHA256 签名
func (c *Client) sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// post 发送 POST 请求
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	return c.do(req, out)
}

// get 发送 GET 请求
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	return c.do(req, out)
}

// do 执行请求并解析响应
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d: %s", ErrGatewayRequest, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
