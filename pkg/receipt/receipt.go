// Package receipt 票据渲染服务
package receipt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Line 票据明细行
type Line struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Data 票据数据，由业务层计算好后传入
type Data struct {
	ReceiptNo      string
	IssuedTo       string
	Lines          []Line
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	GSTAmount      decimal.Decimal
	GrandTotal     decimal.Decimal
}

// Renderer 票据渲染器接口
type Renderer interface {
	Render(ctx context.Context, data *Data) ([]byte, error)
}

// TextRenderer 纯文本票据渲染器
type TextRenderer struct{}

// NewTextRenderer 创建纯文本渲染器
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render 渲染纯文本票据
func (r *TextRenderer) Render(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Receipt %s\n", data.ReceiptNo)
	fmt.Fprintf(&buf, "Issued to: %s\n", data.IssuedTo)
	buf.WriteString("----------------------------------------\n")
	for _, line := range data.Lines {
		fmt.Fprintf(&buf, "%-24s x%-3d %10s\n", line.Description, line.Quantity, line.Amount.StringFixed(2))
	}
	buf.WriteString("----------------------------------------\n")
	fmt.Fprintf(&buf, "%-28s %10s\n", "Subtotal", data.Subtotal.StringFixed(2))
	if data.DiscountAmount.IsPositive() {
		fmt.Fprintf(&buf, "%-28s -%9s\n", "Discount", data.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&buf, "%-28s %10s\n", "GST", data.GSTAmount.StringFixed(2))
	fmt.Fprintf(&buf, "%-28s %10s\n", "Total", data.GrandTotal.StringFixed(2))
	return buf.Bytes(), nil
}
