package payment

import (
	"github.com/shopspring/decimal"

	"github.com/dumeirei/marketplace-backend/internal/models"
)

// GST 税率
var (
	gstRateService   = decimal.NewFromFloat(0.18) // 服务 18%
	gstRateGoodsLow  = decimal.NewFromFloat(0.05) // 单价 1000 及以下商品 5%
	gstRateGoodsHigh = decimal.NewFromFloat(0.12) // 单价 1000 以上商品 12%

	goodsRateCutoff = decimal.NewFromInt(1000)

	// 计税基数为折后金额的 90%
	taxableRatio = decimal.NewFromFloat(0.9)
)

// ServiceGST 服务类消费的 GST
func ServiceGST(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(taxableRatio).Mul(gstRateService).Round(2)
}

// GoodsGST 商品订单的 GST，逐条目按单价档位计税
func GoodsGST(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		rate := gstRateGoodsLow
		if item.Price.GreaterThan(goodsRateCutoff) {
			rate = gstRateGoodsHigh
		}
		total = total.Add(item.Subtotal().Mul(taxableRatio).Mul(rate))
	}
	return total.Round(2)
}
