// Package analytics 提供运营统计相关的 HTTP Handler
package analytics

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/handler"
	"github.com/dumeirei/marketplace-backend/internal/common/response"
	analyticsService "github.com/dumeirei/marketplace-backend/internal/service/analytics"
)

// Handler 统计处理器
type Handler struct {
	analyticsService *analyticsService.Service
}

// NewHandler 创建统计处理器
func NewHandler(analyticsSvc *analyticsService.Service) *Handler {
	return &Handler{analyticsService: analyticsSvc}
}

// Report 获取运营统计报表
// @Summary 获取运营统计报表
// @Tags 统计
// @Produce json
// @Security Bearer
// @Param period query string true "统计周期" Enums(daily, weekly, monthly, yearly)
// @Param date query string false "统计日期 (2006-01-02)，默认当天"
// @Success 200 {object} response.Response{data=analyticsService.Report}
// @Router /api/v1/analytics/report [get]
func (h *Handler) Report(c *gin.Context) {
	period := c.DefaultQuery("period", analyticsService.PeriodDaily)

	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := handler.ParseDate(raw)
		if err != nil {
			response.BadRequest(c, "日期格式错误")
			return
		}
		date = parsed
	}

	report, err := h.analyticsService.Report(c.Request.Context(), period, date)
	handler.MustSucceed(c, err, report)
}
