// Package middleware 提供 HTTP 中间件
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-backend/internal/common/logger"
	"github.com/dumeirei/marketplace-backend/internal/models"
	"github.com/dumeirei/marketplace-backend/internal/repository"
)

// Auditor 审计日志中间件
type Auditor struct {
	repo *repository.AuditRepository
}

// NewAuditor 创建审计日志中间件
func NewAuditor(repo *repository.AuditRepository) *Auditor {
	return &Auditor{repo: repo}
}

// auditRoute 路由对应的审计条目
type auditRoute struct {
	EntityType string
	Action     string
}

// 需要审计的写操作
var auditRouteMap = map[string]auditRoute{
	"POST /api/v1/providers":                    {EntityType: "provider", Action: "create"},
	"POST /api/v1/bookings":                     {EntityType: "booking", Action: "create"},
	"POST /api/v1/bookings/:id/cancel":          {EntityType: "booking", Action: "cancel"},
	"POST /api/v1/bookings/:id/reschedule":      {EntityType: "booking", Action: "reschedule"},
	"POST /api/v1/bookings/:id/confirm":         {EntityType: "booking", Action: "confirm"},
	"POST /api/v1/bookings/:id/complete":        {EntityType: "booking", Action: "complete"},
	"POST /api/v1/shops":                        {EntityType: "shop", Action: "create"},
	"POST /api/v1/products":                     {EntityType: "product", Action: "create"},
	"PUT /api/v1/products/:id":                  {EntityType: "product", Action: "update"},
	"POST /api/v1/products/:id/stock":           {EntityType: "product", Action: "adjust_stock"},
	"POST /api/v1/products/:id/deactivate":      {EntityType: "product", Action: "deactivate"},
	"POST /api/v1/orders":                       {EntityType: "order", Action: "create"},
	"POST /api/v1/orders/:id/transition":        {EntityType: "order", Action: "transition"},
	"POST /api/v1/orders/:id/cancel":            {EntityType: "order", Action: "cancel"},
	"POST /api/v1/coupons":                      {EntityType: "coupon", Action: "create"},
	"DELETE /api/v1/coupons/:id":                {EntityType: "coupon", Action: "deactivate"},
	"POST /api/v1/payments":                     {EntityType: "payment", Action: "initiate"},
	"POST /api/v1/payments/:id/refund":          {EntityType: "payment", Action: "refund"},
	"POST /api/v1/returns":                      {EntityType: "return_request", Action: "create"},
	"POST /api/v1/returns/:id/approve":          {EntityType: "return_request", Action: "approve"},
	"POST /api/v1/returns/:id/reject":           {EntityType: "return_request", Action: "reject"},
}

// Audit 审计日志中间件处理函数，只记录已配置的写操作
func (a *Auditor) Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		route, ok := auditRouteMap[c.Request.Method+" "+c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		c.Next()

		// 只审计处理成功的请求
		if c.Writer.Status() >= 400 || len(c.Errors) > 0 {
			return
		}
		go a.record(c.Copy(), route, requestBody)
	}
}

// record 异步落库，失败只记日志
func (a *Auditor) record(c *gin.Context, route auditRoute, requestBody []byte) {
	if a.repo == nil {
		return
	}

	log := &models.AuditLog{
		EntityType: route.EntityType,
		Action:     route.Action,
	}
	if userID := GetUserID(c); userID != 0 {
		log.ActorID = &userID
	}
	if raw := c.Param("id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			log.EntityID = id
		}
	}
	if ip := c.ClientIP(); ip != "" {
		log.IP = &ip
	}
	if len(requestBody) > 0 {
		var changes models.JSON
		if err := json.Unmarshal(requestBody, &changes); err == nil {
			log.Changes = changes
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.repo.Create(ctx, log); err != nil {
		logger.Warn("audit log write failed", logger.Err(err))
	}
}
