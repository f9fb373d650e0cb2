// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-backend/internal/common/config"
	"github.com/dumeirei/marketplace-backend/internal/common/jwt"
	"github.com/dumeirei/marketplace-backend/internal/common/metrics"
	analyticsHandler "github.com/dumeirei/marketplace-backend/internal/handler/analytics"
	authHandler "github.com/dumeirei/marketplace-backend/internal/handler/auth"
	bookingHandler "github.com/dumeirei/marketplace-backend/internal/handler/booking"
	marketingHandler "github.com/dumeirei/marketplace-backend/internal/handler/marketing"
	paymentHandler "github.com/dumeirei/marketplace-backend/internal/handler/payment"
	providerHandler "github.com/dumeirei/marketplace-backend/internal/handler/provider"
	returnsHandler "github.com/dumeirei/marketplace-backend/internal/handler/returns"
	shopHandler "github.com/dumeirei/marketplace-backend/internal/handler/shop"
	userHandler "github.com/dumeirei/marketplace-backend/internal/handler/user"
	"github.com/dumeirei/marketplace-backend/internal/middleware"
	"github.com/dumeirei/marketplace-backend/internal/repository"
	"github.com/dumeirei/marketplace-backend/internal/scheduler"
	analyticsService "github.com/dumeirei/marketplace-backend/internal/service/analytics"
	bookingService "github.com/dumeirei/marketplace-backend/internal/service/booking"
	marketingService "github.com/dumeirei/marketplace-backend/internal/service/marketing"
	notificationService "github.com/dumeirei/marketplace-backend/internal/service/notification"
	paymentService "github.com/dumeirei/marketplace-backend/internal/service/payment"
	pricingService "github.com/dumeirei/marketplace-backend/internal/service/pricing"
	providerService "github.com/dumeirei/marketplace-backend/internal/service/provider"
	returnService "github.com/dumeirei/marketplace-backend/internal/service/returns"
	shopService "github.com/dumeirei/marketplace-backend/internal/service/shop"
	userService "github.com/dumeirei/marketplace-backend/internal/service/user"
	"github.com/dumeirei/marketplace-backend/pkg/notify"
	"github.com/dumeirei/marketplace-backend/pkg/razorpay"
	"github.com/dumeirei/marketplace-backend/pkg/receipt"
)

// setupRouter 设置路由并返回已注册任务的调度器
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
) *scheduler.Scheduler {
	// 创建 JWT 管理器
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:            cfg.JWT.Secret,
		AccessExpireTime:  cfg.JWT.AccessTokenDuration(),
		RefreshExpireTime: cfg.JWT.RefreshTokenDuration(),
		Issuer:            cfg.JWT.Issuer,
	})

	// 初始化支付网关
	var gateway razorpay.Gateway
	if cfg.Gateway.Mock {
		gateway = razorpay.NewMockClient()
	} else {
		gateway = razorpay.NewClient(&razorpay.Config{
			KeyID:         cfg.Gateway.KeyID,
			KeySecret:     cfg.Gateway.KeySecret,
			WebhookSecret: cfg.Gateway.WebhookSecret,
			BaseURL:       cfg.Gateway.BaseURL,
			Timeout:       cfg.Gateway.RequestTimeoutDuration(),
		})
	}

	// 初始化通知派发器（落库后转发日志通道）
	dispatcher := notificationService.NewDispatcher(db, notify.NewLogDispatcher(logger))

	// 初始化服务
	userSvc := userService.NewUserService(db, jwtManager)
	loyaltySvc := userService.NewLoyaltyService(db, &cfg.Business.Loyalty)
	pricingSvc := pricingService.NewService(db, redisClient, &cfg.Business.Pricing)
	providerSvc := providerService.NewService(db)
	bookingSvc := bookingService.NewService(db, pricingSvc, providerSvc, dispatcher, &cfg.Business.Booking)
	couponSvc := marketingService.NewCouponService(db)
	productSvc := shopService.NewProductService(db)
	orderSvc := shopService.NewOrderService(db, couponSvc)
	paymentSvc := paymentService.NewService(db, gateway, loyaltySvc, dispatcher,
		receipt.NewTextRenderer(), cfg.Gateway.Currency, &cfg.Business.Payment)
	returnSvc := returnService.NewService(db, paymentSvc, dispatcher)
	analyticsSvc := analyticsService.NewService(db, redisClient)

	// 初始化处理器
	authH := authHandler.NewHandler(userSvc)
	userH := userHandler.NewHandler(userSvc, loyaltySvc, repository.NewNotificationRepository(db))
	providerH := providerHandler.NewHandler(providerSvc)
	bookingH := bookingHandler.NewHandler(bookingSvc)
	productH := shopHandler.NewProductHandler(productSvc)
	orderH := shopHandler.NewOrderHandler(orderSvc)
	marketingH := marketingHandler.NewHandler(couponSvc)
	paymentH := paymentHandler.NewHandler(paymentSvc)
	returnsH := returnsHandler.NewHandler(returnSvc)
	analyticsH := analyticsHandler.NewHandler(analyticsSvc)

	auditor := middleware.NewAuditor(repository.NewAuditRepository(db))

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.CORS(nil))
	r.Use(middleware.AccessLog(logger))
	if cfg.Metrics.Enabled {
		m := metrics.Init(cfg.Server.Name)
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, metrics.Handler())
	}
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(&middleware.RateLimitConfig{
			RedisClient: redisClient,
			KeyPrefix:   "ratelimit:",
			Limit:       cfg.RateLimit.RequestsPerSecond,
			Window:      time.Second,
		}))
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	v1.Use(auditor.Audit())
	{
		// 公开接口（无需认证）
		public := v1.Group("")
		{
			public.POST("/auth/register", authH.Register)
			public.POST("/auth/login", authH.Login)
			public.POST("/auth/refresh", authH.RefreshToken)

			public.GET("/service-types", providerH.ListServiceTypes)
			public.GET("/providers", providerH.ListProviders)
			public.GET("/providers/:id", providerH.GetProvider)
			public.GET("/providers/:id/reviews", providerH.ListReviews)

			public.GET("/shops", productH.ListShops)
			public.GET("/categories", productH.ListCategories)
			public.GET("/products", productH.ListProducts)
			public.GET("/products/:id", productH.GetProduct)
		}

		// 支付网关回调（网关验签，不需要认证）
		v1.POST("/gateway/callback", paymentH.Callback)
		v1.POST("/gateway/webhook", paymentH.Webhook)

		// 需要登录的接口
		authed := v1.Group("")
		authed.Use(middleware.UserAuth(jwtManager))
		{
			authed.GET("/user/profile", userH.GetProfile)
			authed.PUT("/user/profile", userH.UpdateProfile)
			authed.GET("/user/loyalty", userH.GetLoyalty)
			authed.GET("/user/notifications", userH.ListNotifications)
			authed.POST("/user/notifications/:id/read", userH.MarkNotificationRead)

			authed.POST("/providers", providerH.CreateProvider)
			authed.POST("/providers/reviews", providerH.AddReview)

			authed.POST("/bookings", bookingH.CreateBooking)
			authed.GET("/bookings", bookingH.ListBookings)
			authed.GET("/bookings/:id", bookingH.GetBooking)
			authed.POST("/bookings/:id/cancel", bookingH.CancelBooking)
			authed.POST("/bookings/:id/reschedule", bookingH.RescheduleBooking)
			authed.GET("/bookings/:id/waitlist", bookingH.WaitlistPosition)

			authed.POST("/shops", productH.CreateShop)
			authed.POST("/products", productH.CreateProduct)
			authed.PUT("/products/:id", productH.UpdateProduct)
			authed.POST("/products/:id/stock", productH.AdjustStock)
			authed.POST("/products/:id/deactivate", productH.DeactivateProduct)

			authed.POST("/orders", orderH.CreateOrder)
			authed.GET("/orders", orderH.ListOrders)
			authed.GET("/orders/:id", orderH.GetOrder)
			authed.POST("/orders/:id/cancel", orderH.CancelOrder)

			authed.POST("/coupons/validate", marketingH.ValidateCoupon)
			authed.GET("/coupons/:id", marketingH.GetCoupon)
			authed.GET("/coupons", marketingH.ListCoupons)

			authed.POST("/payments", paymentH.InitiatePayment)
			authed.GET("/payments", paymentH.ListPayments)
			authed.GET("/payments/:id", paymentH.GetPayment)
			authed.GET("/payments/:id/receipt", paymentH.Receipt)

			authed.POST("/returns", returnsH.CreateReturn)
			authed.GET("/returns", returnsH.ListReturns)
			authed.GET("/returns/:id", returnsH.GetReturn)
			authed.GET("/returns/:id/refund-status", returnsH.RefundStatus)
		}

		// 运营人员接口
		staff := v1.Group("")
		staff.Use(middleware.UserAuth(jwtManager), middleware.RequireStaff())
		{
			staff.POST("/bookings/:id/confirm", bookingH.ConfirmBooking)
			staff.POST("/bookings/:id/complete", bookingH.CompleteBooking)

			staff.POST("/categories", productH.CreateCategory)
			staff.GET("/inventory/low-stock", productH.ListLowStock)
			staff.POST("/orders/:id/transition", orderH.TransitionOrder)

			staff.POST("/coupons", marketingH.CreateCoupon)
			staff.DELETE("/coupons/:id", marketingH.DeactivateCoupon)
			staff.GET("/coupons/:id/usages", marketingH.ListCouponUsages)

			staff.POST("/payments/:id/refund", paymentH.Refund)
			staff.GET("/payments/:id/refund", paymentH.RefundStatus)

			staff.POST("/returns/:id/approve", returnsH.ApproveReturn)
			staff.POST("/returns/:id/reject", returnsH.RejectReturn)

			staff.GET("/analytics/report", analyticsH.Report)
		}
	}

	// 定时任务
	tasks := scheduler.NewTaskHandler(db, paymentSvc, loyaltySvc, providerSvc)
	sched := scheduler.NewScheduler()
	sched.AddTask("expire_pending_payments", 5*time.Minute, tasks.ExpirePendingPayments)
	sched.AddTask("expire_loyalty_points", 12*time.Hour, tasks.ExpireLoyaltyPoints)
	sched.AddTask("refresh_completion_rates", time.Hour, tasks.RefreshCompletionRates)
	sched.AddTask("report_waitlist_depth", time.Minute, tasks.ReportWaitlistDepth)
	return sched
}
