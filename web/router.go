package web

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ADX777/Timelock-newbot/web/controllers"
	"github.com/ADX777/Timelock-newbot/web/middleware"
)

// NewRouter wires the public api: order creation and status reads are rate
// limited per ip, the processor webhook is authenticated by its signature
// instead, and admin routes require a jwt.
func NewRouter(ctrl *controllers.Controllers, webhookHandler gin.HandlerFunc, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	limiter := middleware.NewRateLimiter(30) // 30 requests/min/IP
	cleanupCtx := ctrl.AppCtx
	if cleanupCtx == nil {
		cleanupCtx = context.Background()
	}
	limiter.StartCleanup(cleanupCtx, 10*time.Minute)

	r.GET("/", ctrl.Home)

	api := r.Group("/api")
	api.POST("/order/create", limiter.Middleware(), ctrl.CreateOrder)
	api.GET("/order/status/:order_id", limiter.Middleware(), ctrl.OrderStatus)
	api.POST("/payment/webhook", webhookHandler)
	if jwtSecret != "" {
		api.GET("/admin/orders", middleware.AdminAuth(jwtSecret), ctrl.ListOrders)
	}

	return r
}
