package handler

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		api.POST("/bids", h.PlaceBid)

		account := api.Group("/account")
		{
			account.GET("", h.GetAccount)
			account.GET("/transactions", h.ListTransactions)
			account.POST("/recharge", h.Recharge)
			account.POST("/withdraw", h.Withdraw)
			account.POST("/transactions/:id/approve", h.ApproveTransaction)
			account.POST("/transactions/:id/reject", h.RejectTransaction)
			account.POST("/status", h.SetAccountStatus)
		}

		increments := api.Group("/increment-configs")
		{
			increments.POST("", h.CreateIncrementConfig)
			increments.GET("/:id", h.GetIncrementConfig)
			increments.PUT("/:id/rules", h.UpdateIncrementRules)
			increments.DELETE("/:id", h.DeleteIncrementConfig)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.CreateSession)
			sessions.GET("/:id", h.GetSession)
			sessions.POST("/:id/start", h.StartSession)
			sessions.POST("/:id/end", h.EndSessionNow)
			sessions.POST("/:id/cancel", h.CancelSession)
			sessions.POST("/:id/settle", h.SettleSession)
			sessions.POST("/:id/items/:item_id/settle", h.SettleItem)
			sessions.GET("/:id/items/:item_id/result", h.GetResult)
		}

		items := api.Group("/items")
		{
			items.POST("", h.CreateItem)
			items.GET("/:id", h.GetItem)
			items.GET("/:id/bids", h.ListBids)
			items.GET("/:id/min-bid", h.MinimumBid)
			items.POST("/:id/:action", h.ItemAction)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.POST("/:id/pay", h.PayOrder)
			orders.POST("/:id/reject-shipment", h.RejectShipment)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
