package main

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/config"
	"github.com/carbridge/carbridge-api/controllers"
	"github.com/carbridge/carbridge-api/middleware"
	"github.com/carbridge/carbridge-api/services"
)

// setupRouter builds the gin engine with the full route table. All
// dependencies are passed in so tests can swap in fakes.
func setupRouter(cfg *config.Config, db *gorm.DB, storage services.StorageService, mailer services.Mailer, logger *zap.Logger) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Car Bridge API is running",
		})
	})

	authController := controllers.NewAuthController(db, cfg)
	quotationController := controllers.NewQuotationController(db, storage, mailer, logger)
	orderController := controllers.NewOrderController(db, storage, logger)
	adminController := controllers.NewAdminController(db)
	adminQuotationController := controllers.NewAdminQuotationController(db, mailer, logger)
	adminOrderController := controllers.NewAdminOrderController(db, mailer, logger)
	adminShippingController := controllers.NewAdminShippingController(db, mailer, logger)
	adminContentController := controllers.NewAdminContentController(db, storage, logger)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/signup", authController.Register)
		auth.POST("/login", authController.Login)
		auth.GET("/me", middleware.RequireAuth(cfg.JWTSecret), authController.Me)
	}

	api.POST("/guest-quotations", quotationController.CreateGuest)

	quotations := api.Group("/quotations", middleware.RequireAuth(cfg.JWTSecret))
	{
		quotations.POST("", quotationController.Create)
		quotations.GET("", quotationController.List)
		quotations.GET("/:quotationId", quotationController.Detail)
		quotations.POST("/:quotationId/accept", quotationController.Accept)
		quotations.DELETE("/:quotationId", quotationController.Cancel)
	}

	orders := api.Group("/orders", middleware.RequireAuth(cfg.JWTSecret))
	{
		orders.GET("", orderController.List)
		orders.GET("/:orderId", orderController.Detail)
		orders.PUT("/:orderId/shipping-address", orderController.UpdateShippingAddress)
		orders.PUT("/:orderId/shipping-quote", orderController.UpdateShippingQuote)
		orders.PUT("/:orderId/tracking", orderController.UpdateTracking)
		orders.PUT("/:orderId/payment", orderController.UpdatePayment)
		orders.POST("/:orderId/confirm-delivery", orderController.ConfirmDelivery)
	}

	admin := api.Group("/admin", middleware.RequireAuth(cfg.JWTSecret), middleware.RequireAdmin())
	{
		users := admin.Group("/users")
		{
			users.GET("", adminController.GetUsers)
			users.POST("", adminController.CreateUser)
			users.GET("/:userId", adminController.GetUserByID)
			users.PUT("/:userId", adminController.UpdateUser)
			users.DELETE("/:userId", adminController.DeleteUser)
		}

		admin.GET("/dashboard/stats", adminController.GetDashboardStats)

		adminQuotations := admin.Group("/quotations")
		{
			adminQuotations.GET("", adminQuotationController.GetAll)
			adminQuotations.GET("/stats", adminQuotationController.GetStats)
			adminQuotations.GET("/:quotationId", adminQuotationController.GetByID)
			adminQuotations.PUT("/:quotationId/response", adminQuotationController.Respond)
		}

		adminOrders := admin.Group("/orders")
		{
			adminOrders.GET("", adminOrderController.GetAll)
			adminOrders.GET("/stats", adminOrderController.GetStats)
			adminOrders.GET("/:orderId", adminOrderController.GetByID)
			adminOrders.PUT("/:orderId", adminOrderController.Update)
			adminOrders.PUT("/:orderId/shipping", adminOrderController.UpdateShipping)
		}

		shipments := admin.Group("/shipments")
		{
			shipments.GET("", adminShippingController.GetAll)
			shipments.GET("/stats", adminShippingController.GetStats)
			shipments.GET("/:orderId", adminShippingController.GetByID)
			shipments.PUT("/:orderId", adminShippingController.Update)
		}

		content := admin.Group("/content")
		{
			content.POST("/upload", adminContentController.UploadMedia)
			content.GET("/:pageType", adminContentController.GetPageContent)
			content.PUT("/:pageType", adminContentController.UpdatePageContent)
		}
	}

	return router
}
