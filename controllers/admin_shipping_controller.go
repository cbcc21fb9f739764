package controllers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
)

// AdminShippingController exposes the shipment views: orders that have
// tracking information entered
type AdminShippingController struct {
	db     *gorm.DB
	mailer services.Mailer
	logger *zap.Logger
}

// NewAdminShippingController creates an AdminShippingController with its
// dependencies
func NewAdminShippingController(db *gorm.DB, mailer services.Mailer, logger *zap.Logger) *AdminShippingController {
	return &AdminShippingController{db: db, mailer: mailer, logger: logger}
}

// shipments loads the orders that carry a tracking number. The shipping
// sub-record lives in a JSON column, so the tracking filter runs in Go to
// stay portable across postgres and sqlite.
func (asc *AdminShippingController) shipments() ([]models.Order, error) {
	var orders []models.Order
	if err := asc.db.Preload("User").
		Where("shipping IS NOT NULL").
		Order("date_ordered DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	tracked := orders[:0]
	for _, order := range orders {
		if order.Shipping != nil && order.Shipping.TrackingNumber != "" {
			tracked = append(tracked, order)
		}
	}
	return tracked, nil
}

// GetAll handles GET /api/admin/shipments
func (asc *AdminShippingController) GetAll(c *gin.Context) {
	shipments, err := asc.shipments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching shipments",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    adminOrders(shipments),
	})
}

// GetByID handles GET /api/admin/shipments/:orderId
func (asc *AdminShippingController) GetByID(c *gin.Context) {
	var order models.Order
	if err := asc.db.Preload("User").
		First(&order, "order_id = ?", c.Param("orderId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Shipment not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ForAdmin(),
	})
}

// Update handles PUT /api/admin/shipments/:orderId. The shipping
// sub-object is replaced as a whole; the customer is notified best-effort.
func (asc *AdminShippingController) Update(c *gin.Context) {
	var shipping models.Shipping
	if err := c.ShouldBindJSON(&shipping); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}
	if shipping.Steps == nil {
		shipping.Steps = []models.ShippingStep{}
	}

	var order models.Order
	if err := asc.db.Preload("User").
		First(&order, "order_id = ?", c.Param("orderId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Shipment not found",
			},
		})
		return
	}

	order.Shipping = &shipping
	if err := asc.db.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating shipment",
			},
		})
		return
	}

	if order.User != nil {
		user := *order.User
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
			defer cancel()
			err := asc.mailer.SendShippingUpdate(ctx, user.Email, services.ShippingUpdateData{
				OrderID:           order.OrderID,
				TrackingNumber:    shipping.TrackingNumber,
				Status:            shipping.Status,
				EstimatedDelivery: shipping.EstimatedDelivery.Format("2006-01-02"),
				UserName:          user.FirstName,
			})
			if err != nil {
				asc.logger.Error("failed to send shipping update email",
					zap.String("orderId", order.OrderID), zap.Error(err))
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ForAdmin(),
	})
}

// GetStats handles GET /api/admin/shipments/stats
func (asc *AdminShippingController) GetStats(c *gin.Context) {
	shipments, err := asc.shipments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching shipping statistics",
			},
		})
		return
	}

	var processing, inTransit, delivered int
	for _, shipment := range shipments {
		switch shipment.Shipping.Status {
		case "processing":
			processing++
		case "in_transit":
			inTransit++
		case "delivered":
			delivered++
		}
	}

	// Upcoming deliveries: soonest estimated delivery first
	upcoming := make([]models.Order, len(shipments))
	copy(upcoming, shipments)
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].Shipping.EstimatedDelivery.Before(upcoming[j].Shipping.EstimatedDelivery)
	})
	if len(upcoming) > 5 {
		upcoming = upcoming[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total": len(shipments),
			"byStatus": gin.H{
				"processing": processing,
				"inTransit":  inTransit,
				"delivered":  delivered,
			},
			"upcomingDeliveries": adminOrders(upcoming),
		},
	})
}
