package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
	"github.com/carbridge/carbridge-api/utils"
)

// AdminOrderController handles the back-office order endpoints
type AdminOrderController struct {
	db     *gorm.DB
	mailer services.Mailer
	logger *zap.Logger
}

// NewAdminOrderController creates an AdminOrderController with its
// dependencies
func NewAdminOrderController(db *gorm.DB, mailer services.Mailer, logger *zap.Logger) *AdminOrderController {
	return &AdminOrderController{db: db, mailer: mailer, logger: logger}
}

// UpdateOrderRequest represents the request body for an admin order update
type UpdateOrderRequest struct {
	Status   string           `json:"status" binding:"required"`
	Shipping *models.Shipping `json:"shipping"`
}

func adminOrders(orders []models.Order) []models.AdminOrder {
	out := make([]models.AdminOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ForAdmin())
	}
	return out
}

// GetAll handles GET /api/admin/orders
func (aoc *AdminOrderController) GetAll(c *gin.Context) {
	var orders []models.Order
	if err := aoc.db.Preload("User").
		Order("date_ordered DESC").
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    adminOrders(orders),
	})
}

// GetByID handles GET /api/admin/orders/:orderId
func (aoc *AdminOrderController) GetByID(c *gin.Context) {
	var order models.Order
	if err := aoc.db.Preload("User").
		First(&order, "order_id = ?", c.Param("orderId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ForAdmin(),
	})
}

// Update handles PUT /api/admin/orders/:orderId. Status moves forward only
// (processing -> shipped -> delivered); a supplied shipping sub-object
// replaces the stored one. Customers are notified of shipped/delivered
// transitions best-effort.
func (aoc *AdminOrderController) Update(c *gin.Context) {
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
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

	if !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Status must be processing, shipped or delivered",
			},
		})
		return
	}

	var order models.Order
	if err := aoc.db.Preload("User").
		First(&order, "order_id = ?", c.Param("orderId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if !models.CanTransition(order.Status, req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Order status cannot move backwards",
			},
		})
		return
	}

	statusChanged := order.Status != req.Status
	order.Status = req.Status
	if req.Shipping != nil {
		if req.Shipping.Steps == nil {
			req.Shipping.Steps = []models.ShippingStep{}
		}
		order.Shipping = req.Shipping
	}

	if err := aoc.db.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating order",
			},
		})
		return
	}

	if statusChanged {
		aoc.notifyStatusChange(order)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ForAdmin(),
	})
}

func (aoc *AdminOrderController) notifyStatusChange(order models.Order) {
	if order.User == nil {
		return
	}
	user := *order.User

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()

		var err error
		switch order.Status {
		case models.OrderShipped:
			data := services.ShippingUpdateData{
				OrderID:  order.OrderID,
				UserName: user.FirstName,
			}
			if order.Shipping != nil {
				data.TrackingNumber = order.Shipping.TrackingNumber
				data.Status = order.Shipping.Status
				data.EstimatedDelivery = order.Shipping.EstimatedDelivery.Format("2006-01-02")
			}
			err = aoc.mailer.SendShippingUpdate(ctx, user.Email, data)
		case models.OrderDelivered:
			err = aoc.mailer.SendDeliveryConfirmation(ctx, user.Email, services.DeliveryConfirmationData{
				OrderID:      order.OrderID,
				DeliveryDate: order.UpdatedAt.Format("2006-01-02"),
				UserName:     user.FirstName,
			})
		default:
			return
		}
		if err != nil {
			aoc.logger.Error("failed to send order status email",
				zap.String("orderId", order.OrderID),
				zap.String("status", order.Status),
				zap.Error(err))
		}
	}()
}

// UpdateShipping handles PUT /api/admin/orders/:orderId/shipping. The
// shipping sub-object is replaced as a whole and the customer is notified
// best-effort.
func (aoc *AdminOrderController) UpdateShipping(c *gin.Context) {
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
	if err := aoc.db.Preload("User").
		First(&order, "order_id = ?", c.Param("orderId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	order.Shipping = &shipping
	if err := aoc.db.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating shipping information",
			},
		})
		return
	}

	aoc.sendShippingUpdateEmail(order, shipping)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order.ForAdmin(),
	})
}

func (aoc *AdminOrderController) sendShippingUpdateEmail(order models.Order, shipping models.Shipping) {
	if order.User == nil {
		return
	}
	user := *order.User

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		err := aoc.mailer.SendShippingUpdate(ctx, user.Email, services.ShippingUpdateData{
			OrderID:           order.OrderID,
			TrackingNumber:    shipping.TrackingNumber,
			Status:            shipping.Status,
			EstimatedDelivery: shipping.EstimatedDelivery.Format("2006-01-02"),
			UserName:          user.FirstName,
		})
		if err != nil {
			aoc.logger.Error("failed to send shipping update email",
				zap.String("orderId", order.OrderID), zap.Error(err))
		}
	}()
}

// GetStats handles GET /api/admin/orders/stats
func (aoc *AdminOrderController) GetStats(c *gin.Context) {
	var total, processing, shipped, delivered, vehicle, parts int64

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&total, aoc.db.Model(&models.Order{})},
		{&processing, aoc.db.Model(&models.Order{}).Where("status = ?", models.OrderProcessing)},
		{&shipped, aoc.db.Model(&models.Order{}).Where("status = ?", models.OrderShipped)},
		{&delivered, aoc.db.Model(&models.Order{}).Where("status = ?", models.OrderDelivered)},
		{&vehicle, aoc.db.Model(&models.Order{}).Where("type = ?", models.TypeVehicle)},
		{&parts, aoc.db.Model(&models.Order{}).Where("type = ?", models.TypeParts)},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Error fetching order statistics",
				},
			})
			return
		}
	}

	// Revenue sums the free-form payment amounts; unparseable values count
	// as zero
	var orders []models.Order
	if err := aoc.db.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching order statistics",
			},
		})
		return
	}
	var revenue float64
	for _, order := range orders {
		revenue += utils.ParseAmount(order.Payment.Amount)
	}

	var recent []models.Order
	if err := aoc.db.Preload("User").
		Order("date_ordered DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching order statistics",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total": total,
			"byStatus": gin.H{
				"processing": processing,
				"shipped":    shipped,
				"delivered":  delivered,
			},
			"byType": gin.H{
				"vehicle": vehicle,
				"parts":   parts,
			},
			"revenue":      revenue,
			"recentOrders": adminOrders(recent),
		},
	})
}
