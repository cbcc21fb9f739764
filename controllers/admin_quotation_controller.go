package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
)

// AdminQuotationController handles the back-office quotation endpoints
type AdminQuotationController struct {
	db     *gorm.DB
	mailer services.Mailer
	logger *zap.Logger
}

// NewAdminQuotationController creates an AdminQuotationController with its
// dependencies
func NewAdminQuotationController(db *gorm.DB, mailer services.Mailer, logger *zap.Logger) *AdminQuotationController {
	return &AdminQuotationController{db: db, mailer: mailer, logger: logger}
}

// RespondRequest represents the structured admin reply to a quotation
type RespondRequest struct {
	Availability      string                `json:"availability" binding:"required"`
	EstimatedDelivery string                `json:"estimatedDelivery" binding:"required"`
	AdditionalNotes   string                `json:"additionalNotes"`
	PriceBreakdown    models.PriceBreakdown `json:"priceBreakdown" binding:"required"`
}

func adminQuotations(quotations []models.Quotation) []models.AdminQuotation {
	out := make([]models.AdminQuotation, 0, len(quotations))
	for _, q := range quotations {
		out = append(out, q.ForAdmin())
	}
	return out
}

// GetAll handles GET /api/admin/quotations
func (aqc *AdminQuotationController) GetAll(c *gin.Context) {
	var quotations []models.Quotation
	if err := aqc.db.Preload("User").
		Order("date_submitted DESC").
		Find(&quotations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching quotations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    adminQuotations(quotations),
	})
}

// GetByID handles GET /api/admin/quotations/:quotationId
func (aqc *AdminQuotationController) GetByID(c *gin.Context) {
	var quotation models.Quotation
	if err := aqc.db.Preload("User").
		First(&quotation, "id = ?", c.Param("quotationId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Quotation not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quotation.ForAdmin(),
	})
}

// Respond handles PUT /api/admin/quotations/:quotationId/response. Writing
// a response flips a pending quotation to responded; re-responding
// overwrites the previous response. An ordered quotation is terminal and
// can no longer be responded to.
func (aqc *AdminQuotationController) Respond(c *gin.Context) {
	var req RespondRequest
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

	var quotation models.Quotation
	if err := aqc.db.Preload("User").
		First(&quotation, "id = ?", c.Param("quotationId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Quotation not found",
			},
		})
		return
	}

	if quotation.Status == models.QuotationOrdered {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_ORDERED",
				"message": "Quotation has already been ordered",
			},
		})
		return
	}

	quotation.Status = models.QuotationResponded
	quotation.Response = &models.QuotationResponse{
		Availability:      req.Availability,
		EstimatedDelivery: req.EstimatedDelivery,
		AdditionalNotes:   req.AdditionalNotes,
		PriceBreakdown:    req.PriceBreakdown,
	}

	if err := aqc.db.Save(&quotation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error responding to quotation",
			},
		})
		return
	}

	// The response is committed; the notification must not roll it back
	if quotation.User != nil {
		user := *quotation.User
		response := *quotation.Response
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
			defer cancel()
			err := aqc.mailer.SendQuotationResponse(ctx, user.Email, services.QuotationResponseData{
				QuotationID: formatID(quotation.ID),
				Type:        string(quotation.Type),
				Response:    response,
				UserName:    user.FirstName,
			})
			if err != nil {
				aqc.logger.Error("failed to send quotation response email",
					zap.Uint("quotationId", quotation.ID), zap.Error(err))
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quotation.ForAdmin(),
	})
}

// GetStats handles GET /api/admin/quotations/stats
func (aqc *AdminQuotationController) GetStats(c *gin.Context) {
	var total, pending, responded, ordered, vehicle, parts int64

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&total, aqc.db.Model(&models.Quotation{})},
		{&pending, aqc.db.Model(&models.Quotation{}).Where("status = ?", models.QuotationPending)},
		{&responded, aqc.db.Model(&models.Quotation{}).Where("status = ?", models.QuotationResponded)},
		{&ordered, aqc.db.Model(&models.Quotation{}).Where("status = ?", models.QuotationOrdered)},
		{&vehicle, aqc.db.Model(&models.Quotation{}).Where("type = ?", models.TypeVehicle)},
		{&parts, aqc.db.Model(&models.Quotation{}).Where("type = ?", models.TypeParts)},
	}
	for _, count := range counts {
		if err := count.query.Count(count.dst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Error fetching quotation statistics",
				},
			})
			return
		}
	}

	var recent []models.Quotation
	if err := aqc.db.Preload("User").
		Order("date_submitted DESC").
		Limit(5).
		Find(&recent).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching quotation statistics",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total": total,
			"byStatus": gin.H{
				"pending":   pending,
				"responded": responded,
				"ordered":   ordered,
			},
			"byType": gin.H{
				"vehicle": vehicle,
				"parts":   parts,
			},
			"recentQuotations": adminQuotations(recent),
		},
	})
}
