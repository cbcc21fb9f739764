package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/middleware"
	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
	"github.com/carbridge/carbridge-api/utils"
)

// emailTimeout bounds the background email dispatch that outlives the
// request
const emailTimeout = 30 * time.Second

// QuotationController handles the customer-facing quotation endpoints
type QuotationController struct {
	db      *gorm.DB
	storage services.StorageService
	mailer  services.Mailer
	logger  *zap.Logger
}

// NewQuotationController creates a QuotationController with its
// dependencies
func NewQuotationController(db *gorm.DB, storage services.StorageService, mailer services.Mailer, logger *zap.Logger) *QuotationController {
	return &QuotationController{db: db, storage: storage, mailer: mailer, logger: logger}
}

// quotationScope filters by owner unless the caller is admin. A record that
// exists but belongs to someone else is indistinguishable from a missing
// one: both 404.
func (qc *QuotationController) quotationScope(identity middleware.Identity) *gorm.DB {
	if identity.IsAdmin {
		return qc.db
	}
	return qc.db.Where("user_id = ?", identity.UserID)
}

// parseQuotationInput reads type and details from either a JSON body or a
// multipart form (the form carries the optional part image)
func parseQuotationInput(c *gin.Context) (models.QuotationType, []byte, error) {
	if c.ContentType() == "application/json" {
		var req struct {
			Type    models.QuotationType `json:"type" binding:"required"`
			Details json.RawMessage      `json:"details" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", nil, err
		}
		return req.Type, req.Details, nil
	}

	qType := models.QuotationType(c.PostForm("type"))
	details := c.PostForm("details")
	if qType == "" || details == "" {
		return "", nil, errors.New("type and details are required")
	}
	return qType, []byte(details), nil
}

// Create handles POST /api/quotations. For parts quotations with an
// attached image, the image is uploaded first and the quotation is only
// persisted once the upload succeeded.
func (qc *QuotationController) Create(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Not authenticated",
			},
		})
		return
	}

	qType, rawDetails, err := parseQuotationInput(c)
	if err != nil {
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

	if !qType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Type must be vehicle or parts",
			},
		})
		return
	}

	details, err := models.DecodeDetails(qType, rawDetails)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid details format",
			},
		})
		return
	}

	if qType == models.TypeParts {
		if fileHeader, err := c.FormFile("part_image"); err == nil {
			url, uploadErr := qc.storage.UploadFile(c.Request.Context(), fileHeader, "uploads")
			if uploadErr != nil {
				var fileErr *utils.FileUploadError
				if errors.As(uploadErr, &fileErr) {
					c.JSON(http.StatusBadRequest, gin.H{
						"success": false,
						"error": gin.H{
							"code":    fileErr.Code,
							"message": fileErr.Message,
						},
					})
					return
				}
				// Upload must succeed before the quotation is persisted
				qc.logger.Error("part image upload failed", zap.Error(uploadErr))
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "UPLOAD_ERROR",
						"message": "Error uploading image",
					},
				})
				return
			}
			details.SetPartImage(url)
		}
	}

	userID := identity.UserID
	quotation := models.Quotation{
		UserID:        &userID,
		Type:          qType,
		Status:        models.QuotationPending,
		DateSubmitted: time.Now(),
		Details:       details,
	}

	if err := qc.db.Create(&quotation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error creating quotation",
			},
		})
		return
	}

	// Confirmation email is best-effort; the quotation is already committed
	qc.sendConfirmationEmail(identity, quotation)

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    quotation,
	})
}

func (qc *QuotationController) sendConfirmationEmail(identity middleware.Identity, quotation models.Quotation) {
	var user models.User
	if err := qc.db.First(&user, identity.UserID).Error; err != nil {
		qc.logger.Error("quotation confirmation email skipped, user lookup failed",
			zap.Uint("quotationId", quotation.ID), zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		err := qc.mailer.SendQuotationConfirmation(ctx, user.Email, services.QuotationConfirmationData{
			QuotationID: formatID(quotation.ID),
			Type:        string(quotation.Type),
			Details:     quotation.Details,
			UserName:    user.FirstName,
		})
		if err != nil {
			qc.logger.Error("failed to send quotation confirmation email",
				zap.Uint("quotationId", quotation.ID), zap.Error(err))
		}
	}()
}

// List handles GET /api/quotations
func (qc *QuotationController) List(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Not authenticated",
			},
		})
		return
	}

	var quotations []models.Quotation
	if err := qc.db.Where("user_id = ?", identity.UserID).
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
		"data":    quotations,
	})
}

// Detail handles GET /api/quotations/:quotationId
func (qc *QuotationController) Detail(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Not authenticated",
			},
		})
		return
	}

	var quotation models.Quotation
	if err := qc.quotationScope(identity).
		Where("id = ?", c.Param("quotationId")).
		First(&quotation).Error; err != nil {
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
		"data":    quotation,
	})
}

// Accept handles POST /api/quotations/:quotationId/accept. Only a
// responded quotation with an owning account can be accepted; accepting
// creates the order and flips the quotation to ordered in one transaction.
func (qc *QuotationController) Accept(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Not authenticated",
			},
		})
		return
	}

	var quotation models.Quotation
	if err := qc.quotationScope(identity).
		Where("id = ? AND status = ?", c.Param("quotationId"), models.QuotationResponded).
		First(&quotation).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Quotation not found or not in responded state",
			},
		})
		return
	}

	// Guest quotations have no account to order for
	if quotation.UserID == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GUEST_QUOTATION",
				"message": "Guest quotations cannot be accepted",
			},
		})
		return
	}

	now := time.Now()
	amount := ""
	if quotation.Response != nil {
		amount = quotation.Response.PriceBreakdown.TotalCost
	}

	order := models.Order{
		OrderID:     models.NewOrderID(quotation.ID, now),
		UserID:      *quotation.UserID,
		QuotationID: quotation.ID,
		Type:        quotation.Type,
		Status:      models.OrderProcessing,
		DateOrdered: now,
		Details:     quotation.Details,
		Payment: models.Payment{
			Amount:        amount,
			DateSubmitted: now,
			Status:        models.PaymentPending,
		},
	}

	// The order and the status flip commit together or not at all
	quotation.Status = models.QuotationOrdered
	err = qc.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		return tx.Save(&quotation).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error accepting quotation",
			},
		})
		return
	}

	qc.sendOrderConfirmationEmail(order)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":   "Quotation accepted",
			"quotation": quotation,
			"order":     order,
		},
	})
}

func (qc *QuotationController) sendOrderConfirmationEmail(order models.Order) {
	var user models.User
	if err := qc.db.First(&user, order.UserID).Error; err != nil {
		qc.logger.Error("order confirmation email skipped, user lookup failed",
			zap.String("orderId", order.OrderID), zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		err := qc.mailer.SendOrderConfirmation(ctx, user.Email, services.OrderConfirmationData{
			OrderID:  order.OrderID,
			Type:     string(order.Type),
			Payment:  order.Payment,
			UserName: user.FirstName,
		})
		if err != nil {
			qc.logger.Error("failed to send order confirmation email",
				zap.String("orderId", order.OrderID), zap.Error(err))
		}
	}()
}

// Cancel handles DELETE /api/quotations/:quotationId. Only pending
// quotations can be cancelled; the delete is a hard delete.
func (qc *QuotationController) Cancel(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Not authenticated",
			},
		})
		return
	}

	scope := qc.db.Unscoped().Where("id = ? AND status = ?", c.Param("quotationId"), models.QuotationPending)
	if !identity.IsAdmin {
		scope = scope.Where("user_id = ?", identity.UserID)
	}

	result := scope.Delete(&models.Quotation{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error cancelling quotation",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Quotation not found or cannot be cancelled",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Quotation cancelled successfully",
		},
	})
}

// CreateGuest handles POST /api/guest-quotations, the unauthenticated
// intake used by the public landing pages
func (qc *QuotationController) CreateGuest(c *gin.Context) {
	qType, rawDetails, err := parseQuotationInput(c)
	if err != nil {
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

	if !qType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Type must be vehicle or parts",
			},
		})
		return
	}

	details, err := models.DecodeDetails(qType, rawDetails)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid details format",
			},
		})
		return
	}

	if qType == models.TypeParts {
		if fileHeader, err := c.FormFile("part_image"); err == nil {
			url, uploadErr := qc.storage.UploadFile(c.Request.Context(), fileHeader, "uploads")
			if uploadErr != nil {
				qc.logger.Error("guest part image upload failed", zap.Error(uploadErr))
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "UPLOAD_ERROR",
						"message": "Error uploading image",
					},
				})
				return
			}
			details.SetPartImage(url)
		}
	}

	quotation := models.Quotation{
		Type:          qType,
		Status:        models.QuotationPending,
		IsGuest:       true,
		DateSubmitted: time.Now(),
		Details:       details,
	}

	if err := qc.db.Create(&quotation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error creating guest quotation",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    quotation,
	})
}
