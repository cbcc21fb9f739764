package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/middleware"
	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
	"github.com/carbridge/carbridge-api/utils"
)

// maxDeliveryImages caps the proof-of-delivery upload batch
const maxDeliveryImages = 5

// OrderController handles the customer-facing order endpoints
type OrderController struct {
	db      *gorm.DB
	storage services.StorageService
	logger  *zap.Logger
}

// NewOrderController creates an OrderController with its dependencies
func NewOrderController(db *gorm.DB, storage services.StorageService, logger *zap.Logger) *OrderController {
	return &OrderController{db: db, storage: storage, logger: logger}
}

// findOrder resolves an order by its public identifier under the caller's
// ownership scope. Not-owned and nonexistent orders are both "not found".
func (oc *OrderController) findOrder(identity middleware.Identity, orderID string) (*models.Order, error) {
	scope := oc.db.Where("order_id = ?", orderID)
	if !identity.IsAdmin {
		scope = scope.Where("user_id = ?", identity.UserID)
	}

	var order models.Order
	if err := scope.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func respondOrderNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_FOUND",
			"message": "Order not found",
		},
	})
}

func respondNotAuthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_AUTHENTICATED",
			"message": "Not authenticated",
		},
	})
}

// List handles GET /api/orders
func (oc *OrderController) List(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var orders []models.Order
	if err := oc.db.Where("user_id = ?", identity.UserID).
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
		"data":    orders,
	})
}

// Detail handles GET /api/orders/:orderId
func (oc *OrderController) Detail(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateShippingAddress handles PUT /api/orders/:orderId/shipping-address.
// The address sub-object is replaced as a whole.
func (oc *OrderController) UpdateShippingAddress(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var address models.ShippingAddress
	if err := c.ShouldBindJSON(&address); err != nil {
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

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	order.ShippingAddress = &address
	if err := oc.db.Save(order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating shipping address",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateShippingQuote handles PUT /api/orders/:orderId/shipping-quote.
// The quote sub-object is replaced as a whole.
func (oc *OrderController) UpdateShippingQuote(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var quote models.ShippingQuote
	if err := c.ShouldBindJSON(&quote); err != nil {
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
	if quote.Status == "" {
		quote.Status = models.QuotePending
	}

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	order.ShippingQuote = &quote
	if err := oc.db.Save(order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating shipping quote",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateTrackingRequest represents the request body for a tracking update
type UpdateTrackingRequest struct {
	TrackingNumber string               `json:"trackingNumber"`
	Carrier        string               `json:"carrier"`
	Status         string               `json:"status" binding:"required"`
	Step           *models.ShippingStep `json:"step"`
}

// UpdateTracking handles PUT /api/orders/:orderId/tracking. Unlike the
// other shipping updates, a supplied step is appended to the existing
// timeline; the top-level shipping status is always overwritten.
func (oc *OrderController) UpdateTracking(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var req UpdateTrackingRequest
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

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	if order.Shipping == nil {
		order.Shipping = &models.Shipping{
			TrackingNumber:    req.TrackingNumber,
			Carrier:           req.Carrier,
			EstimatedDelivery: time.Now(),
			Steps:             []models.ShippingStep{},
		}
	}
	if req.TrackingNumber != "" {
		order.Shipping.TrackingNumber = req.TrackingNumber
	}
	if req.Carrier != "" {
		order.Shipping.Carrier = req.Carrier
	}
	if req.Step != nil {
		if req.Step.Date.IsZero() {
			req.Step.Date = time.Now()
		}
		order.Shipping.Steps = append(order.Shipping.Steps, *req.Step)
	}
	order.Shipping.Status = req.Status

	if err := oc.db.Save(order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating tracking information",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdatePayment handles PUT /api/orders/:orderId/payment. Payment is a
// manual receipt-image upload; the amount may be adjusted alongside it.
func (oc *OrderController) UpdatePayment(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "No receipt provided",
			},
		})
		return
	}

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	url, uploadErr := oc.storage.UploadFile(c.Request.Context(), fileHeader, "receipts")
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
		oc.logger.Error("receipt upload failed", zap.String("orderId", order.OrderID), zap.Error(uploadErr))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Error uploading receipt",
			},
		})
		return
	}

	order.Payment.ReceiptURL = url
	order.Payment.DateSubmitted = time.Now()
	order.Payment.Status = models.PaymentPending
	if amount := c.PostForm("amount"); amount != "" {
		order.Payment.Amount = amount
	}

	if err := oc.db.Save(order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating payment",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ConfirmDelivery handles POST /api/orders/:orderId/confirm-delivery.
// Requires at least one proof-of-delivery image; images are uploaded in
// parallel and the order only flips to delivered once all succeeded.
func (oc *OrderController) ConfirmDelivery(c *gin.Context) {
	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	form, err := c.MultipartForm()
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

	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_IMAGES",
				"message": "No images provided",
			},
		})
		return
	}
	if len(files) > maxDeliveryImages {
		files = files[:maxDeliveryImages]
	}

	order, err := oc.findOrder(identity, c.Param("orderId"))
	if err != nil {
		respondOrderNotFound(c)
		return
	}

	imageURLs, uploadErr := oc.uploadAll(c, files)
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
		oc.logger.Error("delivery image upload failed", zap.String("orderId", order.OrderID), zap.Error(uploadErr))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Error uploading images",
			},
		})
		return
	}

	order.Status = models.OrderDelivered
	order.DeliveryConfirmation = &models.DeliveryConfirmation{
		Images:      imageURLs,
		ConfirmedAt: time.Now(),
		Feedback:    c.PostForm("feedback"),
	}

	if err := oc.db.Save(order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error confirming delivery",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// uploadAll uploads every file concurrently and preserves input order in
// the returned URLs. The first error wins.
func (oc *OrderController) uploadAll(c *gin.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, fileHeader := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			urls[i], errs[i] = oc.storage.UploadFile(c.Request.Context(), fh, "deliveries")
		}(i, fileHeader)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return urls, nil
}
