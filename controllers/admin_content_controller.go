package controllers

import (
	"errors"
	"fmt"
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

// AdminContentController manages the editable storefront page content
type AdminContentController struct {
	db      *gorm.DB
	storage services.StorageService
	logger  *zap.Logger
}

// NewAdminContentController creates an AdminContentController with its
// dependencies
func NewAdminContentController(db *gorm.DB, storage services.StorageService, logger *zap.Logger) *AdminContentController {
	return &AdminContentController{db: db, storage: storage, logger: logger}
}

// UpdateContentRequest carries the full replacement section list for a page
type UpdateContentRequest struct {
	Sections []models.Section `json:"sections" binding:"required"`
}

func respondInvalidPageType(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_PAGE_TYPE",
			"message": "Invalid page type",
		},
	})
}

// GetPageContent handles GET /api/admin/content/:pageType. The content row
// is created on first read so the editor always has something to load.
func (acc *AdminContentController) GetPageContent(c *gin.Context) {
	pageType := c.Param("pageType")
	if !models.ValidPageType(pageType) {
		respondInvalidPageType(c)
		return
	}

	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var content models.Content
	err = acc.db.First(&content, "type = ?", pageType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		content = models.Content{
			PageID:      fmt.Sprintf("%s-%d", pageType, time.Now().UnixMilli()),
			Type:        pageType,
			Sections:    models.SectionList{},
			LastUpdated: time.Now(),
			UpdatedBy:   identity.UserID,
		}
		err = acc.db.Create(&content).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching page content",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    content,
	})
}

// UpdatePageContent handles PUT /api/admin/content/:pageType. Sections are
// replaced wholesale.
func (acc *AdminContentController) UpdatePageContent(c *gin.Context) {
	pageType := c.Param("pageType")
	if !models.ValidPageType(pageType) {
		respondInvalidPageType(c)
		return
	}

	var req UpdateContentRequest
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

	identity, err := middleware.GetIdentity(c)
	if err != nil {
		respondNotAuthenticated(c)
		return
	}

	var content models.Content
	err = acc.db.First(&content, "type = ?", pageType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		content = models.Content{
			PageID: fmt.Sprintf("%s-%d", pageType, time.Now().UnixMilli()),
			Type:   pageType,
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error fetching page content",
			},
		})
		return
	}

	content.Sections = models.SectionList(req.Sections)
	content.LastUpdated = time.Now()
	content.UpdatedBy = identity.UserID

	if err := acc.db.Save(&content).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Error updating page content",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    content,
	})
}

// UploadMedia handles POST /api/admin/content/upload. The uploaded file is
// stored and its public URL returned for embedding in a section.
func (acc *AdminContentController) UploadMedia(c *gin.Context) {
	file, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILE",
				"message": "No media file provided",
			},
		})
		return
	}

	url, err := acc.storage.UploadFile(c.Request.Context(), file, "content")
	if err != nil {
		var validationErr *utils.FileUploadError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    validationErr.Code,
					"message": validationErr.Message,
				},
			})
			return
		}
		acc.logger.Error("failed to upload media", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Error uploading media",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"url": url},
	})
}
