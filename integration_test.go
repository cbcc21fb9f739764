package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/carbridge/carbridge-api/config"
	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
)

type testApp struct {
	router  *gin.Engine
	db      *gorm.DB
	storage *services.MockStorageService
	mailer  *services.MockMailer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Quotation{},
		&models.Order{},
		&models.Content{},
	))

	cfg := &config.Config{
		JWTSecret:  "integration-test-secret",
		CORSOrigin: "http://localhost:5173",
		GoEnv:      "test",
	}
	storage := services.NewMockStorageService()
	mailer := services.NewMockMailer()

	return &testApp{
		router:  setupRouter(cfg, db, storage, mailer, zap.NewNop()),
		db:      db,
		storage: storage,
		mailer:  mailer,
	}
}

func (a *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "response should be successful: %s", w.Body.String())
	return envelope.Data
}

func (a *testApp) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	w := a.request(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":     email,
		"password":  "password123",
		"firstName": "Test",
		"lastName":  "Customer",
		"country":   "Kenya",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (a *testApp) loginAdmin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin := models.User{
		Email:     "admin@carbridge.com",
		Password:  string(hash),
		FirstName: "Admin",
		LastName:  "User",
		IsAdmin:   true,
	}
	require.NoError(t, a.db.Create(&admin).Error)

	w := a.request(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "admin@carbridge.com",
		"password": "admin123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Car Bridge API is running")
}

func TestQuotationToDeliveryJourney(t *testing.T) {
	app := newTestApp(t)

	customerToken := app.registerAndLogin(t, "customer@example.com")
	adminToken := app.loginAdmin(t)

	// Customer submits a vehicle quotation request
	w := app.request(t, http.MethodPost, "/api/quotations", customerToken, gin.H{
		"type": "vehicle",
		"details": gin.H{
			"make_model": "Toyota",
			"model":      "Land Cruiser",
			"year":       "2020",
			"country":    "Kenya",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quotation := decodeData(t, w)
	assert.Equal(t, "pending", quotation["status"])
	quotationID := fmt.Sprintf("%.0f", quotation["id"].(float64))

	// Accepting before the admin responds is rejected
	w = app.request(t, http.MethodPost, "/api/quotations/"+quotationID+"/accept", customerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Admin responds with a price breakdown
	w = app.request(t, http.MethodPut, "/api/admin/quotations/"+quotationID+"/response", adminToken, gin.H{
		"availability":      "Available",
		"estimatedDelivery": "6-8 weeks",
		"priceBreakdown": gin.H{
			"itemCost":     "¥1,000,000",
			"deliveryCost": "¥180,000",
			"tax":          "¥100,000",
			"totalCost":    "¥1,280,000",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Customer accepts, creating an order
	w = app.request(t, http.MethodPost, "/api/quotations/"+quotationID+"/accept", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	acceptData := decodeData(t, w)
	order, ok := acceptData["order"].(map[string]interface{})
	require.True(t, ok, "accept response should carry the created order")
	orderID, _ := order["orderId"].(string)
	require.NotEmpty(t, orderID)
	assert.Equal(t, "processing", order["status"])
	payment, ok := order["payment"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "¥1,280,000", payment["amount"])

	// Cancelling a non-pending quotation is rejected
	w = app.request(t, http.MethodDelete, "/api/quotations/"+quotationID, customerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The order appears in the customer's list
	w = app.request(t, http.MethodGet, "/api/orders/"+orderID, customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Admin moves the order forward
	w = app.request(t, http.MethodPut, "/api/admin/orders/"+orderID, adminToken, gin.H{
		"status": "shipped",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A backwards transition is rejected
	w = app.request(t, http.MethodPut, "/api/admin/orders/"+orderID, adminToken, gin.H{
		"status": "processing",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestGuestQuotationIntake(t *testing.T) {
	app := newTestApp(t)

	w := app.request(t, http.MethodPost, "/api/guest-quotations", "", gin.H{
		"type": "parts",
		"details": gin.H{
			"make_model":        "Nissan",
			"model":             "Patrol",
			"year":              "2018",
			"parts_description": "Front brake pads",
			"country":           "Tanzania",
			"contactName":       "Guest Buyer",
			"contactEmail":      "guest@example.com",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, true, data["isGuest"])
	assert.Nil(t, data["userId"])
}

func TestOwnershipScoping(t *testing.T) {
	app := newTestApp(t)

	ownerToken := app.registerAndLogin(t, "owner@example.com")
	otherToken := app.registerAndLogin(t, "other@example.com")

	w := app.request(t, http.MethodPost, "/api/quotations", ownerToken, gin.H{
		"type": "vehicle",
		"details": gin.H{
			"make_model": "Subaru",
			"model":      "Forester",
			"year":       "2019",
			"country":    "Uganda",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	quotation := decodeData(t, w)
	quotationID := fmt.Sprintf("%.0f", quotation["id"].(float64))

	// Someone else's quotation reads as missing, never as forbidden
	w = app.request(t, http.MethodGet, "/api/quotations/"+quotationID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.request(t, http.MethodGet, "/api/quotations/"+quotationID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGuards(t *testing.T) {
	app := newTestApp(t)

	customerToken := app.registerAndLogin(t, "plain@example.com")

	w := app.request(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.request(t, http.MethodGet, "/api/admin/users", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := app.loginAdmin(t)
	w = app.request(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/quotations", "/api/orders", "/api/auth/me"} {
		w := app.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "GET %s without token", path)
	}
}
