package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbridge/carbridge-api/models"
	"github.com/carbridge/carbridge-api/services"
)

func newAdminOrderController(t *testing.T) (*AdminOrderController, *services.MockMailer) {
	t.Helper()
	db := setupTestDB(t)
	mailer := services.NewMockMailer()
	return NewAdminOrderController(db, mailer, testLogger()), mailer
}

func TestAdminGetAllOrders(t *testing.T) {
	controller, _ := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "adminorders@example.com", false)

	createOrder(t, controller.db, user, models.Order{QuotationID: 1, OrderID: "ORD-1-201"})
	createOrder(t, controller.db, user, models.Order{QuotationID: 2, OrderID: "ORD-2-202"})

	router := setupTestRouter()
	router.GET("/admin/orders", controller.GetAll)

	w := performJSONRequest(t, router, http.MethodGet, "/admin/orders", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := parseResponse(t, w)["data"].([]interface{})
	require.Len(t, list, 2)

	first := list[0].(map[string]interface{})
	owner := first["user"].(map[string]interface{})
	assert.Equal(t, "adminorders@example.com", owner["email"])
}

func TestAdminGetOrderByID(t *testing.T) {
	controller, _ := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "adminorder@example.com", false)
	order := createOrder(t, controller.db, user, models.Order{QuotationID: 3, OrderID: "ORD-3-203"})

	router := setupTestRouter()
	router.GET("/admin/orders/:orderId", controller.GetByID)

	w := performJSONRequest(t, router, http.MethodGet, "/admin/orders/"+order.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := parseResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, order.OrderID, data["orderId"])

	w = performJSONRequest(t, router, http.MethodGet, "/admin/orders/ORD-0-0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", responseErrorCode(parseResponse(t, w)))
}

func TestAdminUpdateOrder(t *testing.T) {
	tests := []struct {
		name          string
		initialStatus string
		body          map[string]interface{}
		wantStatus    int
		wantError     string
	}{
		{
			name:          "forward transition",
			initialStatus: models.OrderProcessing,
			body:          map[string]interface{}{"status": models.OrderShipped},
			wantStatus:    http.StatusOK,
		},
		{
			name:          "same status is allowed",
			initialStatus: models.OrderShipped,
			body:          map[string]interface{}{"status": models.OrderShipped},
			wantStatus:    http.StatusOK,
		},
		{
			name:          "backwards transition",
			initialStatus: models.OrderDelivered,
			body:          map[string]interface{}{"status": models.OrderShipped},
			wantStatus:    http.StatusConflict,
			wantError:     "INVALID_TRANSITION",
		},
		{
			name:          "unknown status",
			initialStatus: models.OrderProcessing,
			body:          map[string]interface{}{"status": "teleported"},
			wantStatus:    http.StatusBadRequest,
			wantError:     "VALIDATION_ERROR",
		},
		{
			name:          "missing status",
			initialStatus: models.OrderProcessing,
			body:          map[string]interface{}{},
			wantStatus:    http.StatusBadRequest,
			wantError:     "VALIDATION_ERROR",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller, _ := newAdminOrderController(t)
			user := createTestUser(t, controller.db, "update-order@example.com", false)
			order := createOrder(t, controller.db, user, models.Order{
				QuotationID: uint(i + 1),
				OrderID:     fmt.Sprintf("ORD-%d-300", i+1),
				Status:      tt.initialStatus,
			})

			router := setupTestRouter()
			router.PUT("/admin/orders/:orderId", controller.Update)

			w := performJSONRequest(t, router, http.MethodPut, "/admin/orders/"+order.OrderID, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, responseErrorCode(parseResponse(t, w)))
			}
		})
	}
}

func TestAdminUpdateOrderReplacesShipping(t *testing.T) {
	controller, mailer := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "ship-order@example.com", false)
	order := createOrder(t, controller.db, user, models.Order{
		QuotationID: 4,
		OrderID:     "ORD-4-204",
		Shipping:    &models.Shipping{TrackingNumber: "OLD-1", Carrier: "NYK", Steps: []models.ShippingStep{}},
	})

	router := setupTestRouter()
	router.PUT("/admin/orders/:orderId", controller.Update)

	w := performJSONRequest(t, router, http.MethodPut, "/admin/orders/"+order.OrderID, map[string]interface{}{
		"status": models.OrderShipped,
		"shipping": map[string]interface{}{
			"trackingNumber":    "NYK-7788",
			"carrier":           "NYK Line",
			"status":            "In Transit",
			"estimatedDelivery": "2026-10-01T00:00:00Z",
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Order
	require.NoError(t, controller.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderShipped, stored.Status)
	require.NotNil(t, stored.Shipping)
	assert.Equal(t, "NYK-7788", stored.Shipping.TrackingNumber)
	assert.NotNil(t, stored.Shipping.Steps)
	assert.Empty(t, stored.Shipping.Steps)

	// Shipping the order notifies the customer with the tracking details
	assert.Eventually(t, func() bool {
		return mailer.SentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	sent, ok := mailer.LastSent()
	require.True(t, ok)
	assert.Equal(t, "shipping-update", sent.Template)
	assert.Equal(t, "ship-order@example.com", sent.To)
}

func TestAdminUpdateOrderDeliveredEmail(t *testing.T) {
	controller, mailer := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "delivered@example.com", false)
	order := createOrder(t, controller.db, user, models.Order{
		QuotationID: 5,
		OrderID:     "ORD-5-205",
		Status:      models.OrderShipped,
	})

	router := setupTestRouter()
	router.PUT("/admin/orders/:orderId", controller.Update)

	w := performJSONRequest(t, router, http.MethodPut, "/admin/orders/"+order.OrderID,
		map[string]interface{}{"status": models.OrderDelivered})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Eventually(t, func() bool {
		sent, ok := mailer.LastSent()
		return ok && sent.Template == "delivery-confirmation"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAdminUpdateShipping(t *testing.T) {
	controller, mailer := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "tracking@example.com", false)
	order := createOrder(t, controller.db, user, models.Order{QuotationID: 6, OrderID: "ORD-6-206"})

	router := setupTestRouter()
	router.PUT("/admin/orders/:orderId/shipping", controller.UpdateShipping)

	w := performJSONRequest(t, router, http.MethodPut, "/admin/orders/"+order.OrderID+"/shipping",
		map[string]interface{}{
			"trackingNumber": "MOL-4521",
			"carrier":        "MOL",
			"status":         "Departed Port",
			"steps": []map[string]interface{}{
				{"status": "Departed Port", "location": "Yokohama", "description": "Vessel departed"},
			},
		})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.Order
	require.NoError(t, controller.db.First(&stored, order.ID).Error)
	require.NotNil(t, stored.Shipping)
	assert.Equal(t, "MOL-4521", stored.Shipping.TrackingNumber)
	require.Len(t, stored.Shipping.Steps, 1)
	assert.Equal(t, "Yokohama", stored.Shipping.Steps[0].Location)

	assert.Eventually(t, func() bool {
		return mailer.SentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	sent, _ := mailer.LastSent()
	assert.Equal(t, "shipping-update", sent.Template)

	w = performJSONRequest(t, router, http.MethodPut, "/admin/orders/ORD-0-0/shipping",
		map[string]interface{}{"trackingNumber": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminOrderStats(t *testing.T) {
	controller, _ := newAdminOrderController(t)
	user := createTestUser(t, controller.db, "ostats@example.com", false)

	createOrder(t, controller.db, user, models.Order{
		QuotationID: 10, OrderID: "ORD-10-210",
		Type:    models.TypeVehicle,
		Payment: models.Payment{Amount: "¥100,000", Status: "paid"},
	})
	createOrder(t, controller.db, user, models.Order{
		QuotationID: 11, OrderID: "ORD-11-211",
		Type:    models.TypeVehicle,
		Status:  models.OrderShipped,
		Payment: models.Payment{Amount: "not a number"},
	})
	createOrder(t, controller.db, user, models.Order{
		QuotationID: 12, OrderID: "ORD-12-212",
		Type:    models.TypeParts,
		Status:  models.OrderDelivered,
		Details: models.Details{Parts: &models.PartsDetails{MakeModel: "Honda", PartsDescription: "Clutch"}},
		Payment: models.Payment{Amount: "¥50,000", Status: "paid"},
	})

	router := setupTestRouter()
	router.GET("/admin/orders/stats", controller.GetStats)

	w := performJSONRequest(t, router, http.MethodGet, "/admin/orders/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := parseResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total"])

	byStatus := data["byStatus"].(map[string]interface{})
	assert.Equal(t, float64(1), byStatus["processing"])
	assert.Equal(t, float64(1), byStatus["shipped"])
	assert.Equal(t, float64(1), byStatus["delivered"])

	byType := data["byType"].(map[string]interface{})
	assert.Equal(t, float64(2), byType["vehicle"])
	assert.Equal(t, float64(1), byType["parts"])

	// The unparseable amount counts as zero
	assert.Equal(t, float64(150000), data["revenue"])

	recent := data["recentOrders"].([]interface{})
	assert.Len(t, recent, 3)
}
