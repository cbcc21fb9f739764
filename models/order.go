package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Order statuses. Transitions are monotonic: processing -> shipped ->
// delivered, no regression.
const (
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Shipping quote statuses
const (
	QuotePending  = "pending"
	QuoteAccepted = "accepted"
	QuoteRejected = "rejected"
)

var orderRank = map[string]int{
	OrderProcessing: 0,
	OrderShipped:    1,
	OrderDelivered:  2,
}

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	_, ok := orderRank[s]
	return ok
}

// CanTransition reports whether an order may move from one status to
// another. Staying put is allowed; moving backwards is not.
func CanTransition(from, to string) bool {
	fromRank, ok := orderRank[from]
	if !ok {
		return false
	}
	toRank, ok := orderRank[to]
	if !ok {
		return false
	}
	return toRank >= fromRank
}

// Payment is the manual-receipt payment sub-record
type Payment struct {
	Amount        string    `json:"amount"`
	ReceiptURL    string    `json:"receiptUrl"`
	DateSubmitted time.Time `json:"dateSubmitted"`
	Status        string    `json:"status"`
}

func (p Payment) Value() (driver.Value, error) { return jsonValue(p) }
func (p *Payment) Scan(src interface{}) error  { return jsonScan(p, src) }

// ShippingStep is one entry in the manually maintained tracking timeline
type ShippingStep struct {
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// Shipping is the carrier/tracking sub-record. Tracking data is entered by
// staff, not fetched from a carrier.
type Shipping struct {
	TrackingNumber    string         `json:"trackingNumber"`
	Carrier           string         `json:"carrier"`
	Status            string         `json:"status"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
	Steps             []ShippingStep `json:"steps"`
}

func (s Shipping) Value() (driver.Value, error) { return jsonValue(s) }
func (s *Shipping) Scan(src interface{}) error  { return jsonScan(s, src) }

// ShippingAddress is the customer-supplied delivery address
type ShippingAddress struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a ShippingAddress) Value() (driver.Value, error) { return jsonValue(a) }
func (a *ShippingAddress) Scan(src interface{}) error  { return jsonScan(a, src) }

// ShippingQuote is the staff-proposed shipping method and cost
type ShippingQuote struct {
	Method        string `json:"method"`
	Cost          string `json:"cost"`
	EstimatedDays string `json:"estimatedDays"`
	Status        string `json:"status"`
}

func (q ShippingQuote) Value() (driver.Value, error) { return jsonValue(q) }
func (q *ShippingQuote) Scan(src interface{}) error  { return jsonScan(q, src) }

// DeliveryConfirmation is set once, when the order transitions to
// delivered with at least one proof-of-delivery image
type DeliveryConfirmation struct {
	Images      []string  `json:"images"`
	ConfirmedAt time.Time `json:"confirmedAt"`
	Feedback    string    `json:"feedback,omitempty"`
}

func (d DeliveryConfirmation) Value() (driver.Value, error) { return jsonValue(d) }
func (d *DeliveryConfirmation) Scan(src interface{}) error  { return jsonScan(d, src) }

// Order is a confirmed purchase created from an accepted quotation, tracked
// through shipping to delivery
type Order struct {
	ID                   uint                  `gorm:"primaryKey" json:"id"`
	OrderID              string                `gorm:"uniqueIndex;not null" json:"orderId"` // public identifier
	UserID               uint                  `gorm:"not null;index" json:"userId"`
	User                 *User                 `gorm:"foreignKey:UserID" json:"-"`
	QuotationID          uint                  `gorm:"not null;index" json:"quotationId"`
	Type                 QuotationType         `gorm:"not null" json:"type"`
	Status               string                `gorm:"not null;default:'processing';index" json:"status"`
	DateOrdered          time.Time             `gorm:"not null" json:"dateOrdered"`
	Details              Details               `gorm:"type:json;not null" json:"details"`
	Payment              Payment               `gorm:"type:json" json:"payment"`
	Shipping             *Shipping             `gorm:"type:json" json:"shipping,omitempty"`
	ShippingAddress      *ShippingAddress      `gorm:"type:json" json:"shippingAddress,omitempty"`
	ShippingQuote        *ShippingQuote        `gorm:"type:json" json:"shippingQuote,omitempty"`
	DeliveryConfirmation *DeliveryConfirmation `gorm:"type:json" json:"deliveryConfirmation,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt        `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// NewOrderID derives the public order identifier from the quotation it was
// created from and the order timestamp
func NewOrderID(quotationID uint, at time.Time) string {
	return fmt.Sprintf("ORD-%d-%d", quotationID, at.UnixMilli())
}

// AdminOrder is the admin-facing projection with the owning user
// denormalized into a user field
type AdminOrder struct {
	Order
	User *UserSummary `json:"user"`
}

// ForAdmin reshapes an order for admin list and detail responses
func (o Order) ForAdmin() AdminOrder {
	out := AdminOrder{Order: o}
	out.Order.User = nil
	if o.User != nil {
		out.User = o.User.Summary()
	}
	return out
}
