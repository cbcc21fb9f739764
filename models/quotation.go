package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Quotation statuses. The only forward path is pending -> responded ->
// ordered; pending quotations may instead be cancelled (hard delete).
const (
	QuotationPending   = "pending"
	QuotationResponded = "responded"
	QuotationOrdered   = "ordered"
)

// PriceBreakdown itemizes an admin quotation response. Amounts are free-form
// currency strings as entered by staff.
type PriceBreakdown struct {
	ItemCost     string `json:"itemCost"`
	DeliveryCost string `json:"deliveryCost"`
	Tax          string `json:"tax"`
	TotalCost    string `json:"totalCost"`
}

// QuotationResponse is the structured admin reply to a quotation. Present
// iff status is responded or ordered.
type QuotationResponse struct {
	Availability      string         `json:"availability"`
	EstimatedDelivery string         `json:"estimatedDelivery"`
	AdditionalNotes   string         `json:"additionalNotes,omitempty"`
	PriceBreakdown    PriceBreakdown `json:"priceBreakdown"`
}

// Value implements driver.Valuer for the JSON column
func (r QuotationResponse) Value() (driver.Value, error) {
	return jsonValue(r)
}

// Scan implements sql.Scanner for the JSON column
func (r *QuotationResponse) Scan(src interface{}) error {
	return jsonScan(r, src)
}

// Quotation is a customer's pre-order request for a price estimate on a
// vehicle or part
type Quotation struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	UserID        *uint              `gorm:"index" json:"userId"` // nil for guest quotations
	User          *User              `gorm:"foreignKey:UserID" json:"-"`
	Type          QuotationType      `gorm:"not null" json:"type"`
	Status        string             `gorm:"not null;default:'pending';index" json:"status"`
	IsGuest       bool               `gorm:"not null;default:false" json:"isGuest"`
	DateSubmitted time.Time          `gorm:"not null" json:"dateSubmitted"`
	Details       Details            `gorm:"type:json;not null" json:"details"`
	Response      *QuotationResponse `gorm:"type:json" json:"response,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt     `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Quotation model
func (Quotation) TableName() string {
	return "quotations"
}

// AdminQuotation is the admin-facing projection with the owning user
// denormalized into a user field
type AdminQuotation struct {
	Quotation
	User *UserSummary `json:"user"`
}

// ForAdmin reshapes a quotation for admin list and detail responses
func (q Quotation) ForAdmin() AdminQuotation {
	out := AdminQuotation{Quotation: q}
	out.Quotation.User = nil
	if q.User != nil {
		out.User = q.User.Summary()
	}
	return out
}
