package models

import (
	"database/sql/driver"
	"time"
)

// Page types with managed content
const (
	PageHome     = "home"
	PageServices = "services"
	PageGuide    = "guide"
)

// ValidPageType reports whether s names a managed page
func ValidPageType(s string) bool {
	return s == PageHome || s == PageServices || s == PageGuide
}

// Section content types
const (
	SectionText  = "text"
	SectionImage = "image"
	SectionVideo = "video"
)

// SectionMetadata holds optional presentation hints for a section
type SectionMetadata struct {
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Section is one ordered block of a managed page
type Section struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Type     string           `json:"type"`
	Order    int              `json:"order"`
	Metadata *SectionMetadata `json:"metadata,omitempty"`
}

// SectionList is the JSON column holding a page's ordered sections
type SectionList []Section

func (l SectionList) Value() (driver.Value, error) {
	if l == nil {
		l = SectionList{}
	}
	return jsonValue(l)
}

func (l *SectionList) Scan(src interface{}) error { return jsonScan(l, src) }

// Content holds the editable sections of one storefront page. One row per
// page type, created lazily on first admin read.
type Content struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	PageID        string      `gorm:"uniqueIndex;not null" json:"pageId"`
	Type          string      `gorm:"uniqueIndex;not null" json:"type"`
	Sections      SectionList `gorm:"type:json;not null" json:"sections"`
	LastUpdated   time.Time   `gorm:"not null" json:"lastUpdated"`
	UpdatedBy     uint        `gorm:"not null" json:"updatedBy"`
	UpdatedByUser *User       `gorm:"foreignKey:UpdatedBy" json:"-"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// TableName specifies the table name for the Content model
func (Content) TableName() string {
	return "contents"
}
