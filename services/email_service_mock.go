package services

import (
	"context"
	"fmt"
	"sync"
)

// SentEmail records one dispatched message in the mock mailer
type SentEmail struct {
	To       string
	Template string
	Data     interface{}
}

// MockMailer is a Mailer that records sends instead of dialing SMTP
type MockMailer struct {
	Sent      []SentEmail
	FailSends bool // when set, every send reports a transport failure
	mu        sync.Mutex
}

// NewMockMailer creates a new mock mailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) record(to, template string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSends {
		return fmt.Errorf("mock send failure")
	}
	m.Sent = append(m.Sent, SentEmail{To: to, Template: template, Data: data})
	return nil
}

// SentCount returns how many messages were recorded
func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// LastSent returns the most recently recorded message
func (m *MockMailer) LastSent() (SentEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentEmail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

func (m *MockMailer) SendQuotationConfirmation(ctx context.Context, to string, data QuotationConfirmationData) error {
	return m.record(to, "quotation-confirmation", data)
}

func (m *MockMailer) SendQuotationResponse(ctx context.Context, to string, data QuotationResponseData) error {
	return m.record(to, "quotation-response", data)
}

func (m *MockMailer) SendOrderConfirmation(ctx context.Context, to string, data OrderConfirmationData) error {
	return m.record(to, "order-confirmation", data)
}

func (m *MockMailer) SendShippingUpdate(ctx context.Context, to string, data ShippingUpdateData) error {
	return m.record(to, "shipping-update", data)
}

func (m *MockMailer) SendDeliveryConfirmation(ctx context.Context, to string, data DeliveryConfirmationData) error {
	return m.record(to, "delivery-confirmation", data)
}
