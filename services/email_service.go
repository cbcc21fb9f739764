package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	appConfig "github.com/carbridge/carbridge-api/config"
	"github.com/carbridge/carbridge-api/models"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

const (
	senderName       = "Car Bridge"
	sendAttempts     = 3
	sendRetryBackoff = 500 * time.Millisecond
)

// QuotationConfirmationData feeds the quotation-confirmation template
type QuotationConfirmationData struct {
	QuotationID string
	Type        string
	Details     models.Details
	UserName    string
}

// QuotationResponseData feeds the quotation-response template
type QuotationResponseData struct {
	QuotationID string
	Type        string
	Response    models.QuotationResponse
	UserName    string
}

// OrderConfirmationData feeds the order-confirmation template
type OrderConfirmationData struct {
	OrderID  string
	Type     string
	Payment  models.Payment
	UserName string
}

// ShippingUpdateData feeds the shipping-update template
type ShippingUpdateData struct {
	OrderID           string
	TrackingNumber    string
	Status            string
	EstimatedDelivery string
	UserName          string
}

// DeliveryConfirmationData feeds the delivery-confirmation template
type DeliveryConfirmationData struct {
	OrderID      string
	DeliveryDate string
	UserName     string
}

// Mailer renders a named template and dispatches HTML mail to one
// recipient. Business operations treat send failures as best-effort.
type Mailer interface {
	SendQuotationConfirmation(ctx context.Context, to string, data QuotationConfirmationData) error
	SendQuotationResponse(ctx context.Context, to string, data QuotationResponseData) error
	SendOrderConfirmation(ctx context.Context, to string, data OrderConfirmationData) error
	SendShippingUpdate(ctx context.Context, to string, data ShippingUpdateData) error
	SendDeliveryConfirmation(ctx context.Context, to string, data DeliveryConfirmationData) error
}

// EmailService implements Mailer over SMTP
type EmailService struct {
	dialer    *gomail.Dialer
	from      string
	templates *template.Template
	logger    *zap.Logger
}

// NewEmailService parses the embedded templates and configures the SMTP
// dialer
func NewEmailService(cfg *appConfig.Config, logger *zap.Logger) (*EmailService, error) {
	templates, err := template.ParseFS(emailTemplates, "templates/email/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	dialer := gomail.NewDialer(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPassword)
	dialer.SSL = cfg.EmailPort == 465

	return &EmailService{
		dialer:    dialer,
		from:      cfg.EmailUser,
		templates: templates,
		logger:    logger,
	}, nil
}

// Send renders the named template and dispatches it. Template-not-found is
// surfaced distinctly from transport failures; transport failures are
// retried with backoff before giving up.
func (s *EmailService) Send(ctx context.Context, to, subject, templateName string, data interface{}) error {
	tmpl := s.templates.Lookup(templateName + ".html")
	if tmpl == nil {
		return fmt.Errorf("email template %s not found", templateName)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template %s: %w", templateName, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, senderName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		done := make(chan error, 1)
		go func() {
			done <- s.dialer.DialAndSend(m)
		}()

		select {
		case <-ctx.Done():
			s.logger.Warn("email send cancelled",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(ctx.Err()))
			return fmt.Errorf("email send cancelled: %w", ctx.Err())
		case lastErr = <-done:
		}

		if lastErr == nil {
			s.logger.Info("email sent",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.String("template", templateName))
			return nil
		}

		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("email send cancelled: %w", ctx.Err())
			case <-time.After(sendRetryBackoff * time.Duration(attempt)):
			}
		}
	}

	s.logger.Error("failed to send email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("template", templateName),
		zap.Error(lastErr))
	return fmt.Errorf("failed to send email: %w", lastErr)
}

// SendQuotationConfirmation acknowledges a newly submitted quotation
func (s *EmailService) SendQuotationConfirmation(ctx context.Context, to string, data QuotationConfirmationData) error {
	subject := fmt.Sprintf("Quotation Request Received - %s", data.QuotationID)
	return s.Send(ctx, to, subject, "quotation-confirmation", data)
}

// SendQuotationResponse notifies the customer of an admin response
func (s *EmailService) SendQuotationResponse(ctx context.Context, to string, data QuotationResponseData) error {
	subject := fmt.Sprintf("Quotation Response - %s", data.QuotationID)
	return s.Send(ctx, to, subject, "quotation-response", data)
}

// SendOrderConfirmation confirms an order created from an accepted
// quotation
func (s *EmailService) SendOrderConfirmation(ctx context.Context, to string, data OrderConfirmationData) error {
	subject := fmt.Sprintf("Order Confirmation - %s", data.OrderID)
	return s.Send(ctx, to, subject, "order-confirmation", data)
}

// SendShippingUpdate notifies the customer of a tracking change
func (s *EmailService) SendShippingUpdate(ctx context.Context, to string, data ShippingUpdateData) error {
	subject := fmt.Sprintf("Shipping Update - Order %s", data.OrderID)
	return s.Send(ctx, to, subject, "shipping-update", data)
}

// SendDeliveryConfirmation notifies the customer their order was delivered
func (s *EmailService) SendDeliveryConfirmation(ctx context.Context, to string, data DeliveryConfirmationData) error {
	subject := fmt.Sprintf("Delivery Confirmation - Order %s", data.OrderID)
	return s.Send(ctx, to, subject, "delivery-confirmation", data)
}
