package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"emiho-marketplace/internal/config"
	"emiho-marketplace/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
	"github.com/shopspring/decimal"
)

// Receipt is the purchase confirmation sent to a buyer
type Receipt struct {
	BuyerEmail       string
	ProductTitle     string
	Total            decimal.Decimal
	Currency         string
	PaymentReference string
}

// ReceiptNotifier delivers purchase receipts
type ReceiptNotifier interface {
	SendReceipt(ctx context.Context, receipt Receipt) error
}

// BrevoNotifier sends receipts as Brevo transactional emails
type BrevoNotifier struct {
	client      *brevo.APIClient
	fromEmail   string
	fromName    string
	serviceName string
	retryDelays []time.Duration
}

// NewReceiptNotifier returns a Brevo notifier, or nil when email is not configured
func NewReceiptNotifier(cfg *config.Config) ReceiptNotifier {
	if cfg.BrevoAPIKey == "" || cfg.BrevoFromEmail == "" {
		logging.Infof("Brevo not configured, purchase receipts are disabled")
		return nil
	}

	brevoCfg := brevo.NewConfiguration()
	brevoCfg.AddDefaultHeader("api-key", cfg.BrevoAPIKey)

	return &BrevoNotifier{
		client:      brevo.NewAPIClient(brevoCfg),
		fromEmail:   cfg.BrevoFromEmail,
		fromName:    cfg.BrevoFromName,
		serviceName: cfg.ServiceName,
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// SendReceipt sends the receipt, retrying on the schedule 1s, 5s, 30s
func (n *BrevoNotifier) SendReceipt(ctx context.Context, receipt Receipt) error {
	email := n.buildEmail(receipt)

	var lastErr error
	for attempt := 0; attempt < len(n.retryDelays); attempt++ {
		_, _, err := n.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
		if err == nil {
			logging.Infof("Receipt sent - to: %s, payment: %s, attempt: %d", receipt.BuyerEmail, receipt.PaymentReference, attempt+1)
			return nil
		}
		lastErr = err
		logging.Errorf("Receipt send failed - to: %s, payment: %s, attempt: %d, error: %v",
			receipt.BuyerEmail, receipt.PaymentReference, attempt+1, err)

		if attempt < len(n.retryDelays)-1 {
			select {
			case <-time.After(n.retryDelays[attempt]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("receipt not sent after %d attempts: %w", len(n.retryDelays), lastErr)
}

func (n *BrevoNotifier) buildEmail(receipt Receipt) brevo.SendSmtpEmail {
	amount := fmt.Sprintf("%s %s", receipt.Total.StringFixed(2), currencyLabel(receipt.Currency))
	title := html.EscapeString(receipt.ProductTitle)

	htmlContent := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>Your purchase</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px;">
				<h1 style="color: #333;">Thanks for your purchase</h1>
				<p style="color: #666; font-size: 16px;">You bought <strong>%s</strong> for %s.</p>
				<p style="color: #999; font-size: 12px;">Payment reference: %s</p>
			</div>
		</body>
		</html>
	`, title, amount, html.EscapeString(receipt.PaymentReference))

	textContent := fmt.Sprintf("Thanks for your purchase\n\nYou bought %s for %s.\n\nPayment reference: %s\n",
		receipt.ProductTitle, amount, receipt.PaymentReference)

	return brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  n.fromName,
			Email: n.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: receipt.BuyerEmail},
		},
		Subject:     fmt.Sprintf("Your %s receipt", n.serviceName),
		HtmlContent: htmlContent,
		TextContent: textContent,
	}
}

func currencyLabel(currency string) string {
	if currency == "" {
		return "USD"
	}
	return strings.ToUpper(currency)
}
