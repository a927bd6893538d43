package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
)

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func GetEmailConfig() *EmailConfig {
	return &EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

func SendEmail(to, subject, htmlBody string) error {
	config := GetEmailConfig()
	if config.Host == "" || config.Port == "" || config.From == "" {
		return fmt.Errorf("SMTP not configured")
	}

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		config.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	addr := config.Host + ":" + config.Port
	return smtp.SendMail(addr, auth, config.From, []string{to}, msg)
}

func firstName(name string) string {
	if name == "" {
		return "there"
	}
	return strings.Split(name, " ")[0]
}

func SendWelcomeEmail(email, name string) {
	go func() {
		subject := "Welcome!"
		body := fmt.Sprintf(`<h2>Welcome, %s!</h2>
<p>Thank you for creating your account. You can now:</p>
<ul>
<li>Browse the menu and place orders</li>
<li>Earn loyalty points on referrals and orders</li>
<li>Track your orders in real-time</li>
</ul>
<p>Bon appétit!</p>`, firstName(name))
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", email, err)
		}
	}()
}

func SendOrderConfirmation(email, name, orderNumber string, total float64) {
	go func() {
		subject := fmt.Sprintf("Order Confirmed - %s", orderNumber)
		body := fmt.Sprintf(`<h2>Order Confirmed!</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> has been placed successfully.</p>
<p>Order total: <strong>%.0f FCFA</strong></p>
<p>We'll notify you when your order status changes.</p>`, firstName(name), orderNumber, total)
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send order confirmation to %s: %v", email, err)
		}
	}()
}

func SendOrderStatusUpdate(email, name, orderNumber, status string) {
	go func() {
		subject := fmt.Sprintf("Order %s - Status Update", orderNumber)
		body := fmt.Sprintf(`<h2>Order Status Update</h2>
<p>Hi %s,</p>
<p>Your order <strong>%s</strong> status has been updated to: <strong>%s</strong></p>`,
			firstName(name), orderNumber, strings.ReplaceAll(status, "_", " "))
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send status update email to %s: %v", email, err)
		}
	}()
}

func SendPaymentReceipt(email, name, orderNumber, reference string, amount float64) {
	go func() {
		subject := fmt.Sprintf("Payment Received - %s", orderNumber)
		body := fmt.Sprintf(`<h2>Payment Received</h2>
<p>Hi %s,</p>
<p>We received your payment of <strong>%.0f FCFA</strong> for order <strong>%s</strong>.</p>
<p>Transaction reference: %s</p>
<p>Thank you!</p>`, firstName(name), amount, orderNumber, reference)
		if err := SendEmail(email, subject, body); err != nil {
			log.Printf("Failed to send payment receipt to %s: %v", email, err)
		}
	}()
}
