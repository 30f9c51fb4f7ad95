// Package notify sends transactional email. Delivery is best effort:
// callers fire it off and the rest of the request never depends on it.
package notify

import (
	"fmt"
	"io"

	"github.com/go-gomail/gomail"

	"mediconnect-server/internal/config"
)

// Mailer sends email over SMTP.
type Mailer struct {
	cfg config.SMTPConfig
}

// NewMailer creates a Mailer from SMTP configuration.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) send(msg *gomail.Message) error {
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// SendOTP mails a password-reset code.
func (m *Mailer) SendOTP(to, name, code string, ttlMinutes int) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password Reset OTP - MediConnect")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour password reset OTP is %s. It expires in %d minutes.\n\nIf you didn't request this, please ignore this email.\n\nMediConnect - Your Healthcare Partner\n",
		name, code, ttlMinutes))
	return m.send(msg)
}

// SendOrderInvoice mails the verified-order invoice PDF as an attachment.
func (m *Mailer) SendOrderInvoice(to, name string, invoice []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Order Invoice - MediConnect")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour order has been verified by our pharmacy. The invoice is attached.\n\nMediConnect - Your Healthcare Partner\n",
		name))
	msg.Attach("invoice.pdf", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(invoice)
		return err
	}))
	return m.send(msg)
}
