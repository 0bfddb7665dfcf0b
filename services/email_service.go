package services

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/kitlocker/kitlocker-server/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// Mailer sends a single HTML email. Injected so services stay testable
// without a live SMTP server.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

type smtpMailer struct {
	server *mail.SMTPServer
	from   string
}

func NewSMTPMailer(cfg *config.Config) Mailer {
	server := mail.NewSMTPClient()
	server.Host = cfg.SMTPHost
	server.Port = cfg.SMTPPort
	server.Username = cfg.SMTPUser
	server.Password = cfg.SMTPPass
	if cfg.SMTPPort == 465 {
		server.Encryption = mail.EncryptionSSLTLS
	} else {
		server.Encryption = mail.EncryptionSTARTTLS
	}
	server.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	return &smtpMailer{server: server, from: cfg.SMTPFrom}
}

func (m *smtpMailer) Send(to, subject, htmlBody string) error {
	client, err := m.server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	msg := mail.NewMSG().
		SetFrom(m.from).
		AddTo(to).
		SetSubject(subject).
		SetBody(mail.TextHTML, htmlBody)
	if msg.Error != nil {
		return fmt.Errorf("failed to build email: %w", msg.Error)
	}

	if err := msg.Send(client); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
