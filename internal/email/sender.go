// Package email delivers transactional notifications for the marketplace.
package email

import (
	"context"

	"bookmarket_backend/platform/config"
)

// Sender abstracts email delivery so services don't care about transport.
type Sender interface {
	// SendBookRequestEmail notifies a seller that someone requested one of
	// their listed books.
	SendBookRequestEmail(ctx context.Context, toEmail, requesterName, bookTitle, message string) error
}

// NoopSender is used when email delivery is disabled. It succeeds silently.
type NoopSender struct{}

func (NoopSender) SendBookRequestEmail(_ context.Context, _, _, _, _ string) error {
	return nil
}

// NewSender picks the sender implementation based on configuration.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(), cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
	)
}
