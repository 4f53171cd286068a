// Package email renders and delivers transactional emails for the
// acquisition lifecycle. Delivery goes through the Sender interface so the
// notification module never depends on a concrete provider.
package email

import (
	"context"

	"propsales_backend/platform/config"
)

type Sender interface {
	SendInterestReceivedEmail(ctx context.Context, toEmail, clientName, propertyName string) error
	SendReservationEmail(ctx context.Context, toEmail, clientName, propertyName string) error
	SendCommitmentEmail(ctx context.Context, toEmail, clientName, propertyName string, agreedPriceCents int64) error
	SendAgreementSignedEmail(ctx context.Context, toEmail, clientName, propertyName string) error
	SendDepositReceiptEmail(ctx context.Context, toEmail, clientName, propertyName, reference string, amountCents int64, installmentNumber int) error
	SendHandoverStartedEmail(ctx context.Context, toEmail, clientName, propertyName, stageName string) error
	SendHandoverCompletedEmail(ctx context.Context, toEmail, clientName, propertyName string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender satisfies Sender without delivering anything. Used when email is
// disabled so callers never branch on configuration.
type NoopSender struct{}

func (NoopSender) SendInterestReceivedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendReservationEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendCommitmentEmail(context.Context, string, string, string, int64) error {
	return nil
}

func (NoopSender) SendAgreementSignedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendDepositReceiptEmail(context.Context, string, string, string, string, int64, int) error {
	return nil
}

func (NoopSender) SendHandoverStartedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendHandoverCompletedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error {
	return nil
}

// NewSender builds the configured Sender. Email disabled yields a NoopSender.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
