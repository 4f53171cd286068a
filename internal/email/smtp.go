package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface over a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendInterestReceivedEmail(ctx context.Context, toEmail, clientName, propertyName string) error {
	content, err := renderEmailTemplate("interest_received.html", interestReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Interest received",
			Heading: "We have received your interest",
		},
		ClientName:   clientName,
		PropertyName: propertyName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectInterestReceived, content)
}

func (s *SMTPSender) SendReservationEmail(ctx context.Context, toEmail, clientName, propertyName string) error {
	content, err := renderEmailTemplate("reservation.html", reservationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Property reserved",
			Heading: "Your reservation is in place",
		},
		ClientName:   clientName,
		PropertyName: propertyName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectReservationFmt, propertyName), content)
}

func (s *SMTPSender) SendCommitmentEmail(ctx context.Context, toEmail, clientName, propertyName string, agreedPriceCents int64) error {
	content, err := renderEmailTemplate("commitment.html", commitmentEmailData{
		baseEmailData: baseEmailData{
			Title:   "Commitment confirmed",
			Heading: "Your commitment is confirmed",
		},
		ClientName:     clientName,
		PropertyName:   propertyName,
		AgreedPrice:    formatCurrencyKES(agreedPriceCents),
		DepositAmount:  formatCurrencyKES(agreedPriceCents / 10),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectCommitmentFmt, propertyName), content)
}

func (s *SMTPSender) SendAgreementSignedEmail(ctx context.Context, toEmail, clientName, propertyName string) error {
	content, err := renderEmailTemplate("agreement_signed.html", agreementSignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Agreement signed",
			Heading: "Your purchase agreement is signed",
		},
		ClientName:   clientName,
		PropertyName: propertyName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAgreementSignedFmt, propertyName), content)
}

func (s *SMTPSender) SendDepositReceiptEmail(ctx context.Context, toEmail, clientName, propertyName, reference string, amountCents int64, installmentNumber int) error {
	content, err := renderEmailTemplate("deposit_receipt.html", depositReceiptEmailData{
		baseEmailData: baseEmailData{
			Title:   "Payment received",
			Heading: "Your deposit has been verified",
		},
		ClientName:        clientName,
		PropertyName:      propertyName,
		Amount:            formatCurrencyKES(amountCents),
		Reference:         reference,
		InstallmentNumber: installmentNumber,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDepositReceiptFmt, propertyName), content)
}

func (s *SMTPSender) SendHandoverStartedEmail(ctx context.Context, toEmail, clientName, propertyName, stageName string) error {
	content, err := renderEmailTemplate("handover_started.html", handoverStartedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Handover started",
			Heading: "Your property handover has begun",
		},
		ClientName:   clientName,
		PropertyName: propertyName,
		StageName:    stageName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectHandoverStartedFmt, propertyName), content)
}

func (s *SMTPSender) SendHandoverCompletedEmail(ctx context.Context, toEmail, clientName, propertyName string) error {
	content, err := renderEmailTemplate("handover_completed.html", handoverCompletedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Handover complete",
			Heading: "Congratulations, your handover is complete",
		},
		ClientName:   clientName,
		PropertyName: propertyName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectHandoverCompletedFmt, propertyName), content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}
