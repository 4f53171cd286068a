package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type interestReceivedEmailData struct {
	baseEmailData
	ClientName   string
	PropertyName string
}

type reservationEmailData struct {
	baseEmailData
	ClientName   string
	PropertyName string
}

type commitmentEmailData struct {
	baseEmailData
	ClientName    string
	PropertyName  string
	AgreedPrice   string
	DepositAmount string
}

type agreementSignedEmailData struct {
	baseEmailData
	ClientName   string
	PropertyName string
}

type depositReceiptEmailData struct {
	baseEmailData
	ClientName        string
	PropertyName      string
	Amount            string
	Reference         string
	InstallmentNumber int
}

type handoverStartedEmailData struct {
	baseEmailData
	ClientName   string
	PropertyName string
	StageName    string
}

type handoverCompletedEmailData struct {
	baseEmailData
	ClientName   string
	PropertyName string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyKES(cents int64) string {
	return fmt.Sprintf("KES %.2f", float64(cents)/100)
}
