package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts an HTML template body to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// If parsing fails, return the original content
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}

// EmailService sends quote lifecycle notification emails.
type EmailService struct {
	db *sql.DB
}

func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

const versionForkedTemplate = `
<div>
  <p>Hi {{recipient_name}},</p>
  <p>{{actor_name}} started editing quote <b>{{quote_number}}</b> and a new
  version <b>{{version_code}}</b> was created. Your original draft is untouched.</p>
  <p><a href="{{action_url}}">Open the quote</a> to review the new version.</p>
</div>`

// SendVersionForkedEmail notifies the owner of a quote that another user
// forked a new version of it.
func (es *EmailService) SendVersionForkedEmail(to string, data models.EmailData) error {
	subject := fmt.Sprintf("Quote %s: new version %s created", data.QuoteNumber, data.VersionCode)
	body := processTemplate(versionForkedTemplate, data)
	return es.sendEmail(to, subject, convertHTMLToText(body))
}

// processTemplate substitutes {{variable}} placeholders in a template string
func processTemplate(templateStr string, data models.EmailData) string {
	variables := map[string]string{
		"recipient_name": data.RecipientName,
		"quote_number":   data.QuoteNumber,
		"version_code":   data.VersionCode,
		"actor_name":     data.ActorName,
		"action_url":     data.ActionURL,
	}

	result := templateStr
	for key, value := range variables {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// sendEmail sends a plain text email over SMTP using SMTP_* env config
func (es *EmailService) sendEmail(to, subject, body string) error {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}

	if host == "" || user == "" {
		log.Printf("[email] SMTP not configured, skipping mail to %s", to)
		return nil
	}
	if port == "" {
		port = "587"
	}

	auth := smtp.PlainAuth("", user, password, host)

	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(host+":"+port, auth, from, []string{to}, msg)
}
