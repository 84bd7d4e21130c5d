// internal/workers/notification/render-email/renderer.go
package renderemail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"connect-notifier/internal/models"
)

const brandName = "Community Connect"

// templateData is what both templates see.
type templateData struct {
	Brand        string
	EventTitle   string
	Organization string
	SenderName   string
	Message      string
}

var htmlTemplate = htmltemplate.Must(htmltemplate.New("chat-message").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>New chat message</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f6f8;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Helvetica,Arial,sans-serif;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f6f8;padding:24px 0;">
<tr><td align="center">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="max-width:600px;background-color:#ffffff;border-radius:8px;overflow:hidden;">
<tr><td style="background-color:#2563eb;padding:20px 32px;">
<h1 style="margin:0;font-size:20px;color:#ffffff;">{{.Brand}}</h1>
</td></tr>
<tr><td style="padding:32px;">
<h2 style="margin:0 0 8px 0;font-size:18px;color:#111827;">{{.EventTitle}}{{if .Organization}} - {{.Organization}}{{end}}</h2>
<p style="margin:0 0 16px 0;font-size:14px;color:#6b7280;">New message from <strong>{{.SenderName}}</strong></p>
<div style="padding:16px;background-color:#f9fafb;border-left:4px solid #2563eb;border-radius:4px;font-size:15px;color:#111827;white-space:pre-wrap;">{{.Message}}</div>
<p style="margin:24px 0 0 0;font-size:14px;color:#374151;">Open the event chat in {{.Brand}} to reply.</p>
</td></tr>
<tr><td style="padding:16px 32px;background-color:#f9fafb;font-size:12px;color:#9ca3af;">
You are receiving this email because you joined this event on {{.Brand}}.
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`))

var textTemplate = texttemplate.Must(texttemplate.New("chat-message-text").Parse(
	`{{.EventTitle}}{{if .Organization}} - {{.Organization}}{{end}}
New message from {{.SenderName}}:

{{.Message}}

Open the event chat in {{.Brand}} to reply.
`))

// Subject returns the email subject for n.
func Subject(n models.Notification) string {
	return fmt.Sprintf("New message in \"%s\" chat", n.EventTitle)
}

// Render returns the subject and HTML body for n. User-supplied fields are
// HTML-escaped.
func Render(n models.Notification) (subject, html string) {
	var buf bytes.Buffer
	// String-only data into a bytes.Buffer; Execute cannot fail here.
	_ = htmlTemplate.Execute(&buf, dataFor(n))
	return Subject(n), buf.String()
}

// RenderText returns a plain-text alternative body for n.
func RenderText(n models.Notification) string {
	var buf bytes.Buffer
	_ = textTemplate.Execute(&buf, dataFor(n))
	return buf.String()
}

func dataFor(n models.Notification) templateData {
	return templateData{
		Brand:        brandName,
		EventTitle:   n.EventTitle,
		Organization: strings.TrimSpace(n.OrganizationName),
		SenderName:   n.SenderName,
		Message:      n.Message,
	}
}
