package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"picnichub/internal/notify"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

const layoutHead = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="background: {{.Color}}; color: white; padding: 20px; text-align: center;">{{.Heading}}</h1>
`

const layoutFoot = `<p>Best regards,<br>Picnic Hub Team</p>
<p style="color: #999; font-size: 12px; text-align: center;">This is an automated email. Please do not reply.</p>
</div>
</body>
</html>`

func mustBody(name, content string) *template.Template {
	return template.Must(template.New(name).Parse(layoutHead + content + layoutFoot))
}

var templates = map[notify.Kind]mailTemplate{
	notify.KindSubmissionReceived: {
		subject: "Registration received for %s",
		body: mustBody("submission", `<p>Hi {{.In.ParticipantName}},</p>
<p>We received your registration for <strong>{{.In.PicnicTitle}}</strong>.</p>
<p>The organizer will verify your payment and you will get another email once your spot is approved.</p>
`),
	},
	notify.KindAdminNewRegistration: {
		subject: "New registration for %s",
		body: mustBody("admin", `<p>A new registration is waiting for review.</p>
<p><strong>Picnic:</strong> {{.In.PicnicTitle}}<br>
<strong>Name:</strong> {{.In.ParticipantName}}<br>
<strong>Email:</strong> {{.In.ParticipantEmail}}<br>
<strong>Phone:</strong> {{.In.Phone}}</p>
`),
	},
	notify.KindApproved: {
		subject: "Your Registration for %s - APPROVED!",
		body: mustBody("approved", `<p>Hi {{.In.ParticipantName}},</p>
<p>Great news! Your registration for <strong>{{.In.PicnicTitle}}</strong> has been approved.</p>
{{if .In.PicnicDate}}<p><strong>Event Date:</strong> {{.In.PicnicDate}}</p>{{end}}
`),
	},
	notify.KindRejected: {
		subject: "Your Registration for %s - Not Approved",
		body: mustBody("rejected", `<p>Hi {{.In.ParticipantName}},</p>
<p>Thank you for your interest in <strong>{{.In.PicnicTitle}}</strong>. Your registration has not been approved.</p>
<p style="border-left: 4px solid #ef4444; padding: 15px;"><strong>Reason:</strong><br>{{.In.Reason}}</p>
`),
	},
}

var headings = map[notify.Kind]struct{ heading, color string }{
	notify.KindSubmissionReceived:   {"Registration Received", "#10b981"},
	notify.KindAdminNewRegistration: {"New Registration", "#3b82f6"},
	notify.KindApproved:             {"Registration Approved!", "#10b981"},
	notify.KindRejected:             {"Registration Status Update", "#ef4444"},
}

// Render produces the subject line and HTML body for an intent.
func Render(in notify.Intent) (string, string, error) {
	tpl, ok := templates[in.Kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification kind %q", in.Kind)
	}

	h := headings[in.Kind]
	var buf bytes.Buffer
	err := tpl.body.Execute(&buf, struct {
		In      notify.Intent
		Heading string
		Color   template.CSS
	}{In: in, Heading: h.heading, Color: template.CSS(h.color)})
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", in.Kind, err)
	}

	subject := fmt.Sprintf(tpl.subject, sanitizeHeader(in.PicnicTitle))
	return subject, buf.String(), nil
}

func sanitizeHeader(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
