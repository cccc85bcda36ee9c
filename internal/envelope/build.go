// Package envelope turns a validated application into an outbound message.
package envelope

import (
	"strings"

	"github.com/shineum/careers-relay/internal/application"
	"github.com/shineum/careers-relay/internal/email"
)

// Builder assembles envelopes addressed from From to To.
type Builder struct {
	From string
	To   string
}

// Build returns the envelope for sub. The subject and Reply-To carry the
// applicant values verbatim; only the HTML body is escaped.
func (b Builder) Build(sub *application.Submission) *email.Envelope {
	return &email.Envelope{
		From:        b.From,
		To:          b.To,
		ReplyTo:     sub.Email,
		Subject:     Subject(sub),
		HTMLBody:    HTMLBody(sub),
		Attachments: []email.Attachment{sub.Resume},
	}
}

// Subject returns "New Application – <role> – <name>".
func Subject(sub *application.Submission) string {
	return "New Application – " + sub.RoleLabel + " – " + sub.FullName
}

// HTMLBody renders the notification body.
func HTMLBody(sub *application.Submission) string {
	var b strings.Builder

	b.WriteString("<p>New job application received.</p>\n")
	b.WriteString("<ul>\n")
	b.WriteString("  <li><b>Name:</b> " + Escape(sub.FullName) + "</li>\n")
	b.WriteString("  <li><b>Email:</b> " + Escape(sub.Email) + "</li>\n")
	b.WriteString("  <li><b>Position:</b> " + Escape(sub.RoleLabel) + "</li>\n")
	b.WriteString("</ul>\n")

	if sub.Message != "" {
		msg := strings.ReplaceAll(Escape(sub.Message), "\n", "<br/>")
		b.WriteString("<p><b>Message:</b><br/>" + msg + "</p>\n")
	}

	return b.String()
}
