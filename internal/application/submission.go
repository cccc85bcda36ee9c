// Package application models a job application submission and the ordered
// checks it must pass before anything is sent.
package application

import (
	"github.com/shineum/careers-relay/internal/email"
)

// OtherPosition is the position value that requires a free-text role.
const OtherPosition = "other"

// MaxResumeSize is the largest résumé accepted, in bytes.
const MaxResumeSize = 10 << 20

// Allowed résumé MIME types.
const (
	TypePDF  = "application/pdf"
	TypeDoc  = "application/msword"
	TypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var allowedTypes = map[string]struct{}{
	TypePDF:  {},
	TypeDoc:  {},
	TypeDocx: {},
}

// IsAllowedType reports whether mimeType is in the résumé allow-set.
func IsAllowedType(mimeType string) bool {
	_, ok := allowedTypes[mimeType]
	return ok
}

// Candidate is an unvalidated submission as read off the wire.
// Resume is nil when the request carried no file.
type Candidate struct {
	FullName  string
	Email     string
	Position  string
	OtherRole string
	Message   string
	Resume    *email.Attachment
}

// Submission is a candidate that passed every check in Validate.
type Submission struct {
	// FullName and Email hold the trimmed inputs, so the subject line and
	// Reply-To never carry surrounding whitespace. Message is kept verbatim.
	FullName string
	Email    string

	Position  string
	OtherRole string
	Message   string
	RoleLabel string
	Resume    email.Attachment
}
