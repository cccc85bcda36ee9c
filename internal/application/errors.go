package application

import (
	"errors"
	"fmt"
)

// Kind classifies a client input failure.
type Kind int

const (
	KindMissingFile Kind = iota + 1
	KindUnsupportedFileType
	KindPayloadTooLarge
	KindMalformedRequest
	KindMissingApplicantInfo
	KindMissingPosition
	KindMissingOtherRole
)

func (k Kind) String() string {
	switch k {
	case KindMissingFile:
		return "missing_file"
	case KindUnsupportedFileType:
		return "unsupported_file_type"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindMalformedRequest:
		return "malformed_request"
	case KindMissingApplicantInfo:
		return "missing_applicant_info"
	case KindMissingPosition:
		return "missing_position"
	case KindMissingOtherRole:
		return "missing_other_role"
	default:
		return "unknown"
	}
}

// InputError is a client input failure. Message is safe to show to the
// applicant verbatim.
type InputError struct {
	Kind    Kind
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// Sentinel input errors with fixed messages.
var (
	ErrMissingFile          = &InputError{Kind: KindMissingFile, Message: "Missing file"}
	ErrPayloadTooLarge      = &InputError{Kind: KindPayloadTooLarge, Message: "File too large. Max 10MB."}
	ErrMissingApplicantInfo = &InputError{Kind: KindMissingApplicantInfo, Message: "Missing name or email"}
	ErrMissingPosition      = &InputError{Kind: KindMissingPosition, Message: "Please select a position"}
	ErrMissingOtherRole     = &InputError{Kind: KindMissingOtherRole, Message: `Please specify the role for "Other"`}
)

// UnsupportedFileType reports an attachment whose MIME type is outside the allow-set.
func UnsupportedFileType(mimeType string) *InputError {
	return &InputError{
		Kind:    KindUnsupportedFileType,
		Message: fmt.Sprintf("Unsupported file type: %s", mimeType),
	}
}

// MalformedRequest reports a multipart body that could not be read.
func MalformedRequest(detail string) *InputError {
	return &InputError{
		Kind:    KindMalformedRequest,
		Message: fmt.Sprintf("Upload error: %s", detail),
	}
}

// KindOf returns the input error kind carried by err, or zero if err is not
// an input error.
func KindOf(err error) Kind {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}
