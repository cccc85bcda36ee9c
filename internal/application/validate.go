package application

import (
	"strings"
)

// Validate runs the submission checks in order and returns the first failure:
// file present, file type allowed, name and email present, position present,
// and a role for the "other" position.
func Validate(c Candidate) (*Submission, error) {
	if c.Resume == nil {
		return nil, ErrMissingFile
	}
	if !IsAllowedType(c.Resume.ContentType) {
		return nil, UnsupportedFileType(c.Resume.ContentType)
	}

	fullName := strings.TrimSpace(c.FullName)
	addr := strings.TrimSpace(c.Email)
	if fullName == "" || addr == "" {
		return nil, ErrMissingApplicantInfo
	}
	if c.Position == "" {
		return nil, ErrMissingPosition
	}

	otherRole := ""
	if c.Position == OtherPosition {
		otherRole = strings.TrimSpace(c.OtherRole)
		if otherRole == "" {
			return nil, ErrMissingOtherRole
		}
	}

	return &Submission{
		FullName:  fullName,
		Email:     addr,
		Position:  c.Position,
		OtherRole: otherRole,
		Message:   c.Message,
		RoleLabel: RoleLabel(c.Position, otherRole),
		Resume:    *c.Resume,
	}, nil
}

// RoleLabel resolves the human readable role: "Other – <role>" for the other
// position, the position verbatim otherwise.
func RoleLabel(position, otherRole string) string {
	if position == OtherPosition {
		return "Other – " + strings.TrimSpace(otherRole)
	}
	return position
}
