package application

import (
	"errors"
	"testing"

	"github.com/shineum/careers-relay/internal/email"
)

func pdfResume() *email.Attachment {
	return &email.Attachment{
		Filename:    "cv.pdf",
		ContentType: TypePDF,
		Content:     []byte("%PDF-1.7"),
	}
}

func TestValidate_OrderedFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Candidate
		want Kind
	}{
		{
			name: "missing file wins over everything",
			in:   Candidate{},
			want: KindMissingFile,
		},
		{
			name: "unsupported type checked before applicant fields",
			in: Candidate{
				Resume: &email.Attachment{Filename: "cv.png", ContentType: "image/png"},
			},
			want: KindUnsupportedFileType,
		},
		{
			name: "missing name",
			in:   Candidate{Email: "jane@x.com", Position: "backend", Resume: pdfResume()},
			want: KindMissingApplicantInfo,
		},
		{
			name: "whitespace email",
			in:   Candidate{FullName: "Jane", Email: "   ", Position: "backend", Resume: pdfResume()},
			want: KindMissingApplicantInfo,
		},
		{
			name: "missing position",
			in:   Candidate{FullName: "Jane", Email: "jane@x.com", Resume: pdfResume()},
			want: KindMissingPosition,
		},
		{
			name: "other without role",
			in:   Candidate{FullName: "Jane", Email: "jane@x.com", Position: "other", Resume: pdfResume()},
			want: KindMissingOtherRole,
		},
		{
			name: "other with whitespace role",
			in:   Candidate{FullName: "Jane", Email: "jane@x.com", Position: "other", OtherRole: " \t ", Resume: pdfResume()},
			want: KindMissingOtherRole,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sub, err := Validate(tt.in)
			if err == nil {
				t.Fatalf("expected error, got submission %+v", sub)
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("kind: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_UnsupportedTypeMessageNamesType(t *testing.T) {
	t.Parallel()

	_, err := Validate(Candidate{
		Resume: &email.Attachment{Filename: "x.exe", ContentType: "application/x-msdownload"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Unsupported file type: application/x-msdownload" {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestValidate_AllowedTypes(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{TypePDF, TypeDoc, TypeDocx} {
		_, err := Validate(Candidate{
			FullName: "Jane",
			Email:    "jane@x.com",
			Position: "backend",
			Resume:   &email.Attachment{Filename: "cv", ContentType: ct},
		})
		if err != nil {
			t.Errorf("type %q: unexpected error: %v", ct, err)
		}
	}
}

func TestValidate_OtherRoleIgnoredForKnownPosition(t *testing.T) {
	t.Parallel()

	sub, err := Validate(Candidate{
		FullName:  "Jane Doe",
		Email:     "jane@x.com",
		Position:  "frontend-engineer",
		OtherRole: "ignored",
		Resume:    pdfResume(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.RoleLabel != "frontend-engineer" {
		t.Errorf("RoleLabel: got %q, want %q", sub.RoleLabel, "frontend-engineer")
	}
	if sub.OtherRole != "" {
		t.Errorf("OtherRole: got %q, want empty", sub.OtherRole)
	}
}

func TestValidate_OtherRoleLabel(t *testing.T) {
	t.Parallel()

	resume := pdfResume()
	sub, err := Validate(Candidate{
		FullName:  "  Jane Doe ",
		Email:     "jane@x.com",
		Position:  "other",
		OtherRole: "  Data Engineer  ",
		Message:   "Hi",
		Resume:    resume,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.RoleLabel != "Other – Data Engineer" {
		t.Errorf("RoleLabel: got %q, want %q", sub.RoleLabel, "Other – Data Engineer")
	}
	if sub.FullName != "Jane Doe" {
		t.Errorf("FullName: got %q, want %q", sub.FullName, "Jane Doe")
	}
	if &sub.Resume.Content[0] != &resume.Content[0] {
		t.Error("résumé content should be shared, not copied")
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	if KindOf(errors.New("boom")) != 0 {
		t.Error("plain errors should have no kind")
	}
	wrapped := errors.Join(errors.New("context"), ErrPayloadTooLarge)
	if KindOf(wrapped) != KindPayloadTooLarge {
		t.Error("KindOf should unwrap joined errors")
	}
	if !errors.Is(wrapped, ErrPayloadTooLarge) {
		t.Error("sentinel should match with errors.Is")
	}
}

func TestValidate_TrimsApplicantFields(t *testing.T) {
	t.Parallel()

	sub, err := Validate(Candidate{
		FullName: "\tJane Doe  ",
		Email:    " jane@x.com\n",
		Position: "backend",
		Message:  "  indented\n",
		Resume:   pdfResume(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.FullName != "Jane Doe" {
		t.Errorf("FullName: got %q, want %q", sub.FullName, "Jane Doe")
	}
	if sub.Email != "jane@x.com" {
		t.Errorf("Email: got %q, want %q", sub.Email, "jane@x.com")
	}
	if sub.Message != "  indented\n" {
		t.Errorf("Message: got %q, want it verbatim", sub.Message)
	}
}
