package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// WriteMIME renders env as an RFC 5322 message: a multipart/mixed body holding
// the HTML part followed by each attachment, base64 encoded.
func WriteMIME(w io.Writer, env *Envelope) error {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{address(env.From)})
	h.SetAddressList("To", []*mail.Address{address(env.To)})
	if env.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{address(env.ReplyTo)})
	}
	h.SetSubject(env.Subject)
	if env.MessageID != "" {
		h.SetMessageID(env.MessageID)
	} else if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("failed to create inline section: %w", err)
	}
	var bh mail.InlineHeader
	bh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	part, err := iw.CreatePart(bh)
	if err != nil {
		return fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := io.WriteString(part, env.HTMLBody); err != nil {
		return fmt.Errorf("failed to write body part: %w", err)
	}
	if err := part.Close(); err != nil {
		return fmt.Errorf("failed to close body part: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("failed to close inline section: %w", err)
	}

	for _, att := range env.Attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(att.ContentType, nil)
		ah.SetFilename(att.Filename)
		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := aw.Write(att.Content); err != nil {
			return fmt.Errorf("failed to write attachment %q: %w", att.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return fmt.Errorf("failed to close attachment part: %w", err)
		}
	}

	return mw.Close()
}

// RenderMIME returns the rendered message as bytes.
func RenderMIME(env *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMIME(&buf, env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AddressOf extracts the bare mailbox from a header value such as
// "Careers <hr@example.com>". Unparseable values are returned trimmed.
func AddressOf(value string) string {
	return address(value).Address
}

// address parses value leniently. Applicant supplied addresses are not format
// checked upstream, so a parse failure degrades to the raw value with any line
// breaks removed.
func address(value string) *mail.Address {
	if addr, err := mail.ParseAddress(value); err == nil {
		return addr
	}
	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(strings.TrimSpace(value))
	return &mail.Address{Address: cleaned}
}
