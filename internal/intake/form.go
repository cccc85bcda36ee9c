package intake

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shineum/careers-relay/internal/application"
	"github.com/shineum/careers-relay/internal/email"
)

// Form field names.
const (
	fieldResume    = "resume"
	fieldFullName  = "fullName"
	fieldEmail     = "email"
	fieldPosition  = "position"
	fieldOtherRole = "otherRole"
	fieldMessage   = "message"
)

const (
	// maxFieldSize bounds each text field.
	maxFieldSize = 1 << 20

	// maxBodySize bounds the whole request: one résumé plus the text fields.
	maxBodySize = application.MaxResumeSize + 2<<20
)

// errRequestTooLarge reports a body that hit the request cap outside the
// résumé part.
var errRequestTooLarge = application.MalformedRequest("Request too large")

// readCandidate reads a multipart/form-data body into a Candidate. The file
// part is checked against the allow-set as soon as its header is seen and
// against the size cap while it is read, so a rejected upload is never
// buffered in full. A request that is not multipart yields an empty
// candidate, which validation rejects as a missing file.
func readCandidate(r *http.Request) (application.Candidate, error) {
	var c application.Candidate

	reader, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return c, nil
	}
	if err != nil {
		return c, application.MalformedRequest(err.Error())
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c, classifyReadError(err, errRequestTooLarge)
		}

		if err := readPart(part, &c); err != nil {
			part.Close()
			return c, err
		}
		part.Close()
	}

	return c, nil
}

func readPart(part *multipart.Part, c *application.Candidate) error {
	name := part.FormName()
	filename := part.FileName()

	if filename == "" {
		// A file input left empty is sent as a part without a filename.
		if name == fieldResume {
			return nil
		}
		value, err := readField(part)
		if err != nil {
			return err
		}
		assignField(c, name, value)
		return nil
	}

	if name != fieldResume || c.Resume != nil {
		return application.MalformedRequest("Unexpected field")
	}

	contentType := partContentType(part)
	if !application.IsAllowedType(contentType) {
		return application.UnsupportedFileType(contentType)
	}

	content, err := io.ReadAll(io.LimitReader(part, application.MaxResumeSize+1))
	if err != nil {
		return classifyReadError(err, application.ErrPayloadTooLarge)
	}
	if len(content) > application.MaxResumeSize {
		return application.ErrPayloadTooLarge
	}

	c.Resume = &email.Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     content,
	}
	return nil
}

func readField(part *multipart.Part) (string, error) {
	value, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", classifyReadError(err, errRequestTooLarge)
	}
	if len(value) > maxFieldSize {
		return "", application.MalformedRequest("Field value too long")
	}
	return string(value), nil
}

// assignField keeps the first value of each known field and ignores the rest.
func assignField(c *application.Candidate, name, value string) {
	var dst *string
	switch name {
	case fieldFullName:
		dst = &c.FullName
	case fieldEmail:
		dst = &c.Email
	case fieldPosition:
		dst = &c.Position
	case fieldOtherRole:
		dst = &c.OtherRole
	case fieldMessage:
		dst = &c.Message
	default:
		return
	}
	if *dst == "" {
		*dst = value
	}
}

// partContentType returns the declared media type of a file part, lower-cased
// and without parameters. Parts without one are treated as opaque bytes.
func partContentType(part *multipart.Part) string {
	raw := strings.TrimSpace(part.Header.Get("Content-Type"))
	if raw == "" {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw
	}
	return mediaType
}

// classifyReadError maps a body read failure to an input error. Hitting the
// request cap yields overLimit, which depends on the part being read.
func classifyReadError(err error, overLimit *application.InputError) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return overLimit
	}
	return application.MalformedRequest(fmt.Sprint(err))
}
