// Package email defines the outbound message model shared by every delivery channel.
package email

// Envelope is a fully assembled outgoing message ready for transmission.
type Envelope struct {
	From        string
	To          string
	ReplyTo     string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
	MessageID   string
}

// Attachment represents a file attached to an outgoing message.
// Content is referenced, not copied, from the request that produced it.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Size returns the attachment size in bytes.
func (a Attachment) Size() int {
	return len(a.Content)
}
