package graph

import (
	"encoding/base64"

	"github.com/shineum/careers-relay/internal/email"
)

// sendMailRequest is the top-level request body for the sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string            `json:"subject"`
	Body         messageBody       `json:"body"`
	ToRecipients []recipient       `json:"toRecipients"`
	ReplyTo      []recipient       `json:"replyTo,omitempty"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildSendMailRequest converts env into a sendMail request body.
func buildSendMailRequest(env *email.Envelope) *sendMailRequest {
	msg := sendMailMessage{
		Subject: env.Subject,
		Body: messageBody{
			ContentType: "html",
			Content:     env.HTMLBody,
		},
		ToRecipients: []recipient{{EmailAddress: emailAddress{Address: email.AddressOf(env.To)}}},
	}

	if env.ReplyTo != "" {
		msg.ReplyTo = []recipient{{EmailAddress: emailAddress{Address: email.AddressOf(env.ReplyTo)}}}
	}

	for _, att := range env.Attachments {
		msg.Attachments = append(msg.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	return &sendMailRequest{Message: msg, SaveToSentItems: true}
}
