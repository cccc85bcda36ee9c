package graph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/email"
)

func testEnvelope() *email.Envelope {
	return &email.Envelope{
		From:     "hr@example.com",
		To:       "Hiring <jobs@example.com>",
		ReplyTo:  "jane@x.com",
		Subject:  "New Application – Backend – Jane Doe",
		HTMLBody: "<p>hello</p>",
		Attachments: []email.Attachment{
			{Filename: "cv.pdf", ContentType: "application/pdf", Content: []byte("pdf-content")},
		},
	}
}

func TestBuildSendMailRequest(t *testing.T) {
	t.Parallel()

	req := buildSendMailRequest(testEnvelope())

	if req.Message.Subject != "New Application – Backend – Jane Doe" {
		t.Errorf("Subject: got %q", req.Message.Subject)
	}
	if req.Message.Body.ContentType != "html" {
		t.Errorf("Body.ContentType: got %q, want %q", req.Message.Body.ContentType, "html")
	}
	if len(req.Message.ToRecipients) != 1 || req.Message.ToRecipients[0].EmailAddress.Address != "jobs@example.com" {
		t.Errorf("ToRecipients: got %+v", req.Message.ToRecipients)
	}
	if len(req.Message.ReplyTo) != 1 || req.Message.ReplyTo[0].EmailAddress.Address != "jane@x.com" {
		t.Errorf("ReplyTo: got %+v", req.Message.ReplyTo)
	}
	if len(req.Message.Attachments) != 1 {
		t.Fatalf("Attachments count: got %d, want 1", len(req.Message.Attachments))
	}
	att := req.Message.Attachments[0]
	if att.ODataType != "#microsoft.graph.fileAttachment" {
		t.Errorf("ODataType: got %q", att.ODataType)
	}
	if att.Name != "cv.pdf" || att.ContentType != "application/pdf" {
		t.Errorf("attachment: got %+v", att)
	}
	if att.ContentBytes != "cGRmLWNvbnRlbnQ=" {
		t.Errorf("ContentBytes: got %q", att.ContentBytes)
	}
}

func TestBuildSendMailRequest_NoReplyTo(t *testing.T) {
	t.Parallel()

	env := testEnvelope()
	env.ReplyTo = ""

	data, err := json.Marshal(buildSendMailRequest(env))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg := decoded["message"].(map[string]any)
	if _, ok := msg["replyTo"]; ok {
		t.Error("replyTo should be omitted when empty")
	}
}

type graphFixture struct {
	tokenCalls atomic.Int32
	sendCalls  atomic.Int32
	tokenCode  int
	sendCode   int
}

func newGraphFixture(t *testing.T, f *graphFixture) *Channel {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if f.tokenCode != 0 && f.tokenCode != http.StatusOK {
			w.WriteHeader(f.tokenCode)
			json.NewEncoder(w).Encode(tokenErrorResponse{Error: "invalid_client"})
			return
		}
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "tok", ExpiresIn: 3600})
	}))
	t.Cleanup(tokenSrv.Close)

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.sendCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization: got %q", r.Header.Get("Authorization"))
		}
		var body sendMailRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if f.sendCode != 0 && f.sendCode != http.StatusAccepted {
			w.WriteHeader(f.sendCode)
			w.Write([]byte(`{"error":{"code":"ErrorSendAsDenied","message":"denied"}}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(graphSrv.Close)

	return newWithOverrides(Config{ClientID: "cid", ClientSecret: "secret"}, graphSrv.URL, tokenSrv.URL, graphSrv.Client())
}

func TestChannel_Name(t *testing.T) {
	t.Parallel()
	if got := New(Config{TenantID: "t", Sender: "hr@example.com"}).Name(); got != "msgraph" {
		t.Errorf("Name(): got %q, want %q", got, "msgraph")
	}
}

func TestChannel_VerifyAlwaysFetchesToken(t *testing.T) {
	t.Parallel()

	f := &graphFixture{}
	ch := newGraphFixture(t, f)

	for i := 0; i < 2; i++ {
		if err := ch.Verify(context.Background()); err != nil {
			t.Fatalf("Verify %d: unexpected error: %v", i, err)
		}
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("token calls: got %d, want 2", got)
	}
	if got := f.sendCalls.Load(); got != 0 {
		t.Errorf("Verify must not send: got %d", got)
	}
}

func TestChannel_VerifyRejectedCredentials(t *testing.T) {
	t.Parallel()

	f := &graphFixture{tokenCode: http.StatusUnauthorized}
	ch := newGraphFixture(t, f)

	if err := ch.Verify(context.Background()); !errors.Is(err, channel.ErrChannelUnavailable) {
		t.Errorf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestChannel_SendSuccess(t *testing.T) {
	t.Parallel()

	f := &graphFixture{}
	ch := newGraphFixture(t, f)

	if err := ch.Send(context.Background(), testEnvelope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.sendCalls.Load(); got != 1 {
		t.Errorf("send calls: got %d, want 1", got)
	}
}

func TestChannel_SendFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		f := &graphFixture{sendCode: code}
		ch := newGraphFixture(t, f)

		err := ch.Send(context.Background(), testEnvelope())
		if !errors.Is(err, channel.ErrDeliveryFailed) {
			t.Errorf("status %d: expected ErrDeliveryFailed, got %v", code, err)
		}
		var se *sendError
		if !errors.As(err, &se) || se.statusCode != code {
			t.Errorf("status %d: expected sendError carrying the status, got %v", code, err)
		}
		if got := f.sendCalls.Load(); got != 1 {
			t.Errorf("status %d: send calls: got %d, want 1", code, got)
		}
	}
}

func TestChannel_SendCancelledContext(t *testing.T) {
	t.Parallel()

	f := &graphFixture{}
	ch := newGraphFixture(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := ch.Send(ctx, testEnvelope()); !errors.Is(err, channel.ErrDeliveryFailed) {
		t.Errorf("expected ErrDeliveryFailed, got %v", err)
	}
}
