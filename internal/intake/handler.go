// Package intake implements the application upload endpoint: it parses the
// multipart request, validates it, verifies the mail channel, and sends the
// résumé on, answering with JSON at every exit.
package intake

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/shineum/careers-relay/internal/application"
	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/envelope"
	"github.com/shineum/careers-relay/internal/metrics"
)

// Response messages.
const (
	MsgSuccess       = "Application submitted successfully"
	MsgConfigError   = "Server configuration error"
	MsgUnavailable   = "Email service unavailable"
	MsgProcessFailed = "Failed to process application. Please try again."
)

// Options configures a Handler.
type Options struct {
	// Channel delivers envelopes. It may be nil when MissingKeys is non-empty.
	Channel channel.Channel
	// Builder addresses envelopes.
	Builder envelope.Builder
	// MissingKeys names required mail settings that are absent.
	MissingKeys []string
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Handler serves POST /api/uploadResume.
type Handler struct {
	channel     channel.Channel
	builder     envelope.Builder
	missingKeys []string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a Handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		channel:     opts.Channel,
		builder:     opts.Builder,
		missingKeys: opts.MissingKeys,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// ServeHTTP runs one submission through parse, validate, verify and send.
// Each stage either hands on to the next or writes the final response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(
		"request_id", middleware.GetReqID(r.Context()),
		"submission_id", uuid.NewString(),
	)

	rw := &responseWriter{ResponseWriter: w}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while processing application",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			h.metrics.IncrementOutcome(metrics.OutcomeInternalError)
			if !rw.written {
				WriteError(rw, http.StatusInternalServerError, MsgProcessFailed)
			}
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	candidate, err := readCandidate(r)
	if err != nil {
		h.reject(rw, logger, err)
		return
	}
	logger = logger.With(
		"full_name", candidate.FullName,
		"email", candidate.Email,
		"position", candidate.Position,
	)
	if candidate.Resume != nil {
		logger = logger.With(
			"file_name", candidate.Resume.Filename,
			"file_size", candidate.Resume.Size(),
			"file_type", candidate.Resume.ContentType,
			"detected_type", mimetype.Detect(candidate.Resume.Content).String(),
		)
	}
	logger.Info("upload request")

	sub, err := application.Validate(candidate)
	if err != nil {
		h.reject(rw, logger, err)
		return
	}

	if len(h.missingKeys) > 0 || h.channel == nil {
		logger.Error("mail configuration incomplete", "missing", h.missingKeys)
		h.metrics.IncrementOutcome(metrics.OutcomeConfigMissing)
		WriteError(rw, http.StatusInternalServerError, MsgConfigError)
		return
	}

	name := h.channel.Name()
	start := time.Now()
	err = h.channel.Verify(r.Context())
	h.metrics.ObserveChannel(name, "verify", time.Since(start), err)
	if err != nil {
		logger.Error("mail channel verification failed", "channel", name, "error", err)
		h.metrics.IncrementOutcome(metrics.OutcomeUnavailable)
		WriteError(rw, http.StatusInternalServerError, MsgUnavailable)
		return
	}
	logger.Debug("mail channel verified", "channel", name)

	env := h.builder.Build(sub)

	start = time.Now()
	err = h.channel.Send(r.Context(), env)
	h.metrics.ObserveChannel(name, "send", time.Since(start), err)
	if err != nil {
		logger.Error("failed to send application",
			"channel", name,
			"error", err,
			"delivery_failed", errors.Is(err, channel.ErrDeliveryFailed),
		)
		h.metrics.IncrementOutcome(metrics.OutcomeDeliveryFailed)
		WriteError(rw, http.StatusInternalServerError, MsgProcessFailed)
		return
	}

	logger.Info("application sent", "channel", name, "subject", env.Subject)
	h.metrics.IncrementOutcome(metrics.OutcomeSubmitted)
	h.metrics.ObserveResume(sub.Resume.Size())
	WriteJSON(rw, http.StatusOK, successResponse{Success: true, Message: MsgSuccess})
}

// reject answers a client input error with 400. Anything else reaching here
// is unexpected and answers 500.
func (h *Handler) reject(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ie *application.InputError
	if !errors.As(err, &ie) {
		logger.Error("unexpected error while reading application", "error", err)
		h.metrics.IncrementOutcome(metrics.OutcomeInternalError)
		WriteError(w, http.StatusInternalServerError, MsgProcessFailed)
		return
	}

	logger.Warn("application rejected", "reason", ie.Kind.String(), "message", ie.Message)
	h.metrics.IncrementOutcome(metrics.OutcomeRejected)
	h.metrics.IncrementRejection(ie.Kind.String())
	WriteError(w, http.StatusBadRequest, ie.Message)
}

// responseWriter records whether a response has been started.
type responseWriter struct {
	http.ResponseWriter
	written bool
}

func (w *responseWriter) WriteHeader(code int) {
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}
