package handler

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"arkhiv/internal/access"
	"arkhiv/internal/platform/middleware"
	recordmodels "arkhiv/internal/record/models"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/platform/httputil"
	"arkhiv/pkg/requestcontext"
)

// Authorizer runs the gate for one download attempt.
type Authorizer interface {
	AuthorizeDownload(ctx context.Context, recordID id.RecordID, principal id.Principal) (access.Decision, *recordmodels.Record, error)
}

// FileOpener opens the stored file behind an allowed download.
type FileOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Handler exposes the gated download endpoint.
type Handler struct {
	logger    *slog.Logger
	gate      Authorizer
	files     FileOpener
	validator middleware.TokenValidator
	limiter   func(http.Handler) http.Handler
}

type Option func(h *Handler)

// WithRateLimiter installs abuse control on the download route.
func WithRateLimiter(limiter func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.limiter = limiter }
}

// New creates a new download Handler.
func New(gate Authorizer, files FileOpener, validator middleware.TokenValidator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:    logger,
		gate:      gate,
		files:     files,
		validator: validator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the download route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/records/{recordID}/download", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Get("/", h.handleDownload)
	})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.Principal(ctx)

	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, record, err := h.gate.AuthorizeDownload(ctx, recordID, principal)
	if err != nil {
		h.logError(ctx, "authorization failed", err)
		httputil.WriteError(w, err)
		return
	}
	if !decision.Allowed {
		httputil.WriteError(w, denyError(decision.Reason))
		return
	}

	file, err := h.files.Open(ctx, record.FilePath)
	if err != nil {
		// The catalog says a file is attached but storage disagrees; that is
		// an operational incident, surfaced as not found to the client.
		h.logger.ErrorContext(ctx, "attached file missing from storage",
			"record_id", record.ID.String(),
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "file not found in storage"))
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeFor(record.FilePath))
	w.Header().Set("Content-Disposition", `attachment; filename="`+url.PathEscape(record.FileName)+`"`)
	if _, err := io.Copy(w, file); err != nil {
		h.logger.WarnContext(ctx, "download stream interrupted",
			"record_id", record.ID.String(),
			"error", err,
		)
	}
}

// denyError maps gate denials onto the error envelope. NoFile reads as 404
// (the resource the client asked for does not exist); the rest are 403.
func denyError(reason access.DenyReason) error {
	switch reason {
	case access.DenyNoFile:
		return dErrors.New(dErrors.CodeNotFound, "record has no attached file")
	case access.DenyRequiresApprovedRequest:
		return dErrors.New(dErrors.CodeForbidden, "an approved access request is required to download this file")
	default:
		return dErrors.New(dErrors.CodeForbidden, "access denied")
	}
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
}
