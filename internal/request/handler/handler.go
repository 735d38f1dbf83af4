package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arkhiv/internal/platform/middleware"
	recordmodels "arkhiv/internal/record/models"
	"arkhiv/internal/request/models"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/platform/httputil"
	"arkhiv/pkg/requestcontext"
)

// Service defines the request lifecycle operations used by this handler.
type Service interface {
	Create(ctx context.Context, recordID id.RecordID, userID id.UserID, typ models.RequestType) (*models.Request, error)
	Get(ctx context.Context, requestID id.RequestID, principal id.Principal) (*models.Request, error)
	List(ctx context.Context, principal id.Principal) ([]*models.Request, error)
	UpdateStatus(ctx context.Context, requestID id.RequestID, newStatus models.RequestStatus, rejectionReason string, principal id.Principal) (*models.Request, error)
	Delete(ctx context.Context, requestID id.RequestID, principal id.Principal) error
}

// RecordGetter performs the referential check on creation: the target
// archival unit must exist.
type RecordGetter interface {
	GetRecord(ctx context.Context, recordID id.RecordID) (*recordmodels.Record, error)
}

// Handler exposes the access request endpoints.
type Handler struct {
	logger    *slog.Logger
	requests  Service
	records   RecordGetter
	validator middleware.TokenValidator
}

// New creates a new request Handler.
func New(requests Service, records RecordGetter, validator middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		requests:  requests,
		records:   records,
		validator: validator,
	}
}

// Register registers the request routes with the chi router. Role guards
// mirror the paper workflow: researchers file requests, staff process them.
func (h *Handler) Register(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))

		r.With(middleware.RequireRoles(h.logger, id.RoleResearcher)).
			Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{requestID}", h.handleGet)
		r.With(middleware.RequireRoles(h.logger, id.RoleAdmin, id.RoleArchivist)).
			Patch("/{requestID}", h.handleUpdateStatus)
		r.With(middleware.RequireRoles(h.logger, id.RoleAdmin, id.RoleArchivist)).
			Delete("/{requestID}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal := requestcontext.Principal(ctx)

	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	recordID, typ, err := body.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Referential check: the lifecycle engine assumes the record exists.
	if _, err := h.records.GetRecord(ctx, recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.requests.Create(ctx, recordID, principal.ID, typ)
	if err != nil {
		h.logError(ctx, "create request failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requests, err := h.requests.List(ctx, requestcontext.Principal(ctx))
	if err != nil {
		h.logError(ctx, "list requests failed", err)
		httputil.WriteError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.Request{}
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.requests.Get(ctx, requestID, requestcontext.Principal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var body UpdateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, err := body.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.requests.UpdateStatus(ctx, requestID, status, body.RejectionReason, requestcontext.Principal(ctx))
	if err != nil {
		h.logError(ctx, "transition failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.requests.Delete(ctx, requestID, requestcontext.Principal(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	// Client-caused failures are expected traffic; only infrastructure
	// failures warrant error-level noise.
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"error", err,
		"request_id", middleware.GetRequestID(ctx),
	)
}
