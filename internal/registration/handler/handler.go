// Package handler exposes the manufactured home registration endpoints over
// HTTP. It resolves the caller's account context, parses query criteria, and
// delegates every decision to the registration service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mhreg/internal/platform/metrics"
	"mhreg/internal/platform/middleware"
	"mhreg/internal/registration/authz"
	"mhreg/internal/registration/models"
	"mhreg/internal/registration/query"
	"mhreg/internal/transport/http/shared"
	dErrors "mhreg/pkg/domain-errors"
	"mhreg/pkg/requestcontext"
)

// Account context headers. AccountHeader carries the caller's own account;
// staff may redirect a request to another account with TargetAccountHeader.
const (
	AccountHeader       = "Account-Id"
	TargetAccountHeader = "X-Target-Account-Id"
)

// Service defines the registration operations the handler delegates to.
type Service interface {
	List(ctx context.Context, caller authz.Caller, criteria query.Criteria) ([]models.RegistrationSummary, error)
	Get(ctx context.Context, caller authz.Caller, mhrNumber string) (models.RegistrationSummary, error)
	Create(ctx context.Context, caller authz.Caller, req *models.RegistrationRequest) (models.RegistrationSummary, error)
}

// Handler handles registration endpoints.
type Handler struct {
	logger       *slog.Logger
	registration Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new registration Handler.
func New(
	registration Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registration: registration,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	regRouter := chi.NewRouter()
	regRouter.Use(middleware.Recovery(h.logger))
	regRouter.Use(middleware.RequestID)
	regRouter.Use(middleware.RequestTime)
	regRouter.Use(middleware.Logger(h.logger))
	regRouter.Use(middleware.Timeout(30 * time.Second))
	regRouter.Use(middleware.ContentTypeJSON)
	regRouter.Use(middleware.Latency(h.metrics))
	regRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	regRouter.Get("/api/v1/registrations", h.handleList)
	regRouter.Post("/api/v1/registrations", h.handleCreate)
	regRouter.Get("/api/v1/registrations/{mhrNumber}", h.handleGet)

	r.Mount("/", regRouter)
}

// handleList returns the registration summaries for the resolved account.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.resolveCaller(r)
	if err != nil {
		h.logger.WarnContext(ctx, "caller resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	criteria, err := query.Parse(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid list query",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	summaries, err := h.registration.List(ctx, caller, criteria)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list registrations",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", caller.AccountID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, summaries)
}

// handleGet returns one registration summary by MHR number.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.resolveCaller(r)
	if err != nil {
		h.logger.WarnContext(ctx, "caller resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	mhrNumber := chi.URLParam(r, "mhrNumber")
	summary, err := h.registration.Get(ctx, caller, mhrNumber)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get registration",
			"request_id", requestcontext.RequestID(ctx),
			"mhr_number", mhrNumber,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, summary)
}

// handleCreate files a new registration for the resolved account.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.resolveCaller(r)
	if err != nil {
		h.logger.WarnContext(ctx, "caller resolution failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	var createReq models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		h.logger.WarnContext(ctx, "invalid create registration request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	summary, err := h.registration.Create(ctx, caller, &createReq)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) || dErrors.Is(err, dErrors.CodeUnauthorized) {
			h.logger.WarnContext(ctx, "registration filing rejected",
				"request_id", requestcontext.RequestID(ctx),
				"account_id", caller.AccountID,
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to file registration",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", caller.AccountID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, summary)
}

// resolveCaller builds the authorization context from the authenticated
// claims and the account headers.
func (h *Handler) resolveCaller(r *http.Request) (authz.Caller, error) {
	ctx := r.Context()
	return authz.Resolve(
		requestcontext.Username(ctx),
		requestcontext.Roles(ctx),
		r.Header.Get(AccountHeader),
		r.Header.Get(TargetAccountHeader),
	)
}
