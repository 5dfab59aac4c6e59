// Package service implements the registration query engine and creator. It
// owns visibility decisions, filtering, ordering, and the post-filing fan-out
// to external collaborators.
package service

//go:generate mockgen -destination=mocks/mocks.go -package=mocks mhreg/internal/registration/service Store,SummaryCache,PaymentClient,EventPublisher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mhreg/internal/clients"
	"mhreg/internal/platform/events"
	"mhreg/internal/platform/metrics"
	"mhreg/internal/registration/authz"
	"mhreg/internal/registration/models"
	"mhreg/internal/registration/query"
	"mhreg/internal/registration/schema"
	"mhreg/internal/registration/store"
	"mhreg/internal/registration/store/cache"
	dErrors "mhreg/pkg/domain-errors"
	"mhreg/pkg/requestcontext"
)

// Type aliases for the collaborator interfaces this service consumes.
type (
	Store          = store.Store
	SummaryCache   = cache.SummaryCache
	PaymentClient  = clients.PaymentClient
	EventPublisher = events.Publisher
)

// Service answers registration list, lookup, and create requests for a
// resolved caller.
type Service struct {
	store             Store
	payment           PaymentClient
	cache             SummaryCache
	events            EventPublisher
	metrics           *metrics.Metrics
	logger            *slog.Logger
	dependencyTimeout time.Duration
	tracer            trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCache enables the account summary cache for default listings.
func WithCache(c SummaryCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithEvents enables registration event publishing.
func WithEvents(pub EventPublisher) Option {
	return func(s *Service) {
		s.events = pub
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDependencyTimeout bounds the post-filing payment and event calls.
func WithDependencyTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.dependencyTimeout = d
	}
}

// New constructs the registration service with required dependencies.
func New(st Store, payment PaymentClient, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("registration store is required")
	}
	if payment == nil {
		return nil, fmt.Errorf("payment client is required")
	}

	svc := &Service{
		store:             st,
		payment:           payment,
		logger:            slog.Default(),
		dependencyTimeout: 5 * time.Second,
		tracer:            otel.Tracer("mhreg/registration"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// List returns the ordered, filtered registration summaries visible to the
// caller. An empty result is a successful empty slice, never an error.
func (s *Service) List(ctx context.Context, caller authz.Caller, criteria query.Criteria) ([]models.RegistrationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "registration.list",
		trace.WithAttributes(attribute.String("account_id", caller.AccountID)))
	defer span.End()

	cacheable := s.cache != nil && isDefaultCriteria(criteria)
	if cacheable {
		if summaries, ok := s.cache.Get(ctx, caller.AccountID); ok {
			if s.metrics != nil {
				s.metrics.ListCacheHits.Inc()
			}
			return summaries, nil
		}
		if s.metrics != nil {
			s.metrics.ListCacheMisses.Inc()
		}
	}

	regs, err := s.store.ListByAccount(ctx, caller.AccountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}

	switch {
	case criteria.HasFilter():
		regs = filterRegistrations(regs, criteria)
	case criteria.HasDateRange():
		regs = filterDateRange(regs, criteria)
		if criteria.Collapse {
			regs = collapseChains(regs)
		}
	case criteria.Collapse:
		regs = collapseChains(regs)
	}

	sortRegistrations(regs, criteria)

	summaries := make([]models.RegistrationSummary, 0, len(regs))
	for _, reg := range regs {
		summaries = append(summaries, models.Summarize(reg))
	}
	span.SetAttributes(attribute.Int("result_count", len(summaries)))

	if cacheable {
		s.cache.Set(ctx, caller.AccountID, summaries)
	}
	return summaries, nil
}

// Get returns the summary for one MHR number. A registration the caller
// cannot see and one that does not exist produce the same not-found signal.
func (s *Service) Get(ctx context.Context, caller authz.Caller, mhrNumber string) (models.RegistrationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "registration.get",
		trace.WithAttributes(attribute.String("mhr_number", mhrNumber)))
	defer span.End()

	reg, err := s.store.GetByMHRNumber(ctx, mhrNumber)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.RegistrationSummary{}, err
		}
		return models.RegistrationSummary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get registration")
	}
	if reg.AccountID != caller.AccountID && !caller.Has(authz.ScopeViewAll) {
		return models.RegistrationSummary{}, dErrors.Newf(dErrors.CodeNotFound, "registration %s not found", mhrNumber)
	}
	return models.Summarize(reg), nil
}

// Create validates and persists a new registration, assigning it a fresh MHR
// number. The payment invoice and created event run after persistence with a
// bounded timeout; a failure there surfaces as a dependency error while the
// registration itself remains filed and retrievable.
func (s *Service) Create(ctx context.Context, caller authz.Caller, req *models.RegistrationRequest) (models.RegistrationSummary, error) {
	ctx, span := s.tracer.Start(ctx, "registration.create",
		trace.WithAttributes(attribute.String("account_id", caller.AccountID)))
	defer span.End()

	if !caller.Has(authz.ScopeCreate) {
		return models.RegistrationSummary{}, dErrors.New(dErrors.CodeUnauthorized, "role set is not permitted to file registrations")
	}
	if err := schema.ValidateCreate(req, caller.IsStaff()); err != nil {
		return models.RegistrationSummary{}, err
	}

	mhrNumber, err := s.store.NextMHRNumber(ctx)
	if err != nil {
		return models.RegistrationSummary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign MHR number")
	}

	regType := models.RegistrationType(req.RegistrationType)
	if req.RegistrationType == "" {
		regType = models.TypeManufacturedHome
	}
	reg := &models.Registration{
		ID:                uuid.New(),
		MHRNumber:         mhrNumber,
		AccountID:         caller.AccountID,
		DocumentID:        req.DocumentID,
		RegistrationType:  regType,
		Status:            models.StatusActive,
		ClientReferenceID: req.ClientReferenceID,
		Username:          caller.Username,
		SubmittingParty:   *req.SubmittingParty,
		Owners:            req.Owners,
		LienType:          req.LienType,
		CreatedAt:         requestcontext.Now(ctx).UTC(),
	}
	if err := s.store.Create(ctx, reg); err != nil {
		return models.RegistrationSummary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, caller.AccountID)
	}

	if err := s.afterCreate(ctx, reg); err != nil {
		s.logger.ErrorContext(ctx, "post-filing processing failed",
			"mhr_number", reg.MHRNumber,
			"account_id", reg.AccountID,
			"error", err,
		)
		return models.RegistrationSummary{}, dErrors.Wrap(err, dErrors.CodeDependency, "registration filed but post-filing processing failed")
	}

	return models.Summarize(reg), nil
}

// afterCreate fans out to the payment service and the event publisher under
// one bounded deadline, cancelling the sibling on first failure.
func (s *Service) afterCreate(ctx context.Context, reg *models.Registration) error {
	ctx, cancel := context.WithTimeout(ctx, s.dependencyTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.payment.CreateInvoice(ctx, reg.AccountID, reg.MHRNumber)
	})
	if s.events != nil {
		g.Go(func() error {
			return s.events.PublishRegistrationCreated(ctx, events.RegistrationCreated{
				EventID:          uuid.New(),
				MHRNumber:        reg.MHRNumber,
				AccountID:        reg.AccountID,
				RegistrationType: string(reg.RegistrationType),
				Username:         reg.Username,
				CreatedAt:        reg.CreatedAt,
			})
		})
	}
	return g.Wait()
}

func isDefaultCriteria(criteria query.Criteria) bool {
	return !criteria.HasFilter() &&
		!criteria.HasDateRange() &&
		!criteria.Collapse &&
		criteria.SortField == query.FieldRegTS &&
		criteria.Direction == query.Descending
}

func filterRegistrations(regs []*models.Registration, criteria query.Criteria) []*models.Registration {
	out := regs[:0]
	for _, reg := range regs {
		if matchesFilter(reg, criteria.FilterField, criteria.FilterValue) {
			out = append(out, reg)
		}
	}
	return out
}

// matchesFilter applies the discrete filter predicate: exact match for the
// identifier-like fields, case-insensitive name matching for the party
// fields. Registration type matches either the type code or its description.
func matchesFilter(reg *models.Registration, field query.Field, value string) bool {
	switch field {
	case query.FieldMHRNumber:
		return reg.MHRNumber == value
	case query.FieldRegType:
		return string(reg.RegistrationType) == value || reg.RegistrationType.Description() == value
	case query.FieldStatus:
		return string(reg.Status) == value
	case query.FieldClientRef:
		return reg.ClientReferenceID == value
	case query.FieldUserName:
		return reg.Username == value
	case query.FieldSubmittingName:
		return reg.SubmittingParty.MatchesName(value)
	case query.FieldOwnerName:
		for _, owner := range reg.Owners {
			if owner.MatchesName(value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func filterDateRange(regs []*models.Registration, criteria query.Criteria) []*models.Registration {
	out := regs[:0]
	for _, reg := range regs {
		// Inclusive bounds on both ends.
		if !reg.CreatedAt.Before(criteria.Start) && !reg.CreatedAt.After(criteria.End) {
			out = append(out, reg)
		}
	}
	return out
}

// collapseChains merges registrations that share an MHR number (the base
// filing plus its amendments and corrections) into the single latest filing.
func collapseChains(regs []*models.Registration) []*models.Registration {
	latest := make(map[string]*models.Registration, len(regs))
	order := make([]string, 0, len(regs))
	for _, reg := range regs {
		current, ok := latest[reg.MHRNumber]
		if !ok {
			latest[reg.MHRNumber] = reg
			order = append(order, reg.MHRNumber)
			continue
		}
		if reg.CreatedAt.After(current.CreatedAt) {
			latest[reg.MHRNumber] = reg
		}
	}
	out := make([]*models.Registration, 0, len(order))
	for _, mhrNumber := range order {
		out = append(out, latest[mhrNumber])
	}
	return out
}

// sortRegistrations orders by the criteria's field and direction. Ties always
// break by registration timestamp descending so repeated queries over
// unchanged data return identical orderings.
func sortRegistrations(regs []*models.Registration, criteria query.Criteria) {
	key := sortKey(criteria.SortField)
	sort.SliceStable(regs, func(i, j int) bool {
		a, b := regs[i], regs[j]
		cmp := key(a, b)
		if cmp == 0 {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if criteria.Direction == query.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func sortKey(field query.Field) func(a, b *models.Registration) int {
	switch field {
	case query.FieldRegTS:
		return func(a, b *models.Registration) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case query.FieldMHRNumber:
		return textKey(func(r *models.Registration) string { return r.MHRNumber })
	case query.FieldRegType:
		return textKey(func(r *models.Registration) string { return r.RegistrationType.Description() })
	case query.FieldStatus:
		return textKey(func(r *models.Registration) string { return string(r.Status) })
	case query.FieldClientRef:
		return textKey(func(r *models.Registration) string { return r.ClientReferenceID })
	case query.FieldUserName:
		return textKey(func(r *models.Registration) string { return r.Username })
	case query.FieldSubmittingName:
		return textKey(func(r *models.Registration) string {
			if r.SubmittingParty.BusinessName != "" {
				return r.SubmittingParty.BusinessName
			}
			return r.SubmittingParty.LastName + ", " + r.SubmittingParty.FirstName
		})
	case query.FieldOwnerName:
		return textKey(func(r *models.Registration) string {
			if len(r.Owners) == 0 {
				return ""
			}
			return r.Owners[0].FullName()
		})
	default:
		return func(a, b *models.Registration) int { return 0 }
	}
}

func textKey(extract func(*models.Registration) string) func(a, b *models.Registration) int {
	return func(a, b *models.Registration) int {
		return strings.Compare(strings.ToLower(extract(a)), strings.ToLower(extract(b)))
	}
}
