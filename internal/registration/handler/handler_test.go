package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mhreg/internal/clients"
	"mhreg/internal/jwttoken"
	"mhreg/internal/platform/events"
	"mhreg/internal/registration/models"
	"mhreg/internal/registration/service"
	"mhreg/internal/registration/store"
	"mhreg/internal/registration/store/cache"
	"mhreg/pkg/testutil"
)

// =============================================================================
// Registration Handler Test Suite
// =============================================================================
// Justification for handler tests: the handler owns header extraction, token
// enforcement, and status code mapping. The suite drives the full router with
// real tokens and an in-memory stack so every response reflects the same
// middleware chain production requests pass through.

const (
	signingKey    = "unit-test-signing-key"
	testAccountID = "2617"
)

type RegistrationHandlerSuite struct {
	suite.Suite
	jwt    *jwttoken.Service
	store  *store.InMemoryStore
	events *events.MemoryPublisher
	router chi.Router
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerSuite))
}

func (s *RegistrationHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.jwt = jwttoken.NewService(signingKey, "mhreg", "account-services")
	s.store = store.NewInMemoryStore()
	s.events = events.NewMemoryPublisher()

	svc, err := service.New(
		s.store,
		clients.MockPaymentClient{},
		service.WithLogger(logger),
		service.WithCache(cache.NewMemory(time.Minute)),
		service.WithEvents(s.events),
	)
	s.Require().NoError(err)

	h := New(svc, logger, nil, jwttoken.NewAdapter(s.jwt))
	s.router = chi.NewRouter()
	h.Register(s.router)

	s.seed()
}

// seed files three registrations for the test account and one for a foreign
// account, plus an amendment chained onto the first filing.
func (s *RegistrationHandlerSuite) seed() {
	ctx := context.Background()
	day := func(d int) time.Time {
		return time.Date(2024, time.May, d, 12, 0, 0, 0, time.UTC)
	}
	regs := []*models.Registration{
		{
			MHRNumber:         "100001",
			AccountID:         testAccountID,
			RegistrationType:  models.TypeManufacturedHome,
			Status:            models.StatusActive,
			ClientReferenceID: "UT-0001",
			Username:          "TESTUSER",
			SubmittingParty:   models.Party{BusinessName: "ABC SEARCHING COMPANY"},
			Owners:            []models.Owner{{LastName: "HAMM", FirstName: "DAVID"}},
			CreatedAt:         day(1),
		},
		{
			MHRNumber:         "100002",
			AccountID:         testAccountID,
			RegistrationType:  models.TypeTransfer,
			Status:            models.StatusExempt,
			ClientReferenceID: "UT-0002",
			Username:          "BGILCHRIST",
			SubmittingParty:   models.Party{LastName: "ROWE", FirstName: "EDNA"},
			Owners:            []models.Owner{{BusinessName: "CROWN HOMES LTD."}},
			CreatedAt:         day(2),
		},
		{
			MHRNumber:        "100001",
			AccountID:        testAccountID,
			RegistrationType: models.TypeTransfer,
			Status:           models.StatusActive,
			Username:         "TESTUSER",
			SubmittingParty:  models.Party{BusinessName: "ABC SEARCHING COMPANY"},
			CreatedAt:        day(5),
		},
		{
			MHRNumber:        "200001",
			AccountID:        "9001",
			RegistrationType: models.TypeManufacturedHome,
			Status:           models.StatusActive,
			Username:         "OTHERUSER",
			SubmittingParty:  models.Party{BusinessName: "FOREIGN FILERS INC."},
			CreatedAt:        day(3),
		},
	}
	for _, reg := range regs {
		reg.ID = uuid.New()
		s.Require().NoError(s.store.Create(ctx, reg))
	}
}

func (s *RegistrationHandlerSuite) token(roles ...string) string {
	token, err := s.jwt.GenerateAccessToken("TESTUSER", roles, time.Hour)
	s.Require().NoError(err)
	return token
}

type requestOpts struct {
	roles     []string
	accountID string
	targetID  string
	noToken   bool
	body      any
}

func (s *RegistrationHandlerSuite) do(method, target string, opts requestOpts) *httptest.ResponseRecorder {
	var req *http.Request
	if opts.body != nil {
		req = testutil.NewJSONRequest(s.T(), method, target, opts.body)
	} else {
		req = testutil.NewRequest(s.T(), method, target)
	}
	if !opts.noToken {
		req.Header.Set("Authorization", "Bearer "+s.token(opts.roles...))
	}
	if opts.accountID != "" {
		req.Header.Set(AccountHeader, opts.accountID)
	}
	if opts.targetID != "" {
		req.Header.Set(TargetAccountHeader, opts.targetID)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *RegistrationHandlerSuite) decodeList(w *httptest.ResponseRecorder) []map[string]any {
	var items []map[string]any
	testutil.DecodeJSON(s.T(), w, &items)
	return items
}

// requireSummaryKeys asserts the summary contract: every required key present
// on every item, lienRegistrationType present exactly for new unit filings.
func (s *RegistrationHandlerSuite) requireSummaryKeys(items []map[string]any) {
	required := []string{
		"mhrNumber", "registrationDescription", "statusType", "createDateTime",
		"username", "submittingParty", "clientReferenceId", "ownerNames", "path",
	}
	for _, item := range items {
		for _, key := range required {
			s.Contains(item, key)
		}
		_, hasLien := item["lienRegistrationType"]
		s.Equal(item["registrationDescription"] == "REGISTER NEW UNIT", hasLien)
		s.Equal("/api/v1/registrations/"+item["mhrNumber"].(string), item["path"])
	}
}

func validCreateBody() models.RegistrationRequest {
	return models.RegistrationRequest{
		RegistrationType:  string(models.TypeManufacturedHome),
		DocumentID:        "80035947",
		ClientReferenceID: "UT-1000",
		SubmittingParty:   &models.Party{BusinessName: "ABC SEARCHING COMPANY"},
		Owners:            []models.Owner{{LastName: "HAMM", FirstName: "DAVID"}},
	}
}

// =============================================================================
// GET /api/v1/registrations
// =============================================================================

func (s *RegistrationHandlerSuite) TestListAccountAndRoleMatrix() {
	tests := []struct {
		name       string
		opts       requestOpts
		wantStatus int
		wantCount  int
	}{
		{
			name:       "mhr role with account lists own registrations",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: testAccountID},
			wantStatus: http.StatusOK,
			wantCount:  3,
		},
		{
			name:       "missing account header is a bad request",
			opts:       requestOpts{roles: []string{"mhr"}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing token is unauthorized",
			opts:       requestOpts{noToken: true, accountID: testAccountID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "foreign role set is unauthorized",
			opts:       requestOpts{roles: []string{"colin"}, accountID: testAccountID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "helpdesk resolves to reserved account",
			opts:       requestOpts{roles: []string{"mhr", "helpdesk"}, accountID: testAccountID},
			wantStatus: http.StatusOK,
			wantCount:  0,
		},
		{
			name:       "staff lists target account registrations",
			opts:       requestOpts{roles: []string{"mhr", "staff"}, accountID: "3026", targetID: testAccountID},
			wantStatus: http.StatusOK,
			wantCount:  3,
		},
		{
			name:       "non-staff cannot redirect to a target account",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: "9001", targetID: testAccountID},
			wantStatus: http.StatusOK,
			wantCount:  1,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			w := s.do(http.MethodGet, "/api/v1/registrations", tc.opts)
			s.Require().Equal(tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}
			items := s.decodeList(w)
			s.Len(items, tc.wantCount)
			s.requireSummaryKeys(items)
		})
	}
}

func (s *RegistrationHandlerSuite) TestListQueryParameters() {
	account := requestOpts{roles: []string{"mhr"}, accountID: testAccountID}

	tests := []struct {
		name       string
		rawQuery   string
		wantStatus int
		wantMHRs   []string
	}{
		{
			name:       "default orders most recent first",
			rawQuery:   "",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100001", "100002", "100001"},
		},
		{
			name:       "sort by mhr number ascending",
			rawQuery:   "?sortCriteriaName=mhrNumber",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100001", "100001", "100002"},
		},
		{
			name:       "filter by status",
			rawQuery:   "?statusType=EXEMPT",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100002"},
		},
		{
			name:       "filter by submitting name fragment",
			rawQuery:   "?submittingName=abc",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100001", "100001"},
		},
		{
			name:       "filter by owner name fragment",
			rawQuery:   "?ownerName=crown",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100002"},
		},
		{
			name:       "date range is inclusive",
			rawQuery:   "?startTimestamp=2024-05-01T12:00:00Z&endTimestamp=2024-05-02T12:00:00Z",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100002", "100001"},
		},
		{
			name:       "collapse keeps latest filing per home",
			rawQuery:   "?collapse=true",
			wantStatus: http.StatusOK,
			wantMHRs:   []string{"100001", "100002"},
		},
		{
			name:       "unknown parameter is rejected",
			rawQuery:   "?bogusParam=1",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid sort direction is rejected",
			rawQuery:   "?sortCriteriaName=mhrNumber&sortDirection=sideways",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "half a date range is rejected",
			rawQuery:   "?startTimestamp=2024-05-01T12:00:00Z",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed timestamp is rejected",
			rawQuery:   "?startTimestamp=yesterday&endTimestamp=2024-05-02T12:00:00Z",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "two filter fields are rejected",
			rawQuery:   "?statusType=ACTIVE&username=TESTUSER",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			w := s.do(http.MethodGet, "/api/v1/registrations"+tc.rawQuery, account)
			s.Require().Equal(tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				var errBody map[string]any
				s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &errBody))
				s.Contains(errBody, "error")
				return
			}
			items := s.decodeList(w)
			s.Require().Len(items, len(tc.wantMHRs))
			for i, mhr := range tc.wantMHRs {
				s.Equal(mhr, items[i]["mhrNumber"])
			}
			s.requireSummaryKeys(items)
		})
	}
}

// =============================================================================
// GET /api/v1/registrations/{mhrNumber}
// =============================================================================

func (s *RegistrationHandlerSuite) TestGetRegistration() {
	tests := []struct {
		name       string
		mhrNumber  string
		opts       requestOpts
		wantStatus int
	}{
		{
			name:       "owning account fetches its registration",
			mhrNumber:  "100001",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: testAccountID},
			wantStatus: http.StatusOK,
		},
		{
			name:       "foreign account gets not found",
			mhrNumber:  "200001",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: testAccountID},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "staff fetches any registration",
			mhrNumber:  "200001",
			opts:       requestOpts{roles: []string{"mhr", "staff"}, accountID: "3026"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "helpdesk fetches any registration",
			mhrNumber:  "200001",
			opts:       requestOpts{roles: []string{"mhr", "helpdesk"}, accountID: testAccountID},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown mhr number is not found",
			mhrNumber:  "999999",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: testAccountID},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing token is unauthorized",
			mhrNumber:  "100001",
			opts:       requestOpts{noToken: true, accountID: testAccountID},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			w := s.do(http.MethodGet, "/api/v1/registrations/"+tc.mhrNumber, tc.opts)
			s.Require().Equal(tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus != http.StatusOK {
				return
			}
			var item map[string]any
			s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &item))
			s.Equal(tc.mhrNumber, item["mhrNumber"])
			s.requireSummaryKeys([]map[string]any{item})
		})
	}
}

// =============================================================================
// POST /api/v1/registrations
// =============================================================================

func (s *RegistrationHandlerSuite) TestCreateRegistrationMatrix() {
	staff := []string{"mhr", "staff"}

	tests := []struct {
		name       string
		opts       requestOpts
		mutate     func(*models.RegistrationRequest)
		wantStatus int
	}{
		{
			name:       "staff files a new registration",
			opts:       requestOpts{roles: staff, accountID: testAccountID},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "non-staff role cannot file",
			opts:       requestOpts{roles: []string{"mhr"}, accountID: testAccountID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token is unauthorized",
			opts:       requestOpts{noToken: true, accountID: testAccountID},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing account header is a bad request",
			opts:       requestOpts{roles: staff},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "missing submitting party is rejected",
			opts: requestOpts{roles: staff, accountID: testAccountID},
			mutate: func(req *models.RegistrationRequest) {
				req.SubmittingParty = nil
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid registration type is rejected",
			opts: requestOpts{roles: staff, accountID: testAccountID},
			mutate: func(req *models.RegistrationRequest) {
				req.RegistrationType = "DEMOLITION"
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "staff filing without document id is rejected",
			opts: requestOpts{roles: staff, accountID: testAccountID},
			mutate: func(req *models.RegistrationRequest) {
				req.DocumentID = ""
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "new unit without owners is rejected",
			opts: requestOpts{roles: staff, accountID: testAccountID},
			mutate: func(req *models.RegistrationRequest) {
				req.Owners = nil
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			body := validCreateBody()
			if tc.mutate != nil {
				tc.mutate(&body)
			}
			opts := tc.opts
			opts.body = body

			w := s.do(http.MethodPost, "/api/v1/registrations", opts)
			s.Require().Equal(tc.wantStatus, w.Code, w.Body.String())
		})
	}
}

func (s *RegistrationHandlerSuite) TestCreateThenFetch() {
	opts := requestOpts{roles: []string{"mhr", "staff"}, accountID: testAccountID, body: validCreateBody()}

	w := s.do(http.MethodPost, "/api/v1/registrations", opts)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.requireSummaryKeys([]map[string]any{created})
	mhrNumber := created["mhrNumber"].(string)
	s.Len(mhrNumber, 6)

	// A newly filed registration is immediately retrievable and listed.
	w = s.do(http.MethodGet, "/api/v1/registrations/"+mhrNumber, requestOpts{roles: []string{"mhr"}, accountID: testAccountID})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/registrations", requestOpts{roles: []string{"mhr"}, accountID: testAccountID})
	s.Require().Equal(http.StatusOK, w.Code)
	items := s.decodeList(w)
	s.Len(items, 4)
	s.Equal(mhrNumber, items[0]["mhrNumber"])

	// The filing fans out exactly one created event.
	published := s.events.Events()
	s.Require().Len(published, 1)
	s.Equal(mhrNumber, published[0].MHRNumber)
	s.Equal(testAccountID, published[0].AccountID)
}

func (s *RegistrationHandlerSuite) TestCreateMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+s.token("mhr", "staff"))
	req.Header.Set(AccountHeader, testAccountID)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}
