package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arkhiv/internal/record/models"
	recordservice "arkhiv/internal/record/service"
	recordstore "arkhiv/internal/record/store"
	requestmodels "arkhiv/internal/request/models"
	requestservice "arkhiv/internal/request/service"
	requeststore "arkhiv/internal/request/store"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/testutil"
)

// stubValidator maps bearer tokens to principals without real JWT parsing.
type stubValidator struct {
	principals map[string]id.Principal
}

func (v *stubValidator) ValidateToken(token string) (id.Principal, error) {
	principal, ok := v.principals[token]
	if !ok {
		return id.Principal{}, errors.New("unknown token")
	}
	return principal, nil
}

type RequestHandlerSuite struct {
	suite.Suite
	router   *chi.Mux
	requests *requeststore.InMemory
	records  *recordstore.InMemory

	researcher id.Principal
	archivist  id.Principal
	recordID   id.RecordID
}

func TestRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(RequestHandlerSuite))
}

func (s *RequestHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.requests = requeststore.NewInMemory()
	s.records = recordstore.NewInMemory()

	s.researcher = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleResearcher}
	s.archivist = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleArchivist}

	s.recordID = id.RecordID(uuid.New())
	s.Require().NoError(s.records.Create(s.T().Context(), &models.Record{
		ID:        s.recordID,
		RefCode:   "F-7/op-1/d-12",
		Title:     "Parish register",
		CreatedAt: time.Now(),
	}))

	validator := &stubValidator{principals: map[string]id.Principal{
		"researcher-token": s.researcher,
		"archivist-token":  s.archivist,
	}}

	requestSvc := requestservice.New(s.requests, requestservice.WithLogger(logger))
	recordSvc := recordservice.New(s.records)
	h := New(requestSvc, recordSvc, validator, logger)

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *RequestHandlerSuite) do(req *http.Request, token string) *http.Response {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req).Result()
}

func (s *RequestHandlerSuite) createViaAPI() *requestmodels.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", CreateRequestBody{
		RecordID: s.recordID.String(),
		Type:     "view",
	})
	req.Header.Set("Authorization", "Bearer researcher-token")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[requestmodels.Request](s.T(), rr)
}

func (s *RequestHandlerSuite) TestAuthRequired() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/requests")
	resp := s.do(req, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/requests"), "bogus-token")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RequestHandlerSuite) TestCreate() {
	s.Run("researcher files a request", func() {
		created := s.createViaAPI()
		s.Equal(requestmodels.StatusNew, created.Status)
		s.Equal(s.researcher.ID, created.UserID)
		s.Equal(s.recordID, created.RecordID)
	})

	s.Run("staff cannot file requests", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", CreateRequestBody{
			RecordID: s.recordID.String(),
			Type:     "view",
		})
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("unknown record is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", CreateRequestBody{
			RecordID: uuid.NewString(),
			Type:     "view",
		})
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("malformed body is a bad request", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/requests", "{not json")
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("invalid type fails validation", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/requests", CreateRequestBody{
			RecordID: s.recordID.String(),
			Type:     "copy",
		})
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func (s *RequestHandlerSuite) TestGet() {
	created := s.createViaAPI()

	s.Run("owner reads their request", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/requests/"+created.ID.String())
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusOK, resp.StatusCode)
	})

	s.Run("staff read any request", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/requests/"+created.ID.String())
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusOK, resp.StatusCode)
	})

	s.Run("malformed id is rejected", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/requests/not-a-uuid")
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("unknown id is not found", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/requests/"+uuid.NewString())
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func (s *RequestHandlerSuite) TestUpdateStatus() {
	s.Run("archivist approves", func() {
		created := s.createViaAPI()
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/requests/"+created.ID.String(), UpdateRequestBody{
			Status: "approved",
		})
		req.Header.Set("Authorization", "Bearer archivist-token")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

		updated := testutil.UnmarshalResponse[requestmodels.Request](s.T(), rr)
		s.Equal(requestmodels.StatusApproved, updated.Status)
		s.Equal(s.archivist.ID, updated.ProcessedByID)
		s.NotNil(updated.ProcessedAt)
	})

	s.Run("researcher may not process requests", func() {
		created := s.createViaAPI()
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/requests/"+created.ID.String(), UpdateRequestBody{
			Status: "approved",
		})
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("illegal transition maps to conflict", func() {
		created := s.createViaAPI()
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/requests/"+created.ID.String(), UpdateRequestBody{
			Status:          "rejected",
			RejectionReason: "closed fond",
		})
		resp := s.do(req, "archivist-token")
		s.Require().Equal(http.StatusOK, resp.StatusCode)

		req = testutil.NewJSONRequest(s.T(), http.MethodPatch, "/requests/"+created.ID.String(), UpdateRequestBody{
			Status: "approved",
		})
		resp = s.do(req, "archivist-token")
		s.Equal(http.StatusConflict, resp.StatusCode)
	})

	s.Run("reject without reason fails validation", func() {
		created := s.createViaAPI()
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/requests/"+created.ID.String(), UpdateRequestBody{
			Status: "rejected",
		})
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func (s *RequestHandlerSuite) TestList() {
	s.createViaAPI()
	s.createViaAPI()

	s.Run("researcher sees own requests", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/requests")
		req.Header.Set("Authorization", "Bearer researcher-token")
		rr := testutil.DoRequest(s.router, req)
		s.Require().Equal(http.StatusOK, rr.Code)
		requests := testutil.UnmarshalResponse[[]requestmodels.Request](s.T(), rr)
		s.Len(*requests, 2)
	})
}

func (s *RequestHandlerSuite) TestDelete() {
	created := s.createViaAPI()

	s.Run("researcher may not delete", func() {
		req := testutil.NewRequest(s.T(), http.MethodDelete, "/requests/"+created.ID.String())
		resp := s.do(req, "researcher-token")
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("archivist deletes", func() {
		req := testutil.NewRequest(s.T(), http.MethodDelete, "/requests/"+created.ID.String())
		resp := s.do(req, "archivist-token")
		s.Equal(http.StatusNoContent, resp.StatusCode)

		req = testutil.NewRequest(s.T(), http.MethodGet, "/requests/"+created.ID.String())
		resp = s.do(req, "archivist-token")
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})
}
