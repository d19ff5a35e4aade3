package businesses

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	businesssvc "github.com/dagym/contract-backend/internal/businesses"
	facilitysvc "github.com/dagym/contract-backend/internal/facilities"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/types"
)

type stubBusinessService struct {
	list   businesssvc.ListParams
	create businesssvc.CreateBusinessInput
	status string
	err    error
}

func (s *stubBusinessService) List(ctx context.Context, params businesssvc.ListParams) (*businesssvc.ListResult, error) {
	s.list = params
	return &businesssvc.ListResult{Items: []businesssvc.BusinessDTO{}}, s.err
}

func (s *stubBusinessService) Get(ctx context.Context, id uuid.UUID) (*businesssvc.BusinessDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &businesssvc.BusinessDTO{ID: id}, nil
}

func (s *stubBusinessService) Create(ctx context.Context, input businesssvc.CreateBusinessInput) (*businesssvc.BusinessDTO, error) {
	s.create = input
	if s.err != nil {
		return nil, s.err
	}
	return &businesssvc.BusinessDTO{ID: uuid.New(), Name: input.Name, Status: enums.BusinessStatusActive}, nil
}

func (s *stubBusinessService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*businesssvc.BusinessDTO, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &businesssvc.BusinessDTO{ID: id, Status: enums.BusinessStatus(status)}, nil
}

func (s *stubBusinessService) Summary(ctx context.Context) (*businesssvc.Summary, error) {
	return &businesssvc.Summary{Total: 3, Active: 2}, s.err
}

func (s *stubBusinessService) Register(ctx context.Context, tx *gorm.DB, info types.BusinessInfo) (uuid.UUID, error) {
	return uuid.Nil, s.err
}

type stubFacilityService struct {
	list    facilitysvc.ListParams
	update  facilitysvc.UpdateFacilityInput
	summary *uuid.UUID
	err     error
}

func (s *stubFacilityService) List(ctx context.Context, params facilitysvc.ListParams) (*facilitysvc.ListResult, error) {
	s.list = params
	return &facilitysvc.ListResult{Items: []facilitysvc.FacilityDTO{}}, s.err
}

func (s *stubFacilityService) Create(ctx context.Context, input facilitysvc.CreateFacilityInput) (*facilitysvc.FacilityDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &facilitysvc.FacilityDTO{ID: uuid.New(), BusinessID: input.BusinessID, Name: input.Name}, nil
}

func (s *stubFacilityService) Update(ctx context.Context, id uuid.UUID, input facilitysvc.UpdateFacilityInput) (*facilitysvc.FacilityDTO, error) {
	s.update = input
	if s.err != nil {
		return nil, s.err
	}
	return &facilitysvc.FacilityDTO{ID: id}, nil
}

func (s *stubFacilityService) Summary(ctx context.Context, businessID *uuid.UUID) (*facilitysvc.Summary, error) {
	s.summary = businessID
	return &facilitysvc.Summary{}, s.err
}

func withParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBusinessListFilters(t *testing.T) {
	svc := &stubBusinessService{}
	rec := httptest.NewRecorder()
	BusinessList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/businesses?search=%ED%97%AC%EC%8A%A4&status=active&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "헬스", svc.list.Search)
	assert.Equal(t, "active", svc.list.Status)
	assert.Equal(t, 5, svc.list.Limit)
}

func TestBusinessCreate(t *testing.T) {
	svc := &stubBusinessService{}
	body := `{"businessName":"다짐 피트니스","businessNumber":"123-45-67890","representativeName":"홍길동",` +
		`"businessType":"individual","businessCategory":"fitness","businessAddress":"서울시 강남구","phoneNumber":"010-1234-5678"}`
	rec := httptest.NewRecorder()
	BusinessCreate(svc, nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/businesses", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "다짐 피트니스", svc.create.Name)
	assert.Contains(t, rec.Body.String(), "다짐 피트니스")
}

func TestBusinessCreateRejectsBadNumber(t *testing.T) {
	svc := &stubBusinessService{}
	body := `{"businessName":"다짐 피트니스","businessNumber":"12","representativeName":"홍길동",` +
		`"businessType":"individual","businessCategory":"fitness","businessAddress":"서울시 강남구"}`
	rec := httptest.NewRecorder()
	BusinessCreate(svc, nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/businesses", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "businessNumber")
}

func TestBusinessCreateConflict(t *testing.T) {
	svc := &stubBusinessService{err: pkgerrors.New(pkgerrors.CodeConflict, "business number already registered")}
	body := `{"businessName":"다짐 피트니스","businessNumber":"123-45-67890","representativeName":"홍길동",` +
		`"businessType":"individual","businessCategory":"fitness","businessAddress":"서울시 강남구"}`
	rec := httptest.NewRecorder()
	BusinessCreate(svc, nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/businesses", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBusinessUpdateStatus(t *testing.T) {
	svc := &stubBusinessService{}
	id := uuid.New()
	req := withParam(jsonRequest(http.MethodPatch, "/api/v1/businesses/"+id.String()+"/status", `{"status":"inactive"}`), "businessId", id.String())
	rec := httptest.NewRecorder()
	BusinessUpdateStatus(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inactive", svc.status)
}

func TestBusinessUpdateStatusRejectsUnknown(t *testing.T) {
	svc := &stubBusinessService{}
	id := uuid.New()
	req := withParam(jsonRequest(http.MethodPatch, "/api/v1/businesses/"+id.String()+"/status", `{"status":"archived"}`), "businessId", id.String())
	rec := httptest.NewRecorder()
	BusinessUpdateStatus(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.status)
}

func TestBusinessSummary(t *testing.T) {
	rec := httptest.NewRecorder()
	BusinessSummary(&stubBusinessService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/businesses/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalBusinesses":3`)
}

func TestFacilityListByBusiness(t *testing.T) {
	svc := &stubFacilityService{}
	businessID := uuid.New()
	rec := httptest.NewRecorder()
	FacilityList(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/facilities?businessId="+businessID.String()+"&status=operating", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.list.BusinessID)
	assert.Equal(t, businessID, *svc.list.BusinessID)
	assert.Equal(t, "operating", svc.list.Status)
}

func TestFacilityListRejectsBadBusinessID(t *testing.T) {
	rec := httptest.NewRecorder()
	FacilityList(&stubFacilityService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/facilities?businessId=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFacilityCreate(t *testing.T) {
	businessID := uuid.New()
	body := `{"businessId":"` + businessID.String() + `","name":"강남점","type":"gym","memberCount":120,"revenue":5000000}`
	rec := httptest.NewRecorder()
	FacilityCreate(&stubFacilityService{}, nil).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/facilities", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), businessID.String())
}

func TestFacilityUpdatePatchesFields(t *testing.T) {
	svc := &stubFacilityService{}
	id := uuid.New()
	req := withParam(jsonRequest(http.MethodPatch, "/api/v1/facilities/"+id.String(), `{"status":"closed"}`), "facilityId", id.String())
	rec := httptest.NewRecorder()
	FacilityUpdate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.update.Status)
	assert.Equal(t, "closed", *svc.update.Status)
	assert.Nil(t, svc.update.Name)
}

func TestFacilityUpdateNotFound(t *testing.T) {
	svc := &stubFacilityService{err: pkgerrors.New(pkgerrors.CodeNotFound, "facility not found")}
	id := uuid.New()
	req := withParam(jsonRequest(http.MethodPatch, "/api/v1/facilities/"+id.String(), `{"memberCount":3}`), "facilityId", id.String())
	rec := httptest.NewRecorder()
	FacilityUpdate(svc, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFacilitySummaryScopesBusiness(t *testing.T) {
	svc := &stubFacilityService{}
	rec := httptest.NewRecorder()
	FacilitySummary(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/facilities/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.summary)
}
