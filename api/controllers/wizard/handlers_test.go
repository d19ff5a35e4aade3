package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dagym/contract-backend/api/middleware"
	wizardsvc "github.com/dagym/contract-backend/internal/wizard"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
)

type stubWizardService struct {
	view       *wizardsvc.View
	err        error
	operator   uuid.UUID
	envelope   wizardsvc.Envelope
	step       int
	planID     string
	selected   bool
	pricing    wizardsvc.PricingInput
	draftName  string
	draftID    uuid.UUID
	contractID uuid.UUID
	listParams wizardsvc.ListDraftsParams
	submit     wizardsvc.SubmitInput
	result     *wizardsvc.SubmitResult
	moved      bool
	deleted    bool
}

func (s *stubWizardService) Get(ctx context.Context, operatorID uuid.UUID) (*wizardsvc.View, error) {
	s.operator = operatorID
	return s.view, s.err
}

func (s *stubWizardService) Dispatch(ctx context.Context, operatorID uuid.UUID, envelope wizardsvc.Envelope) (*wizardsvc.View, error) {
	s.operator = operatorID
	s.envelope = envelope
	return s.view, s.err
}

func (s *stubWizardService) Navigate(ctx context.Context, operatorID uuid.UUID, step int) (*wizardsvc.NavigateResult, error) {
	s.operator = operatorID
	s.step = step
	if s.err != nil {
		return nil, s.err
	}
	return &wizardsvc.NavigateResult{View: *s.view, Moved: s.moved}, nil
}

func (s *stubWizardService) SelectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*wizardsvc.View, error) {
	s.planID = planID
	s.selected = true
	return s.view, s.err
}

func (s *stubWizardService) DeselectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*wizardsvc.View, error) {
	s.planID = planID
	s.selected = false
	return s.view, s.err
}

func (s *stubWizardService) UpdatePricing(ctx context.Context, operatorID uuid.UUID, input wizardsvc.PricingInput) (*wizardsvc.View, error) {
	s.pricing = input
	return s.view, s.err
}

func (s *stubWizardService) Reset(ctx context.Context, operatorID uuid.UUID) (*wizardsvc.View, error) {
	s.operator = operatorID
	return s.view, s.err
}

func (s *stubWizardService) SaveDraft(ctx context.Context, operatorID uuid.UUID, name string) (*wizardsvc.DraftSummary, error) {
	s.draftName = name
	if s.err != nil {
		return nil, s.err
	}
	return &wizardsvc.DraftSummary{ID: uuid.New(), Name: name}, nil
}

func (s *stubWizardService) ListDrafts(ctx context.Context, operatorID uuid.UUID, params wizardsvc.ListDraftsParams) (*wizardsvc.DraftList, error) {
	s.listParams = params
	return &wizardsvc.DraftList{Items: []wizardsvc.DraftSummary{}}, s.err
}

func (s *stubWizardService) LoadDraft(ctx context.Context, operatorID, draftID uuid.UUID) (*wizardsvc.View, error) {
	s.draftID = draftID
	return s.view, s.err
}

func (s *stubWizardService) DeleteDraft(ctx context.Context, operatorID, draftID uuid.UUID) error {
	s.draftID = draftID
	s.deleted = true
	return s.err
}

func (s *stubWizardService) LoadContract(ctx context.Context, operatorID, contractID uuid.UUID) (*wizardsvc.View, error) {
	s.contractID = contractID
	return s.view, s.err
}

func (s *stubWizardService) Submit(ctx context.Context, operatorID uuid.UUID, input wizardsvc.SubmitInput) (*wizardsvc.SubmitResult, error) {
	s.submit = input
	return s.result, s.err
}

func newStub() *stubWizardService {
	return &stubWizardService{view: &wizardsvc.View{State: wizardsvc.InitialState(), BillingCycle: enums.BillingCycleMonthly}}
}

func operatorRequest(method, target, body string, operatorID uuid.UUID, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), operatorID.String())
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for key, value := range params {
			rctx.URLParams.Add(key, value)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func TestWizardGetRequiresOperator(t *testing.T) {
	svc := newStub()
	rec := httptest.NewRecorder()
	WizardGet(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wizard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestWizardGetReturnsView(t *testing.T) {
	svc := newStub()
	operatorID := uuid.New()
	rec := httptest.NewRecorder()
	WizardGet(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodGet, "/api/v1/wizard", "", operatorID, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.operator != operatorID {
		t.Fatalf("expected operator %s got %s", operatorID, svc.operator)
	}
	var envelope struct {
		Data struct {
			State struct {
				CurrentStep int `json:"currentStep"`
			} `json:"state"`
			BillingCycle string `json:"billingCycle"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.State.CurrentStep != 1 || envelope.Data.BillingCycle != "monthly" {
		t.Fatalf("unexpected view %#v", envelope.Data)
	}
}

func TestWizardDispatchForwardsEnvelope(t *testing.T) {
	svc := newStub()
	body := `{"type":"SET_BUSINESS_INFO","payload":{"businessName":"다짐 피트니스"}}`
	rec := httptest.NewRecorder()
	WizardDispatch(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/actions", body, uuid.New(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.envelope.Type != wizardsvc.ActionSetBusinessInfo {
		t.Fatalf("unexpected action %s", svc.envelope.Type)
	}
}

func TestWizardDispatchRequiresType(t *testing.T) {
	svc := newStub()
	rec := httptest.NewRecorder()
	WizardDispatch(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/actions", `{"payload":{}}`, uuid.New(), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWizardNavigateReportsBlockedMove(t *testing.T) {
	svc := newStub()
	svc.moved = false
	rec := httptest.NewRecorder()
	WizardNavigate(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/navigate", `{"step":4}`, uuid.New(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.step != 4 {
		t.Fatalf("expected step 4 got %d", svc.step)
	}
	var envelope struct {
		Data struct {
			Moved bool `json:"moved"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Moved {
		t.Fatal("expected moved=false")
	}
}

func TestWizardNavigateFieldErrors(t *testing.T) {
	svc := newStub()
	svc.err = pkgerrors.FieldErrors("invalid business info", map[string]string{"businessNumber": "is required"})
	rec := httptest.NewRecorder()
	WizardNavigate(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/navigate", `{"step":2}`, uuid.New(), nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWizardPlanHandlers(t *testing.T) {
	svc := newStub()
	operatorID := uuid.New()

	rec := httptest.NewRecorder()
	WizardSelectPlan(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/plans/select", `{"planId":"manager"}`, operatorID, nil))
	if rec.Code != http.StatusOK || !svc.selected || svc.planID != "manager" {
		t.Fatalf("select failed: code=%d selected=%v plan=%s", rec.Code, svc.selected, svc.planID)
	}

	rec = httptest.NewRecorder()
	WizardDeselectPlan(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/plans/deselect", `{"planId":"manager"}`, operatorID, nil))
	if rec.Code != http.StatusOK || svc.selected {
		t.Fatalf("deselect failed: code=%d selected=%v", rec.Code, svc.selected)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeStateConflict, "manager plan required")
	rec = httptest.NewRecorder()
	WizardSelectPlan(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/plans/select", `{"planId":"app"}`, operatorID, nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestWizardPricingPartialUpdate(t *testing.T) {
	svc := newStub()
	rec := httptest.NewRecorder()
	WizardPricing(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPut, "/api/v1/wizard/pricing", `{"billingCycle":"yearly"}`, uuid.New(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.pricing.BillingCycle == nil || *svc.pricing.BillingCycle != enums.BillingCycleYearly {
		t.Fatalf("expected yearly cycle, got %#v", svc.pricing.BillingCycle)
	}
	if svc.pricing.IsPartner != nil {
		t.Fatal("expected partner flag untouched")
	}
}

func TestWizardSubmitCreatesContract(t *testing.T) {
	svc := newStub()
	contractID := uuid.New()
	svc.result = &wizardsvc.SubmitResult{ContractID: contractID, Link: "https://sign.example.com/contract/" + contractID.String(), Status: enums.ContractStatusDraft}

	body := `{"clientContact":{"name":"홍길동","phone":"010-1234-5678"},"sendMethod":"sms"}`
	rec := httptest.NewRecorder()
	WizardSubmit(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/submit", body, uuid.New(), nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if svc.submit.SendMethod != enums.SendMethodSMS || svc.submit.ClientContact.Name != "홍길동" {
		t.Fatalf("unexpected submit input %#v", svc.submit)
	}
}

func TestDraftHandlers(t *testing.T) {
	svc := newStub()
	operatorID := uuid.New()

	rec := httptest.NewRecorder()
	DraftSave(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/drafts", `{"name":"강남점"}`, operatorID, nil))
	if rec.Code != http.StatusCreated || svc.draftName != "강남점" {
		t.Fatalf("save failed: code=%d name=%s", rec.Code, svc.draftName)
	}

	rec = httptest.NewRecorder()
	DraftSave(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/drafts", "", operatorID, nil))
	if rec.Code != http.StatusCreated || svc.draftName != "" {
		t.Fatalf("save without body failed: code=%d name=%s", rec.Code, svc.draftName)
	}

	rec = httptest.NewRecorder()
	DraftList(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodGet, "/api/v1/wizard/drafts?limit=5", "", operatorID, nil))
	if rec.Code != http.StatusOK || svc.listParams.Limit != 5 {
		t.Fatalf("list failed: code=%d limit=%d", rec.Code, svc.listParams.Limit)
	}

	rec = httptest.NewRecorder()
	DraftList(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodGet, "/api/v1/wizard/drafts?cursor=bad*cursor", "", operatorID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed cursor to be rejected, got %d", rec.Code)
	}

	draftID := uuid.New()
	rec = httptest.NewRecorder()
	DraftLoad(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/drafts/x/load", "", operatorID, map[string]string{"draftId": draftID.String()}))
	if rec.Code != http.StatusOK || svc.draftID != draftID {
		t.Fatalf("load failed: code=%d draft=%s", rec.Code, svc.draftID)
	}

	rec = httptest.NewRecorder()
	DraftDelete(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodDelete, "/api/v1/wizard/drafts/x", "", operatorID, map[string]string{"draftId": draftID.String()}))
	if rec.Code != http.StatusNoContent || !svc.deleted {
		t.Fatalf("delete failed: code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	DraftLoad(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/wizard/drafts/x/load", "", operatorID, map[string]string{"draftId": "not-a-uuid"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestContractLoad(t *testing.T) {
	svc := newStub()
	contractID := uuid.New()
	rec := httptest.NewRecorder()
	ContractLoad(svc, nil).ServeHTTP(rec, operatorRequest(http.MethodPost, "/api/v1/contracts/x/load", "", uuid.New(), map[string]string{"contractId": contractID.String()}))

	if rec.Code != http.StatusOK || svc.contractID != contractID {
		t.Fatalf("load contract failed: code=%d id=%s", rec.Code, svc.contractID)
	}
}
