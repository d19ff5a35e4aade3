package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/types"
)

type fakeGateway struct {
	submitFn func(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	loadFn   func(ctx context.Context, contractID uuid.UUID) (*Session, error)
	submits  []SubmitRequest
}

func (f *fakeGateway) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	f.submits = append(f.submits, req)
	if f.submitFn != nil {
		return f.submitFn(ctx, req)
	}
	return &SubmitResult{
		ContractID:  uuid.New(),
		Link:        "https://sign.dagym.com/contract/x",
		Status:      enums.ContractStatusDraft,
		TotalAmount: req.Session.State.TotalAmount(),
	}, nil
}

func (f *fakeGateway) LoadForm(ctx context.Context, contractID uuid.UUID) (*Session, error) {
	if f.loadFn != nil {
		return f.loadFn(ctx, contractID)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
}

func newDraftDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:wizard_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.WizardDraft{}))
	return conn
}

func newTestService(t *testing.T, mode plans.PartnerMode, gateway *fakeGateway) (Service, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	selector, err := plans.NewSelector(plans.MustDefaultCatalog(), mode)
	require.NoError(t, err)
	if gateway == nil {
		gateway = &fakeGateway{}
	}
	svc, err := NewService(ServiceParams{
		Store:          store,
		Selector:       selector,
		Validator:      NewStepValidator(),
		Drafts:         NewDraftRepository(newDraftDB(t)),
		Contracts:      gateway,
		Logger:         logger.New(logger.Options{ServiceName: "wizard-test", Output: io.Discard}),
		MaxSavedDrafts: 2,
	})
	require.NoError(t, err)
	return svc, store
}

func seedSession(t *testing.T, store *Store, operatorID uuid.UUID, state FormState) {
	t.Helper()
	session := store.Fresh()
	session.State = state
	require.NoError(t, store.Save(context.Background(), operatorID, session))
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestDispatchMergesBusinessInfo(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	view, err := svc.Dispatch(ctx, operatorID, Envelope{
		Type:    ActionSetBusinessInfo,
		Payload: json.RawMessage(`{"businessName":"다짐 피트니스","businessNumber":"1234567890"}`),
	})
	require.NoError(t, err)
	require.Equal(t, "다짐 피트니스", view.State.BusinessInfo.BusinessName)

	view, err = svc.Dispatch(ctx, operatorID, Envelope{
		Type:    ActionSetBusinessInfo,
		Payload: json.RawMessage(`{"businessAddress":"서울"}`),
	})
	require.NoError(t, err)
	require.Equal(t, "다짐 피트니스", view.State.BusinessInfo.BusinessName)
	require.Equal(t, "서울", view.State.BusinessInfo.BusinessAddress)
}

func TestDispatchRejectsUnknownAction(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	_, err := svc.Dispatch(context.Background(), uuid.New(), Envelope{Type: "NOPE"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDispatchStepChangeGoesThroughGate(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	view, err := svc.Dispatch(context.Background(), uuid.New(), Envelope{
		Type:    ActionSetCurrentStep,
		Payload: json.RawMessage(`{"step":4}`),
	})
	require.NoError(t, err)
	require.Equal(t, StepBusiness, view.State.CurrentStep)
}

func TestNavigateInaccessibleStepIsNoop(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)

	for _, step := range []int{0, 3, 6} {
		result, err := svc.Navigate(context.Background(), uuid.New(), step)
		require.NoError(t, err)
		require.False(t, result.Moved)
		require.Equal(t, StepBusiness, result.State.CurrentStep)
	}
}

func TestNavigateForwardRunsFieldRules(t *testing.T) {
	svc, store := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	state := Reduce(filledState(), MergeBusinessInfo{Patch: BusinessInfoPatch{BusinessNumber: strPtr("12-34")}})
	seedSession(t, store, operatorID, state)

	_, err := svc.Navigate(ctx, operatorID, StepAccount)
	requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, StepBusiness, details["step"])

	current, err := svc.Get(ctx, operatorID)
	require.NoError(t, err)
	require.Equal(t, StepBusiness, current.State.CurrentStep)
}

func TestNavigateMovesWhenValid(t *testing.T) {
	svc, store := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()
	seedSession(t, store, operatorID, filledState())

	result, err := svc.Navigate(ctx, operatorID, StepPayment)
	require.NoError(t, err)
	require.True(t, result.Moved)
	require.Equal(t, StepPayment, result.State.CurrentStep)

	back, err := svc.Navigate(ctx, operatorID, StepBusiness)
	require.NoError(t, err)
	require.True(t, back.Moved)
	require.Equal(t, StepBusiness, back.State.CurrentStep)
}

func TestSelectPlanAppliesPartnerPricing(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	_, err := svc.SelectPlan(ctx, operatorID, "manager")
	require.NoError(t, err)
	view, err := svc.SelectPlan(ctx, operatorID, "light")
	require.NoError(t, err)

	require.True(t, view.IsPartner)
	require.Len(t, view.State.SelectedPlans, 2)
	require.Equal(t, int64(20900), view.State.SelectedPlans[0].Price)
	require.Equal(t, int64(20900+1188000), view.TotalAmount)

	view, err = svc.SelectPlan(ctx, operatorID, "standard")
	require.NoError(t, err)
	require.Len(t, view.State.SelectedPlans, 2)
	require.Equal(t, "standard", view.State.SelectedPlans[1].PlanID)
}

func TestSelectDependentAddonWithoutManager(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	_, err := svc.SelectPlan(context.Background(), uuid.New(), "multi-branch")
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.SelectPlan(context.Background(), uuid.New(), "does-not-exist")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeselectManagerCascades(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	for _, id := range []string{"light", "manager", "multi-branch", "kiosk-access"} {
		_, err := svc.SelectPlan(ctx, operatorID, id)
		require.NoError(t, err)
	}
	view, err := svc.DeselectPlan(ctx, operatorID, "manager")
	require.NoError(t, err)
	require.Len(t, view.State.SelectedPlans, 1)
	require.Equal(t, "light", view.State.SelectedPlans[0].PlanID)
}

func TestUpdatePricingRepricesSelection(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	_, err := svc.SelectPlan(ctx, operatorID, "light")
	require.NoError(t, err)

	monthly := enums.BillingCycleMonthly
	view, err := svc.UpdatePricing(ctx, operatorID, PricingInput{BillingCycle: &monthly})
	require.NoError(t, err)
	require.Equal(t, enums.BillingCycleMonthly, view.BillingCycle)
	require.Equal(t, int64(165000), view.State.SelectedPlans[0].Price)
	require.Equal(t, enums.BillingCycleMonthly, view.State.SelectedPlans[0].BillingType)

	partner := false
	_, err = svc.UpdatePricing(ctx, operatorID, PricingInput{IsPartner: &partner})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdatePricing(ctx, operatorID, PricingInput{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestManualPartnerToggle(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeManual, nil)
	ctx := context.Background()
	operatorID := uuid.New()

	_, err := svc.SelectPlan(ctx, operatorID, "manager")
	require.NoError(t, err)

	partner := true
	view, err := svc.UpdatePricing(ctx, operatorID, PricingInput{IsPartner: &partner})
	require.NoError(t, err)
	require.True(t, view.IsPartner)
	require.Equal(t, int64(20900), view.State.SelectedPlans[0].Price)
}

func TestDraftRoundTrip(t *testing.T) {
	svc, store := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()
	seedSession(t, store, operatorID, filledState())

	saved, err := svc.SaveDraft(ctx, operatorID, "")
	require.NoError(t, err)
	require.Equal(t, "다짐 피트니스", saved.Name)

	_, err = svc.Reset(ctx, operatorID)
	require.NoError(t, err)

	view, err := svc.LoadDraft(ctx, operatorID, saved.ID)
	require.NoError(t, err)
	require.Equal(t, filledState(), view.State)
	require.True(t, view.IsPartner)

	_, err = svc.LoadDraft(ctx, uuid.New(), saved.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestSaveDraftPrunesAndPaginates(t *testing.T) {
	svc, store := newTestService(t, plans.PartnerModeAuto, nil)
	ctx := context.Background()
	operatorID := uuid.New()
	seedSession(t, store, operatorID, filledState())

	var ids []uuid.UUID
	for _, name := range []string{"first", "second", "third"} {
		saved, err := svc.SaveDraft(ctx, operatorID, name)
		require.NoError(t, err)
		ids = append(ids, saved.ID)
	}

	page, err := svc.ListDrafts(ctx, operatorID, ListDraftsParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "third", page.Items[0].Name)
	require.NotEmpty(t, page.Cursor)

	next, err := svc.ListDrafts(ctx, operatorID, ListDraftsParams{Limit: 1, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Equal(t, "second", next.Items[0].Name)
	require.Empty(t, next.Cursor)

	requireCode(t, svc.DeleteDraft(ctx, operatorID, ids[0]), pkgerrors.CodeNotFound)
	require.NoError(t, svc.DeleteDraft(ctx, operatorID, ids[2]))
}

func TestSaveDraftRejectsBlankSession(t *testing.T) {
	svc, _ := newTestService(t, plans.PartnerModeAuto, nil)
	_, err := svc.SaveDraft(context.Background(), uuid.New(), "empty")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSubmitRequiresCompleteSteps(t *testing.T) {
	gateway := &fakeGateway{}
	svc, store := newTestService(t, plans.PartnerModeAuto, gateway)
	operatorID := uuid.New()
	seedSession(t, store, operatorID, Reduce(filledState(), ReplaceSelectedPlans{}))

	_, err := svc.Submit(context.Background(), operatorID, SubmitInput{SendMethod: enums.SendMethodSMS})
	requireCode(t, err, pkgerrors.CodeValidation)
	require.Empty(t, gateway.submits)
}

func TestSubmitClearsSessionOnSuccess(t *testing.T) {
	gateway := &fakeGateway{}
	svc, store := newTestService(t, plans.PartnerModeAuto, gateway)
	ctx := context.Background()
	operatorID := uuid.New()
	seedSession(t, store, operatorID, filledState())

	result, err := svc.Submit(ctx, operatorID, SubmitInput{
		ClientContact: types.ClientContact{Name: "김고객", Phone: "010-9876-5432"},
		SendMethod:    enums.SendMethodSMS,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, result.ContractID)
	require.Len(t, gateway.submits, 1)
	require.Equal(t, operatorID, gateway.submits[0].OperatorID)

	view, err := svc.Get(ctx, operatorID)
	require.NoError(t, err)
	require.True(t, IsBlank(view.State))
}

func TestSubmitFailureLeavesSession(t *testing.T) {
	gateway := &fakeGateway{submitFn: func(context.Context, SubmitRequest) (*SubmitResult, error) {
		return nil, errors.New("db down")
	}}
	svc, store := newTestService(t, plans.PartnerModeAuto, gateway)
	ctx := context.Background()
	operatorID := uuid.New()
	seedSession(t, store, operatorID, filledState())

	_, err := svc.Submit(ctx, operatorID, SubmitInput{SendMethod: enums.SendMethodSMS})
	requireCode(t, err, pkgerrors.CodeDependency)

	view, err := svc.Get(ctx, operatorID)
	require.NoError(t, err)
	require.Equal(t, filledState(), view.State)
}

func TestLoadContractReplacesSession(t *testing.T) {
	loaded := Session{State: filledState(), Cycle: enums.BillingCycleYearly, Partner: true}
	gateway := &fakeGateway{loadFn: func(context.Context, uuid.UUID) (*Session, error) {
		return &loaded, nil
	}}
	svc, _ := newTestService(t, plans.PartnerModeAuto, gateway)

	view, err := svc.LoadContract(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, "다짐 피트니스", view.State.BusinessInfo.BusinessName)

	_, err = newServiceWithMissingContract(t).LoadContract(context.Background(), uuid.New(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func newServiceWithMissingContract(t *testing.T) Service {
	svc, _ := newTestService(t, plans.PartnerModeAuto, &fakeGateway{})
	return svc
}
