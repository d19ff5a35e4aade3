package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/pagination"
	"github.com/dagym/contract-backend/pkg/types"
)

// Service drives one operator's wizard session.
type Service interface {
	Get(ctx context.Context, operatorID uuid.UUID) (*View, error)
	Dispatch(ctx context.Context, operatorID uuid.UUID, envelope Envelope) (*View, error)
	Navigate(ctx context.Context, operatorID uuid.UUID, step int) (*NavigateResult, error)
	SelectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*View, error)
	DeselectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*View, error)
	UpdatePricing(ctx context.Context, operatorID uuid.UUID, input PricingInput) (*View, error)
	Reset(ctx context.Context, operatorID uuid.UUID) (*View, error)
	SaveDraft(ctx context.Context, operatorID uuid.UUID, name string) (*DraftSummary, error)
	ListDrafts(ctx context.Context, operatorID uuid.UUID, params ListDraftsParams) (*DraftList, error)
	LoadDraft(ctx context.Context, operatorID, draftID uuid.UUID) (*View, error)
	DeleteDraft(ctx context.Context, operatorID, draftID uuid.UUID) error
	LoadContract(ctx context.Context, operatorID, contractID uuid.UUID) (*View, error)
	Submit(ctx context.Context, operatorID uuid.UUID, input SubmitInput) (*SubmitResult, error)
}

// ContractGateway is the contracts side of the wizard.
type ContractGateway interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	LoadForm(ctx context.Context, contractID uuid.UUID) (*Session, error)
}

// View is the session as returned to the console.
type View struct {
	State        FormState          `json:"state"`
	BillingCycle enums.BillingCycle `json:"billingCycle"`
	IsPartner    bool               `json:"isPartner"`
	PartnerMode  plans.PartnerMode  `json:"partnerMode"`
	TotalAmount  int64              `json:"totalAmount"`
	Steps        []StepStatus       `json:"steps"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// NavigateResult reports whether the step pointer moved.
type NavigateResult struct {
	View
	Moved bool `json:"moved"`
}

// PricingInput changes the billing cycle and/or the partner flag. Nil fields are left alone.
type PricingInput struct {
	BillingCycle *enums.BillingCycle `json:"billingCycle"`
	IsPartner    *bool               `json:"isPartner"`
}

// SubmitInput carries who receives the contract link and how.
type SubmitInput struct {
	ClientContact types.ClientContact `json:"clientContact"`
	SendMethod    enums.SendMethod    `json:"sendMethod"`
	SendNow       bool                `json:"sendNow"`
}

// SubmitRequest is what the wizard hands to the contracts service.
type SubmitRequest struct {
	OperatorID uuid.UUID
	Session    Session
	SubmitInput
}

// SubmitResult identifies the created contract.
type SubmitResult struct {
	ContractID  uuid.UUID            `json:"contractId"`
	Link        string               `json:"link"`
	Status      enums.ContractStatus `json:"status"`
	TotalAmount int64                `json:"totalAmount"`
}

// DraftSummary describes a saved draft without its state.
type DraftSummary struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BusinessName string    `json:"businessName"`
	CurrentStep  int       `json:"currentStep"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ListDraftsParams configures draft pagination.
type ListDraftsParams struct {
	Limit  int
	Cursor string
}

// DraftList is a page of drafts plus the cursor for the next page.
type DraftList struct {
	Items  []DraftSummary `json:"items"`
	Cursor string         `json:"cursor"`
}

// ServiceParams wires the wizard service.
type ServiceParams struct {
	Store          *Store
	Selector       *plans.Selector
	Validator      *StepValidator
	Drafts         DraftRepository
	Contracts      ContractGateway
	Logger         *logger.Logger
	Metrics        *metrics.WizardMetrics
	MaxSavedDrafts int
}

type service struct {
	store     *Store
	selector  *plans.Selector
	validator *StepValidator
	drafts    DraftRepository
	contracts ContractGateway
	logg      *logger.Logger
	metrics   *metrics.WizardMetrics
	maxDrafts int
}

// NewService wires the wizard dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wizard store required")
	case params.Selector == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plan selector required")
	case params.Validator == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "step validator required")
	case params.Drafts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "draft repository required")
	case params.Contracts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contract gateway required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		store:     params.Store,
		selector:  params.Selector,
		validator: params.Validator,
		drafts:    params.Drafts,
		contracts: params.Contracts,
		logg:      params.Logger,
		metrics:   params.Metrics,
		maxDrafts: params.MaxSavedDrafts,
	}, nil
}

func (s *service) Get(ctx context.Context, operatorID uuid.UUID) (*View, error) {
	session, err := s.store.Load(ctx, operatorID)
	if err != nil {
		return nil, storeError(err, "load wizard session")
	}
	return s.view(session), nil
}

func (s *service) Dispatch(ctx context.Context, operatorID uuid.UUID, envelope Envelope) (*View, error) {
	action, err := envelope.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wizard action")
	}
	if nav, ok := action.(SetCurrentStep); ok {
		result, err := s.Navigate(ctx, operatorID, nav.Step)
		if err != nil {
			return nil, err
		}
		return &result.View, nil
	}

	session, err := s.store.Update(ctx, operatorID, func(current Session) (Session, error) {
		switch action.(type) {
		case Reset:
			return s.store.Fresh(), nil
		case ReplaceSelectedPlans, AddSelectedPlan, RemoveSelectedPlan, LoadDraft:
			current.State = Reduce(current.State, action)
			return s.resync(current), nil
		}
		current.State = Reduce(current.State, action)
		return current, nil
	})
	if err != nil {
		return nil, storeError(err, "apply wizard action")
	}
	s.metrics.IncAction(string(action.Type()))
	return s.view(session), nil
}

// Navigate moves to step when every earlier step is complete. Moving forward also runs the field
// rules of the steps being left; an inaccessible step leaves the session as it is.
func (s *service) Navigate(ctx context.Context, operatorID uuid.UUID, step int) (*NavigateResult, error) {
	moved := false
	session, err := s.store.Update(ctx, operatorID, func(current Session) (Session, error) {
		next, ok := Navigate(current.State, step)
		if !ok {
			return current, nil
		}
		if step > current.State.CurrentStep {
			if verr := s.validator.ValidateBefore(current.State, step); verr != nil {
				return current, verr
			}
		}
		moved = true
		current.State = next
		return current, nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			s.metrics.IncNavigation("invalid")
		}
		return nil, storeError(err, "navigate wizard")
	}
	if moved {
		s.metrics.IncNavigation("moved")
	} else {
		s.metrics.IncNavigation("blocked")
	}
	return &NavigateResult{View: *s.view(session), Moved: moved}, nil
}

func (s *service) SelectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*View, error) {
	return s.updateSelection(ctx, operatorID, func(sel plans.Selection) (plans.Selection, error) {
		return s.selector.Select(sel, planID)
	})
}

func (s *service) DeselectPlan(ctx context.Context, operatorID uuid.UUID, planID string) (*View, error) {
	return s.updateSelection(ctx, operatorID, func(sel plans.Selection) (plans.Selection, error) {
		return s.selector.Deselect(sel, planID)
	})
}

func (s *service) UpdatePricing(ctx context.Context, operatorID uuid.UUID, input PricingInput) (*View, error) {
	if input.BillingCycle == nil && input.IsPartner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "billingCycle or isPartner required")
	}
	return s.updateSelection(ctx, operatorID, func(sel plans.Selection) (plans.Selection, error) {
		var err error
		if input.BillingCycle != nil {
			if sel, err = s.selector.SetCycle(sel, *input.BillingCycle); err != nil {
				return sel, err
			}
		}
		if input.IsPartner != nil {
			if sel, err = s.selector.SetPartner(sel, *input.IsPartner); err != nil {
				return sel, err
			}
		}
		return sel, nil
	})
}

func (s *service) Reset(ctx context.Context, operatorID uuid.UUID) (*View, error) {
	session, err := s.store.Update(ctx, operatorID, func(Session) (Session, error) {
		return s.store.Fresh(), nil
	})
	if err != nil {
		return nil, storeError(err, "reset wizard")
	}
	s.metrics.IncAction(string(ActionResetForm))
	return s.view(session), nil
}

func (s *service) SaveDraft(ctx context.Context, operatorID uuid.UUID, name string) (*DraftSummary, error) {
	session, err := s.store.Load(ctx, operatorID)
	if err != nil {
		return nil, storeError(err, "load wizard session")
	}
	if IsBlank(session.State) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to save yet")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode draft")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultDraftName(session)
	}
	draft := &models.WizardDraft{
		OperatorID:   operatorID,
		Name:         name,
		BusinessName: session.State.BusinessInfo.BusinessName,
		CurrentStep:  session.State.CurrentStep,
		State:        payload,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}

	if pruned, err := s.drafts.PruneOldest(ctx, operatorID, s.maxDrafts); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, operatorID.String()), "prune wizard drafts", err)
	} else if pruned > 0 {
		s.logg.Info(s.logg.WithField(ctx, "pruned", pruned), "old wizard drafts pruned")
	}

	summary := summarize(*draft)
	return &summary, nil
}

func (s *service) ListDrafts(ctx context.Context, operatorID uuid.UUID, params ListDraftsParams) (*DraftList, error) {
	query := listDraftsParams{
		OperatorID: operatorID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.Parse(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.drafts.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drafts")
	}
	items := make([]DraftSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summarize(row))
	}
	return &DraftList{Items: items, Cursor: pagination.Encode(next)}, nil
}

func (s *service) LoadDraft(ctx context.Context, operatorID, draftID uuid.UUID) (*View, error) {
	draft, err := s.drafts.Find(ctx, operatorID, draftID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find draft")
	}
	if draft == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
	}
	var saved Session
	if err := json.Unmarshal(draft.State, &saved); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode draft")
	}
	return s.adopt(ctx, operatorID, saved)
}

func (s *service) DeleteDraft(ctx context.Context, operatorID, draftID uuid.UUID) error {
	deleted, err := s.drafts.Delete(ctx, operatorID, draftID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete draft")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
	}
	return nil
}

// LoadContract replaces the session with the form an existing contract was created from.
func (s *service) LoadContract(ctx context.Context, operatorID, contractID uuid.UUID) (*View, error) {
	saved, err := s.contracts.LoadForm(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, operatorID, *saved)
}

// Submit hands a complete session to the contracts service. The session is cleared only when the
// contract was created.
func (s *service) Submit(ctx context.Context, operatorID uuid.UUID, input SubmitInput) (*SubmitResult, error) {
	var result *SubmitResult
	err := s.store.Exclusive(ctx, operatorID, func(current Session) error {
		if !CanProceedToStep(current.State, StepPayment) {
			return pkgerrors.New(pkgerrors.CodeValidation, "complete every step before submitting").
				WithDetails(map[string]any{"incompleteSteps": incompleteSteps(current.State)})
		}
		if verr := s.validator.ValidateBefore(current.State, StepPayment); verr != nil {
			return verr
		}

		created, err := s.contracts.Submit(ctx, SubmitRequest{
			OperatorID:  operatorID,
			Session:     current,
			SubmitInput: input,
		})
		if err != nil {
			return err
		}
		result = created

		if err := s.store.Clear(ctx, operatorID); err != nil {
			s.logg.Error(s.logg.WithContractID(ctx, created.ContractID.String()), "clear wizard session after submit", err)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "submit wizard")
	}
	s.logg.Info(s.logg.WithContractID(ctx, result.ContractID.String()), "wizard submitted")
	return result, nil
}

func (s *service) updateSelection(ctx context.Context, operatorID uuid.UUID, fn func(plans.Selection) (plans.Selection, error)) (*View, error) {
	session, err := s.store.Update(ctx, operatorID, func(current Session) (Session, error) {
		sel, err := fn(current.Selection())
		if err != nil {
			return current, selectionError(err)
		}
		return current.WithSelection(sel), nil
	})
	if err != nil {
		return nil, storeError(err, "update plan selection")
	}
	s.metrics.IncAction(string(ActionSetSelectedPlans))
	return s.view(session), nil
}

func (s *service) adopt(ctx context.Context, operatorID uuid.UUID, saved Session) (*View, error) {
	session, err := s.store.Update(ctx, operatorID, func(current Session) (Session, error) {
		current.State = Reduce(current.State, LoadDraft{State: saved.State})
		current.Cycle = saved.Cycle
		current.Partner = saved.Partner
		return s.resync(current), nil
	})
	if err != nil {
		return nil, storeError(err, "load draft")
	}
	s.metrics.IncAction(string(ActionLoadDraft))
	return s.view(session), nil
}

// resync aligns the cycle and partner settings with the plan snapshots after the plan list was
// replaced through the raw reducer. Prices are left as given.
func (s *service) resync(session Session) Session {
	for _, entry := range session.State.SelectedPlans {
		if entry.BillingType.IsValid() {
			session.Cycle = entry.BillingType
			break
		}
	}
	if !session.Cycle.IsValid() {
		session.Cycle = s.store.Fresh().Cycle
	}
	if s.selector.Mode() == plans.PartnerModeAuto {
		session.Partner = plans.DerivePartner(s.selector.Catalog(), session.State.SelectedPlans)
	}
	return session
}

func (s *service) view(session Session) *View {
	state := session.State.Clone()
	return &View{
		State:        state,
		BillingCycle: session.Cycle,
		IsPartner:    session.Partner,
		PartnerMode:  s.selector.Mode(),
		TotalAmount:  state.TotalAmount(),
		Steps:        Progress(state),
		UpdatedAt:    session.UpdatedAt,
	}
}

func summarize(draft models.WizardDraft) DraftSummary {
	return DraftSummary{
		ID:           draft.ID,
		Name:         draft.Name,
		BusinessName: draft.BusinessName,
		CurrentStep:  draft.CurrentStep,
		CreatedAt:    draft.CreatedAt,
		UpdatedAt:    draft.UpdatedAt,
	}
}

func defaultDraftName(session Session) string {
	if name := strings.TrimSpace(session.State.BusinessInfo.BusinessName); name != "" {
		return name
	}
	return "임시저장 " + time.Now().In(seoul).Format("2006-01-02 15:04")
}

func incompleteSteps(state FormState) []int {
	var out []int
	for step := FirstStep; step < StepPayment; step++ {
		if !IsStepCompleted(state, step) {
			out = append(out, step)
		}
	}
	return out
}

func selectionError(err error) error {
	switch {
	case errors.Is(err, plans.ErrUnknownPlan),
		errors.Is(err, plans.ErrPrerequisiteMissing),
		errors.Is(err, plans.ErrMultipleMainPlans),
		errors.Is(err, plans.ErrDuplicateSelection),
		errors.Is(err, plans.ErrInvalidBillingCycle),
		errors.Is(err, plans.ErrPartnerFlagDerived):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan selection")
}

// storeError passes typed errors through and marks the rest as a session store failure.
func storeError(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

var seoul = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}()
