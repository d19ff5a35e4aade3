package contracts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/internal/wizard"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
	"github.com/dagym/contract-backend/pkg/pagination"
	"github.com/dagym/contract-backend/pkg/types"
	"github.com/dagym/contract-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// BusinessRegistrar links a submitted contract to its business row, creating it on first sight.
type BusinessRegistrar interface {
	Register(ctx context.Context, tx *gorm.DB, info types.BusinessInfo) (uuid.UUID, error)
}

// Service owns contract creation and the status lifecycle.
type Service interface {
	Submit(ctx context.Context, req wizard.SubmitRequest) (*wizard.SubmitResult, error)
	LoadForm(ctx context.Context, contractID uuid.UUID) (*wizard.Session, error)
	Get(ctx context.Context, contractID uuid.UUID) (*Detail, error)
	GetPublic(ctx context.Context, contractID uuid.UUID) (*PublicView, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Send(ctx context.Context, input TransitionInput) (*Detail, error)
	Resend(ctx context.Context, input TransitionInput) (*Detail, error)
	MarkPaid(ctx context.Context, input TransitionInput) (*Detail, error)
	Complete(ctx context.Context, input TransitionInput) (*Detail, error)
	RecordSigned(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) error
}

// TransitionInput identifies the contract and the operator moving it.
type TransitionInput struct {
	ContractID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  string
}

// ServiceParams wires the contracts service.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Outbox         outboxPublisher
	Businesses     BusinessRegistrar
	Selector       *plans.Selector
	Logger         *logger.Logger
	Metrics        *metrics.ContractMetrics
	PublicBaseURL  string
	InjectFreePlan bool
}

type service struct {
	repo           Repository
	tx             txRunner
	outbox         outboxPublisher
	businesses     BusinessRegistrar
	selector       *plans.Selector
	logg           *logger.Logger
	metrics        *metrics.ContractMetrics
	validate       *validator.Validate
	baseURL        string
	injectFreePlan bool
	now            func() time.Time
}

type contactForm struct {
	Name  string `json:"name" validate:"required,runemin=2"`
	Phone string `json:"phone" validate:"required,krmobile"`
	Email string `json:"email" validate:"omitempty,looseemail"`
}

// NewService builds the contracts service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contracts repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	case params.Businesses == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "business registrar required")
	case params.Selector == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plan selector required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	case strings.TrimSpace(params.PublicBaseURL) == "":
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "public base url required")
	}
	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		outbox:         params.Outbox,
		businesses:     params.Businesses,
		selector:       params.Selector,
		logg:           params.Logger,
		metrics:        params.Metrics,
		validate:       validation.New(),
		baseURL:        strings.TrimRight(strings.TrimSpace(params.PublicBaseURL), "/"),
		injectFreePlan: params.InjectFreePlan,
		now:            time.Now,
	}, nil
}

// Submit creates a draft contract from a complete wizard session. With SendNow the contract is
// also moved to sent in the same transaction. Nothing is persisted when any step fails.
func (s *service) Submit(ctx context.Context, req wizard.SubmitRequest) (*wizard.SubmitResult, error) {
	if req.OperatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}
	state := req.Session.State
	if !wizard.CanProceedToStep(state, wizard.StepPayment) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "complete every step before submitting")
	}
	if !req.SendMethod.IsValid() {
		return nil, pkgerrors.FieldErrors("invalid send method", map[string]string{"sendMethod": "must be one of [email sms kakao]"})
	}
	contact, err := s.checkContact(req.ClientContact, req.SendMethod)
	if err != nil {
		return nil, err
	}
	if err := s.selector.Validate(state.SelectedPlans); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	sel := s.selector.Normalize(req.Session.Selection())
	selected := s.withFreePlan(sel)

	contractID := uuid.New()
	contract := &models.Contract{
		ID:                 contractID,
		BusinessNumber:     state.BusinessInfo.BusinessNumber,
		BusinessInfo:       state.BusinessInfo,
		AccountInfo:        state.AccountInfo,
		RepresentativeInfo: state.RepresentativeInfo,
		SelectedPlans:      selected,
		BillingCycle:       sel.Cycle,
		Partner:            sel.Partner,
		TotalAmount:        plans.Total(selected),
		Status:             enums.ContractStatusDraft,
		ClientContact:      contact,
		SendMethod:         req.SendMethod,
		Link:               s.linkFor(contractID),
		CreatedBy:          req.OperatorID,
	}

	actor := &outbox.ActorRef{UserID: req.OperatorID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		businessID, err := s.businesses.Register(ctx, tx, state.BusinessInfo)
		if err != nil {
			return err
		}
		contract.BusinessID = &businessID
		if err := s.repo.WithTx(tx).Create(ctx, contract); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contract")
		}
		if !req.SendNow {
			return nil
		}
		sent, err := s.advanceTx(ctx, tx, contractID, enums.ContractStatusSent, actor)
		if err != nil {
			return err
		}
		contract = sent
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSubmitted(string(req.SendMethod))
	logCtx := s.logg.WithFields(s.logg.WithContractID(ctx, contractID.String()), map[string]any{
		"send_method":  req.SendMethod,
		"total_amount": contract.TotalAmount,
		"status":       contract.Status,
	})
	s.logg.Info(logCtx, "contract submitted")

	return &wizard.SubmitResult{
		ContractID:  contract.ID,
		Link:        contract.Link,
		Status:      contract.Status,
		TotalAmount: contract.TotalAmount,
	}, nil
}

// LoadForm rebuilds a wizard session from a stored contract so the operator can start a new
// contract from it.
func (s *service) LoadForm(ctx context.Context, contractID uuid.UUID) (*wizard.Session, error) {
	contract, err := s.find(ctx, s.repo, contractID)
	if err != nil {
		return nil, err
	}
	state := wizard.FormState{
		CurrentStep:        wizard.FirstStep,
		BusinessInfo:       contract.BusinessInfo,
		AccountInfo:        contract.AccountInfo,
		RepresentativeInfo: contract.RepresentativeInfo,
		SelectedPlans:      withoutInjectedPlans(contract.SelectedPlans),
	}
	return &wizard.Session{
		State:   state.Clone(),
		Cycle:   contract.BillingCycle,
		Partner: contract.Partner,
	}, nil
}

func (s *service) Get(ctx context.Context, contractID uuid.UUID) (*Detail, error) {
	contract, err := s.find(ctx, s.repo, contractID)
	if err != nil {
		return nil, err
	}
	signature, err := s.repo.FindSignature(ctx, contractID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load signature")
	}
	detail := toDetail(*contract, signature)
	return &detail, nil
}

// GetPublic is the signing page's fetch-by-id. Drafts have not been sent yet and are not
// visible.
func (s *service) GetPublic(ctx context.Context, contractID uuid.UUID) (*PublicView, error) {
	contract, err := s.find(ctx, s.repo, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == enums.ContractStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
	}
	view := toPublicView(*contract)
	return &view, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listContractsParams{Limit: params.Limit}
	if raw := strings.TrimSpace(params.Status); raw != "" && raw != "all" {
		status, err := enums.ParseContractStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if params.Cursor != "" {
		cursor, err := pagination.Parse(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contracts")
	}
	items := make([]Summary, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSummary(row))
	}
	return &ListResult{Items: items, Cursor: pagination.Encode(next)}, nil
}

func (s *service) Send(ctx context.Context, input TransitionInput) (*Detail, error) {
	return s.advance(ctx, input, enums.ContractStatusSent)
}

// Resend queues the signing link again for a contract that is waiting on the client.
func (s *service) Resend(ctx context.Context, input TransitionInput) (*Detail, error) {
	if err := checkTransitionInput(input); err != nil {
		return nil, err
	}
	var updated *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		contract, err := s.find(ctx, repo, input.ContractID)
		if err != nil {
			return err
		}
		if contract.Status != enums.ContractStatusSent {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only sent contracts can be resent").
				WithDetails(map[string]any{"status": contract.Status})
		}
		now := s.now().UTC()
		if err := repo.Touch(ctx, contract.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch contract")
		}
		contract.UpdatedAt = now
		updated = contract
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventContractResent,
			AggregateType: enums.AggregateContract,
			AggregateID:   contract.ID,
			Actor:         actorOf(input),
			Data:          linkEvent(*contract, true),
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithContractID(ctx, updated.ID.String()), "contract link resent")
	detail := toDetail(*updated, nil)
	return &detail, nil
}

func (s *service) MarkPaid(ctx context.Context, input TransitionInput) (*Detail, error) {
	return s.advance(ctx, input, enums.ContractStatusPaid)
}

func (s *service) Complete(ctx context.Context, input TransitionInput) (*Detail, error) {
	return s.advance(ctx, input, enums.ContractStatusCompleted)
}

// RecordSigned moves a sent contract to signed inside the caller's transaction.
func (s *service) RecordSigned(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	_, err := s.advanceTx(ctx, tx, contractID, enums.ContractStatusSigned, nil)
	return err
}

func (s *service) advance(ctx context.Context, input TransitionInput, target enums.ContractStatus) (*Detail, error) {
	if err := checkTransitionInput(input); err != nil {
		return nil, err
	}
	var updated *models.Contract
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		contract, err := s.advanceTx(ctx, tx, input.ContractID, target, actorOf(input))
		if err != nil {
			return err
		}
		updated = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	detail := toDetail(*updated, nil)
	return &detail, nil
}

// advanceTx applies one lifecycle step with a conditional update, so two concurrent requests for
// the same step cannot both succeed, and writes the matching outbox event.
func (s *service) advanceTx(ctx context.Context, tx *gorm.DB, contractID uuid.UUID, target enums.ContractStatus, actor *outbox.ActorRef) (*models.Contract, error) {
	repo := s.repo.WithTx(tx)
	contract, err := s.find(ctx, repo, contractID)
	if err != nil {
		return nil, err
	}
	from := contract.Status
	if !from.CanTransitionTo(target) {
		return nil, transitionConflict(from, target)
	}

	now := s.now().UTC()
	ok, err := repo.Transition(ctx, contract.ID, from, target, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contract status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "contract status changed concurrently")
	}
	applyTransition(contract, target, now)

	event := outbox.DomainEvent{
		AggregateType: enums.AggregateContract,
		AggregateID:   contract.ID,
		Actor:         actor,
		OccurredAt:    now,
	}
	switch target {
	case enums.ContractStatusSent:
		event.EventType = enums.EventContractSent
		event.Data = linkEvent(*contract, false)
	case enums.ContractStatusSigned:
		event.EventType = enums.EventContractSigned
		event.Data = statusEvent(*contract, from, now)
	case enums.ContractStatusPaid:
		event.EventType = enums.EventContractPaid
		event.Data = statusEvent(*contract, from, now)
	case enums.ContractStatusCompleted:
		event.EventType = enums.EventContractCompleted
		event.Data = statusEvent(*contract, from, now)
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue contract event")
	}

	s.metrics.IncTransition(string(from), string(target))
	logCtx := s.logg.WithFields(s.logg.WithContractID(ctx, contract.ID.String()), map[string]any{
		"from": from,
		"to":   target,
	})
	s.logg.Info(logCtx, "contract status changed")
	return contract, nil
}

func (s *service) find(ctx context.Context, repo Repository, contractID uuid.UUID) (*models.Contract, error) {
	if contractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	contract, err := repo.Find(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contract not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contract")
	}
	return contract, nil
}

func (s *service) checkContact(contact types.ClientContact, method enums.SendMethod) (types.ClientContact, error) {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Phone = validation.FormatPhoneNumber(contact.Phone)

	form := contactForm{Name: contact.Name, Phone: contact.Phone, Email: contact.Email}
	if verr := validation.Check(s.validate, &form, "invalid client contact"); verr != nil {
		return contact, verr
	}
	if method.RequiresEmail() && contact.Email == "" {
		return contact, pkgerrors.FieldErrors("invalid client contact", map[string]string{"email": "is required"})
	}
	return contact, nil
}

func (s *service) withFreePlan(sel plans.Selection) []types.SelectedPlan {
	if !s.injectFreePlan || sel.Has(plans.FreePlanID) {
		return sel.Plans
	}
	catalog := s.selector.Catalog()
	for _, entry := range sel.Plans {
		if catalog.CategoryOf(entry.PlanID) == enums.PlanCategoryMain {
			return sel.Plans
		}
	}
	free, ok := catalog.Lookup(plans.FreePlanID)
	if !ok {
		return sel.Plans
	}
	injected := plans.Quote(free, sel.Cycle, sel.Partner)
	injected.Injected = true
	return append([]types.SelectedPlan{injected}, sel.Plans...)
}

func (s *service) linkFor(contractID uuid.UUID) string {
	return s.baseURL + "/contract/" + contractID.String()
}

// withoutInjectedPlans drops plans added at submit. A free plan the operator picked stays.
func withoutInjectedPlans(in []types.SelectedPlan) []types.SelectedPlan {
	out := make([]types.SelectedPlan, 0, len(in))
	for _, entry := range in {
		if entry.Injected {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func applyTransition(contract *models.Contract, target enums.ContractStatus, at time.Time) {
	contract.Status = target
	contract.UpdatedAt = at
	stamp := at
	switch target {
	case enums.ContractStatusSent:
		contract.SentAt = &stamp
	case enums.ContractStatusSigned:
		contract.SignedAt = &stamp
	case enums.ContractStatusPaid:
		contract.PaidAt = &stamp
	case enums.ContractStatusCompleted:
		contract.CompletedAt = &stamp
	}
}

func transitionConflict(from, target enums.ContractStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "contract cannot move to "+target.Label()+" from "+from.Label()).
		WithDetails(map[string]any{"status": from, "target": target})
}

func checkTransitionInput(input TransitionInput) error {
	if input.ContractID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity missing")
	}
	return nil
}

func actorOf(input TransitionInput) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: input.ActorID, Role: input.ActorRole}
}

func linkEvent(c models.Contract, resend bool) payloads.ContractLinkEvent {
	return payloads.ContractLinkEvent{
		ContractID:   c.ID,
		BusinessName: c.BusinessInfo.BusinessName,
		Recipient:    c.ClientContact,
		SendMethod:   c.SendMethod,
		Link:         c.Link,
		TotalAmount:  c.TotalAmount,
		BillingCycle: c.BillingCycle,
		Resend:       resend,
	}
}

func statusEvent(c models.Contract, from enums.ContractStatus, at time.Time) payloads.ContractStatusEvent {
	return payloads.ContractStatusEvent{
		ContractID:   c.ID,
		BusinessName: c.BusinessInfo.BusinessName,
		Recipient:    c.ClientContact,
		SendMethod:   c.SendMethod,
		From:         from,
		To:           c.Status,
		TotalAmount:  c.TotalAmount,
		ChangedAt:    at,
	}
}
