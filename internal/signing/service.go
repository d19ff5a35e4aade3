package signing

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dagym/contract-backend/internal/contracts"
	"github.com/dagym/contract-backend/pkg/db"
	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/types"
)

const (
	imageDataPrefix   = "data:image/"
	maxClockSkew      = 5 * time.Minute
	signFailureNotice = "서명 저장에 실패했습니다. 다시 시도해주세요."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// contractGateway is the slice of the contracts service the signing page needs.
type contractGateway interface {
	GetPublic(ctx context.Context, contractID uuid.UUID) (*contracts.PublicView, error)
	RecordSigned(ctx context.Context, tx *gorm.DB, contractID uuid.UUID) error
}

// Service drives the public, token-addressed signing flow. It works only from the contract
// snapshot and never touches an operator's wizard session.
type Service interface {
	Terms() []Term
	Contract(ctx context.Context, contractID uuid.UUID) (*contracts.PublicView, error)
	Session(ctx context.Context, contractID uuid.UUID) (*View, error)
	SetAgreements(ctx context.Context, contractID uuid.UUID, input AgreementsInput) (*View, error)
	Proceed(ctx context.Context, contractID uuid.UUID) (*View, error)
	Back(ctx context.Context, contractID uuid.UUID) (*View, error)
	Sign(ctx context.Context, input SignInput) (*View, error)
}

// View is the signing page state returned to the client.
type View struct {
	ContractID      uuid.UUID            `json:"contractId"`
	Step            enums.SigningStep    `json:"step"`
	Agreements      types.Agreements     `json:"agreements"`
	AllAgreed       bool                 `json:"allAgreed"`
	MissingRequired []string             `json:"missingRequired"`
	CanProceed      bool                 `json:"canProceed"`
	LastError       string               `json:"lastError,omitempty"`
	SignedAt        *time.Time           `json:"signedAt,omitempty"`
	Contract        contracts.PublicView `json:"contract"`
}

// AgreementsInput checks or clears all terms, then applies the per-term flags.
type AgreementsInput struct {
	All   *bool           `json:"all"`
	Items map[string]bool `json:"items"`
}

type SignInput struct {
	ContractID uuid.UUID
	ImageData  string
	SignedAt   *time.Time
	ClientIP   string
	UserAgent  string
}

type ServiceParams struct {
	Contracts         contractGateway
	Store             *Store
	Repo              Repository
	Tx                txRunner
	Flow              *Flow
	Logger            *logger.Logger
	Metrics           *metrics.ContractMetrics
	MaxSignatureBytes int
}

type service struct {
	contracts contractGateway
	store     *Store
	repo      Repository
	tx        txRunner
	flow      *Flow
	logg      *logger.Logger
	metrics   *metrics.ContractMetrics
	maxBytes  int
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Contracts == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contracts service required")
	case params.Store == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "signing store required")
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "signature repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	flow := params.Flow
	if flow == nil {
		flow = NewFlow(nil)
	}
	return &service{
		contracts: params.Contracts,
		store:     params.Store,
		repo:      params.Repo,
		tx:        params.Tx,
		flow:      flow,
		logg:      params.Logger,
		metrics:   params.Metrics,
		maxBytes:  params.MaxSignatureBytes,
		now:       time.Now,
	}, nil
}

func (s *service) Terms() []Term {
	return s.flow.Catalog().Terms()
}

func (s *service) Contract(ctx context.Context, contractID uuid.UUID) (*contracts.PublicView, error) {
	if contractID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contract id required")
	}
	return s.contracts.GetPublic(ctx, contractID)
}

func (s *service) Session(ctx context.Context, contractID uuid.UUID) (*View, error) {
	session, contract, err := s.current(ctx, contractID)
	if err != nil {
		return nil, err
	}
	return s.view(session, *contract), nil
}

func (s *service) SetAgreements(ctx context.Context, contractID uuid.UUID, input AgreementsInput) (*View, error) {
	if input.All == nil && len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no agreements provided")
	}
	return s.mutate(ctx, contractID, func(session Session) (Session, error) {
		var err error
		if input.All != nil {
			if session, err = s.flow.AgreeAll(session, *input.All); err != nil {
				return session, err
			}
		}
		for termID, agreed := range input.Items {
			if session, err = s.flow.SetAgreement(session, termID, agreed); err != nil {
				return session, err
			}
		}
		return session, nil
	})
}

func (s *service) Proceed(ctx context.Context, contractID uuid.UUID) (*View, error) {
	return s.mutate(ctx, contractID, s.flow.ProceedToSignature)
}

func (s *service) Back(ctx context.Context, contractID uuid.UUID) (*View, error) {
	return s.mutate(ctx, contractID, s.flow.BackToTerms)
}

// Sign stores the signature and moves the contract to signed in one transaction. On failure the
// session stays on the signature step carrying the notice.
func (s *service) Sign(ctx context.Context, input SignInput) (*View, error) {
	if err := s.checkImage(input.ImageData); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	signedAt := now
	if input.SignedAt != nil && !input.SignedAt.IsZero() {
		if input.SignedAt.After(now.Add(maxClockSkew)) {
			return nil, pkgerrors.FieldErrors("validation failed", map[string]string{"signedAt": "서명 시각이 올바르지 않습니다."})
		}
		signedAt = input.SignedAt.UTC()
	}

	unlock, err := s.store.Lock(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, contract, err := s.current(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	next, err := s.flow.Sign(session, input.ImageData, signedAt)
	if err != nil {
		return nil, s.flowError(session, err)
	}

	logCtx := s.logg.WithContractID(ctx, input.ContractID.String())
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.contracts.RecordSigned(ctx, tx, input.ContractID); err != nil {
			return err
		}
		signature := &models.Signature{
			ContractID: input.ContractID,
			Agreements: next.Agreements,
			ImageData:  input.ImageData,
			SignedAt:   signedAt,
			ClientIP:   optional(input.ClientIP),
			UserAgent:  optional(input.UserAgent),
		}
		if err := s.repo.WithTx(tx).Create(ctx, signature); err != nil {
			if db.IsUniqueViolation(err, "signatures_contract_id_key") {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "contract already signed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store signature")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncSignature("failed")
		s.logg.Error(logCtx, "signature submission failed", err)
		failed := s.flow.Fail(session, signFailureNotice)
		if saveErr := s.store.Save(ctx, failed); saveErr != nil {
			s.logg.Error(logCtx, "save failed signing session", saveErr)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign contract")
	}

	if err := s.store.Save(ctx, next); err != nil {
		s.logg.Error(logCtx, "save completed signing session", err)
	}
	s.metrics.IncSignature("signed")
	s.logg.Info(logCtx, "contract signed")

	contract.Status = enums.ContractStatusSigned
	contract.StatusLabel = enums.ContractStatusSigned.Label()
	return s.view(next, *contract), nil
}

// current loads the contract snapshot and the session for it. A contract that is past sent is
// always shown as complete.
func (s *service) current(ctx context.Context, contractID uuid.UUID) (Session, *contracts.PublicView, error) {
	contract, err := s.Contract(ctx, contractID)
	if err != nil {
		return Session{}, nil, err
	}
	session, found, err := s.store.Load(ctx, contractID)
	if err != nil {
		return Session{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load signing session")
	}
	switch {
	case contract.Status != enums.ContractStatusSent:
		if !found || session.Step != enums.SigningStepComplete {
			session = s.flow.Completed(contractID, session.SignedAt)
		}
	case !found:
		session = s.flow.Start(contractID)
	}
	return session, contract, nil
}

func (s *service) mutate(ctx context.Context, contractID uuid.UUID, fn func(Session) (Session, error)) (*View, error) {
	unlock, err := s.store.Lock(ctx, contractID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, contract, err := s.current(ctx, contractID)
	if err != nil {
		return nil, err
	}
	next, err := fn(session)
	if err != nil {
		return nil, s.flowError(session, err)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save signing session")
	}
	return s.view(next, *contract), nil
}

func (s *service) flowError(session Session, err error) error {
	switch {
	case errors.Is(err, ErrUnknownTerm):
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown term")
	case errors.Is(err, ErrRequiredTermsMissing):
		return pkgerrors.New(pkgerrors.CodeValidation, "필수 동의항목을 모두 체크해주세요.").
			WithDetails(map[string]any{"missingRequired": s.flow.MissingRequired(session)})
	case errors.Is(err, ErrSignatureEmpty):
		return pkgerrors.New(pkgerrors.CodeValidation, "서명을 입력해주세요.")
	case errors.Is(err, ErrInvalidTransition):
		return pkgerrors.New(pkgerrors.CodeStateConflict, "action not allowed at this signing step").
			WithDetails(map[string]any{"step": session.Step})
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "signing flow")
}

// checkImage accepts a base64 data URL within the configured size.
func (s *service) checkImage(image string) error {
	image = strings.TrimSpace(image)
	if image == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "서명을 입력해주세요.")
	}
	if s.maxBytes > 0 && len(image) > s.maxBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature image too large").
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}
	header, payload, ok := strings.Cut(image, ",")
	if !ok || !strings.HasPrefix(header, imageDataPrefix) || !strings.HasSuffix(header, ";base64") {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature must be a base64 image data url")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil || payload == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature must be a base64 image data url")
	}
	return nil
}

func (s *service) view(session Session, contract contracts.PublicView) *View {
	missing := s.flow.MissingRequired(session)
	agreements := session.Agreements
	if agreements == nil {
		agreements = types.Agreements{}
	}
	return &View{
		ContractID:      session.ContractID,
		Step:            session.Step,
		Agreements:      agreements,
		AllAgreed:       s.flow.AllAgreed(session),
		MissingRequired: missing,
		CanProceed:      session.Step == enums.SigningStepTerms && len(missing) == 0,
		LastError:       session.LastError,
		SignedAt:        session.SignedAt,
		Contract:        contract,
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
