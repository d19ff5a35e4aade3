package signing

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/types"
)

var (
	ErrUnknownTerm          = errors.New("signing: unknown term")
	ErrRequiredTermsMissing = errors.New("signing: required terms not agreed")
	ErrSignatureEmpty       = errors.New("signing: signature is empty")
	ErrInvalidTransition    = errors.New("signing: action not allowed in current step")
)

// Session is a client's progress through the signing flow for one contract.
type Session struct {
	ContractID uuid.UUID         `json:"contractId"`
	Step       enums.SigningStep `json:"step"`
	Agreements types.Agreements  `json:"agreements"`
	LastError  string            `json:"lastError,omitempty"`
	SignedAt   *time.Time        `json:"signedAt,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Flow is the terms → signature → complete state machine. Every method returns a new session and
// leaves its input untouched.
type Flow struct {
	catalog *Catalog
}

func NewFlow(catalog *Catalog) *Flow {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Flow{catalog: catalog}
}

func (f *Flow) Catalog() *Catalog {
	return f.catalog
}

// Start opens a session at the terms step with nothing agreed.
func (f *Flow) Start(contractID uuid.UUID) Session {
	return Session{
		ContractID: contractID,
		Step:       enums.SigningStepTerms,
		Agreements: types.Agreements{},
	}
}

// Completed returns the session of a contract that was already signed elsewhere.
func (f *Flow) Completed(contractID uuid.UUID, signedAt *time.Time) Session {
	session := f.Start(contractID)
	session.Step = enums.SigningStepComplete
	session.SignedAt = signedAt
	return session
}

func (f *Flow) SetAgreement(s Session, termID string, agreed bool) (Session, error) {
	if s.Step != enums.SigningStepTerms {
		return s, ErrInvalidTransition
	}
	termID = strings.TrimSpace(termID)
	if _, ok := f.catalog.Lookup(termID); !ok {
		return s, ErrUnknownTerm
	}
	next := s
	next.Agreements = cloneAgreements(s.Agreements)
	next.Agreements[termID] = agreed
	return next, nil
}

// AgreeAll checks or clears every term, required and optional.
func (f *Flow) AgreeAll(s Session, agreed bool) (Session, error) {
	if s.Step != enums.SigningStepTerms {
		return s, ErrInvalidTransition
	}
	next := s
	next.Agreements = make(types.Agreements, len(f.catalog.terms))
	for _, term := range f.catalog.terms {
		next.Agreements[term.ID] = agreed
	}
	return next, nil
}

// AllAgreed reports whether every term, optional ones included, is checked.
func (f *Flow) AllAgreed(s Session) bool {
	for _, term := range f.catalog.terms {
		if !s.Agreements[term.ID] {
			return false
		}
	}
	return true
}

// MissingRequired lists the required term ids not yet agreed, in display order.
func (f *Flow) MissingRequired(s Session) []string {
	missing := make([]string, 0)
	for _, term := range f.catalog.Required() {
		if !s.Agreements[term.ID] {
			missing = append(missing, term.ID)
		}
	}
	return missing
}

func (f *Flow) ProceedToSignature(s Session) (Session, error) {
	if s.Step != enums.SigningStepTerms {
		return s, ErrInvalidTransition
	}
	if len(f.MissingRequired(s)) > 0 {
		return s, ErrRequiredTermsMissing
	}
	next := s
	next.Step = enums.SigningStepSignature
	next.LastError = ""
	return next, nil
}

// BackToTerms returns from the signature pad to the terms list.
func (f *Flow) BackToTerms(s Session) (Session, error) {
	if s.Step != enums.SigningStepSignature {
		return s, ErrInvalidTransition
	}
	next := s
	next.Step = enums.SigningStepTerms
	next.LastError = ""
	return next, nil
}

// Sign completes the flow once a non-empty signature image is captured. The caller persists the
// signature and calls Fail with the original session when that does not succeed.
func (f *Flow) Sign(s Session, image string, at time.Time) (Session, error) {
	if s.Step != enums.SigningStepSignature {
		return s, ErrInvalidTransition
	}
	if strings.TrimSpace(image) == "" {
		return s, ErrSignatureEmpty
	}
	if len(f.MissingRequired(s)) > 0 {
		return s, ErrRequiredTermsMissing
	}
	signedAt := at.UTC()
	next := s
	next.Step = enums.SigningStepComplete
	next.LastError = ""
	next.SignedAt = &signedAt
	return next, nil
}

// Fail keeps the client on the signature step with a notice. There is no automatic retry.
func (f *Flow) Fail(s Session, notice string) Session {
	if s.Step == enums.SigningStepComplete {
		return s
	}
	next := s
	next.Step = enums.SigningStepSignature
	next.SignedAt = nil
	next.LastError = notice
	return next
}

func cloneAgreements(in types.Agreements) types.Agreements {
	out := make(types.Agreements, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
