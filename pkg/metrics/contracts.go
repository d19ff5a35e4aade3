package metrics

import "github.com/prometheus/client_golang/prometheus"

// WizardMetrics counts operator wizard activity.
type WizardMetrics struct {
	actions     *prometheus.CounterVec
	navigations *prometheus.CounterVec
}

// NewWizardMetrics registers the wizard metrics on the provided registerer.
func NewWizardMetrics(reg prometheus.Registerer) *WizardMetrics {
	if reg == nil {
		return &WizardMetrics{}
	}
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_actions_total",
		Help: "Wizard actions applied, by action type.",
	}, []string{"action"})
	navigations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wizard_navigations_total",
		Help: "Wizard navigation requests, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(actions, navigations)
	return &WizardMetrics{actions: actions, navigations: navigations}
}

func (w *WizardMetrics) IncAction(action string) {
	if w == nil || w.actions == nil {
		return
	}
	w.actions.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncNavigation records a navigation outcome: moved, blocked or invalid.
func (w *WizardMetrics) IncNavigation(outcome string) {
	if w == nil || w.navigations == nil {
		return
	}
	w.navigations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ContractMetrics counts contract submissions, status transitions and signatures.
type ContractMetrics struct {
	submitted   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	signatures  *prometheus.CounterVec
}

// NewContractMetrics registers the contract metrics on the provided registerer.
func NewContractMetrics(reg prometheus.Registerer) *ContractMetrics {
	if reg == nil {
		return &ContractMetrics{}
	}
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contracts_submitted_total",
		Help: "Contracts created from the wizard, by send method.",
	}, []string{"send_method"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_status_transitions_total",
		Help: "Contract status transitions.",
	}, []string{"from", "to"})
	signatures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contract_signatures_total",
		Help: "Signature submissions, by result.",
	}, []string{"result"})
	reg.MustRegister(submitted, transitions, signatures)
	return &ContractMetrics{
		submitted:   submitted,
		transitions: transitions,
		signatures:  signatures,
	}
}

func (c *ContractMetrics) IncSubmitted(sendMethod string) {
	if c == nil || c.submitted == nil {
		return
	}
	c.submitted.WithLabelValues(normalizeLabel(sendMethod)).Inc()
}

func (c *ContractMetrics) IncTransition(from, to string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncSignature records a signature attempt as "signed" or "failed".
func (c *ContractMetrics) IncSignature(result string) {
	if c == nil || c.signatures == nil {
		return
	}
	c.signatures.WithLabelValues(normalizeLabel(result)).Inc()
}
