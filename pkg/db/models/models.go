package models

// All lists every persisted model in dependency order, for sqlite dev mode and tests.
func All() []any {
	return []any{
		&User{},
		&Business{},
		&Facility{},
		&Contract{},
		&Signature{},
		&WizardDraft{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
