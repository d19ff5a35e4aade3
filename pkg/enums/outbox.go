package enums

import "slices"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const AggregateContract OutboxAggregateType = "contract"

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateContract
}

// OutboxEventType names a domain event written to outbox_events.
type OutboxEventType string

const (
	EventContractSent      OutboxEventType = "contract_sent"
	EventContractResent    OutboxEventType = "contract_resent"
	EventContractSigned    OutboxEventType = "contract_signed"
	EventContractPaid      OutboxEventType = "contract_paid"
	EventContractCompleted OutboxEventType = "contract_completed"
)

var outboxEventTypes = []OutboxEventType{
	EventContractSent,
	EventContractResent,
	EventContractSigned,
	EventContractPaid,
	EventContractCompleted,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(outboxEventTypes, e)
}

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: every enqueue attempt failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: no route, unknown version or a payload that will never decode.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// IsValid reports whether the value is a known dead-letter reason.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
