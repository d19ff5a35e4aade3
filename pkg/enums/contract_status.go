package enums

import "fmt"

// ContractStatus tracks a contract through draft -> sent -> signed -> paid -> completed.
type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "draft"
	ContractStatusSent      ContractStatus = "sent"
	ContractStatusSigned    ContractStatus = "signed"
	ContractStatusPaid      ContractStatus = "paid"
	ContractStatusCompleted ContractStatus = "completed"
)

var validContractStatuses = []ContractStatus{
	ContractStatusDraft,
	ContractStatusSent,
	ContractStatusSigned,
	ContractStatusPaid,
	ContractStatusCompleted,
}

var contractStatusLabels = map[ContractStatus]string{
	ContractStatusDraft:     "작성중",
	ContractStatusSent:      "발송됨",
	ContractStatusSigned:    "서명완료",
	ContractStatusPaid:      "결제완료",
	ContractStatusCompleted: "완료",
}

// ContractStatuses returns the lifecycle in order.
func ContractStatuses() []ContractStatus {
	out := make([]ContractStatus, len(validContractStatuses))
	copy(out, validContractStatuses)
	return out
}

// String implements fmt.Stringer.
func (c ContractStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContractStatus.
func (c ContractStatus) IsValid() bool {
	_, ok := contractStatusLabels[c]
	return ok
}

// Label returns the Korean console label.
func (c ContractStatus) Label() string {
	if label, ok := contractStatusLabels[c]; ok {
		return label
	}
	return string(c)
}

// Next returns the single status that may follow c. Completed has no successor.
func (c ContractStatus) Next() (ContractStatus, bool) {
	for i, candidate := range validContractStatuses {
		if candidate == c && i+1 < len(validContractStatuses) {
			return validContractStatuses[i+1], true
		}
	}
	return "", false
}

// CanTransitionTo reports whether moving from c to target follows the lifecycle.
func (c ContractStatus) CanTransitionTo(target ContractStatus) bool {
	next, ok := c.Next()
	return ok && next == target
}

// IsTerminal reports whether no further transitions are possible.
func (c ContractStatus) IsTerminal() bool {
	return c == ContractStatusCompleted
}

// ParseContractStatus converts raw input into a ContractStatus.
func ParseContractStatus(value string) (ContractStatus, error) {
	for _, candidate := range validContractStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contract status %q", value)
}
