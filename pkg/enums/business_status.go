package enums

import "fmt"

// BusinessStatus marks whether a partner business is currently active.
type BusinessStatus string

const (
	BusinessStatusActive   BusinessStatus = "active"
	BusinessStatusInactive BusinessStatus = "inactive"
)

var validBusinessStatuses = []BusinessStatus{
	BusinessStatusActive,
	BusinessStatusInactive,
}

// String implements fmt.Stringer.
func (b BusinessStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BusinessStatus.
func (b BusinessStatus) IsValid() bool {
	for _, candidate := range validBusinessStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// Label returns the console label.
func (b BusinessStatus) Label() string {
	if b == BusinessStatusActive {
		return "활성"
	}
	return "비활성"
}

// ParseBusinessStatus converts raw input into a BusinessStatus.
func ParseBusinessStatus(value string) (BusinessStatus, error) {
	for _, candidate := range validBusinessStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid business status %q", value)
}

// FacilityStatus marks whether a facility is open.
type FacilityStatus string

const (
	FacilityStatusOperating FacilityStatus = "operating"
	FacilityStatusClosed    FacilityStatus = "closed"
)

var validFacilityStatuses = []FacilityStatus{
	FacilityStatusOperating,
	FacilityStatusClosed,
}

// String implements fmt.Stringer.
func (f FacilityStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FacilityStatus.
func (f FacilityStatus) IsValid() bool {
	for _, candidate := range validFacilityStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// Label returns the console label.
func (f FacilityStatus) Label() string {
	if f == FacilityStatusOperating {
		return "운영중"
	}
	return "휴업"
}

// ParseFacilityStatus converts raw input into a FacilityStatus.
func ParseFacilityStatus(value string) (FacilityStatus, error) {
	for _, candidate := range validFacilityStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid facility status %q", value)
}
