package enums

import "fmt"

// TermCategory classifies a contract term shown to the signing client.
type TermCategory string

const (
	TermCategoryMain    TermCategory = "main"
	TermCategoryFee     TermCategory = "fee"
	TermCategoryPrivacy TermCategory = "privacy"
	TermCategoryService TermCategory = "service"
)

var termCategoryLabels = map[TermCategory]string{
	TermCategoryMain:    "주요조항",
	TermCategoryFee:     "수수료",
	TermCategoryPrivacy: "개인정보",
	TermCategoryService: "서비스",
}

// String implements fmt.Stringer.
func (t TermCategory) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TermCategory.
func (t TermCategory) IsValid() bool {
	_, ok := termCategoryLabels[t]
	return ok
}

// Label returns the console label.
func (t TermCategory) Label() string {
	if label, ok := termCategoryLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseTermCategory converts raw input into a TermCategory.
func ParseTermCategory(value string) (TermCategory, error) {
	if _, ok := termCategoryLabels[TermCategory(value)]; ok {
		return TermCategory(value), nil
	}
	return "", fmt.Errorf("invalid term category %q", value)
}
