package enums

import "fmt"

// SendMethod is the channel a contract link is delivered through.
type SendMethod string

const (
	SendMethodEmail SendMethod = "email"
	SendMethodSMS   SendMethod = "sms"
	SendMethodKakao SendMethod = "kakao"
)

var validSendMethods = []SendMethod{
	SendMethodEmail,
	SendMethodSMS,
	SendMethodKakao,
}

var sendMethodLabels = map[SendMethod]string{
	SendMethodEmail: "이메일",
	SendMethodSMS:   "문자메시지",
	SendMethodKakao: "카카오톡",
}

// SendMethods returns every supported channel.
func SendMethods() []SendMethod {
	out := make([]SendMethod, len(validSendMethods))
	copy(out, validSendMethods)
	return out
}

// String implements fmt.Stringer.
func (s SendMethod) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SendMethod.
func (s SendMethod) IsValid() bool {
	_, ok := sendMethodLabels[s]
	return ok
}

// Label returns the console label for the channel.
func (s SendMethod) Label() string {
	if label, ok := sendMethodLabels[s]; ok {
		return label
	}
	return string(s)
}

// RequiresEmail reports whether a client email must be collected for the channel.
func (s SendMethod) RequiresEmail() bool {
	return s == SendMethodEmail
}

// ParseSendMethod converts raw input into a SendMethod.
func ParseSendMethod(value string) (SendMethod, error) {
	for _, candidate := range validSendMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid send method %q", value)
}
