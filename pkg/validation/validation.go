// Package validation holds the shared validator instance and the Korean-format field rules used by
// the console forms.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/dagym/contract-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var (
	businessNumberRe = regexp.MustCompile(`^\d{3}-\d{2}-\d{5}$|^\d{10}$`)
	mobileRe         = regexp.MustCompile(`^010-\d{4}-\d{4}$`)
	personNameRe     = regexp.MustCompile(`^[가-힣a-zA-Z\s]+$`)
	digitsRe         = regexp.MustCompile(`^\d+$`)
	emailRe          = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitRe       = regexp.MustCompile(`\D`)
)

// New returns a validator that reports json field names and knows the custom tags
// bizno, krmobile, personname, digits, looseemail and runemin.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	mustRegister(v, "bizno", matchString(businessNumberRe))
	mustRegister(v, "krmobile", matchString(mobileRe))
	mustRegister(v, "personname", matchString(personNameRe))
	mustRegister(v, "digits", matchString(digitsRe))
	mustRegister(v, "looseemail", matchString(emailRe))
	mustRegister(v, "runemin", runeMin)
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// runeMin is min measured in characters, not bytes.
func runeMin(fl validator.FieldLevel) bool {
	var want int
	if _, err := fmt.Sscanf(fl.Param(), "%d", &want); err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= want
}

// Check runs v over dest and converts failures into a validation error keyed by field.
func Check(v *validator.Validate, dest any, message string) *pkgerrors.Error {
	if err := v.Struct(dest); err != nil {
		return Translate(err, message)
	}
	return nil
}

// Translate converts validator output into a field-keyed validation error.
func Translate(err error, message string) *pkgerrors.Error {
	if message == "" {
		message = "validation failed"
	}
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = Message(fieldErr)
		}
		return pkgerrors.FieldErrors(message, details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
}

// Message renders one field error.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "runemin":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email", "looseemail":
		return "must be a valid email"
	case "bizno":
		return "must look like 000-00-00000 or 10 digits"
	case "krmobile":
		return "must look like 010-0000-0000"
	case "personname":
		return "may only contain Hangul, latin letters and spaces"
	case "digits":
		return "must contain digits only"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "eq":
		return fmt.Sprintf("must be %s", fe.Param())
	}
	return "is invalid"
}

// IsEmail applies the console's email shape check.
func IsEmail(value string) bool {
	return emailRe.MatchString(strings.TrimSpace(value))
}

// IsMobile reports whether value is a 010-####-#### number.
func IsMobile(value string) bool {
	return mobileRe.MatchString(value)
}

// FormatPhoneNumber strips non-digits and formats up to eleven digits as 3-4-4.
func FormatPhoneNumber(value string) string {
	digits := nonDigitRe.ReplaceAllString(value, "")
	switch {
	case len(digits) <= 3:
		return digits
	case len(digits) <= 7:
		return digits[:3] + "-" + digits[3:]
	default:
		if len(digits) > 11 {
			digits = digits[:11]
		}
		return digits[:3] + "-" + digits[3:7] + "-" + digits[7:]
	}
}

// FormatBusinessNumber renders a ten-digit registration number as 000-00-00000. Anything else is
// returned trimmed and unchanged.
func FormatBusinessNumber(value string) string {
	digits := nonDigitRe.ReplaceAllString(value, "")
	if len(digits) != 10 {
		return strings.TrimSpace(value)
	}
	return digits[:3] + "-" + digits[3:5] + "-" + digits[5:]
}
