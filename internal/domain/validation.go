package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	otpRegex      = regexp.MustCompile(`^\d+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	must(v.RegisterValidation("qs_email", func(fl validator.FieldLevel) bool {
		return ValidateEmail(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("qs_password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("qs_username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("qs_phone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String()) == nil
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidateStruct runs the struct tags on s and reports the first failure
// as a ValidationError with a caller-facing reason.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	fe := verrs[0]
	return NewValidationError(fe.Field(), reasonFor(fe))
}

func reasonFor(fe validator.FieldError) string {
	value := fmt.Sprint(fe.Value())
	label := fieldLabel(fe.Field())

	switch fe.Tag() {
	case "qs_email":
		return ValidateEmail(value).(*ValidationError).Reason
	case "qs_password":
		return ValidatePassword(value).(*ValidationError).Reason
	case "qs_username":
		return ValidateUsername(value).(*ValidationError).Reason
	case "qs_phone":
		return ValidatePhone(value).(*ValidationError).Reason
	case "required":
		return label + " is required"
	case "eqfield":
		return "Passwords do not match"
	case "len":
		return fmt.Sprintf("%s must be %s characters long", label, fe.Param())
	case "numeric", "number":
		return label + " must contain only digits"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

// fieldLabel turns "first_name" into "First name".
func fieldLabel(field string) string {
	if field == "otp" {
		return "OTP"
	}
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email", "Email is required")
	}
	if !emailRegex.MatchString(email) {
		return NewValidationError("email", "Invalid email format")
	}
	return nil
}

// ValidatePassword reports the first strength rule the password breaks.
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "Password is required")
	}
	if utf8.RuneCountInString(password) < 8 {
		return NewValidationError("password", "Password must be at least 8 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecialChars, r):
			special = true
		}
	}

	switch {
	case !upper:
		return NewValidationError("password", "Password must contain at least one uppercase letter")
	case !lower:
		return NewValidationError("password", "Password must contain at least one lowercase letter")
	case !digit:
		return NewValidationError("password", "Password must contain at least one digit")
	case !special:
		return NewValidationError("password", "Password must contain at least one special character")
	}
	return nil
}

// ValidatePhone accepts an empty value; otherwise dashes and spaces are ignored.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phoneRegex.MatchString(NormalizePhone(phone)) {
		return NewValidationError("phone", "Invalid phone number format")
	}
	return nil
}

func ValidateUsername(username string) error {
	switch {
	case username == "":
		return NewValidationError("username", "Username is required")
	case len(username) < 3:
		return NewValidationError("username", "Username must be at least 3 characters long")
	case len(username) > 50:
		return NewValidationError("username", "Username must be less than 50 characters")
	case !usernameRegex.MatchString(username):
		return NewValidationError("username", "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizePhone(phone string) string {
	phone = strings.ReplaceAll(phone, "-", "")
	return strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

// IsOTPFormat reports whether code is exactly length ASCII digits.
func IsOTPFormat(code string, length int) bool {
	return len(code) == length && otpRegex.MatchString(code)
}
