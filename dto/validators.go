package dto

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
	MinNameLength     = 2
	MaxNameLength     = 50
)

var yearGapPattern = regexp.MustCompile(`^\d+-\d+$`)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom rules on gin's validator and
// makes errors report JSON field names. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		rules := map[string]validator.Func{
			"strongpassword": strongPassword,
			"personname":     personName,
			"yeargap":        yearGap,
		}
		for tag, fn := range rules {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = fmt.Errorf("register %s: %w", tag, err)
				return
			}
		}
	})
	return registerErr
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func strongPassword(fl validator.FieldLevel) bool {
	pw := fl.Field().String()
	// bcrypt only accepts up to 72 bytes
	if len(pw) > MaxPasswordBytes || utf8.RuneCountInString(pw) < MinPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func personName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func yearGap(fl validator.FieldLevel) bool {
	return yearGapPattern.MatchString(fl.Field().String())
}

// ValidationDetails flattens binding errors into per-field messages.
// ok is false when err is not a validation failure (for example a JSON
// syntax error).
func ValidationDetails(err error) (details []FieldError, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	details = make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return details, true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Please provide a valid email address"
	case "strongpassword":
		if len(fmt.Sprint(fe.Value())) > MaxPasswordBytes {
			return fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes)
		}
		return fmt.Sprintf("Password must be at least %d characters long and contain at least one uppercase letter, one lowercase letter, and one number", MinPasswordLength)
	case "personname":
		return fmt.Sprintf("Name must be between %d and %d characters and contain only letters and spaces", MinNameLength, MaxNameLength)
	case "yeargap":
		return `Year gap must be in format "min-max" (e.g., "2010-2020")`
	case "eqfield":
		return "Password confirmation does not match"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}
