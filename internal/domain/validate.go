package domain

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var objectIDPattern = regexp.MustCompile(`^[a-f0-9]{24}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return objectIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validator returns the shared validator with the "objectid" tag registered.
func Validator() *validator.Validate { return validate }

// ValidID reports whether id is a 24-character lowercase hex identifier.
func ValidID(id string) bool {
	return validate.Var(id, "required,objectid") == nil
}

// CheckIDs validates every id without the self-pair rule.
func CheckIDs(ids ...string) error {
	for _, id := range ids {
		if !ValidID(id) {
			return Validationf("invalid user id %q", id)
		}
	}
	return nil
}

// CheckPair validates both user ids of a conversation and rejects a self pair.
func CheckPair(a, b string) error {
	if !ValidID(a) {
		return Validationf("invalid user id %q", a)
	}
	if !ValidID(b) {
		return Validationf("invalid user id %q", b)
	}
	if a == b {
		return Validationf("sender and receiver must differ")
	}
	return nil
}
