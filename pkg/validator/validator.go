package validator

import (
	"encoding/base64"

	"github.com/go-playground/validator/v10"
)

// isTier checks if a string names a credential tier.
func isTier(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "premium", "standard", "fallback":
		return true
	default:
		return false
	}
}

// isRotationFrequency checks if a string names a rotation cadence.
func isRotationFrequency(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "daily", "weekly", "monthly", "quarterly":
		return true
	default:
		return false
	}
}

// isAES256Key checks that a string is a base64-encoded 32 byte key.
func isAES256Key(fl validator.FieldLevel) bool {
	raw, err := base64.StdEncoding.DecodeString(fl.Field().String())
	return err == nil && len(raw) == 32
}

// RegisterCustomValidators registers custom validation functions with the
// validator.
func RegisterCustomValidators(validate *validator.Validate) error {
	if err := validate.RegisterValidation("tier", isTier); err != nil {
		return err
	}
	if err := validate.RegisterValidation("rotation_frequency", isRotationFrequency); err != nil {
		return err
	}
	return validate.RegisterValidation("aes256key", isAES256Key)
}
