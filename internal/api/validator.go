package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/Moichehub/marketplace/internal/apperr"
)

type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return apperr.ErrInvalidInput.WithDetails(err.Error())
	}
	return nil
}
