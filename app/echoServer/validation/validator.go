// Package validation plugs go-playground/validator into echo's
// request-validation hook.
package validation

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New()}
}

// Validate satisfies echo.Validator; handlers reach it through
// c.Validate on bound request DTOs.
func (v *Validator) Validate(i interface{}) error {
	return v.v.Struct(i)
}
