package validator

import "github.com/go-playground/validator/v10"

// Validator bundles struct-tag validation with the business and content
// rule sets used across services and handlers.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a fully wired validator. Struct validation shares the
// business validator's engine so custom tags resolve everywhere.
func New() *Validator {
	business := NewBusinessValidator()
	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct-tag validation and returns a ValidationErrors error
// when anything fails.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator exposes the business rule validator
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// GetContentValidator exposes the question content validator
func (v *Validator) GetContentValidator() *ContentValidator {
	return v.business.Content()
}
