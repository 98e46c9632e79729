package member

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/inclusiva/core"
)

var (
	visibilityTag  = "visibility"
	visibilityText = "invalid visibility mode"

	pwdMinLenText = "password must contain at least %d characters"
)

// InitValidators registers the member validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(visibilityTag, visibilityValidation)
	core.RegisterCustomTranslation(validate, translator, visibilityTag, visibilityText)
}

// visibilityValidation checks that the field is one of VisibilityModes.
func visibilityValidation(fl validator.FieldLevel) bool {
	mode := fl.Field().String()
	for _, m := range VisibilityModes {
		if mode == m {
			return true
		}
	}
	return false
}

func passwordTooShort(minLen int) error {
	return core.NewValidationError(nil, core.FieldError{Field: "password", Error: fmt.Sprintf(pwdMinLenText, minLen)})
}

func (nm *NewMember) Validate(validate *validator.Validate, translator ut.Translator, pwdMinLen int) error {
	nm.Clean()
	if err := validate.Struct(nm); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	if len(nm.Password) < pwdMinLen {
		return passwordTooShort(pwdMinLen)
	}
	return nil
}

func (um *UpdateMember) Validate(validate *validator.Validate, translator ut.Translator) error {
	um.Clean()
	if um.Name != nil && *um.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if err := validate.Struct(um); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	return nil
}

func (rp *ResetPassword) Validate(validate *validator.Validate, translator ut.Translator, pwdMinLen int) error {
	rp.UID = core.CleanString(rp.UID)
	rp.Token = core.CleanString(rp.Token)
	if err := validate.Struct(rp); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	if len(rp.Password) < pwdMinLen {
		return passwordTooShort(pwdMinLen)
	}
	return nil
}
