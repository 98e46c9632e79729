package workspace

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/inclusiva/core"
)

var (
	pinTag  = "pin"
	pinText = "{0} must look like ABCD-1234"
)

// InitValidators registers the workspace validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pinTag, pinValidation)
	core.RegisterCustomTranslation(validate, translator, pinTag, pinText)
}

func pinValidation(fl validator.FieldLevel) bool {
	return validPIN(NormalizePIN(fl.Field().String()))
}

func (nw *NewWorkspace) Validate(validate *validator.Validate, translator ut.Translator) error {
	nw.Clean()
	if err := validate.Struct(nw); err != nil {
		return core.TranslateValidationErrors(err, translator)
	}
	return nil
}
