package validation

import (
	"errors"
	"strings"
	"sync"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// documento accepts CPF/CNPJ/CEP style values: digits plus . - / separators.
func documento(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, ch := range val {
		if (ch < '0' || ch > '9') && !strings.ContainsRune(".-/ ", ch) {
			return false
		}
	}
	return true
}

func structs() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("documento", documento)
		structValidator = v
	})
	return structValidator
}

// Struct checks request payload formats (tags on the domain input types).
// The first failing field is returned as *domain.ErrValidation.
func Struct(s any) error {
	err := structs().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ErrValidation{
			Field:   strings.ToLower(fe.Namespace()),
			Message: "failed '" + fe.Tag() + "' rule",
		}
	}
	return &domain.ErrValidation{Field: "body", Message: err.Error()}
}
