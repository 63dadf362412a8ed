package validate

import (
	"fmt"
	"strings"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level validator. Custom tags are registered in init
// before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return domain.ValidatePassword(fl.Field().String()) == nil
	})
}

// Struct validates the given struct using its validate tags.
// The returned error wraps domain.ErrBadRequest, or domain.ErrWeakPassword
// when only the password tag failed.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	var msgs []string
	weakOnly := true
	for _, fe := range ve {
		if fe.Tag() != "password" {
			weakOnly = false
		}
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	if weakOnly {
		return domain.ErrWeakPassword
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), domain.ErrBadRequest)
}
