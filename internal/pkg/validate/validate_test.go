package validate

import (
	"testing"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(&sample{Email: "a@x.com", Password: "Abc12345!"}))
}

func TestStruct_WeakPasswordOnly(t *testing.T) {
	err := Struct(&sample{Email: "a@x.com", Password: "password"})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
}

func TestStruct_OtherFailures_BadRequest(t *testing.T) {
	err := Struct(&sample{Email: "nope", Password: "Abc12345!"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.NotErrorIs(t, err, domain.ErrWeakPassword)
	assert.Contains(t, err.Error(), "field 'Email' failed 'email'")
}
