package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-taskboard-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestHTTPError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidOTP, http.StatusUnauthorized},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrWeakPassword, http.StatusBadRequest},
		{fmt.Errorf("bad cursor: %w", domain.ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("task t1: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("email taken: %w", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("account inactive: %w", domain.ErrForbidden), http.StatusForbidden},
		{errors.New("dynamo: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		assert.Equal(t, tc.code, rr.Code, tc.err.Error())
	}
}

func TestHTTPError_InternalDetailsHidden(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dynamo: table users missing"))

	var env MessageEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, "internal server error", env.Error)
	assert.Equal(t, http.StatusInternalServerError, env.ErrorCode)
}

func TestHTTPError_OTPMessageIsGeneric(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, httptest.NewRequest(http.MethodPost, "/", nil), fmt.Errorf("expired: %w", domain.ErrInvalidOTP))

	var env MessageEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, "invalid or expired OTP", env.Error)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst domain.DepartmentInput
	r := jsonReq(t, http.MethodPost, "/", `{"name":"Ops","budget":3}`)
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 25, parseLimit(httptest.NewRequest(http.MethodGet, "/?limit=25", nil)))
	assert.Equal(t, 0, parseLimit(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)))
	assert.Equal(t, 0, parseLimit(httptest.NewRequest(http.MethodGet, "/", nil)))
}
