package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-taskboard-api/internal/domain"
	jwtinfra "github.com/go-taskboard-api/internal/infrastructure/jwt"
	"github.com/go-taskboard-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/require"
)

// jsonReq builds a request with body marshalled as JSON; a string body is sent raw.
func jsonReq(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf []byte
	switch b := body.(type) {
	case nil:
	case string:
		buf = []byte(b)
	default:
		var err error
		buf, err = json.Marshal(b)
		require.NoError(t, err)
	}
	r := httptest.NewRequest(method, target, bytes.NewReader(buf))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// asActor attaches claims for userID/role, as middleware.Auth would.
func asActor(r *http.Request, userID string, role domain.Role) *http.Request {
	ctx := middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: userID, Role: role})
	return r.WithContext(ctx)
}

// withParams injects chi URL params into the request context.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(dst))
}
