package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-taskboard-api/internal/domain"
	jwtinfra "github.com/go-taskboard-api/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider generates a fresh RSA key pair and returns a provider for it.
func newTestProvider(t *testing.T) (*jwtinfra.Provider, *rsa.PrivateKey) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return jwtinfra.NewProviderFromKey(privKey, &privKey.PublicKey, time.Hour), privKey
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func serveWithToken(verifier TokenVerifier, header string, next http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	Auth(verifier)(next).ServeHTTP(rr, req)
	return rr
}

func TestAuth_MissingHeader(t *testing.T) {
	p, _ := newTestProvider(t)
	rr := serveWithToken(p, "", http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"missing or invalid authorization header","error_code":401}`, rr.Body.String())
}

func TestAuth_BadToken(t *testing.T) {
	p, _ := newTestProvider(t)
	rr := serveWithToken(p, "Bearer not-a-real-token", http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	p, key := newTestProvider(t)
	claims := &jwtinfra.Claims{
		UserID: "u1",
		Role:   domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskboard-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-61 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	rr := serveWithToken(p, "Bearer "+signed, http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type stubVerifier struct {
	claims *jwtinfra.Claims
	err    error
}

func (s stubVerifier) Verify(string) (*jwtinfra.Claims, error) { return s.claims, s.err }

func TestAuth_UnknownRoleIsRejected(t *testing.T) {
	v := stubVerifier{claims: &jwtinfra.Claims{UserID: "u1", Role: "superuser"}}
	rr := serveWithToken(v, "Bearer x", http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_VerifierError(t *testing.T) {
	v := stubVerifier{err: errors.New("boom")}
	rr := serveWithToken(v, "Bearer x", http.HandlerFunc(okHandler))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_ValidToken_InjectsClaims(t *testing.T) {
	p, _ := newTestProvider(t)
	signed, _, err := p.Sign("u1", domain.RoleUser)
	require.NoError(t, err)

	var actor domain.Actor
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := serveWithToken(p, "Bearer "+signed, capture)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.Actor{UserID: "u1", Role: domain.RoleUser}, actor)
}
