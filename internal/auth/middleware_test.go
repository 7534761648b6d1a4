package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcenter/command-center/internal/auth"
)

var secret = []byte("test-session-secret")

func subjectEcho() (http.Handler, *string) {
	var got string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &got
}

func TestValidTokenPopulatesSubject(t *testing.T) {
	token, err := auth.NewSessionToken(secret, "operator-1", time.Minute)
	require.NoError(t, err)

	inner, got := subjectEcho()
	h := auth.SessionMiddleware(secret)(inner)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "operator-1", *got)
}

func TestMissingTokenLeavesContextEmpty(t *testing.T) {
	inner, got := subjectEcho()
	h := auth.SessionMiddleware(secret)(inner)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "", *got)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := auth.NewSessionToken(secret, "operator-1", -time.Minute)
	require.NoError(t, err)

	inner, got := subjectEcho()
	h := auth.SessionMiddleware(secret)(inner)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "", *got)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := auth.NewSessionToken([]byte("other-secret"), "operator-1", time.Minute)
	require.NoError(t, err)

	inner, got := subjectEcho()
	h := auth.SessionMiddleware(secret)(inner)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "", *got)
}
