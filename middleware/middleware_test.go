package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"guidebook/pkg/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func principalEcho(t *testing.T, got *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if ok {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAcceptsValidToken(t *testing.T) {
	auth := NewAuth(testSecret)
	token := signToken(t, jwt.MapClaims{
		"sub":   "17",
		"roles": []string{"moderator"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var got Principal
	req := httptest.NewRequest(http.MethodGet, "/forum/private-messages/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	auth.Require(principalEcho(t, &got)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(17), got.UserID)
	assert.True(t, got.HasRole("moderator"))
}

func TestRequireRejects(t *testing.T) {
	auth := NewAuth(testSecret)
	expired := signToken(t, jwt.MapClaims{"sub": "17", "exp": time.Now().Add(-time.Hour).Unix()})
	nonNumeric := signToken(t, jwt.MapClaims{"sub": "alice"})

	for _, header := range []string{"", "Bearer " + expired, "Bearer " + nonNumeric, "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodPost, "/images", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		var got Principal
		auth.Require(principalEcho(t, &got)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestOptionalLetsAnonymousThrough(t *testing.T) {
	auth := NewAuth(testSecret)
	var got Principal

	rec := httptest.NewRecorder()
	auth.Optional(principalEcho(t, &got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/feed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), got.UserID)

	token := signToken(t, jwt.MapClaims{"sub": strconv.Itoa(5)})
	rec = httptest.NewRecorder()
	auth.Optional(principalEcho(t, &got)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/feed?token="+token, nil))
	assert.Equal(t, int64(5), got.UserID)
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/images", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestMetricsMiddlewareUsesPattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /images/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := MetricsMiddleware(m, mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/images/3", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	expected := `
# HELP guidebook_http_requests_total HTTP requests by route pattern and status code.
# TYPE guidebook_http_requests_total counter
guidebook_http_requests_total{route="GET /images/{id}",status="404"} 1
guidebook_http_requests_total{route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "guidebook_http_requests_total"))
}
