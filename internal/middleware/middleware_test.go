package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"candycost/internal/apierror"
	"candycost/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func signToken(t *testing.T, secret, userID string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID, "email": "baker@example.com", "name": "Baker",
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.JWTAuth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "email": claims.Email})
	})
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWT ───────────────────────────────────────────────────────────────────────

func TestJWTAuth_NoToken(t *testing.T) {
	w := get(protectedRouter(), "/protected", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apierror.KindUnauthorized, body.Kind)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	id := uuid.NewString()
	tok := signToken(t, testSecret, id, time.Hour)

	w := get(protectedRouter(), "/protected", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id)
	assert.Contains(t, w.Body.String(), "baker@example.com")
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	tok := signToken(t, testSecret, uuid.NewString(), -time.Second)
	w := get(protectedRouter(), "/protected", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	tok := signToken(t, "another_secret_that_is_32_chars_long", uuid.NewString(), time.Hour)
	w := get(protectedRouter(), "/protected", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_NoneAlgorithmRejected(t *testing.T) {
	claims := jwt.MapClaims{"user_id": uuid.NewString(), "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	w := get(protectedRouter(), "/protected", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetClaims_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, middleware.GetClaims(c))
}

// ── Request ID / errors ──────────────────────────────────────────────────────

func TestRequestID_GeneratedAndPropagated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(middleware.RequestIDKey)) })

	w := get(r, "/", nil)
	generated := w.Header().Get(middleware.RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = get(r, "/", map[string]string{middleware.RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestErrorHandler_HidesInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pq: relation \"secret\" does not exist")) })

	w := get(r, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.Contains(t, w.Body.String(), apierror.KindInternal)
}

func TestRecovery_Panic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := get(r, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

// ── Rate limiting / CORS ─────────────────────────────────────────────────────

func TestLoginRateLimiter_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/login", middleware.LoginRateLimiter(t.Context(), 3), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/login", nil).Code, "request %d", i)
	}
	w := get(r, "/login", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), apierror.KindRateLimited)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://app.test"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/", map[string]string{"Origin": "http://app.test"})
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = get(r, "/", map[string]string{"Origin": "http://evil.test"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
