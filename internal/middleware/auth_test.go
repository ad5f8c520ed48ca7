package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/miklbjorn/email-summerhouse/internal/auth/jwks"
	"github.com/miklbjorn/email-summerhouse/internal/config"
	"github.com/miklbjorn/email-summerhouse/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(verifier *jwks.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Auth(verifier))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": middleware.GetSubject(c)})
	})
	return r
}

func unreachableVerifier() *jwks.Verifier {
	return jwks.NewVerifier(&config.AuthConfig{
		JWKSURL:      "http://127.0.0.1:1/jwks.json",
		Issuer:       "https://issuer.example",
		Audience:     "summerhouse-api",
		JWKSCacheTTL: time.Hour,
	})
}

func TestAuth_MissingHeader(t *testing.T) {
	r := authRouter(unreachableVerifier())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestAuth_NonBearerHeader(t *testing.T) {
	r := authRouter(unreachableVerifier())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidToken(t *testing.T) {
	r := authRouter(unreachableVerifier())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer not.a.real.token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
