package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/zimlearn/console-api/internal/models"
	"github.com/zimlearn/console-api/internal/service"
)

func rbacRouter(claims *models.JWTClaims, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/resource/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRequireAdminAllowsAdminRoles(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin} {
		router := rbacRouter(&models.JWTClaims{UserID: "user-1", Role: role}, RequireAdmin())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/x", nil))
		require.Equal(t, http.StatusNoContent, w.Code, "role %s", role)
	}
}

func TestRequireAdminRejectsStudent(t *testing.T) {
	router := rbacRouter(&models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, RequireAdmin())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/x", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "student")
}

func TestRBACMissingClaims(t *testing.T) {
	router := rbacRouter(nil, RequireAdmin())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/x", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACSelfMatchesRouteParam(t *testing.T) {
	guard := RBAC(string(models.RoleAdmin), SelfRole)

	router := rbacRouter(&models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, guard)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/user-1", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/resource/user-2", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "middleware-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour,
	})
}

func signToken(t *testing.T, secret, userID string, role models.UserRole) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func jwtRouter(auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWT(auth), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return router
}

func TestJWTAcceptsValidBearerToken(t *testing.T) {
	auth := newTestAuthService()
	token := signToken(t, "middleware-secret", "user-7", models.RoleAdmin)

	router := jwtRouter(auth)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-7", w.Body.String())
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := jwtRouter(newTestAuthService())

	for _, header := range []string{"", "Token abc", "Bearer"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestJWTRejectsTokenSignedWithOtherSecret(t *testing.T) {
	token := signToken(t, "different", "user-7", models.RoleAdmin)

	router := jwtRouter(newTestAuthService())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
