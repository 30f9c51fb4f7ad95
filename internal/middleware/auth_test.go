package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-server/internal/config"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/utils"
)

func setupRouter(cfg *config.Config, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", AuthMiddleware(cfg))
	if len(roles) > 0 {
		group.Use(RoleAuthMiddleware(roles...))
	}
	group.GET("/ping", func(c *gin.Context) {
		userID, _ := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	return router
}

func tokenFor(t *testing.T, cfg *config.Config, role models.Role) string {
	t.Helper()
	user := &models.User{Role: role}
	user.ID = "user-1"
	token, err := utils.GenerateToken(user, cfg)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	router := setupRouter(cfg)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RolePatient))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-1")
	})
}

func TestRoleAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	router := setupRouter(cfg, models.RolePharmacist, models.RoleAdmin)

	t.Run("allowed role", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RolePharmacist))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forbidden role", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, cfg, models.RolePatient))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
