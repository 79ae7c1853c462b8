package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/formatrack/internal/app/controllers"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
	"github.com/yigit/formatrack/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type unreadOnly struct {
	services.MessagingService
}

func (unreadOnly) UnreadCount(ctx context.Context) (int64, error) {
	return 0, nil
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "routes-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "formatrack.test",
	})

	router := gin.New()
	SetupRouter(router, Controllers{
		Message: controllers.NewMessageController(unreadOnly{}),
	}, middleware.NewAuthMiddleware(jwtService), limiter)
	return router, jwtService
}

func tokenFor(t *testing.T, jwtService *auth.JWTService, role models.Role) string {
	t.Helper()
	var establishmentID int64 = 4
	if role == models.RoleSuperAdmin {
		establishmentID = 0
	}
	token, _, err := jwtService.GenerateToken(auth.TokenSubject{
		UserID:          21,
		EstablishmentID: establishmentID,
		Email:           "someone@formatrack.test",
		Role:            string(role),
	})
	require.NoError(t, err)
	return token
}

func call(router *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRoutes_RoleGates(t *testing.T) {
	router, jwtService := newTestRouter(t, nil)
	student := tokenFor(t, jwtService, models.RoleStudent)
	trainer := tokenFor(t, jwtService, models.RoleTrainer)
	admin := tokenFor(t, jwtService, models.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous", http.MethodGet, "/api/v1/messages/unread-count", "", http.StatusUnauthorized},
		{"any role reads its inbox counter", http.MethodGet, "/api/v1/messages/unread-count", student, http.StatusOK},
		{"student cannot create formations", http.MethodPost, "/api/v1/formations", student, http.StatusForbidden},
		{"student cannot list users", http.MethodGet, "/api/v1/users", student, http.StatusForbidden},
		{"trainer cannot create users", http.MethodPost, "/api/v1/users", trainer, http.StatusForbidden},
		{"student cannot grade", http.MethodPost, "/api/v1/submissions/3/grade", student, http.StatusForbidden},
		{"admin cannot manage establishments", http.MethodGet, "/api/v1/establishments", admin, http.StatusForbidden},
		{"student cannot open virtual classes", http.MethodPost, "/api/v1/virtual-classes", student, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", student, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(router, tt.method, tt.path, tt.token))
		})
	}
}

func TestRoutes_RateLimitedPerUser(t *testing.T) {
	router, jwtService := newTestRouter(t, middleware.NewRateLimiter(0.001, 1, zerolog.Nop()))
	student := tokenFor(t, jwtService, models.RoleStudent)

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/messages/unread-count", student))
	assert.Equal(t, http.StatusTooManyRequests, call(router, http.MethodGet, "/api/v1/messages/unread-count", student))
}
