package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appauth "github.com/yigit/formatrack/internal/app/auth"
	"github.com/yigit/formatrack/internal/app/models"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/pkg/apperrors"
	"github.com/yigit/formatrack/internal/pkg/auth"
	"github.com/yigit/formatrack/internal/pkg/retry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "test"})
}

func token(t *testing.T, svc *auth.JWTService, subject auth.TokenSubject) string {
	t.Helper()
	tok, _, err := svc.GenerateToken(subject)
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body
}

func protectedRouter(m *AuthMiddleware, roles ...models.Role) *gin.Engine {
	r := gin.New()
	group := r.Group("/", m.JWTAuth())
	if len(roles) > 0 {
		group.Use(m.RoleRequired(roles...))
	}
	group.GET("/whoami", func(c *gin.Context) {
		p, err := appauth.MustFromContext(c.Request.Context())
		if err != nil {
			HandleAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})
	return r
}

func TestJWTAuth_StoresPrincipal(t *testing.T) {
	svc := newJWT()
	r := protectedRouter(NewAuthMiddleware(svc))
	tok := token(t, svc, auth.TokenSubject{UserID: 7, EstablishmentID: 3, Email: "ana@example.com", Role: "TRAINER"})

	for name, set := range map[string]func(*http.Request){
		"header": func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+tok) },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=" + tok },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			set(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var p appauth.Principal
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, appauth.Principal{UserID: 7, EstablishmentID: 3, Role: models.RoleTrainer, Email: "ana@example.com"}, p)
		})
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	svc := newJWT()
	other := auth.NewJWTService(auth.JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour})
	expired := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: -time.Minute})
	r := protectedRouter(NewAuthMiddleware(svc))

	tests := []struct {
		name   string
		header string
		code   dto.ErrorCode
	}{
		{"missing", "", dto.ErrorCodeUnauthorized},
		{"bad format", "Bearer ", dto.ErrorCodeUnauthorized},
		{"wrong key", "Bearer " + token(t, other, auth.TokenSubject{UserID: 1, EstablishmentID: 1, Email: "a@b.c", Role: "ADMIN"}), dto.ErrorCodeInvalidToken},
		{"expired", "Bearer " + token(t, expired, auth.TokenSubject{UserID: 1, EstablishmentID: 1, Email: "a@b.c", Role: "ADMIN"}), dto.ErrorCodeExpiredToken},
		{"unknown role", "Bearer " + token(t, svc, auth.TokenSubject{UserID: 1, EstablishmentID: 1, Email: "a@b.c", Role: "JANITOR"}), dto.ErrorCodeInvalidToken},
		{"tenant user without establishment", "Bearer " + token(t, svc, auth.TokenSubject{UserID: 1, Email: "a@b.c", Role: "STUDENT"}), dto.ErrorCodeInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestJWTAuth_SuperAdminHasNoTenant(t *testing.T) {
	svc := newJWT()
	r := protectedRouter(NewAuthMiddleware(svc))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, svc, auth.TokenSubject{UserID: 1, EstablishmentID: 9, Email: "root@example.com", Role: "SUPER_ADMIN"}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var p appauth.Principal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Zero(t, p.EstablishmentID)
}

func TestRoleRequired(t *testing.T) {
	svc := newJWT()
	r := protectedRouter(NewAuthMiddleware(svc), models.RoleAdmin, models.RoleTrainer)

	call := func(role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, svc, auth.TokenSubject{UserID: 2, EstablishmentID: 1, Email: "x@example.com", Role: role}))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("TRAINER").Code)
	rec := call("STUDENT")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, rec).Error.Code)
}

func TestHandleAPIError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.ErrFormationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{fmt.Errorf("error getting slot: %w", apperrors.ErrSlotNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.ErrSlotOverlap, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.ErrMessageAlreadySent, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.ErrPeerNotOnline, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.ErrTenantMismatch, http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.NewForbiddenError("trainer role required"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled},
		{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{apperrors.ErrNoRecipients, http.StatusUnprocessableEntity, dto.ErrorCodeResourceInvalid},
		{apperrors.NewBadRequestError("bad type"), http.StatusBadRequest, dto.ErrorCodeBadRequest},
		{fmt.Errorf("error creating room: %w", apperrors.ErrProviderUnavailable), http.StatusBadGateway, dto.ErrorCodeExternalServiceError},
		{&retry.ExhaustedError{Attempts: 3, Last: errors.New("timeout")}, http.StatusBadGateway, dto.ErrorCodeExternalServiceError},
		{errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestHandleAPIError_KeepsValidationField(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, fmt.Errorf("error creating slot: %w", apperrors.NewValidationError("endsAt", "endsAt must be after startsAt")))

	body := decodeError(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
	assert.Equal(t, "endsAt", body.Error.Field)
	assert.Equal(t, "endsAt must be after startsAt", body.Error.Message)
}

type slugRequest struct {
	Name string `json:"name" binding:"required,max=10"`
	Slug string `json:"slug" binding:"omitempty,slug"`
}

func TestBindJSON(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req slugRequest
		if !BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})
	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, post(`{"name":"ok","slug":"good-slug"}`).Code)

	rec := post(`{"name":"ok","slug":"Bad Slug"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
	assert.Equal(t, "slug", body.Error.Field)

	rec = post(`{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrorCodeBadRequest, decodeError(t, rec).Error.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, zerolog.Nop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Request = c.Request.WithContext(appauth.WithPrincipal(c.Request.Context(), appauth.Principal{UserID: 42, EstablishmentID: 1, Role: models.RoleStudent}))
		}
	}, rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(user bool) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user {
			req.Header.Set("X-User", "42")
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(true))
	assert.Equal(t, http.StatusOK, call(true))
	assert.Equal(t, http.StatusTooManyRequests, call(true))
	// anonymous callers have their own bucket
	assert.Equal(t, http.StatusOK, call(false))

	assert.Zero(t, rl.Cleanup(time.Now()))
	assert.Equal(t, 2, rl.Cleanup(time.Now().Add(time.Hour)))
}
