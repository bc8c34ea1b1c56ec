package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Configure("test-secret", time.Hour)

	token, err := GenerateJWT(models.User{ID: "u1", Name: "Ada", Role: models.RoleNGO})
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleNGO, claims.Role)

	Configure("other-secret", time.Hour)
	_, err = ValidateJWT(token)
	assert.Error(t, err)

	_, err = ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	Configure("test-secret", time.Nanosecond)
	token, err := GenerateJWT(models.User{ID: "u1"})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
	Configure("test-secret", time.Hour)
}

func TestMiddleware(t *testing.T) {
	Configure("test-secret", time.Hour)
	volunteerToken, err := GenerateJWT(models.User{ID: "v1", Role: models.RoleVolunteer})
	require.NoError(t, err)
	adminToken, err := GenerateJWT(models.User{ID: "a1", Role: models.RoleAdmin})
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, found := ClaimsFromContext(r.Context())
		if found {
			w.Header().Set("X-User", claims.UserID)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	protected := JWTMiddleware()(RequireRole(models.RoleNGO)(ok))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		user   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"wrong role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+volunteerToken) }, http.StatusForbidden, ""},
		{"admin passes every role", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminToken) }, http.StatusNoContent, "a1"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: adminToken}) }, http.StatusNoContent, "a1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, rec.Header().Get("X-User"))
		})
	}

	t.Run("optional middleware lets anonymous through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		OptionalJWTMiddleware()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/?token="+volunteerToken, nil)
		rec = httptest.NewRecorder()
		OptionalJWTMiddleware()(ok).ServeHTTP(rec, req)
		assert.Equal(t, "v1", rec.Header().Get("X-User"))
	})
}
