package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/domain"
	"github.com/FilipeAphrody/cartify/pkg/security"
)

const testSecret = "test-secret"

// userRepoStub satisfies domain.UserRepository for middleware tests; only
// GetByID is consulted.
type userRepoStub struct {
	getByID func(id string) (*domain.User, error)
}

func (s *userRepoStub) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (s *userRepoStub) GetByID(_ context.Context, id string) (*domain.User, error) {
	return s.getByID(id)
}

func (s *userRepoStub) Create(context.Context, *domain.User) error       { return nil }
func (s *userRepoStub) UpdateLastLogin(context.Context, string) error    { return nil }
func (s *userRepoStub) UpdatePassword(context.Context, string, string) error {
	return nil
}
func (s *userRepoStub) UpdateProfile(context.Context, string, domain.ProfileUpdate) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *userRepoStub) SetTwoFactor(context.Context, string, string, bool) error { return nil }
func (s *userRepoStub) SetResetExpiry(context.Context, string, time.Time) error  { return nil }

func existingUsers() *userRepoStub {
	return &userRepoStub{getByID: func(id string) (*domain.User, error) {
		return &domain.User{ID: id, Role: domain.RoleUser}, nil
	}}
}

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := security.GenerateAccessToken(userID, role, testSecret, 15*time.Minute)
	require.NoError(t, err)
	return token
}

func newProtectedServer(users domain.UserRepository, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewErrorHandler(zap.NewNop(), false)

	mws := append([]echo.MiddlewareFunc{RequireAuth(testSecret, users)}, extra...)
	e.GET("/me", func(c echo.Context) error {
		identity, _ := IdentityFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"userId": identity.UserID, "role": identity.Role})
	}, mws...)
	return e
}

func getWithAuth(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	e := newProtectedServer(existingUsers())

	assert.Equal(t, http.StatusUnauthorized, getWithAuth(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, getWithAuth(e, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, getWithAuth(e, "Bearer").Code)
	assert.Equal(t, http.StatusUnauthorized, getWithAuth(e, "Bearer not-a-jwt").Code)
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	e := newProtectedServer(existingUsers())

	forged, err := security.GenerateAccessToken("u1", domain.RoleUser, "other-secret", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, getWithAuth(e, "Bearer "+forged).Code)
}

func TestRequireAuthRejectsDeletedAccount(t *testing.T) {
	users := &userRepoStub{getByID: func(string) (*domain.User, error) {
		return nil, domain.ErrNotFound
	}}
	e := newProtectedServer(users)

	rec := getWithAuth(e, "Bearer "+signToken(t, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAttachesIdentity(t *testing.T) {
	e := newProtectedServer(existingUsers())

	rec := getWithAuth(e, "Bearer "+signToken(t, "u1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"u1","role":"admin"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newProtectedServer(existingUsers(), RequireRole(domain.RoleAdmin))

	rec := getWithAuth(e, "Bearer "+signToken(t, "u1", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = getWithAuth(e, "Bearer "+signToken(t, "u2", domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
}
