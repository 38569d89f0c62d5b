package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/defect-tracker/internal/auth"
	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/observability"
)

type stubUserRepo struct {
	user *domain.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *domain.User) error { return nil }
func (s *stubUserRepo) Update(ctx context.Context, user *domain.User) error { return nil }

func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) List(ctx context.Context) ([]domain.User, error) { return nil, nil }

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGuardedApp(t *testing.T, user *domain.User, tokens *auth.TokenManager) *fiber.App {
	t.Helper()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)

	mw := auth.NewAuthMiddleware(tokens, &stubUserRepo{user: user})
	app.Post("/api/defects",
		mw.Handle,
		auth.RequireAuthenticated(),
		auth.RequireRole(domain.RoleManager, domain.RoleEngineer),
		func(c *fiber.Ctx) error { return c.SendStatus(http.StatusCreated) },
	)
	return app
}

func TestRoleGuard_ObserverMutationForbidden(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 60)
	observer := &domain.User{ID: "user-observer", Username: "observer", Role: domain.RoleObserver}
	token, _, err := tokens.GenerateToken(observer)
	require.NoError(t, err)

	app := newGuardedApp(t, observer, tokens)

	req := httptest.NewRequest(http.MethodPost, "/api/defects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var envelope errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "FORBIDDEN", envelope.Error.Code)
	assert.Equal(t, "insufficient role", envelope.Error.Message)
}

func TestRoleGuard_MissingTokenUnauthorized(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 60)
	app := newGuardedApp(t, nil, tokens)

	req := httptest.NewRequest(http.MethodPost, "/api/defects", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var envelope errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "UNAUTHORIZED", envelope.Error.Code)
}

func TestRoleGuard_EngineerMutationAllowed(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", 60)
	engineer := &domain.User{ID: "user-engineer", Username: "engineer", Role: domain.RoleEngineer}
	token, _, err := tokens.GenerateToken(engineer)
	require.NoError(t, err)

	app := newGuardedApp(t, engineer, tokens)

	req := httptest.NewRequest(http.MethodPost, "/api/defects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}
