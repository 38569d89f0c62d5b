package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/defect-tracker/internal/config"
	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/repository"
	apperrors "github.com/spec-kit/defect-tracker/pkg/util"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		result = append(result, *user)
	}
	return result, nil
}

type fakeResetRepo struct {
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]*repository.PasswordResetToken{}}
}

func (r *fakeResetRepo) Create(ctx context.Context, token *repository.PasswordResetToken) error {
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now()
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *fakeResetRepo) GetByToken(ctx context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	token, ok := r.tokens[tokenStr]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *token
	return &copied, nil
}

func (r *fakeResetRepo) MarkUsed(ctx context.Context, id string) error {
	now := time.Now()
	for _, token := range r.tokens {
		if token.ID == id {
			token.UsedAt = &now
		}
	}
	return nil
}

func testAuthConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		PasswordResetTTLMinutes: 30,
		BcryptCost:              4,
	}}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: users, PasswordResetRepo: newFakeResetRepo()})

	user, token, exp, err := svc.Register(context.Background(), RegisterInput{
		Username: "petrov",
		FullName: "Petr Petrov",
		Email:    "petrov@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
	assert.NotEqual(t, "secret-password", user.PasswordHash)

	loggedIn, _, _, err := svc.Login(context.Background(), "petrov", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	_, _, _, err = svc.Login(context.Background(), "petrov", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	_, _, _, err = svc.Login(context.Background(), "nobody", "secret-password")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: newFakeUserRepo(), PasswordResetRepo: newFakeResetRepo()})

	_, _, _, err := svc.Register(context.Background(), RegisterInput{Username: "", Email: "a@b.c", Password: "longenough"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, _, _, err = svc.Register(context.Background(), RegisterInput{Username: "x", Email: "a@b.c", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestAuthService_DuplicateUsernameConflict(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: newFakeUserRepo(), PasswordResetRepo: newFakeResetRepo()})

	input := RegisterInput{Username: "sidorov", Email: "s@example.com", Password: "longenough"}
	_, _, _, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	input.Email = "other@example.com"
	_, _, _, err = svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestAuthService_RegisterAlwaysGrantsEngineer(t *testing.T) {
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: newFakeUserRepo(), PasswordResetRepo: newFakeResetRepo()})

	user, _, _, err := svc.Register(context.Background(), RegisterInput{Username: "default", Email: "d@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEngineer, user.Role)
}

func TestAuthService_UpdateUserRole(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: users, PasswordResetRepo: newFakeResetRepo()})

	user, _, _, err := svc.Register(context.Background(), RegisterInput{Username: "promote-me", Email: "p@example.com", Password: "longenough"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleEngineer, user.Role)

	promoted, err := svc.UpdateUserRole(context.Background(), user.ID, domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, promoted.Role)

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, stored.Role)

	_, err = svc.UpdateUserRole(context.Background(), user.ID, "SUPERVISOR")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	_, err = svc.UpdateUserRole(context.Background(), "missing", domain.RoleObserver)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: users, PasswordResetRepo: resets})

	_, _, _, err := svc.Register(context.Background(), RegisterInput{Username: "reset-me", Email: "r@example.com", Password: "oldpassword"})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), "r@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token.Token, "newpassword1"))

	_, _, _, err = svc.Login(context.Background(), "reset-me", "newpassword1")
	require.NoError(t, err)

	// token is single use
	err = svc.ConfirmPasswordReset(context.Background(), token.Token, "another")
	require.Error(t, err)
}

func TestAuthService_ChangePassword(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewAuthService(testAuthConfig(), AuthDependencies{UserRepo: users, PasswordResetRepo: newFakeResetRepo()})

	user, _, _, err := svc.Register(context.Background(), RegisterInput{Username: "changer", Email: "c@example.com", Password: "oldpassword"})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, "wrong", "newpassword1")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "oldpassword", "newpassword1"))
	_, _, _, err = svc.Login(context.Background(), "changer", "newpassword1")
	require.NoError(t, err)
}
