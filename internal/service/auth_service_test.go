package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-fee-api/internal/models"
	"github.com/noah-isme/school-fee-api/internal/repository"
	appErrors "github.com/noah-isme/school-fee-api/pkg/errors"
)

type mockUserRepo struct {
	users            map[string]*models.User
	findErr          error
	createErr        error
	adminErr         error
	lastLoginUpdated bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockUserRepo) HasAdmin(ctx context.Context) (bool, error) {
	if m.adminErr != nil {
		return false, m.adminErr
	}
	for _, u := range m.users {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

type mockRevoker struct {
	revoked  map[string]time.Duration
	checkErr error
}

func (m *mockRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = map[string]time.Duration{}
	}
	m.revoked[tokenID] = ttl
	return nil
}

func (m *mockRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	_, ok := m.revoked[tokenID]
	return ok, nil
}

func newTestAuthService(repo *mockUserRepo, tokens *mockRevoker) *AuthService {
	return NewAuthService(repo, tokens, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "school-fee-api",
	})
}

func seedUser(t *testing.T, repo *mockUserRepo, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "user-seed", Email: email, PasswordHash: string(hash), DisplayName: "Admin", Role: models.RoleAdmin, Active: active}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockRevoker{})

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:       " Admin@School.test ",
		Password:    "secret1",
		DisplayName: "Admin",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin@school.test", resp.User.Email)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.NotNil(t, resp.User.LastLogin)

	claims, err := svc.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceRegisterAssignsStaffOnceAdminExists(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo, &mockRevoker{})
	ctx := context.Background()

	first, err := svc.Register(ctx, models.RegisterRequest{Email: "head@school.test", Password: "secret1", DisplayName: "Head"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.User.Role)

	second, err := svc.Register(ctx, models.RegisterRequest{Email: "clerk@school.test", Password: "secret1", DisplayName: "Clerk"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, second.User.Role)

	claims, err := svc.ValidateToken(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestAuthServiceRegisterFailures(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(repo *mockUserRepo)
		req     models.RegisterRequest
		want    *appErrors.Error
	}{
		{"invalid email", nil, models.RegisterRequest{Email: "not-an-email", Password: "secret1", DisplayName: "A"}, appErrors.ErrInvalidEmail},
		{"weak password", nil, models.RegisterRequest{Email: "a@school.test", Password: "123", DisplayName: "A"}, appErrors.ErrWeakPassword},
		{"email in use", func(repo *mockUserRepo) {
			repo.users["u"] = &models.User{ID: "u", Email: "a@school.test"}
		}, models.RegisterRequest{Email: "a@school.test", Password: "secret1", DisplayName: "A"}, appErrors.ErrEmailInUse},
		{"duplicate on insert", func(repo *mockUserRepo) {
			repo.createErr = repository.ErrDuplicate
		}, models.RegisterRequest{Email: "a@school.test", Password: "secret1", DisplayName: "A"}, appErrors.ErrEmailInUse},
		{"store down", func(repo *mockUserRepo) {
			repo.findErr = errStoreDown
		}, models.RegisterRequest{Email: "a@school.test", Password: "secret1", DisplayName: "A"}, appErrors.ErrNetworkFailure},
		{"role lookup fails", func(repo *mockUserRepo) {
			repo.adminErr = errStoreDown
		}, models.RegisterRequest{Email: "a@school.test", Password: "secret1", DisplayName: "A"}, appErrors.ErrNetworkFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockUserRepo()
			if tc.prepare != nil {
				tc.prepare(repo)
			}
			_, err := newTestAuthService(repo, &mockRevoker{}).Register(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, tc.want.Message, FormatAuthError(err))
		})
	}
}

func TestAuthServiceRegisterRequiresDisplayName(t *testing.T) {
	_, err := newTestAuthService(newMockUserRepo(), &mockRevoker{}).Register(context.Background(), models.RegisterRequest{
		Email: "a@school.test", Password: "secret1", DisplayName: " ",
	})
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "display_name", vErr.Field)
}

func TestAuthServiceSignIn(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "admin@school.test", "secret1", true)
	svc := newTestAuthService(repo, &mockRevoker{})

	resp, err := svc.SignIn(context.Background(), models.SignInRequest{Email: "ADMIN@school.test", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, repo.lastLoginUpdated)
	assert.NotNil(t, resp.User.LastLogin)
}

func TestAuthServiceSignInFailures(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "admin@school.test", "secret1", true)
	disabled := seedUser(t, newMockUserRepo(), "off@school.test", "secret1", false)
	disabled.ID = "user-off"
	repo.users[disabled.ID] = disabled
	svc := newTestAuthService(repo, &mockRevoker{})
	ctx := context.Background()

	_, err := svc.SignIn(ctx, models.SignInRequest{Email: "nobody@school.test", Password: "secret1"})
	assert.True(t, errors.Is(err, appErrors.ErrUserNotFound))

	_, err = svc.SignIn(ctx, models.SignInRequest{Email: "admin@school.test", Password: "wrong-pass"})
	assert.True(t, errors.Is(err, appErrors.ErrWrongPassword))
	assert.Equal(t, "Incorrect password.", FormatAuthError(err))

	_, err = svc.SignIn(ctx, models.SignInRequest{Email: "off@school.test", Password: "secret1"})
	assert.True(t, errors.Is(err, appErrors.ErrUserDisabled))

	_, err = svc.SignIn(ctx, models.SignInRequest{Email: "bad", Password: "secret1"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidEmail))
}

func TestAuthServiceSignOutRevokesToken(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "admin@school.test", "secret1", true)
	tokens := &mockRevoker{}
	svc := newTestAuthService(repo, tokens)
	ctx := context.Background()

	resp, err := svc.SignIn(ctx, models.SignInRequest{Email: "admin@school.test", Password: "secret1"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, claims))
	ttl, ok := tokens.revoked[claims.ID]
	require.True(t, ok)
	assert.Greater(t, ttl, time.Duration(0))

	_, err = svc.ValidateToken(ctx, resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	assert.Error(t, svc.SignOut(ctx, nil))
}

func TestAuthServiceValidateTokenFailures(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(t, repo, "admin@school.test", "secret1", true)
	tokens := &mockRevoker{}
	svc := newTestAuthService(repo, tokens)
	ctx := context.Background()

	_, err := svc.ValidateToken(ctx, "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JWTClaims{
		UserID:           "user-seed",
		RegisteredClaims: jwt.RegisteredClaims{ID: "x", Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := foreign.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, signed)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	resp, err := svc.SignIn(ctx, models.SignInRequest{Email: "admin@school.test", Password: "secret1"})
	require.NoError(t, err)
	tokens.checkErr = errStoreDown
	_, err = svc.ValidateToken(ctx, resp.AccessToken)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceMe(t *testing.T) {
	repo := newMockUserRepo()
	user := seedUser(t, repo, "admin@school.test", "secret1", true)
	svc := newTestAuthService(repo, &mockRevoker{})

	info, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@school.test", info.Email)

	_, err = svc.Me(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrUserNotFound))
}

func TestFormatAuthErrorFallback(t *testing.T) {
	assert.Equal(t, "", FormatAuthError(nil))
	assert.Equal(t, "boom", FormatAuthError(errors.New("boom")))
	assert.Equal(t, "An unknown error occurred.", FormatAuthError(errors.New("")))
}
