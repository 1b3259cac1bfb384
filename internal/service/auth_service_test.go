package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

func newTestAuth() (*AuthService, *mockUsers, *mockRefreshTokens) {
	users := new(mockUsers)
	tokens := new(mockRefreshTokens)
	svc := NewAuthService(users, tokens, AuthConfig{
		JWTSecret:    "test-secret",
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   time.Hour,
		StorageQuota: 1 << 20,
		TokenGrant:   500,
		BcryptCost:   bcrypt.MinCost,
	})
	return svc, users, tokens
}

func existingUser(t *testing.T, password string) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return model.User{ID: "u1", Username: "ada", PasswordHash: string(hash), Role: "user"}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account with quota and grant", func(t *testing.T) {
		svc, users, _ := newTestAuth()
		users.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
			return u.Username == "ada" &&
				u.StorageQuota == 1<<20 &&
				bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")) == nil
		}), int64(500)).Return(nil)

		user, err := svc.Register(ctx, "  ada ", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "ada", user.Username)
		assert.NotEmpty(t, user.ID)
		users.AssertExpectations(t)
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc, users, _ := newTestAuth()
		_, err := svc.Register(ctx, "ada", "short")
		require.Error(t, err)
		assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate username surfaces sentinel", func(t *testing.T) {
		svc, users, _ := newTestAuth()
		users.On("Create", ctx, mock.Anything, int64(500)).Return(model.ErrUserAlreadyExists)

		_, err := svc.Register(ctx, "ada", "correct horse")
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and stores a token pair", func(t *testing.T) {
		svc, users, tokens := newTestAuth()
		users.On("FindByUsername", ctx, "ada").Return(existingUser(t, "correct horse"), nil)
		tokens.On("Store", ctx, mock.AnythingOfType("string"), "u1", mock.AnythingOfType("time.Time")).Return(nil)

		pair, err := svc.Login(ctx, "ada", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.Equal(t, int64(900), pair.ExpiresIn)
		assert.Equal(t, "ada", pair.User.Username)

		claims, err := svc.ValidateToken(pair.AccessToken, "access")
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserID)

		_, err = svc.ValidateToken(pair.AccessToken, "refresh")
		require.Error(t, err)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, _ := newTestAuth()
		users.On("FindByUsername", ctx, "ada").Return(existingUser(t, "correct horse"), nil)

		_, err := svc.Login(ctx, "ada", "battery staple")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("unknown user looks like wrong password", func(t *testing.T) {
		svc, users, _ := newTestAuth()
		users.On("FindByUsername", ctx, "bob").Return(model.User{}, model.ErrUserNotFound)

		_, err := svc.Login(ctx, "bob", "whatever1")
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the refresh token", func(t *testing.T) {
		svc, users, tokens := newTestAuth()
		user := existingUser(t, "correct horse")
		users.On("FindByUsername", ctx, "ada").Return(user, nil)
		users.On("FindByID", ctx, "u1").Return(user, nil)
		tokens.On("Store", ctx, mock.Anything, "u1", mock.Anything).Return(nil)

		first, err := svc.Login(ctx, "ada", "correct horse")
		require.NoError(t, err)

		tokens.On("Consume", ctx, first.RefreshToken).Return("u1", nil).Once()
		second, err := svc.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

		tokens.On("Consume", ctx, first.RefreshToken).Return("", model.ErrTokenNotFound).Once()
		_, err = svc.Refresh(ctx, first.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, apierror.KindUnauthorized, apierror.KindOf(err))
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		svc, users, tokens := newTestAuth()
		users.On("FindByUsername", ctx, "ada").Return(existingUser(t, "correct horse"), nil)
		tokens.On("Store", ctx, mock.Anything, "u1", mock.Anything).Return(nil)

		pair, err := svc.Login(ctx, "ada", "correct horse")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, pair.AccessToken)
		require.Error(t, err)
		tokens.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	svc, _, _ := newTestAuth()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "typ": "access", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged, "access")
	require.Error(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "typ": "access", "exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(expired, "access")
	require.Error(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"typ": "access", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(noSubject, "access")
	require.Error(t, err)
}
