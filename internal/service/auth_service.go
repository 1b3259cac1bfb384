package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 64
	defaultBcryptCost = 12
)

type AuthConfig struct {
	JWTSecret    string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StorageQuota int64
	TokenGrant   int64
	BcryptCost   int
}

type AuthService struct {
	users  UserRepository
	tokens RefreshTokenRepository
	cfg    AuthConfig
	secret []byte
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens RefreshTokenRepository, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	return &AuthService{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		secret: []byte(cfg.JWTSecret),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Login(ctx context.Context, username string, password string) (model.TokenPair, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	return s.issueTokenPair(ctx, user)
}

// Register creates the account together with its storage quota and the
// initial token grant.
func (s *AuthService) Register(ctx context.Context, username string, password string) (model.AuthUser, error) {
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return model.AuthUser{}, apierror.New("BAD_REQUEST", "username and password are required", "", http.StatusBadRequest)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength || strings.ContainsAny(username, " /\\") {
		return model.AuthUser{}, apierror.New("BAD_REQUEST", "invalid username", username, http.StatusBadRequest)
	}
	if len(password) < minPasswordLength {
		return model.AuthUser{}, apierror.New("BAD_REQUEST", "password must be at least 8 characters", "", http.StatusBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return model.AuthUser{}, err
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         "user",
		StorageQuota: s.cfg.StorageQuota,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user, s.cfg.TokenGrant); err != nil {
		return model.AuthUser{}, err
	}

	return authUser(user), nil
}

// Refresh rotates the pair: the presented refresh token is consumed and
// cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.ValidateToken(refreshToken, "refresh")
	if err != nil {
		return model.TokenPair{}, err
	}

	ownerID, err := s.tokens.Consume(ctx, refreshToken)
	if errors.Is(err, model.ErrTokenNotFound) || (err == nil && ownerID != claims.UserID) {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "refresh token is invalid", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, ownerID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.New("UNAUTHORIZED", "user not found", "", http.StatusUnauthorized)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	return s.issueTokenPair(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["sub"].(string)
	claims.Username, _ = claimsMap["username"].(string)
	claims.Role, _ = claimsMap["role"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if claims.UserID == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	return claims, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}
	return authUser(user), nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user model.User) (model.TokenPair, error) {
	now := s.now()

	accessToken, err := s.signToken(user, "access", now, s.cfg.AccessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.signToken(user, "refresh", now, s.cfg.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.tokens.Store(ctx, refreshToken, user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
		User:         authUser(user),
	}, nil
}

func (s *AuthService) signToken(user model.User, typ string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"typ":      typ,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

func authUser(u model.User) model.AuthUser {
	return model.AuthUser{ID: u.ID, Username: u.Username, Role: u.Role}
}
