package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"classroom/internal/repository"
	v1 "classroom/pkg/api/v1"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	Issuer = "classroom-auth-service"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthOptions struct {
	SigningKey      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// Now overrides the clock used for issuing and validating tokens.
	Now func() time.Time
}

type AuthService struct {
	users           repository.UserRepository
	registry        repository.RefreshRegistry
	signingKey      []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

type UserClaims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewAuthService(users repository.UserRepository, registry repository.RefreshRegistry, opts AuthOptions) *AuthService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:           users,
		registry:        registry,
		signingKey:      []byte(opts.SigningKey),
		accessTokenTTL:  opts.AccessTokenTTL,
		refreshTokenTTL: opts.RefreshTokenTTL,
		now:             now,
	}
}

// Login checks the credentials and issues an access/refresh pair. The login
// may be the username or, when it contains "@", the email address.
func (s *AuthService) Login(ctx context.Context, login, password string) (*v1.TokenPair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.sign(u.ID, u.Username, tokenTypeAccess, s.accessTokenTTL, "")
	if err != nil {
		return nil, err
	}
	jti := uuid.New().String()
	refresh, err := s.sign(u.ID, u.Username, tokenTypeRefresh, s.refreshTokenTTL, jti)
	if err != nil {
		return nil, err
	}
	if err := s.registry.Allow(ctx, jti, u.ID, s.refreshTokenTTL); err != nil {
		return nil, err
	}
	return &v1.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	ok, err := s.registry.Active(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionExpired
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return "", ErrSessionExpired
	}
	return s.sign(u.ID, u.Username, tokenTypeAccess, s.accessTokenTTL, "")
}

// Revoke removes a refresh token from the allow-list.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return err
	}
	return s.registry.Revoke(ctx, claims.ID)
}

// Authenticate validates an access token and loads the current state of its
// user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*OperatorInfo, error) {
	claims, err := s.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return nil, ErrTokenInvalid
	}
	return &OperatorInfo{
		UserID:      u.ID,
		Username:    u.Username,
		IsSuperuser: u.IsSuperuser,
		Groups:      u.Groups,
	}, nil
}

func (s *AuthService) sign(userID int64, username, tokenType string, ttl time.Duration, jti string) (string, error) {
	now := s.now()
	claims := UserClaims{
		UserID:    userID,
		Username:  username,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			ID:        jti,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *AuthService) parse(tokenString, tokenType string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
