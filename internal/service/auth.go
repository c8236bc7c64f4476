package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/roadsideiq/verify-api/internal/core"
	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	apperrors "github.com/roadsideiq/verify-api/internal/errors"
)

// ErrInvalidCredentials is returned when a username/password pair does not
// match a stored user. Callers must not distinguish unknown users from wrong
// passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a bearer token fails validation for any
// reason (malformed, wrong algorithm, bad signature, expired, empty subject).
var ErrInvalidToken = errors.New("invalid token")

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users          core.UserRepository // Required: user credential store
	SigningSecret  string              // Required: HS256 shared secret
	AccessTokenTTL time.Duration       // Optional: defaults to 30m
	Issuer         string              // Optional: iss claim on minted tokens
	Logger         *slog.Logger        // Optional: structured logger
	TimeProvider   data.TimeProvider   // Optional: defaults to real time
}

// AuthService issues and validates HS256 bearer tokens backed by the users
// table. Tokens carry the username as subject; validation re-checks the
// subject still exists.
type AuthService struct {
	users          core.UserRepository
	signingSecret  []byte
	accessTokenTTL time.Duration
	issuer         string
	logger         *slog.Logger
	timeProvider   data.TimeProvider
}

const defaultAccessTokenTTL = 30 * time.Minute

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.SigningSecret == "" {
		return nil, errors.New("signing secret is required")
	}

	ttl := opts.AccessTokenTTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "auth_service")
	}

	return &AuthService{
		users:          opts.Users,
		signingSecret:  []byte(opts.SigningSecret),
		accessTokenTTL: ttl,
		issuer:         opts.Issuer,
		logger:         logger,
		timeProvider:   tp,
	}, nil
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid registration request")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Username, string(hash))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "user registered", "username", user.Username)
	}

	return user, nil
}

// TokenResult is the outcome of a successful credential exchange.
type TokenResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// IssueToken verifies the credentials and mints a short-lived HS256 bearer
// token for the user.
func (s *AuthService) IssueToken(ctx context.Context, username, password string) (*TokenResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.timeProvider.Now()
	expiresAt := now.Add(s.accessTokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "access token issued", "username", user.Username, "expires_at", expiresAt)
	}

	return &TokenResult{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken parses and validates a bearer token and returns the user it
// identifies. Any validation failure maps to ErrInvalidToken.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.signingSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.timeProvider.Now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("look up token subject %s: %w", claims.Subject, err)
	}

	return user, nil
}
