package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
	"github.com/roadsideiq/verify-api/internal/mocks"
	"github.com/roadsideiq/verify-api/internal/testutil"
)

const authTestSecret = "auth-test-secret"

func newTestAuthService(t *testing.T, users *mocks.MockUserRepository, clock data.TimeProvider) *AuthService {
	t.Helper()
	svc, err := NewAuthService(AuthServiceOptions{
		Users:         users,
		SigningSecret: authTestSecret,
		Issuer:        "verify-api-test",
		TimeProvider:  clock,
	})
	require.NoError(t, err)
	return svc
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestNewAuthService(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)

	t.Run("missing user repository", func(t *testing.T) {
		_, err := NewAuthService(AuthServiceOptions{SigningSecret: authTestSecret})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "UserRepository is required")
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := NewAuthService(AuthServiceOptions{Users: users})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signing secret is required")
	})

	t.Run("defaults ttl", func(t *testing.T) {
		svc, err := NewAuthService(AuthServiceOptions{Users: users, SigningSecret: authTestSecret})
		require.NoError(t, err)
		assert.Equal(t, defaultAccessTokenTTL, svc.accessTokenTTL)
	})
}

func TestAuthService_Register(t *testing.T) {
	t.Run("hashes the password before storing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		var storedHash string
		users.EXPECT().
			Create(gomock.Any(), "alice", gomock.Any()).
			DoAndReturn(func(_ context.Context, username, hash string) (*model.User, error) {
				storedHash = hash
				return &model.User{ID: "u-1", Username: username, PasswordHash: hash}, nil
			})

		user, err := svc.Register(context.Background(), &model.RegisterUserRequest{
			Username: "alice",
			Password: "correct horse battery",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEqual(t, "correct horse battery", storedHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("correct horse battery")))
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		_, err := svc.Register(context.Background(), &model.RegisterUserRequest{
			Username: "bob",
			Password: "short",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		users.EXPECT().
			Create(gomock.Any(), "carol", gomock.Any()).
			Return(nil, errors.New("duplicate username"))

		_, err := svc.Register(context.Background(), &model.RegisterUserRequest{
			Username: "carol",
			Password: "a perfectly fine password",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create user")
	})
}

func TestAuthService_IssueToken(t *testing.T) {
	t.Run("mints a signed token with the expected claims", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		now := testutil.TestTime()
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(now))

		users.EXPECT().
			GetByUsername(gomock.Any(), "alice").
			Return(&model.User{
				ID:           "u-1",
				Username:     "alice",
				PasswordHash: hashPassword(t, "open sesame!"),
			}, nil)

		result, err := svc.IssueToken(context.Background(), "  alice  ", "open sesame!")
		require.NoError(t, err)
		assert.Equal(t, "bearer", result.TokenType)
		assert.Equal(t, now.Add(defaultAccessTokenTTL), result.ExpiresAt)

		claims := &jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(result.AccessToken, claims, func(*jwt.Token) (any, error) {
			return []byte(authTestSecret), nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(func() time.Time { return now }),
		)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, "verify-api-test", claims.Issuer)
		assert.Equal(t, now.Add(defaultAccessTokenTTL).Unix(), claims.ExpiresAt.Unix())
	})

	t.Run("unknown user", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		users.EXPECT().
			GetByUsername(gomock.Any(), "ghost").
			Return(nil, data.ErrUserNotFound)

		_, err := svc.IssueToken(context.Background(), "ghost", "whatever password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		users.EXPECT().
			GetByUsername(gomock.Any(), "alice").
			Return(&model.User{
				Username:     "alice",
				PasswordHash: hashPassword(t, "the real password"),
			}, nil)

		_, err := svc.IssueToken(context.Background(), "alice", "not the password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials never hit the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		_, err := svc.IssueToken(context.Background(), "", "password123")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = svc.IssueToken(context.Background(), "alice", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repository failure is not masked as bad credentials", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		users.EXPECT().
			GetByUsername(gomock.Any(), "alice").
			Return(nil, errors.New("connection refused"))

		_, err := svc.IssueToken(context.Background(), "alice", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
		assert.Contains(t, err.Error(), "look up user")
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	issue := func(t *testing.T, svc *AuthService, users *mocks.MockUserRepository, username string) string {
		t.Helper()
		users.EXPECT().
			GetByUsername(gomock.Any(), username).
			Return(&model.User{Username: username, PasswordHash: hashPassword(t, "password123")}, nil)
		result, err := svc.IssueToken(context.Background(), username, "password123")
		require.NoError(t, err)
		return result.AccessToken
	}

	t.Run("round trip", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(testutil.TestTime()))

		token := issue(t, svc, users, "alice")

		users.EXPECT().
			GetByUsername(gomock.Any(), "alice").
			Return(&model.User{ID: "u-1", Username: "alice"}, nil)

		user, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("expired token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		clock := data.NewFixedTimeProvider(testutil.TestTime())
		svc := newTestAuthService(t, users, clock)

		token := issue(t, svc, users, "alice")

		clock.SetTime(testutil.TestTime().Add(defaultAccessTokenTTL + time.Minute))
		_, err := svc.ValidateToken(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		_, err := svc.ValidateToken(context.Background(), "")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, nil)

		_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(testutil.TestTime()))

		claims := jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(testutil.TestTime().Add(time.Hour)),
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some other secret"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), forged)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects non-HS256 algorithms", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(testutil.TestTime()))

		claims := jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(testutil.TestTime().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(authTestSecret))
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(testutil.TestTime()))

		claims := jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testutil.TestTime().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(authTestSecret))
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("subject no longer exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockUserRepository(ctrl)
		svc := newTestAuthService(t, users, data.NewFixedTimeProvider(testutil.TestTime()))

		token := issue(t, svc, users, "alice")

		users.EXPECT().
			GetByUsername(gomock.Any(), "alice").
			Return(nil, data.ErrUserNotFound)

		_, err := svc.ValidateToken(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
