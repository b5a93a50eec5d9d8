package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatpoll/internal/domain"
	"chatpoll/internal/security"
	"chatpoll/internal/service"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = "42"
	}
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) ListExcept(ctx context.Context, excludeID string, limit int) ([]*domain.User, error) {
	return nil, nil
}

func (m *MockUserRepo) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, id, online)
	return args.Error(0)
}

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newAuthService(repo domain.UserRepository) (*service.AuthService, *security.TokenService) {
	tokens := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(4)
	return service.NewAuthService(repo, tokens, hasher, security.NewMemoryRevocations(), fixedClock, quietLogger()), tokens
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockUserRepo)
	svc, tokens := newAuthService(mockRepo)

	t.Run("Success", func(t *testing.T) {
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(nil, nil).Once()
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "alice" &&
				u.DisplayName == "Alice" &&
				u.HashedPassword != "pw" &&
				u.Online &&
				u.LastSeen != nil && u.LastSeen.Equal(fixedNow) &&
				u.Avatar == "https://api.dicebear.com/7.x/avataaars/svg?seed=alice"
		})).Return(nil).Once()

		res, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "alice", Password: "pw", DisplayName: "Alice",
		})
		require.NoError(t, err)
		assert.Equal(t, "42", res.UserID)
		assert.Equal(t, "Alice", res.DisplayName)

		claims, err := tokens.Parse(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "42", claims.UserID)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		existing := &domain.User{ID: "1", Username: "existing"}
		mockRepo.On("GetByUsername", mock.Anything, "existing").Return(existing, nil).Once()

		res, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing", Password: "pw", DisplayName: "E",
		})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("ConcurrentDuplicate", func(t *testing.T) {
		mockRepo.On("GetByUsername", mock.Anything, "racer").Return(nil, nil).Once()
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateUsername).Once()

		_, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "racer", Password: "pw", DisplayName: "R",
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	})

	t.Run("MissingFields", func(t *testing.T) {
		_, err := svc.Register(context.Background(), service.RegisterInput{Username: "x", Password: "pw"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("PasswordOverBcryptLimit", func(t *testing.T) {
		// 50 characters but 100 bytes.
		_, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "multibyte", Password: strings.Repeat("é", 50), DisplayName: "M",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		mockRepo.AssertNotCalled(t, "GetByUsername", mock.Anything, "multibyte")
	})

	t.Run("PasswordAtBcryptLimit", func(t *testing.T) {
		mockRepo.On("GetByUsername", mock.Anything, "edge").Return(nil, nil).Once()
		mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "edge", Password: strings.Repeat("é", service.MaxPasswordBytes/2), DisplayName: "E",
		})
		assert.NoError(t, err)
	})

	mockRepo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hasher := security.NewPasswordHasher(4)
	hashed, err := hasher.Hash("secret1")
	require.NoError(t, err)
	alice := &domain.User{ID: "7", Username: "alice", DisplayName: "Alice", HashedPassword: hashed}

	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _ := newAuthService(mockRepo)
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(alice, nil)
		mockRepo.On("SetPresence", mock.Anything, "7", true).Return(nil)

		res, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "7", res.UserID)
		assert.NotEmpty(t, res.Token)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _ := newAuthService(mockRepo)
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(alice, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		mockRepo.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _ := newAuthService(mockRepo)
		mockRepo.On("GetByUsername", mock.Anything, "ghost").Return(nil, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{Username: "ghost", Password: "secret1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("StoreError", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _ := newAuthService(mockRepo)
		boom := errors.New("boom")
		mockRepo.On("GetByUsername", mock.Anything, "alice").Return(nil, boom)

		_, err := svc.Login(context.Background(), service.LoginInput{Username: "alice", Password: "secret1"})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestAuthenticateAndLogout(t *testing.T) {
	mockRepo := new(MockUserRepo)
	svc, tokens := newAuthService(mockRepo)
	alice := &domain.User{ID: "7", Username: "alice"}
	mockRepo.On("GetByID", mock.Anything, "7").Return(alice, nil)
	mockRepo.On("GetByID", mock.Anything, "8").Return(nil, nil)
	mockRepo.On("SetPresence", mock.Anything, "7", false).Return(nil)

	token, err := tokens.CreateForUser("7")
	require.NoError(t, err)

	user, claims, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)

	require.NoError(t, svc.Logout(context.Background(), claims))
	_, _, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated, "logged-out token must be rejected")

	other, err := tokens.CreateForUser("7")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(context.Background(), other)
	assert.NoError(t, err, "logout revokes only the presented token")

	deleted, err := tokens.CreateForUser("8")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(context.Background(), deleted)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, _, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}
