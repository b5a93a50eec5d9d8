package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"

	"chatpoll/internal/domain"
	"chatpoll/internal/security"
	"chatpoll/internal/timefmt"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// MaxPasswordBytes is bcrypt's input limit. It counts bytes, not characters.
const MaxPasswordBytes = 72

// AuthService handles registration, login, logout and bearer authentication.
type AuthService struct {
	users   domain.UserRepository
	tokens  *security.TokenService
	hash    *security.PasswordHasher
	revoked security.Revocations
	now     timefmt.Clock
	log     *log.Logger
}

func NewAuthService(
	users domain.UserRepository,
	tokens *security.TokenService,
	hash *security.PasswordHasher,
	revoked security.Revocations,
	now timefmt.Clock,
	logger *log.Logger,
) *AuthService {
	if now == nil {
		now = timefmt.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		hash:    hash,
		revoked: revoked,
		now:     now,
		log:     logger.WithPrefix("auth"),
	}
}

type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Username string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

// AvatarURL is the generated avatar for a username.
func AvatarURL(username string) string {
	return avatarBaseURL + url.QueryEscape(username)
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Username == "" || in.Password == "" || in.DisplayName == "" {
		return nil, fmt.Errorf("username, password and display name are required: %w", domain.ErrInvalidInput)
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, fmt.Errorf("password exceeds %d bytes: %w", MaxPasswordBytes, domain.ErrInvalidInput)
	}

	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, domain.ErrDuplicateUsername
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Username:       in.Username,
		HashedPassword: hashed,
		DisplayName:    in.DisplayName,
		Avatar:         AvatarURL(in.Username),
		Online:         true,
		LastSeen:       &now,
		CreatedAt:      now,
	}
	// A concurrent registration that slipped past the lookup trips the
	// unique index and comes back as ErrDuplicateUsername.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &AuthResult{UserID: user.ID, Token: token, DisplayName: user.DisplayName}, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !s.hash.Matches(in.Password, user.HashedPassword) {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.SetPresence(ctx, user.ID, true, s.now()); err != nil {
		return nil, fmt.Errorf("set online: %w", err)
	}

	token, err := s.tokens.CreateForUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &AuthResult{UserID: user.ID, Token: token, DisplayName: user.DisplayName}, nil
}

// Logout marks the user offline and revokes the token the request carried.
func (s *AuthService) Logout(ctx context.Context, claims *security.Claims) error {
	if err := s.users.SetPresence(ctx, claims.UserID, false, s.now()); err != nil {
		return fmt.Errorf("set offline: %w", err)
	}
	if claims.TokenID == "" {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. Every failure other than
// a storage error is ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, *security.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrInvalidToken) {
			return nil, nil, domain.ErrUnauthenticated
		}
		return nil, nil, err
	}

	if claims.TokenID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return nil, nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, nil, domain.ErrUnauthenticated
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil, domain.ErrUnauthenticated
	}
	return user, claims, nil
}
