package service

import (
	"context"
	"fmt"
	"time"

	"chatpoll/internal/domain"
)

const maxUsersListed = 100

// UserService provides the user directory.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// UserSummary is the public view of a user.
type UserSummary struct {
	UserID      string     `json:"userId"`
	DisplayName string     `json:"displayName"`
	Avatar      string     `json:"avatar"`
	Online      bool       `json:"online"`
	LastSeen    *time.Time `json:"lastSeen"`
}

func NewUserSummary(u *domain.User) UserSummary {
	return UserSummary{
		UserID:      u.ID,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Online:      u.Online,
		LastSeen:    u.LastSeen,
	}
}

// ListOthers returns every user except currentUserID.
func (s *UserService) ListOthers(ctx context.Context, currentUserID string) ([]UserSummary, error) {
	users, err := s.users.ListExcept(ctx, currentUserID, maxUsersListed)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	res := make([]UserSummary, 0, len(users))
	for _, u := range users {
		res = append(res, NewUserSummary(u))
	}
	return res, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*UserSummary, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	sum := NewUserSummary(u)
	return &sum, nil
}
