package service

import (
	"context"
	"strings"

	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

const searchLimit = 10

type UserService struct {
	users repository.UserStore
}

func NewUserService(users repository.UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, Internal("Failed to list users", err)
	}
	return users, nil
}

// Search needs at least two characters and returns at most ten users.
func (s *UserService) Search(ctx context.Context, query string) ([]model.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []model.User{}, nil
	}
	users, err := s.users.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, Internal("Failed to search users", err)
	}
	return users, nil
}
