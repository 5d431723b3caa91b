package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"issuetracker/internal/auth"
	"issuetracker/internal/events"
	"issuetracker/internal/model"
	"issuetracker/internal/repository"
)

const minPasswordLength = 6

type AuthOptions struct {
	BcryptCost    int
	ResetTokenTTL time.Duration
}

type AuthService struct {
	users  repository.UserStore
	tokens *auth.TokenIssuer
	opts   AuthOptions
	notifier
	now func() time.Time
}

func NewAuthService(users repository.UserStore, tokens *auth.TokenIssuer, publisher events.Publisher, logger *slog.Logger, opts AuthOptions) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		opts:     opts,
		notifier: notifier{publisher: publisher, logger: logger.With("service", "auth")},
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token string
	User  *model.User
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return nil, Validation("Please provide name, email and password")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, Validation("Invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return nil, Validation("Password must be at least 6 characters")
	}

	hash, err := auth.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, Internal("Failed to hash password", err)
	}

	user := &model.User{Name: name, Email: email, HashedPassword: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translate(err, "Registration failed")
	}

	s.publish(ctx, events.New(events.UserRegistered, user.ID).
		With("email", user.Email).
		With("name", user.Name))

	return s.session(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, Validation("Please provide email and password")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, Internal("Login failed", err)
	}
	if !auth.CheckPassword(user.HashedPassword, password) {
		return nil, Unauthorized("Invalid email or password")
	}
	return s.session(user)
}

func (s *AuthService) session(user *model.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, Internal("Failed to generate token", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "Failed to load user")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validation("Name is required")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "Failed to load user")
	}
	user.Name = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translate(err, "Failed to update profile")
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, "Failed to load user")
	}
	if !auth.CheckPassword(user.HashedPassword, current) {
		return Validation("Current password is incorrect")
	}
	if len(next) < minPasswordLength {
		return Validation("New password must be at least 6 characters")
	}
	if err := s.setPassword(ctx, user, next); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.UserPasswordChanged, user.ID))
	return nil
}

// ForgotPassword stores a fresh reset token and mails it through the
// user.password_reset_requested event. Unknown emails succeed silently so the
// endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return Validation("Please provide email address")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return Internal("Failed to process password reset request", err)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return Internal("Failed to process password reset request", err)
	}
	hashed := auth.HashToken(token)
	expiry := s.now().Add(s.opts.ResetTokenTTL)
	user.ResetToken = &hashed
	user.ResetTokenExpiry = &expiry
	if err := s.users.Update(ctx, user); err != nil {
		return Internal("Failed to process password reset request", err)
	}

	s.publish(ctx, events.New(events.UserPasswordResetRequested, user.ID).
		With("email", user.Email).
		With("name", user.Name).
		With("token", token).
		With("expires_in", s.opts.ResetTokenTTL.String()))
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return Validation("Please provide reset token and new password")
	}
	if len(password) < minPasswordLength {
		return Validation("Password must be at least 6 characters")
	}
	user, err := s.users.FindByResetToken(ctx, auth.HashToken(token), s.now())
	if errors.Is(err, repository.ErrUserNotFound) {
		return Validation("Invalid or expired reset token")
	}
	if err != nil {
		return Internal("Failed to reset password", err)
	}

	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	return s.setPassword(ctx, user, password)
}

func (s *AuthService) setPassword(ctx context.Context, user *model.User, plain string) error {
	hash, err := auth.HashPassword(plain, s.opts.BcryptCost)
	if err != nil {
		return Internal("Failed to hash password", err)
	}
	user.HashedPassword = hash
	if err := s.users.Update(ctx, user); err != nil {
		return translate(err, "Failed to update password")
	}
	return nil
}
