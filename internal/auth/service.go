package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/pkg/validation"
	"ecotrack-backend/internal/realtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	failedLoginWindow    = 15 * time.Minute
	failedLoginThreshold = 5
)

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Service handles registration, login and bearer token verification.
type Service struct {
	DB          *gorm.DB
	Tokens      *Tokens
	Store       *TokenStore
	Broadcaster *realtime.Broadcaster
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = validation.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	if !validation.IsValidEmail(in.Email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidUsername(in.Username) {
		return nil, ErrInvalidUsername
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}

	user, err := s.createUser(ctx, in, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	s.Broadcaster.AdminAlert(ctx, realtime.Alert{
		Type:     "newUser",
		Message:  fmt.Sprintf("New user registered: %s", user.Username),
		Severity: realtime.SeverityInfo,
	})
	return user, nil
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role string) (*domain.User, error) {
	db := s.DB.WithContext(ctx)
	var n int64
	if err := db.Model(&domain.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrEmailTaken
	}
	if err := db.Model(&domain.User{}).Where("username = ?", in.Username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		City:         in.City,
		Country:      in.Country,
		Role:         role,
		IsActive:     true,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token. Repeated failures for
// one email raise a security alert to admins.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := validation.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		s.recordFailure(ctx, email)
		return nil, ErrIncorrectPassword
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	s.Store.ClearFailures(ctx, email)

	token, claims, err := s.Tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, err
	}
	expires := claims.ExpiresAt.Time
	if err := s.Store.Track(ctx, u.ID.String(), claims.ID, time.Until(expires)); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("could not track session")
	}
	log.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &LoginResult{Token: token, ExpiresAt: expires, User: &u}, nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	n, err := s.Store.RecordFailure(ctx, email, failedLoginWindow)
	if err != nil {
		log.Warn().Err(err).Msg("could not record failed login")
		return
	}
	if n == failedLoginThreshold {
		s.Broadcaster.SecurityAlert(ctx, realtime.Alert{
			Type:     "failedLogin",
			Message:  fmt.Sprintf("%d failed login attempts for %s", n, email),
			Severity: realtime.SeverityWarning,
		})
	}
}

// Logout revokes the caller's token.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil {
		return ErrNotAuthenticated
	}
	return s.Store.Revoke(ctx, p.UserID.String(), p.TokenID, time.Until(p.ExpiresAt))
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	p, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Store.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Select("id", "username", "role", "is_active").First(&u, "id = ?", p.UserID).Error; err != nil {
		return nil, ErrNotAuthenticated
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	p.Username = u.Username
	p.Role = u.Role
	return p, nil
}

// Identify implements realtime.Authenticator.
func (s *Service) Identify(ctx context.Context, token string) (realtime.Identity, error) {
	p, err := s.Authenticate(ctx, token)
	if err != nil {
		return realtime.Identity{}, fmt.Errorf("%w: %v", realtime.ErrUnauthenticated, err)
	}
	return realtime.Identity{UserID: p.UserID.String(), Username: p.Username, Admin: p.IsAdmin()}, nil
}

// SeedAdmin creates the admin account, or promotes an existing account with the
// same email. It reports whether a new user was created.
func (s *Service) SeedAdmin(ctx context.Context, in RegisterInput) (*domain.User, bool, error) {
	in.Email = validation.NormalizeEmail(in.Email)
	var existing domain.User
	err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error
	if err == nil {
		if err := s.DB.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{"role": domain.RoleAdmin, "is_active": true}).Error; err != nil {
			return nil, false, err
		}
		existing.Role = domain.RoleAdmin
		existing.IsActive = true
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, false, ErrInvalidPassword
	}
	if in.Username == "" {
		in.Username = "admin"
	}
	u, err := s.createUser(ctx, in, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
