package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ecotrack-backend/internal/domain"
	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/realtime"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuth(t *testing.T) (*Service, *miniredis.Miniredis, *realtime.Client) {
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	hub := realtime.NewHub(nil)
	admin := realtime.NewClient(realtime.Identity{UserID: "admin", Admin: true}, 16)
	hub.Register(admin)

	svc := &Service{
		DB:          db,
		Tokens:      &Tokens{Secret: []byte("test-secret"), TTL: time.Hour},
		Store:       &TokenStore{Rdb: rdb},
		Broadcaster: realtime.NewBroadcaster(hub),
	}
	return svc, mr, admin
}

func adminEvents(c *realtime.Client) []string {
	var out []string
	for {
		select {
		case b := <-c.Messages():
			var env realtime.Envelope
			_ = json.Unmarshal(b, &env)
			out = append(out, env.Event)
		default:
			return out
		}
	}
}

func register(t *testing.T, s *Service, name string) *domain.User {
	u, err := s.Register(context.Background(), RegisterInput{Username: name, Email: name + "@example.com", Password: "green#2024"})
	require.NoError(t, err)
	return u
}

func TestRegister_ValidatesAndAlertsAdmins(t *testing.T) {
	s, _, admin := setupAuth(t)
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterInput{Username: "ana", Email: "bad", Password: "green#2024"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = s.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "weak"})
	assert.ErrorIs(t, err, ErrInvalidPassword)

	u := register(t, s, "ana")
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "green#2024", u.PasswordHash)

	_, err = s.Register(ctx, RegisterInput{Username: "other", Email: "ANA@example.com", Password: "green#2024"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = s.Register(ctx, RegisterInput{Username: "ana", Email: "x@example.com", Password: "green#2024"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	assert.Equal(t, []string{realtime.EventAdminAlert}, adminEvents(admin))
}

func TestLogin_AuthenticateAndLogout(t *testing.T) {
	s, _, _ := setupAuth(t)
	ctx := context.Background()
	u := register(t, s, "ben")

	_, err := s.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	res, err := s.Login(ctx, LoginInput{Email: "ben@example.com", Password: "green#2024"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	p, err := s.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, "ben", p.Username)

	id, err := s.Identify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), id.UserID)
	assert.False(t, id.Admin)

	require.NoError(t, s.Logout(ctx, p))
	_, err = s.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = s.Identify(ctx, res.Token)
	assert.ErrorIs(t, err, realtime.ErrUnauthenticated)
}

func TestLogin_RepeatedFailuresRaiseSecurityAlert(t *testing.T) {
	s, mr, admin := setupAuth(t)
	ctx := context.Background()
	register(t, s, "cy")
	adminEvents(admin)

	for i := 0; i < failedLoginThreshold; i++ {
		_, err := s.Login(ctx, LoginInput{Email: "cy@example.com", Password: "wrong#123"})
		assert.ErrorIs(t, err, ErrIncorrectPassword)
	}
	assert.Equal(t, []string{realtime.EventSecurityAlert}, adminEvents(admin))
	assert.True(t, mr.Exists("auth:failed:cy@example.com"))

	_, err := s.Login(ctx, LoginInput{Email: "cy@example.com", Password: "green#2024"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("auth:failed:cy@example.com"))
}

func TestAuthenticate_DeactivatedUserRejected(t *testing.T) {
	s, _, _ := setupAuth(t)
	ctx := context.Background()
	u := register(t, s, "dee")
	res, err := s.Login(ctx, LoginInput{Email: "dee@example.com", Password: "green#2024"})
	require.NoError(t, err)

	require.NoError(t, s.DB.Model(u).Update("is_active", false).Error)
	_, err = s.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestTokens_RejectExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &Tokens{Secret: []byte("a"), TTL: time.Minute, Now: func() time.Time { return now }}
	signed, _, err := tok.Issue(domain.User{}.ID, "x", "user")
	require.NoError(t, err)

	other := &Tokens{Secret: []byte("b"), Now: tok.Now}
	_, err = other.Parse(signed)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	later := &Tokens{Secret: []byte("a"), Now: func() time.Time { return now.Add(2 * time.Minute) }}
	_, err = later.Parse(signed)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = tok.Parse(signed)
	assert.NoError(t, err)
}

func TestSeedAdmin_CreatesThenPromotes(t *testing.T) {
	s, _, _ := setupAuth(t)
	ctx := context.Background()

	u, created, err := s.SeedAdmin(ctx, RegisterInput{Email: "root@example.com", Username: "root", Password: "admin#2024"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	register(t, s, "eve")
	u, created, err = s.SeedAdmin(ctx, RegisterInput{Email: "eve@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}
