package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ecotrack-backend/internal/application/leaderboard"
	"ecotrack-backend/internal/application/ledger"
	usersvc "ecotrack-backend/internal/application/user"
	authsvc "ecotrack-backend/internal/auth"
	"ecotrack-backend/internal/infrastructure/database"
	"ecotrack-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthHandlers(t *testing.T) (*fiber.App, *redis.Client) {
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
	store := &authsvc.TokenStore{Rdb: rdb}
	svc := &authsvc.Service{
		DB:     db,
		Tokens: &authsvc.Tokens{Secret: []byte("test-secret"), TTL: time.Hour},
		Store:  store,
	}
	h := &Handlers{
		Service: svc,
		Users: &usersvc.Service{
			DB:     db,
			Ledger: &ledger.Service{DB: db},
			Board:  &leaderboard.Service{DB: db, Rdb: rdb},
			Tokens: store,
		},
	}
	app := fiber.New()
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/logout", middleware.RequireAuth(svc), h.Logout)
	app.Get("/me", middleware.RequireAuth(svc), h.Me)
	return app, rdb
}

func post(t *testing.T, app *fiber.App, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	method := "POST"
	if path == "/me" {
		method = "GET"
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errMessage(out map[string]interface{}) string {
	e, _ := out["error"].(map[string]interface{})
	m, _ := e["message"].(string)
	return m
}

var alice = map[string]string{"username": "alice", "email": "Alice@Example.com", "password": "Passw0rd!"}

func TestLogin_EmptyBody(t *testing.T) {
	app, _ := setupAuthHandlers(t)
	code, out := post(t, app, "/login", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, authsvc.ErrEmailPasswordRequired.Error(), errMessage(out))
}

func TestLogin_MissingPassword(t *testing.T) {
	app, _ := setupAuthHandlers(t)
	code, _ := post(t, app, "/login", map[string]string{"email": "a@b.com"}, "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRegister_Validation(t *testing.T) {
	app, _ := setupAuthHandlers(t)

	code, out := post(t, app, "/register", map[string]string{"username": "alice", "email": "nope", "password": "Passw0rd!"}, "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, authsvc.ErrInvalidEmail.Error(), errMessage(out))

	code, out = post(t, app, "/register", map[string]string{"username": "alice", "email": "a@b.com", "password": "short"}, "")
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, authsvc.ErrInvalidPassword.Error(), errMessage(out))

	code, _ = post(t, app, "/register", map[string]string{"username": "a!", "email": "a@b.com", "password": "Passw0rd!"}, "")
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestRegisterLoginMeLogout(t *testing.T) {
	app, _ := setupAuthHandlers(t)

	code, out := post(t, app, "/register", alice, "")
	require.Equal(t, fiber.StatusCreated, code)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", data["email"])
	assert.NotContains(t, data, "password_hash")

	code, _ = post(t, app, "/register", map[string]string{"username": "alice", "email": "other@example.com", "password": "Passw0rd!"}, "")
	assert.Equal(t, fiber.StatusConflict, code)

	code, out = post(t, app, "/login", map[string]string{"email": "nobody@example.com", "password": "Passw0rd!"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, authsvc.ErrInvalidEmail.Error(), errMessage(out))

	code, out = post(t, app, "/login", map[string]string{"email": "alice@example.com", "password": "Wrong-pass1"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, authsvc.ErrIncorrectPassword.Error(), errMessage(out))

	code, out = post(t, app, "/login", map[string]string{"email": "alice@example.com", "password": "Passw0rd!"}, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Login successful", out["message"])
	token := out["data"].(map[string]interface{})["token"].(string)

	code, out = post(t, app, "/me", nil, token)
	require.Equal(t, fiber.StatusOK, code)
	profile := out["data"].(map[string]interface{})
	assert.Equal(t, "alice", profile["user"].(map[string]interface{})["username"])
	assert.EqualValues(t, 1, profile["position"])

	code, _ = post(t, app, "/logout", nil, token)
	require.Equal(t, fiber.StatusOK, code)
	code, out = post(t, app, "/me", nil, token)
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, authsvc.ErrTokenRevoked.Error(), errMessage(out))
}

func TestMe_NoToken(t *testing.T) {
	app, _ := setupAuthHandlers(t)
	code, _ := post(t, app, "/me", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, code)
}
