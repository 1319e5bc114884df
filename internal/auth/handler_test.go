package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtauto/dtauto/internal/shared"
	"github.com/dtauto/dtauto/internal/users"
)

type memoryUserSource struct {
	byEmail map[string]*users.User
}

func (m *memoryUserSource) FindByEmail(_ context.Context, email string) (*users.User, error) {
	return m.byEmail[email], nil
}

func testFixture(t *testing.T) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	require.NoError(t, err)
	source := &memoryUserSource{byEmail: map[string]*users.User{
		"dominick@dtauto.example": {
			ID:           1,
			Email:        "dominick@dtauto.example",
			Name:         "Dominick",
			Partner:      "dominick",
			PasswordHash: string(hash),
			IsActive:     true,
		},
		"former@dtauto.example": {
			ID:           2,
			Email:        "former@dtauto.example",
			PasswordHash: string(hash),
			IsActive:     false,
		},
	}}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	limiter := shared.NewAttemptLimiter(client, "login", 3, 15*time.Minute)
	sessions := shared.NewSessionManager(client, "dtauto_session", time.Hour, false)
	handler := NewHandler(logger, NewService(source, limiter, logger), sessions)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r, mr
}

func postLogin(t *testing.T, router http.Handler, email, password, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessSetsSessionCookie(t *testing.T) {
	router, mr := testFixture(t)

	rec := postLogin(t, router, "dominick@dtauto.example", "correct horse battery", "10.0.0.1:5000")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "dominick", body["partner"])

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "dtauto_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
	// Session payload landed in Redis.
	require.True(t, mr.Exists("session:"+cookies[0].Value))
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := testFixture(t)

	rec := postLogin(t, router, "dominick@dtauto.example", "totally wrong pw", "10.0.0.1:5000")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	router, _ := testFixture(t)

	rec := postLogin(t, router, "former@dtauto.example", "correct horse battery", "10.0.0.1:5000")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAttemptLimit(t *testing.T) {
	router, mr := testFixture(t)

	for i := 0; i < 3; i++ {
		rec := postLogin(t, router, "dominick@dtauto.example", "totally wrong pw", "10.0.0.2:5000")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := postLogin(t, router, "dominick@dtauto.example", "correct horse battery", "10.0.0.2:5000")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another IP is unaffected.
	rec = postLogin(t, router, "dominick@dtauto.example", "correct horse battery", "10.0.0.3:5000")
	require.Equal(t, http.StatusOK, rec.Code)

	// The window expires.
	mr.FastForward(16 * time.Minute)
	rec = postLogin(t, router, "dominick@dtauto.example", "correct horse battery", "10.0.0.2:5000")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginSuccessResetsAttempts(t *testing.T) {
	router, _ := testFixture(t)

	for i := 0; i < 2; i++ {
		rec := postLogin(t, router, "dominick@dtauto.example", "totally wrong pw", "10.0.0.4:5000")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := postLogin(t, router, "dominick@dtauto.example", "correct horse battery", "10.0.0.4:5000")
	require.Equal(t, http.StatusOK, rec.Code)

	// Budget is fresh again after the successful login.
	for i := 0; i < 2; i++ {
		rec = postLogin(t, router, "dominick@dtauto.example", "totally wrong pw", "10.0.0.4:5000")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	router, _ := testFixture(t)

	rec := postLogin(t, router, "not-an-email", "short", "10.0.0.5:5000")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
