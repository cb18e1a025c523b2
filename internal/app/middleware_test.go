package app_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stackAuthRepo struct {
	user *auth.User
}

func (s *stackAuthRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stackAuthRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stackAuthRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

// newStackRouter builds a router behind the full middleware chain, the way
// NewRouter does, with a real auth handler and a protected probe route.
func newStackRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stackAuthRepo{user: &auth.User{
		ID:           7,
		Email:        "admin@meridian.local",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         "admin",
		IsActive:     true,
	}}
	authHandler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	for _, mw := range app.MiddlewareStack(app.MiddlewareConfig{
		Logger:         logger,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
	}) {
		r.Use(mw)
	}
	r.Route("/auth", authHandler.MountRoutes)
	r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	return r
}

func loginThroughStack(t *testing.T, router http.Handler) ([]*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@meridian.local","password":"s3cret"}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	token, _ := payload["csrf_token"].(string)
	require.NotEmpty(t, token)
	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies, token
}

func TestFreshClientCanLogin(t *testing.T) {
	router := newStackRouter(t)

	// A brand-new client holds neither session cookie nor CSRF token; the
	// login POST must still reach the handler and hand both back.
	loginThroughStack(t, router)
}

func TestCSRFGuardsProtectedMutations(t *testing.T) {
	router := newStackRouter(t)
	cookies, token := loginThroughStack(t, router)

	blocked := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	for _, c := range cookies {
		blocked.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, blocked)
	require.Equal(t, http.StatusForbidden, res.Code)

	allowed := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	for _, c := range cookies {
		allowed.AddCookie(c)
	}
	allowed.Header.Set("X-CSRF-Token", token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, allowed)
	require.Equal(t, http.StatusCreated, res.Code)
}

func TestMeReturnsCSRFToken(t *testing.T) {
	router := newStackRouter(t)
	cookies, token := loginThroughStack(t, router)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, token, payload["csrf_token"])
	require.Equal(t, "7", payload["user_id"])
}
