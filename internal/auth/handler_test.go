package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

// sessionCommitRecorder commits the session before the first WriteHeader,
// mirroring the production sessionCommitWriter in internal/app/middleware.go,
// so Set-Cookie headers land in the recorder's Result() snapshot.
type sessionCommitRecorder struct {
	*httptest.ResponseRecorder
	sm            *shared.SessionManager
	req           *http.Request
	sess          *shared.Session
	headerWritten bool
}

func (w *sessionCommitRecorder) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.sm.Commit(w.req.Context(), w.ResponseRecorder, w.req, w.sess)
	}
	w.ResponseRecorder.WriteHeader(statusCode)
}

func (w *sessionCommitRecorder) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseRecorder.Write(data)
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.Login(&sessionCommitRecorder{ResponseRecorder: res, sm: sm, req: req, sess: sess}, req)
	require.NoError(t, sm.Commit(req.Context(), res, req, sess))
	return res
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "admin@meridian.local",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         "admin",
		IsActive:     true,
	}}
	handler, sm := newAuthHandler(t, repo)

	res := doLogin(t, handler, sm, `{"email":"admin@meridian.local","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.Equal(t, "admin", payload["role"])
	require.NotEmpty(t, payload["csrf_token"])
	require.NotEmpty(t, res.Result().Cookies())
}

func TestLoginInvalidCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "admin@meridian.local",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	handler, sm := newAuthHandler(t, repo)

	res := doLogin(t, handler, sm, `{"email":"admin@meridian.local","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginInactiveUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "admin@meridian.local",
		PasswordHash: string(hash),
		IsActive:     false,
	}}
	handler, sm := newAuthHandler(t, repo)

	res := doLogin(t, handler, sm, `{"email":"admin@meridian.local","password":"s3cret"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})
	res := doLogin(t, handler, sm, `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
