package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"merchantpay/internal/database"
	"merchantpay/internal/domain"
	"merchantpay/internal/pkg/jwt"
	"merchantpay/internal/repository"
	"merchantpay/internal/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testApp struct {
	engine  *gin.Engine
	service *Service
	clock   *testClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() { _ = database.Close(db) })

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	users := repository.NewUserRepository(db)
	require.NoError(t, users.Create(ctx, &domain.User{
		Email:        "john@x.com",
		PasswordHash: string(hash),
		Name:         "John",
		Role:         domain.RoleCashier,
		IsActive:     true,
	}))

	clock := &testClock{now: time.Now().UTC()}
	issuer, err := jwt.New(testSecret, 15*time.Minute, jwt.WithClock(clock.Now))
	require.NoError(t, err)

	svc := NewService(users, repository.NewRefreshTokenRepository(db), issuer, 7*24*time.Hour, testPepper, WithClock(clock.Now))
	h := NewHandler(svc, CookieConfig{Path: "/api/v1/auth"}, nil)
	engine, err := router.New(router.Options{Verifier: issuer}, h)
	require.NoError(t, err)

	return &testApp{
		engine:  engine,
		service: svc,
		clock:   clock,
	}
}

func (a *testApp) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T) LoginResponse {
	t.Helper()
	w := a.post(t, "/api/v1/auth/login", LoginRequest{Email: "john@x.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t)

	first := app.login(t)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)
	assert.Equal(t, int64(900), first.ExpiresIn)
	assert.Equal(t, "john@x.com", first.User.Email)
	assert.Equal(t, "cashier", first.User.Role)

	assert.Equal(t, http.StatusOK, app.get("/api/v1/auth/me", first.AccessToken).Code)

	app.clock.Advance(16 * time.Minute)
	w := app.get("/api/v1/auth/me", first.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, w))

	w = app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)

	assert.Equal(t, http.StatusOK, app.get("/api/v1/auth/me", second.AccessToken).Code)

	// replaying the rotated token is rejected and burns the family
	w = app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, w))

	w = app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: second.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t)

	wrongPw := app.post(t, "/api/v1/auth/login", LoginRequest{Email: "john@x.com", Password: "nope"})
	noUser := app.post(t, "/api/v1/auth/login", LoginRequest{Email: "ghost@x.com", Password: "pw"})

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, noUser.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, wrongPw))
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, noUser))

	w := app.post(t, "/api/v1/auth/login", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_SetsCookieGroup(t *testing.T) {
	app := newTestApp(t)
	w := app.post(t, "/api/v1/auth/login", LoginRequest{Email: "john@x.com", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, "accessToken")
	require.Contains(t, cookies, "refreshToken")
	require.Contains(t, cookies, "tokenExpiry")

	assert.True(t, cookies["accessToken"].HttpOnly)
	assert.True(t, cookies["refreshToken"].HttpOnly)
	assert.False(t, cookies["tokenExpiry"].HttpOnly)
	assert.Equal(t, "/api/v1/auth", cookies["refreshToken"].Path)
	assert.Equal(t, 7*24*3600, cookies["refreshToken"].MaxAge)
	assert.Equal(t, 900, cookies["accessToken"].MaxAge)
}

func TestRefresh_FallsBackToCookie(t *testing.T) {
	app := newTestApp(t)
	first := app.login(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: first.RefreshToken})
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRefresh_FailureClearsCookies(t *testing.T) {
	app := newTestApp(t)
	w := app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cleared := 0
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 3, cleared)
}

func TestRefresh_ConcurrentExactlyOneSucceeds(t *testing.T) {
	app := newTestApp(t)
	first := app.login(t)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := app.service.Refresh(context.Background(), first.RefreshToken, ClientMeta{}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	app := newTestApp(t)
	first := app.login(t)

	for i := 0; i < 2; i++ {
		w := app.post(t, "/api/v1/auth/logout", RefreshRequest{RefreshToken: first.RefreshToken})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}

	w := app.post(t, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginAgain_RevokesPreviousRefreshToken(t *testing.T) {
	app := newTestApp(t)
	first := app.login(t)
	app.login(t)

	w := app.post(t, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedAuthRoutesRequireIdentity(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusUnauthorized, app.get("/api/v1/auth/me", "").Code)

	w := app.post(t, "/api/v1/auth/logout-all", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "UNAUTHENTICATED"))
}

func TestMe_ReportsActiveSessions(t *testing.T) {
	app := newTestApp(t)
	first := app.login(t)

	w := app.get("/api/v1/auth/me", first.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Data MeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "john@x.com", body.Data.Email)
	assert.Equal(t, int64(1), body.Data.ActiveSessions)

	require.Equal(t, http.StatusOK, app.post(t, "/api/v1/auth/logout", RefreshRequest{RefreshToken: first.RefreshToken}).Code)
	w = app.get("/api/v1/auth/me", first.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Zero(t, body.Data.ActiveSessions)
}
