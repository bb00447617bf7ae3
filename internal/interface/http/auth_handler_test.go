package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storelabs/storefront/internal/application"
	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/internal/domain/repository"
	"github.com/storelabs/storefront/internal/interface/middleware"
	"github.com/storelabs/storefront/pkg/apperr"
	"github.com/storelabs/storefront/pkg/helpers"
	"github.com/storelabs/storefront/pkg/validation"
)

// memUserRepo is a minimal in-memory UserRepository for handler tests.
type memUserRepo struct {
	users map[string]*entity.User
}

func newMemUserRepo() *memUserRepo { return &memUserRepo{users: map[string]*entity.User{}} }

func (m *memUserRepo) Create(_ context.Context, u *entity.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.DuplicateKey("email")
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshToken = ""
	cp.PasswordResetToken = ""
	cp.PasswordResetExpires = nil
	return &cp, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for id, u := range m.users {
		if u.Email == email {
			return m.GetByID(context.Background(), id)
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByIdentifierWithSecrets(_ context.Context, identifier string) (*entity.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(identifier) || u.Name == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*entity.User, error) {
	for _, u := range m.users {
		if u.PasswordResetToken != "" && u.PasswordResetToken == tokenHash {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) SetRefreshToken(_ context.Context, id, token string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (m *memUserRepo) RotateRefreshToken(_ context.Context, id, old, new string) error {
	u, ok := m.users[id]
	if !ok || u.RefreshToken != old {
		return repository.ErrNotFound
	}
	u.RefreshToken = new
	return nil
}

func (m *memUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.RefreshToken = ""
	}
	return nil
}

func (m *memUserRepo) SetPasswordReset(_ context.Context, id, tokenHash string, expires time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken = tokenHash
	u.PasswordResetExpires = &expires
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	u.RefreshToken = ""
	return nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *memUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	repo := newMemUserRepo()
	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 10*time.Hour)
	svc := application.NewAuthService(repo, jwt, nil, "", nil, nil, application.AuthConfig{
		BcryptCost:    10,
		ResetTokenTTL: 10 * time.Minute,
	})
	h := NewAuthHandler(svc, nil, "", false)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/password/forgot", h.ForgotPassword)
	api.POST("/auth/password/reset", h.ResetPassword)

	auth := api.Group("/")
	auth.Use(middleware.Auth(jwt))
	auth.POST("/auth/logout", h.Logout)
	auth.GET("/auth/me", h.Me)
	return r, repo
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad envelope: %v (%s)", err, w.Body.String())
	}
	return env
}

func postMultipart(t *testing.T, r *gin.Engine, path string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAnn(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := postMultipart(t, r, "/api/v1/auth/register", map[string]string{
		"name":     "Ann",
		"email":    "ann@example.com",
		"password": "hunter22",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register code = %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterEndpoint(t *testing.T) {
	r, repo := newAuthTestRouter(t)

	w := postMultipart(t, r, "/api/v1/auth/register", map[string]string{
		"name":     "Ann",
		"email":    "Ann@Example.COM",
		"password": "hunter22",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if !env.Success || env.StatusCode != 201 {
		t.Fatalf("envelope = %+v", env)
	}

	var user map[string]any
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if user["email"] != "ann@example.com" {
		t.Fatalf("email = %v, want normalized ann@example.com", user["email"])
	}
	for _, secret := range []string{"password", "password_hash", "refresh_token"} {
		if _, ok := user[secret]; ok {
			t.Fatalf("response leaks %q", secret)
		}
	}
	if len(repo.users) != 1 {
		t.Fatalf("stored %d users, want 1", len(repo.users))
	}
}

func TestRegisterValidationEnvelope(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := postMultipart(t, r, "/api/v1/auth/register", map[string]string{
		"name":     "A",
		"email":    "not-an-email",
		"password": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.StatusCode != 400 {
		t.Fatalf("envelope = %+v", env)
	}
	if len(env.Errors) == 0 {
		t.Fatal("expected validation details in the errors array")
	}
}

func TestLoginSetsCookiesAndReturnsTokens(t *testing.T) {
	r, _ := newAuthTestRouter(t)
	registerAnn(t, r)

	w := postJSON(r, "/api/v1/auth/login", `{"email":"ann@example.com","password":"hunter22"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}

	res := w.Result()
	defer func() { _ = res.Body.Close() }()

	var access, refresh *http.Cookie
	for _, ck := range res.Cookies() {
		switch ck.Name {
		case helpers.AccessCookie:
			access = ck
		case helpers.RefreshCookie:
			refresh = ck
		}
	}
	if access == nil || refresh == nil {
		t.Fatal("expected both token cookies")
	}
	for _, ck := range []*http.Cookie{access, refresh} {
		if !ck.HttpOnly {
			t.Fatalf("cookie %s must be httpOnly", ck.Name)
		}
		if ck.Path != "/" {
			t.Fatalf("cookie %s path = %q, want /", ck.Name, ck.Path)
		}
		if ck.MaxAge <= 0 {
			t.Fatalf("cookie %s maxAge = %d, want > 0", ck.Name, ck.MaxAge)
		}
	}
	if refresh.MaxAge <= access.MaxAge {
		t.Fatal("refresh cookie must outlive the access cookie")
	}

	env := decodeEnvelope(t, w)
	var data struct {
		AccessToken  string         `json:"accessToken"`
		RefreshToken string         `json:"refreshToken"`
		User         map[string]any `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if data.AccessToken != access.Value || data.RefreshToken != refresh.Value {
		t.Fatal("body tokens must match the cookies")
	}
	if data.User["email"] != "ann@example.com" {
		t.Fatalf("user = %v", data.User)
	}
}

func TestLoginGenericFailure(t *testing.T) {
	r, _ := newAuthTestRouter(t)
	registerAnn(t, r)

	for _, body := range []string{
		`{"email":"ann@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"hunter22"}`,
	} {
		w := postJSON(r, "/api/v1/auth/login", body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want 401", w.Code)
		}
		env := decodeEnvelope(t, w)
		if env.Message != "invalid credentials" {
			t.Fatalf("message = %q, want generic invalid credentials", env.Message)
		}
	}
}

func TestRefreshFromCookie(t *testing.T) {
	r, _ := newAuthTestRouter(t)
	registerAnn(t, r)

	login := postJSON(r, "/api/v1/auth/login", `{"email":"ann@example.com","password":"hunter22"}`)
	res := login.Result()
	defer func() { _ = res.Body.Close() }()

	var refresh *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == helpers.RefreshCookie {
			refresh = ck
		}
	}
	if refresh == nil {
		t.Fatal("login did not set a refresh cookie")
	}

	w := postJSON(r, "/api/v1/auth/refresh", `{}`, refresh)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}

	// The superseded token no longer refreshes.
	w = postJSON(r, "/api/v1/auth/refresh", `{}`, refresh)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh: code = %d, want 401", w.Code)
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)
	w := postJSON(r, "/api/v1/auth/refresh", `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}

func TestMeAndLogout(t *testing.T) {
	r, repo := newAuthTestRouter(t)
	registerAnn(t, r)

	login := postJSON(r, "/api/v1/auth/login", `{"name":"Ann","password":"hunter22"}`)
	res := login.Result()
	defer func() { _ = res.Body.Close() }()

	var access *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == helpers.AccessCookie {
			access = ck
		}
	}
	if access == nil {
		t.Fatal("login did not set an access cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me: code = %d: %s", w.Code, w.Body.String())
	}

	w2 := postJSON(r, "/api/v1/auth/logout", `{}`, access)
	if w2.Code != http.StatusOK {
		t.Fatalf("logout: code = %d: %s", w2.Code, w2.Body.String())
	}
	for _, u := range repo.users {
		if u.RefreshToken != "" {
			t.Fatal("logout must clear the stored refresh token")
		}
	}

	res2 := w2.Result()
	defer func() { _ = res2.Body.Close() }()
	for _, ck := range res2.Cookies() {
		if ck.MaxAge >= 0 && ck.Value != "" {
			t.Fatalf("logout must expire cookie %s", ck.Name)
		}
	}
}

func TestPasswordResetEndpoints(t *testing.T) {
	r, repo := newAuthTestRouter(t)
	registerAnn(t, r)

	// Unknown email still answers 200.
	w := postJSON(r, "/api/v1/auth/password/forgot", `{"email":"nobody@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("forgot unknown: code = %d", w.Code)
	}

	w = postJSON(r, "/api/v1/auth/password/forgot", `{"email":"ann@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("forgot: code = %d: %s", w.Code, w.Body.String())
	}

	// The handler path cannot see the plaintext secret, so drive the reset
	// with a directly issued token against the same store.
	var userID string
	for id := range repo.users {
		userID = id
	}
	if repo.users[userID].PasswordResetToken == "" {
		t.Fatal("forgot must persist a reset digest")
	}

	w = postJSON(r, "/api/v1/auth/password/reset", `{"token":"deadbeef","newPassword":"brand-new-pass"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bogus reset: code = %d, want 401", w.Code)
	}
}
