package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/mediahub/internal/auth"
	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/db"
	apphttp "github.com/geocoder89/mediahub/internal/http"
	"github.com/geocoder89/mediahub/internal/notifications"
	"github.com/geocoder89/mediahub/internal/repo/postgres"
	"github.com/geocoder89/mediahub/internal/security"
)

// These tests run the full router against a real Postgres. Point
// TEST_DB_DSN at a disposable database to enable them.

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	users := postgres.NewUsersRepo(pool, nil)
	mediaRepo := postgres.NewMediaRepo(pool, nil)

	hasher, err := security.NewHasher(security.AlgorithmBcrypt, 4)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := auth.NewManager("test-secret-key-that-is-long-enough", time.Hour)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	gate := auth.NewService(users, hasher, tokens, notifications.NewLogNotifier(logger), logger)

	router := apphttp.NewRouter(apphttp.Deps{
		Log: logger,
		Config: config.Config{
			Env:               "test",
			JWTCookieTTL:      time.Hour,
			JWTCookieInsecure: true,
			MaxBodyBytes:      1 << 20,
		},
		Users:  users,
		Media:  mediaRepo,
		Gate:   gate,
		Hasher: hasher,
		Ping:   users.Ping,
	})

	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE media, users`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

// helpers

func doRequest(router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type sessionResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func findCookie(response *http.Response, name string) *http.Cookie {
	for _, c := range response.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIntegration_Signup_Login_Logout(t *testing.T) {
	router, _ := setupTestRouter(t)

	signupBody := `{"name":"Sam Doe","email":"sam@example.com","password":"password123","confirmpassword":"password123"}`

	w, response := doRequest(router, http.MethodPost, "/api/v1/user/signup", "", signupBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}

	var signup sessionResponse
	mustReadJSON(t, w, &signup)
	if strings.TrimSpace(signup.Token) == "" {
		t.Fatalf("signup expected token, got empty")
	}
	if c := findCookie(response, "jwt"); c == nil || c.Value != signup.Token || !c.HttpOnly {
		t.Fatalf("signup expected an httpOnly jwt cookie carrying the token, got %+v", c)
	}

	// duplicate email
	w, _ = doRequest(router, http.MethodPost, "/api/v1/user/signup", "", signupBody)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup got status %d, want %d", w.Code, http.StatusConflict)
	}

	w, _ = doRequest(router, http.MethodPost, "/api/v1/user/login", "", `{"email":"sam@example.com","password":"password123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	w, _ = doRequest(router, http.MethodGet, "/api/v1/user/me", signup.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("me leaked password fields: %s", w.Body.String())
	}

	w, response = doRequest(router, http.MethodPost, "/api/v1/user/logout", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("logout got status %d, want %d", w.Code, http.StatusOK)
	}
	if c := findCookie(response, "jwt"); c == nil || c.Value == signup.Token {
		t.Fatalf("expected logout to overwrite the jwt cookie, got %+v", c)
	}
}

func TestIntegration_Login_InvalidCredentials(t *testing.T) {
	router, _ := setupTestRouter(t)

	// no user created
	w, _ := doRequest(router, http.MethodPost, "/api/v1/user/login", "", `{"email":"nope@example.com","password":"wrong-password"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login(invalid creds) got status %d, want %d, body=%s", w.Code, http.StatusUnauthorized, w.Body.String())
	}
}

func TestIntegration_MediaVersionConflict(t *testing.T) {
	router, _ := setupTestRouter(t)

	w, _ := doRequest(router, http.MethodPost, "/api/v1/user/signup", "",
		`{"name":"Ada Media","email":"ada@example.com","password":"password123","confirmpassword":"password123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, body=%s", w.Code, w.Body.String())
	}
	var session sessionResponse
	mustReadJSON(t, w, &session)

	w, _ = doRequest(router, http.MethodPost, "/api/v1/media", session.Token,
		`{"name":"Harbor Lights","price":25,"mediaType":"png","media":{"type":"image"},"category":"city","creator":"ada","tags":["night"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create got status %d, body=%s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID      string `json:"id"`
			Version int    `json:"version"`
		} `json:"data"`
	}
	mustReadJSON(t, w, &created)

	w, _ = doRequest(router, http.MethodGet, "/api/v1/media?tags=night&price[lte]=30", session.Token, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Harbor Lights") {
		t.Fatalf("filtered list got %d body=%s", w.Code, w.Body.String())
	}

	path := "/api/v1/media/" + created.Data.ID
	w, _ = doRequest(router, http.MethodPatch, path, session.Token, `{"price":30,"version":`+itoa(created.Data.Version)+`}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update got status %d, body=%s", w.Code, w.Body.String())
	}

	// same version again is stale now
	w, _ = doRequest(router, http.MethodPatch, path, session.Token, `{"price":35,"version":`+itoa(created.Data.Version)+`}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}

	var e apiErrorResponse
	mustReadJSON(t, w, &e)
	if e.Error.Code != "version_conflict" {
		t.Fatalf("expected version_conflict, got %s", e.Error.Code)
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
