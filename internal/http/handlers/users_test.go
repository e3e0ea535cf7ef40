package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/mediahub/internal/actorctx"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/http/handlers"
	"github.com/geocoder89/mediahub/internal/query"
	"github.com/gin-gonic/gin"
)

type fakeUsersRepo struct {
	createFn     func(ctx context.Context, u user.User) (user.User, error)
	getFn        func(ctx context.Context, id string) (user.User, error)
	listFn       func(ctx context.Context, spec query.Resolved) ([]user.User, error)
	updateFn     func(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error)
	deactivateFn func(ctx context.Context, id string) (user.User, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context, spec query.Resolved) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx, spec)
	}
	return []user.User{}, nil
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, patch, now)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) Deactivate(ctx context.Context, id string) (user.User, error) {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return user.ErrNotFound
}

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

// withPrincipal stands in for the protect middleware.
func withPrincipal(u user.User) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Request = ctx.Request.WithContext(actorctx.WithUser(ctx.Request.Context(), u))
		ctx.Next()
	}
}

func sampleUser() user.User {
	return user.User{
		ID:           newUUID(),
		Name:         "alice01",
		Email:        "a@x.com",
		Role:         user.RoleUser,
		PasswordHash: "$2a$10$secret",
		Active:       true,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMeHandler(t *testing.T) {
	me := sampleUser()
	h := handlers.NewUsersHandler(&fakeUsersRepo{}, plainHasher{})

	anon := setupRouter(http.MethodGet, "/me", h.GetMe)
	if w := doJSON(anon, http.MethodGet, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}

	r := gin.New()
	r.GET("/me", withPrincipal(me), h.GetMe)

	w := doJSON(r, http.MethodGet, "/me", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret") || strings.Contains(w.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", w.Body.String())
	}
}

func TestUpdateMeHandler(t *testing.T) {
	me := sampleUser()

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantMessage    string
	}{
		{
			name:           "rejects_password",
			body:           `{"password": "newpass12", "confirmpassword": "newpass12"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "This route is not for password update. Please use /update-password",
		},
		{
			name:           "empty_patch",
			body:           `{}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "success",
			body:           `{"name": "  Alice02 ", "role": "admin"}`,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var gotPatch user.ProfilePatch
			repo := &fakeUsersRepo{
				updateFn: func(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error) {
					if id != me.ID {
						t.Fatalf("update applied to %s, want %s", id, me.ID)
					}
					gotPatch = patch
					return patch.Apply(me, now), nil
				},
			}

			h := handlers.NewUsersHandler(repo, plainHasher{})
			r := gin.New()
			r.PATCH("/update-me", withPrincipal(me), h.UpdateMe)

			w := doJSON(r, http.MethodPatch, "/update-me", tt.body)
			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantMessage != "" && !strings.Contains(w.Body.String(), tt.wantMessage) {
				t.Fatalf("expected message %q in %s", tt.wantMessage, w.Body.String())
			}

			if tt.name == "success" {
				if gotPatch.Name == nil || *gotPatch.Name != "alice02" {
					t.Fatalf("expected normalized name, got %+v", gotPatch.Name)
				}
				if gotPatch.Role != nil {
					t.Fatalf("role must not be settable through update-me")
				}
			}
		})
	}
}

func TestDeleteMeHandler(t *testing.T) {
	me := sampleUser()
	deactivated := ""
	repo := &fakeUsersRepo{
		deactivateFn: func(ctx context.Context, id string) (user.User, error) {
			deactivated = id
			return me, nil
		},
	}

	h := handlers.NewUsersHandler(repo, plainHasher{})
	r := gin.New()
	r.DELETE("/delete-me", withPrincipal(me), h.DeleteMe)

	w := doJSON(r, http.MethodDelete, "/delete-me", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", w.Code)
	}
	if deactivated != me.ID {
		t.Fatalf("expected %s to be deactivated, got %q", me.ID, deactivated)
	}
}

func TestListUsersHandler(t *testing.T) {
	var got query.Resolved
	repo := &fakeUsersRepo{
		listFn: func(ctx context.Context, spec query.Resolved) ([]user.User, error) {
			got = spec
			return []user.User{sampleUser()}, nil
		},
	}

	h := handlers.NewUsersHandler(repo, plainHasher{})
	r := setupRouter(http.MethodGet, "/users", h.ListUsers)

	w := doJSON(r, http.MethodGet, "/users?role=user&fields=name,email&page=abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if got.Page != 1 || got.Limit != query.DefaultLimit {
		t.Fatalf("expected default window, got page=%d limit=%d", got.Page, got.Limit)
	}

	var resp struct {
		Results int `json:"results"`
		Data    struct {
			Users []map[string]any `json:"users"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Results != 1 || len(resp.Data.Users) != 1 {
		t.Fatalf("unexpected results: %+v", resp)
	}
	if _, ok := resp.Data.Users[0]["role"]; ok {
		t.Fatalf("role must be projected out: %v", resp.Data.Users[0])
	}

	if w := doJSON(r, http.MethodGet, "/users?password=x", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("filtering on password must be rejected, got %d", w.Code)
	}
}

func TestCreateUserHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"name":"bob01","email":"b@x.com","role":"guide","password":"secret12","confirmpassword":"secret12"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "mismatched_confirmation",
			body:           `{"name":"bob01","email":"b@x.com","password":"secret12","confirmpassword":"secret13"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "duplicate_email",
			body: `{"name":"bob01","email":"b@x.com","password":"secret12","confirmpassword":"secret12"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, &user.DuplicateError{Field: "email"}
				}
			},
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewUsersHandler(repo, plainHasher{})
			r := setupRouter(http.MethodPost, "/users", h.CreateUser)

			w := doJSON(r, http.MethodPost, "/users", tt.body)
			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestGetUserHandler(t *testing.T) {
	h := handlers.NewUsersHandler(&fakeUsersRepo{}, plainHasher{})
	r := setupRouter(http.MethodGet, "/users/:id", h.GetUser)

	if w := doJSON(r, http.MethodGet, "/users/123", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/users/"+newUUID(), ""); w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

func TestDeleteUserHandler(t *testing.T) {
	id := newUUID()
	var hard, soft bool
	repo := &fakeUsersRepo{
		deleteFn: func(ctx context.Context, got string) error {
			hard = true
			return nil
		},
		deactivateFn: func(ctx context.Context, got string) (user.User, error) {
			soft = true
			u := sampleUser()
			u.ID = got
			return u, nil
		},
	}

	h := handlers.NewUsersHandler(repo, plainHasher{})
	r := setupRouter(http.MethodDelete, "/users/:id", h.DeleteUser)

	w := doJSON(r, http.MethodDelete, "/users/"+id, "")
	if w.Code != http.StatusOK || !soft || hard {
		t.Fatalf("expected soft delete, got status=%d soft=%v hard=%v", w.Code, soft, hard)
	}

	w = doJSON(r, http.MethodDelete, "/users/"+id+"?force=true", "")
	if w.Code != http.StatusOK || !hard {
		t.Fatalf("expected hard delete, got status=%d hard=%v", w.Code, hard)
	}
	if !strings.Contains(w.Body.String(), "User permanently deleted") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
