package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/mediahub/internal/apperr"
	"github.com/geocoder89/mediahub/internal/auth"
	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/geocoder89/mediahub/internal/query"
	"github.com/geocoder89/mediahub/internal/utils"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, spec query.Resolved) ([]user.User, error)
	UpdateProfile(ctx context.Context, id string, patch user.ProfilePatch, now time.Time) (user.User, error)
	Deactivate(ctx context.Context, id string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	repo   UsersStore
	hasher user.PasswordHasher
	now    func() time.Time
}

func NewUsersHandler(repo UsersStore, hasher user.PasswordHasher) *UsersHandler {
	return &UsersHandler{repo: repo, hasher: hasher, now: time.Now}
}

type CreateUserRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Image           string `json:"image"`
	Role            string `json:"role" binding:"omitempty,oneof=user creator admin guide"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmpassword" binding:"required,eqfield=Password"`
}

// UpdateMeRequest only carries the fields a user may change on themselves.
// Password fields are decoded so they can be refused explicitly.
type UpdateMeRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Password        *string `json:"password"`
	ConfirmPassword *string `json:"confirmpassword"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Email *string `json:"email" binding:"omitempty,email"`
	Image *string `json:"image"`
	Role  *string `json:"role" binding:"omitempty,oneof=user creator admin guide"`
}

func (h *UsersHandler) GetMe(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{"data": gin.H{"user": me}})
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req UpdateMeRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if req.Password != nil || req.ConfirmPassword != nil {
		RespondBadRequest(ctx, "This route is not for password update. Please use /update-password", nil)
		return
	}

	h.applyPatch(ctx, me.ID, user.ProfilePatch{Name: req.Name, Email: req.Email})
}

// DeleteMe deactivates the caller. The record stays but no longer resolves
// for logins or token checks.
func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.repo.Deactivate(cctx, me.ID); err != nil {
		RespondAppError(ctx, auth.UserStoreError("delete me", err))
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	spec, err := query.New(ctx.Request.URL.Query()).Filter().Sort().LimitFields().Paginate().Spec()
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	resolved, err := user.QuerySchema.Resolve(spec)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.repo.List(cctx, resolved)
	if err != nil {
		RespondAppError(ctx, auth.UserStoreError("list users", err))
		return
	}

	projected, err := query.ProjectAll(users, resolved.Fields)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"results": len(projected),
		"message": "Users retrieved successfully",
		"data":    gin.H{"users": projected},
	})
}

func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := user.New(user.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Image:    req.Image,
		Role:     user.Role(req.Role),
		Password: req.Password,
	}, h.hasher, h.now())
	if err != nil {
		RespondAppError(ctx, newUserError(err))
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, u)
	if err != nil {
		RespondAppError(ctx, auth.UserStoreError("create user", err))
		return
	}

	RespondSuccess(ctx, http.StatusCreated, gin.H{"data": gin.H{"user": created}})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	id, ok := userID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, id)
	if err != nil {
		RespondAppError(ctx, auth.UserStoreError("get user", err))
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "User retrieved successfully",
		"data":    gin.H{"user": u},
	})
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	id, ok := userID(ctx)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	patch := user.ProfilePatch{Name: req.Name, Email: req.Email, Image: req.Image}
	if req.Role != nil {
		role := user.Role(*req.Role)
		patch.Role = &role
	}

	h.applyPatch(ctx, id, patch)
}

// DeleteUser deactivates a user, or removes the record for good with
// ?force=true.
func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := userID(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if ctx.Query("force") == "true" {
		if err := h.repo.Delete(cctx, id); err != nil {
			RespondAppError(ctx, auth.UserStoreError("delete user", err))
			return
		}
		RespondSuccess(ctx, http.StatusOK, gin.H{"message": "User permanently deleted"})
		return
	}

	u, err := h.repo.Deactivate(cctx, id)
	if err != nil {
		RespondAppError(ctx, auth.UserStoreError("deactivate user", err))
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "User deactivated",
		"data":    gin.H{"user": u},
	})
}

func (h *UsersHandler) applyPatch(ctx *gin.Context, id string, patch user.ProfilePatch) {
	if patch.Empty() {
		RespondBadRequest(ctx, "No updatable fields provided", nil)
		return
	}

	patch, err := patch.Normalize()
	if err != nil {
		RespondAppError(ctx, newUserError(err))
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	updated, err := h.repo.UpdateProfile(cctx, id, patch, h.now())
	if err != nil {
		RespondAppError(ctx, auth.UserStoreError("update user", err))
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    gin.H{"user": updated},
	})
}

func userID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondError(ctx, http.StatusBadRequest, "invalid_id", "Invalid id: "+id, nil)
		return "", false
	}
	return id, true
}

func newUserError(err error) error {
	switch {
	case errors.Is(err, user.ErrInvalidRole):
		return apperr.Validation("invalid_role", "Role must be one of user, creator, admin or guide")
	case errors.Is(err, user.ErrInvalidInput):
		return apperr.Validation("invalid_user", "Please provide name, email and password")
	default:
		return err
	}
}
