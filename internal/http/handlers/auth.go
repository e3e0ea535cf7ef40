package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/mediahub/internal/actorctx"
	"github.com/geocoder89/mediahub/internal/auth"
	"github.com/geocoder89/mediahub/internal/config"
	"github.com/geocoder89/mediahub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// AuthGate is the slice of the auth service the handlers drive.
type AuthGate interface {
	Signup(ctx context.Context, in auth.SignupInput) (auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.Session, error)
	ForgotPassword(ctx context.Context, email, resetBaseURL string) error
	ResetPassword(ctx context.Context, token, password, confirm string) (auth.Session, error)
	UpdatePassword(ctx context.Context, userID, current, password, confirm string) (auth.Session, error)
}

const (
	SessionCookieName = "jwt"
	loggedOutValue    = "loggedout"
	resetPath         = "/api/v1/user/reset-password"
)

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	gate          AuthGate
	cookie        CookieConfig
	publicBaseURL string
}

func NewAuthHandler(gate AuthGate, cookie CookieConfig, publicBaseURL string) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = SessionCookieName
	}
	return &AuthHandler{
		gate:          gate,
		cookie:        cookie,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

type SignUpRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Image           string `json:"image"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmpassword" binding:"required"`
}

// Missing fields on login are reported by the service so the message
// matches the one for bad credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmpassword" binding:"required"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmpassword" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	session, err := h.gate.Signup(cctx, auth.SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Image:           req.Image,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusCreated, session)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	session, err := h.gate.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, session)
}

// Logout overwrites the session cookie with a short-lived placeholder.
// Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(h.cookie.Name, loggedOutValue, 10, "/", "", h.cookie.Secure, true)

	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.gate.ForgotPassword(cctx, req.Email, h.resetBaseURL(ctx)); err != nil {
		RespondAppError(ctx, err)
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{"message": "Token sent to email"})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	session, err := h.gate.ResetPassword(cctx, ctx.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, session)
}

func (h *AuthHandler) UpdatePassword(ctx *gin.Context) {
	me, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithRequestTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	session, err := h.gate.UpdatePassword(cctx, me.ID, req.PasswordCurrent, req.Password, req.ConfirmPassword)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.sendSession(ctx, http.StatusOK, session)
}

func (h *AuthHandler) sendSession(ctx *gin.Context, status int, session auth.Session) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(h.cookie.Name, session.Token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)

	ctx.JSON(status, gin.H{
		"status": "success",
		"token":  session.Token,
		"data":   gin.H{"user": session.User},
	})
}

// resetBaseURL prefers the configured public URL and otherwise rebuilds one
// from the request.
func (h *AuthHandler) resetBaseURL(ctx *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL + resetPath
	}

	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := ctx.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}

	return scheme + "://" + ctx.Request.Host + resetPath
}

// currentUser reads the principal stored by the protect middleware.
func currentUser(ctx *gin.Context) (user.User, bool) {
	u, ok := actorctx.UserFrom(ctx.Request.Context())
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "You are not logged in! Please log in to get access.")
		return user.User{}, false
	}
	return u, true
}
