package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/auth"
	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/domain/profile"
	"github.com/buildhubhq/buildhub/internal/http/middlewares"
	"github.com/buildhubhq/buildhub/internal/session"
	"github.com/buildhubhq/buildhub/internal/upstream"
)

type AuthAPI interface {
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, otp, tokenID string) (profile.Partial, error)
	GetProfile(ctx context.Context, email string) (profile.Partial, error)
}

type AuthHandler struct {
	api    AuthAPI
	store  session.Store
	google *auth.GoogleVerifier
	log    *slog.Logger
}

func NewAuthHandler(api AuthAPI, store session.Store, google *auth.GoogleVerifier, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		api:    api,
		store:  store,
		google: google,
		log:    log,
	}
}

type RequestOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	OTP     string `json:"otp" binding:"required,min=4,max=8"`
	TokenID string `json:"tokenId" binding:"omitempty"`
}

func (h *AuthHandler) RequestOTP(ctx *gin.Context) {
	var req RequestOTPRequest

	if !BindJSON(ctx, &req) {
		return
	}

	sid, _ := middlewares.SessionIDFromContext(ctx)

	tokenID, err := h.api.RequestOTP(ctx.Request.Context(), req.Email)

	if err != nil {
		h.log.Error("request otp failed", "err", err)
		RespondUpstream(ctx, err, "Failed to send code.")
		return
	}

	// keep the pending token so verify can fall back when the client
	// does not echo it
	if err := h.store.SetPendingToken(ctx.Request.Context(), sid, tokenID); err != nil {
		h.log.Error("failed to store pending token", "err", err)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"tokenId": tokenID,
	})
}

func (h *AuthHandler) VerifyOTP(ctx *gin.Context) {
	var req VerifyOTPRequest

	if !BindJSON(ctx, &req) {
		return
	}

	sid, _ := middlewares.SessionIDFromContext(ctx)
	cctx := ctx.Request.Context()

	tokenID := req.TokenID

	if tokenID == "" {
		tokenID = h.store.PendingToken(cctx, sid)
	}

	if _, err := h.api.VerifyOTP(cctx, req.Email, req.OTP, tokenID); err != nil {
		RespondUnAuthorized(ctx, "invalid_code", verifyErrMessage(err))
		return
	}

	_ = h.store.SetPendingToken(cctx, sid, "")

	route, p := h.postAuthRouting(cctx, sid, req.Email)

	ctx.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"route":   route,
		"profile": p,
	})
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// GoogleLogin signs in with a Google Identity Services credential: the email
// is lifted from the ID token and the session goes through the same routing
// as an OTP verification.
func (h *AuthHandler) GoogleLogin(ctx *gin.Context) {
	var req GoogleLoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	email, err := h.google.Email(req.Credential)

	if err != nil {
		h.log.Warn("google credential rejected", "err", err)
		RespondUnAuthorized(ctx, "invalid_credential", "Google sign-in could not be validated.")
		return
	}

	sid, _ := middlewares.SessionIDFromContext(ctx)

	route, p := h.postAuthRouting(ctx.Request.Context(), sid, email)

	ctx.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"route":   route,
		"profile": p,
	})
}

// postAuthRouting hydrates the freshest profile it can get and decides the
// landing page. The fetch failing just means the setup page pre-fills from a
// default; login never hard-fails on the profile service.
func (h *AuthHandler) postAuthRouting(ctx context.Context, sid, email string) (authz.Route, profile.UserProfile) {
	if err := h.store.SetEmail(ctx, sid, email); err != nil {
		h.log.Error("failed to store session email", "err", err)
	}

	if err := h.store.ClearProfile(ctx, sid); err != nil {
		h.log.Error("failed to clear session profile", "err", err)
	}

	var hydrated *profile.UserProfile

	fetched, err := h.api.GetProfile(ctx, email)

	if err != nil {
		h.log.Error("failed to lookup profile", "err", err)
	} else {
		merged := profile.Merge(fetched, nil, email)
		hydrated = &merged

		if err := h.store.StoreProfile(ctx, sid, merged); err != nil {
			h.log.Error("failed to store profile", "err", err)
		}

		if route := authz.DecideRoute(merged); route == authz.RouteDashboard {
			return route, merged
		}
	}

	forSetup := authz.SetupProfile(hydrated, email)

	if hydrated == nil {
		if err := h.store.StoreProfile(ctx, sid, forSetup); err != nil {
			h.log.Error("failed to store setup profile", "err", err)
		}
	}

	return authz.RouteProfileSetup, forSetup
}

// Logout ends the session's profile cache. The admin override is deliberately
// untouched: it belongs to the device and is only dropped through the gate.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	sid, _ := middlewares.SessionIDFromContext(ctx)
	cctx := ctx.Request.Context()

	if err := h.store.ClearProfile(cctx, sid); err != nil {
		h.log.Error("failed to clear session profile", "err", err)
		RespondInternal(ctx, "Could not log out")
		return
	}

	_ = h.store.SetPendingToken(cctx, sid, "")
	_ = h.store.SetEmail(cctx, sid, "")

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func verifyErrMessage(err error) string {
	// upstream business messages are already user-facing
	var apiErr *upstream.APIError

	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	return "Invalid or expired code."
}
