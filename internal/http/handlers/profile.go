package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/domain/profile"
	"github.com/buildhubhq/buildhub/internal/http/middlewares"
	"github.com/buildhubhq/buildhub/internal/session"
)

type ProfileAPI interface {
	GetProfile(ctx context.Context, email string) (profile.Partial, error)
	SaveProfile(ctx context.Context, p profile.UserProfile) (profile.Partial, error)
	UpdateRole(ctx context.Context, email string, role profile.Role) error
}

type ProfileHandler struct {
	api   ProfileAPI
	store session.Store
	log   *slog.Logger
}

func NewProfileHandler(api ProfileAPI, store session.Store, log *slog.Logger) *ProfileHandler {
	if log == nil {
		log = slog.Default()
	}

	return &ProfileHandler{
		api:   api,
		store: store,
		log:   log,
	}
}

// effectiveRole is what the navigation chrome renders: the durable override
// wins, then the profile's own role, then the session role marker left behind
// by a password-authorized gate.
func (h *ProfileHandler) effectiveRole(ctx context.Context, sid, did string, p *profile.UserProfile) profile.Role {
	role := authz.EffectiveRole(h.store.Override(ctx, did), p)

	if role == "" {
		role = h.store.RoleMarker(ctx, sid)
	}

	return role
}

// GetProfile serves the cached profile when present; otherwise it hydrates
// from upstream keyed by the last-known email and caches the result. The
// response carries the effective role alongside the profile.
func (h *ProfileHandler) GetProfile(ctx *gin.Context) {
	sid, _ := middlewares.SessionIDFromContext(ctx)
	did, _ := middlewares.DeviceIDFromContext(ctx)
	cctx := ctx.Request.Context()

	if cached := h.store.LoadProfile(cctx, sid); cached != nil {
		ctx.JSON(http.StatusOK, gin.H{
			"ok":            true,
			"profile":       cached,
			"effectiveRole": h.effectiveRole(cctx, sid, did, cached),
		})
		return
	}

	email := h.store.Email(cctx, sid)

	if email == "" {
		RespondUnAuthorized(ctx, "not_authenticated", "Sign in to view your profile.")
		return
	}

	fetched, err := h.api.GetProfile(cctx, email)

	if err != nil {
		h.log.Error("profile fetch failed", "err", err)
		RespondUpstream(ctx, err, "Failed to load profile.")
		return
	}

	merged := profile.Merge(fetched, nil, email)

	if err := h.store.StoreProfile(cctx, sid, merged); err != nil {
		h.log.Error("failed to cache profile", "err", err)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"profile":       merged,
		"effectiveRole": h.effectiveRole(cctx, sid, did, &merged),
	})
}

type SaveProfileRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Username    string   `json:"username" binding:"required,min=2,max=40"`
	FirstName   string   `json:"firstName" binding:"omitempty,max=60"`
	LastName    string   `json:"lastName" binding:"omitempty,max=60"`
	Location    string   `json:"location" binding:"omitempty,max=120"`
	Skills      []string `json:"skills" binding:"omitempty,dive,min=1,max=40"`
	Socials     string   `json:"socials" binding:"omitempty,max=200"`
	Github      string   `json:"github" binding:"omitempty,max=120"`
	DisplayName string   `json:"displayName" binding:"required,min=2,max=60"`
	Bio         string   `json:"bio" binding:"required,min=1,max=1000"`
}

// SaveProfile forwards the submitted profile upstream (never the role) and
// replaces the session cache with whatever the server settled on.
func (h *ProfileHandler) SaveProfile(ctx *gin.Context) {
	var req SaveProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	sid, _ := middlewares.SessionIDFromContext(ctx)
	cctx := ctx.Request.Context()

	submitted := profile.UserProfile{
		Email:       req.Email,
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Location:    req.Location,
		Skills:      req.Skills,
		Socials:     req.Socials,
		Github:      req.Github,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	}

	returned, err := h.api.SaveProfile(cctx, submitted)

	if err != nil {
		h.log.Error("profile save failed", "err", err)
		RespondUpstream(ctx, err, "Failed to save profile.")
		return
	}

	// server response wins per field over what was submitted
	merged := profile.Merge(returned, &submitted, req.Email)

	if err := h.store.StoreProfile(cctx, sid, merged); err != nil {
		h.log.Error("failed to cache saved profile", "err", err)
	}

	if err := h.store.SetEmail(cctx, sid, merged.Email); err != nil {
		h.log.Error("failed to store session email", "err", err)
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true, "profile": merged})
}

type UpdateRoleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=user partner admin"`
}

// UpdateRole proxies a role change. The route sits behind the admin gate
// here, and the upstream still enforces its own authorization; the gate is
// UI-level only.
func (h *ProfileHandler) UpdateRole(ctx *gin.Context) {
	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx := ctx.Request.Context()

	if err := h.api.UpdateRole(cctx, req.Email, profile.ParseRole(req.Role)); err != nil {
		h.log.Error("role update failed", "err", err)
		RespondUpstream(ctx, err, "Failed to update role.")
		return
	}

	// keep the session cache honest when an admin edits their own account
	sid, _ := middlewares.SessionIDFromContext(ctx)

	if cached := h.store.LoadProfile(cctx, sid); cached != nil && cached.Email == req.Email {
		cached.Role = profile.ParseRole(req.Role)

		if err := h.store.StoreProfile(cctx, sid, *cached); err != nil {
			h.log.Error("failed to refresh cached role", "err", err)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
