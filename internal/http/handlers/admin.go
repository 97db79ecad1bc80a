package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/authz"
	"github.com/buildhubhq/buildhub/internal/http/middlewares"
	"github.com/buildhubhq/buildhub/internal/observability"
)

// AdminHandler exposes the gate over HTTP. The page calls Access on load,
// Password from the prompt, and Logout from the console header.
type AdminHandler struct {
	gate    *authz.Gate
	metrics *observability.Prom
	log     *slog.Logger
}

func NewAdminHandler(gate *authz.Gate, metrics *observability.Prom, log *slog.Logger) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AdminHandler{
		gate:    gate,
		metrics: metrics,
		log:     log,
	}
}

func (h *AdminHandler) recordDecision(d authz.Decision) {
	if h.metrics != nil {
		h.metrics.GateDecisions.WithLabelValues(string(d.State)).Inc()
	}
}

// Access runs one evaluation of the gate. A denial is terminal for this page
// load; the client must redirect away.
func (h *AdminHandler) Access(ctx *gin.Context) {
	sid, _ := middlewares.SessionIDFromContext(ctx)
	did, _ := middlewares.DeviceIDFromContext(ctx)

	d := h.gate.Evaluate(ctx.Request.Context(), sid, did)
	h.recordDecision(d)

	if d.State == authz.StateDenied {
		ctx.JSON(http.StatusForbidden, gin.H{
			"ok":    false,
			"state": d.State,
			"error": APIError{
				Code:      "admin_required",
				Message:   "Admin role required to view this page.",
				RequestID: requestIDFrom(ctx),
			},
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"state":       d.State,
		"viaOverride": d.ViaOverride,
	})
}

type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

func (h *AdminHandler) Password(ctx *gin.Context) {
	var req PasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	sid, _ := middlewares.SessionIDFromContext(ctx)
	did, _ := middlewares.DeviceIDFromContext(ctx)

	d, err := h.gate.SubmitPassword(ctx.Request.Context(), sid, did, req.Password, req.Remember)

	if err != nil {
		if errors.Is(err, authz.ErrInvalidPassword) {
			if h.metrics != nil {
				h.metrics.PasswordAttempts.WithLabelValues("invalid").Inc()
			}

			ctx.JSON(http.StatusUnauthorized, gin.H{
				"ok":    false,
				"state": d.State,
				"error": APIError{
					Code:      "invalid_password",
					Message:   "Incorrect password. Please try again.",
					RequestID: requestIDFrom(ctx),
				},
			})
			return
		}

		h.log.Error("password submission failed", "err", err)
		RespondInternal(ctx, "Could not verify password")
		return
	}

	if d.State == authz.StateDenied {
		// no password is configured at all
		RespondForbidden(ctx, "admin_required", "Admin access is not available.")
		return
	}

	if h.metrics != nil {
		h.metrics.PasswordAttempts.WithLabelValues("ok").Inc()
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"state":       d.State,
		"viaOverride": d.ViaOverride,
	})
}

// Logout re-arms the gate: the override and the session role marker are
// dropped, so the next Access lands on the prompt (or denial).
func (h *AdminHandler) Logout(ctx *gin.Context) {
	sid, _ := middlewares.SessionIDFromContext(ctx)
	did, _ := middlewares.DeviceIDFromContext(ctx)

	if err := h.gate.Logout(ctx.Request.Context(), sid, did); err != nil {
		h.log.Error("gate logout failed", "err", err)
		RespondInternal(ctx, "Could not log out of the admin console")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"ok":    true,
		"state": authz.StateChecking,
	})
}
