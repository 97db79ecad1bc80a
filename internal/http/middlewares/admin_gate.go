package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/authz"
)

// RequireGate guards mutating routes with the same evaluation the admin page
// uses. Only a fully authorized decision passes; a pending prompt is still a
// refusal here.
func RequireGate(gate *authz.Gate) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sid, _ := SessionIDFromContext(ctx)
		did, _ := DeviceIDFromContext(ctx)

		d := gate.Evaluate(ctx.Request.Context(), sid, did)

		if d.State != authz.StateAuthorized {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"ok":    false,
				"state": d.State,
				"error": gin.H{
					"code":    "admin_required",
					"message": "Admin role required for this action.",
				},
			})
			return
		}

		ctx.Next()
	}
}
