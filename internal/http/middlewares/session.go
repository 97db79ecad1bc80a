package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/buildhubhq/buildhub/internal/auth"
)

const sessionCookieName = "bh_session"

// SessionMiddleware guarantees every request carries a session ID and a
// device ID. A valid cookie is reused; an expired-but-authentic one keeps
// its device ID (so the durable admin override follows the browser) under a
// fresh session; anything else gets brand new IDs.
type SessionMiddleware struct {
	tokens *auth.Manager
	ttl    time.Duration
	secure bool
}

func NewSessionMiddleware(tokens *auth.Manager, ttl time.Duration, env string) *SessionMiddleware {
	return &SessionMiddleware{
		tokens: tokens,
		ttl:    ttl,
		secure: env == "prod",
	}
}

func (m *SessionMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, did, reissue := m.resolve(c)

		if reissue {
			token, err := m.tokens.Issue(sid, did)

			if err == nil {
				c.SetSameSite(http.SameSiteStrictMode)
				c.SetCookie(
					sessionCookieName,
					token,
					int(m.ttl.Seconds()),
					"/",
					"",
					m.secure,
					true, // HttpOnly.
				)
			}
		}

		c.Set(CtxSessionID, sid)
		c.Set(CtxDeviceID, did)

		c.Next()
	}
}

func (m *SessionMiddleware) resolve(c *gin.Context) (sid, did string, reissue bool) {
	raw, err := c.Cookie(sessionCookieName)

	if err != nil || raw == "" {
		sid, did = auth.NewIDs()
		return sid, did, true
	}

	claims, err := m.tokens.Verify(raw)

	if err == nil {
		return claims.SID, claims.DID, false
	}

	// expired but authentic: keep the device, rotate the session
	claims, err = m.tokens.VerifyAllowExpired(raw)

	if err == nil {
		sid, _ = auth.NewIDs()
		return sid, claims.DID, true
	}

	sid, did = auth.NewIDs()
	return sid, did, true
}

func SessionIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxSessionID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func DeviceIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxDeviceID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
