package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims bind a browser to its server-side session record. SID keys the
// per-session state, DID keys the durable admin override.
type Claims struct {
	SID       string `json:"sid"`
	DID       string `json:"did"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewIDs mints a fresh session/device pair.
func NewIDs() (sid string, did string) {
	return uuid.NewString(), uuid.NewString()
}

func (m *Manager) Issue(sid, did string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		SID:       sid,
		DID:       did,
		TokenType: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Subject:   sid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.TokenType != "session" {
		return nil, errors.New("invalid token type")
	}

	if claims.SID == "" || claims.DID == "" {
		return nil, errors.New("missing session ids")
	}

	return claims, nil
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr)
}

// VerifyAllowExpired accepts a token past its expiry as long as the signature
// holds. The middleware uses it to carry the device ID (and with it the
// durable override) into a fresh session instead of dropping it.
func (m *Manager) VerifyAllowExpired(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr)

	if err == nil {
		return claims, nil
	}

	if !errors.Is(err, jwt.ErrTokenExpired) {
		return nil, err
	}

	return m.parse(tokenStr, jwt.WithoutClaimsValidation())
}
