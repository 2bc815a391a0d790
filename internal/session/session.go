// Package session issues and reads the signed tokens that tie a browser to its
// cart. Tokens carry a random session id; there are no user accounts.
package session

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// ClaimSessionID is the JWT claim holding the session id.
	ClaimSessionID = "session_id"
	// LocalsKey is where the JWT middleware stores the parsed token.
	LocalsKey = "user"
)

var ErrEmptySecret = errors.New("jwt secret is empty")

// Issuer mints HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Token is the issued credential returned to the browser.
type Token struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issue creates a token for a fresh session id.
func (i *Issuer) Issue() (Token, error) {
	return i.IssueFor(uuid.NewString())
}

// IssueFor renews the token of an existing session.
func (i *Issuer) IssueFor(sessionID string) (Token, error) {
	exp := i.now().Add(i.ttl).UTC()
	claims := jwt.MapClaims{
		ClaimSessionID: sessionID,
		"exp":          exp.Unix(),
		"iat":          i.now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Token: signed, SessionID: sessionID, ExpiresAt: exp}, nil
}

// Middleware rejects requests without a valid bearer token.
func (i *Issuer) Middleware() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: i.secret,
		ContextKey: LocalsKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// IDFromCtx reads the session id placed in locals by the JWT middleware.
func IDFromCtx(c *fiber.Ctx) (string, error) {
	u := c.Locals(LocalsKey)
	if u == nil {
		return "", fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	id, ok := claims[ClaimSessionID].(string)
	if !ok || id == "" {
		return "", fiber.ErrUnauthorized
	}
	return id, nil
}
