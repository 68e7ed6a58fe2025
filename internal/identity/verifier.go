package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates access tokens signed with the identity service's
// HS256 secret, for API clients that send a bearer token instead of the
// session cookie.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

type accessClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

func NewVerifier(secret string) *Verifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify returns the user carried by token.
func (v *Verifier) Verify(token string) (*User, error) {
	if v == nil {
		return nil, errors.New("identity: bearer tokens not accepted")
	}
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("identity: verify token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("identity: token has no subject")
	}
	if claims.Role != "" && claims.Role != "authenticated" {
		return nil, fmt.Errorf("identity: unexpected role %q", claims.Role)
	}
	u := &User{ID: claims.Subject, Email: claims.Email}
	if name, ok := claims.UserMetadata["full_name"].(string); ok {
		u.FullName = name
	}
	return u, nil
}
