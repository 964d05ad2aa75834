// Package auth provides bearer token verification for control endpoints.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrDisabled     = errors.New("auth: verification disabled")
)

// Verifier validates bearer tokens and extracts the caller's role.
// Modes: dev (token is "role" or "subject:role"), hmac (HS256 JWT), none.
type Verifier struct {
	Mode       string
	HMACSecret []byte
	RoleClaim  string
	Now        func() time.Time
}

type Principal struct {
	Subject string
	Role    string
}

// IsAdmin reports whether the principal may control the tracker.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(secret), RoleClaim: "role", Now: time.Now}
}

type roleClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (v *Verifier) Verify(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	switch v.Mode {
	case "dev":
		// token format: role or subject:role
		if sub, role, ok := strings.Cut(token, ":"); ok {
			return Principal{Subject: sub, Role: role}, nil
		}
		return Principal{Subject: "dev", Role: token}, nil
	case "hmac":
		return v.verifyHMAC(token)
	default:
		return Principal{}, ErrDisabled
	}
}

func (v *Verifier) verifyHMAC(token string) (Principal, error) {
	if len(v.HMACSecret) == 0 {
		return Principal{}, fmt.Errorf("%w: no secret configured", ErrInvalidToken)
	}
	now := v.Now
	if now == nil {
		now = time.Now
	}
	var claims roleClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.HMACSecret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(now),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role == "" {
		return Principal{}, fmt.Errorf("%w: missing role claim", ErrInvalidToken)
	}
	return Principal{Subject: claims.Subject, Role: claims.Role}, nil
}

// SignHMAC issues an HS256 token for role, used by tests and local tooling.
func SignHMAC(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := roleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
