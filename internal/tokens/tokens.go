// Package tokens issues and verifies the admin access tokens.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sachtalks/sachtalks-api/internal/sessions"
	"github.com/sachtalks/sachtalks-api/pkg/middleware"
)

const Issuer = "sachtalks-api"

// GenerateAccessToken creates a signed HS256 token for sub bound to the session sid.
func GenerateAccessToken(secret, sub, sid string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": Issuer,
		"sub": sub,
		"sid": sid,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse checks signature, algorithm, issuer and expiry and returns the claims.
func Parse(secret, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, err
	}
	if _, ok := claims["exp"]; !ok {
		return nil, errors.New("token has no expiry")
	}
	return claims, nil
}

// ExpiresAt reads exp without checking the signature. Used to size blacklist entries.
func ExpiresAt(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	return exp.Time, nil
}

type verified struct {
	claims jwt.MapClaims
}

func (v verified) Claims(out interface{}) error {
	b, err := json.Marshal(v.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Verifier validates access tokens for the auth middleware. A token is rejected when it is
// blacklisted or when its session has gone idle. Each accepted request slides the session.
type Verifier struct {
	secret    string
	blacklist *sessions.Blacklist
	sessions  *sessions.Service
}

func NewVerifier(secret string, bl *sessions.Blacklist, svc *sessions.Service) *Verifier {
	return &Verifier{secret: secret, blacklist: bl, sessions: svc}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	claims, err := Parse(v.secret, raw)
	if err != nil {
		return nil, err
	}
	revoked, err := v.blacklist.Contains(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("blacklist check: %w", err)
	}
	if revoked {
		return nil, errors.New("token has been revoked")
	}
	if v.sessions != nil {
		sid, _ := claims["sid"].(string)
		sess, err := v.sessions.Validate(ctx, sid)
		if err != nil {
			return nil, fmt.Errorf("session check: %w", err)
		}
		if sess == nil {
			return nil, errors.New("session expired")
		}
	}
	return verified{claims: claims}, nil
}
