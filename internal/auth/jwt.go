// Package auth verifies HS256 bearer tokens and turns them into session identities.
// Token issuance for end users is owned by an external identity service; Issue
// exists for development seeding and tests.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/errs"
	"github.com/tinoosan/groupledger/internal/session"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims understood by the API. The subject is the user UUID.
type Claims struct {
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens against a shared secret and optional issuer/audience.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier returns a verifier. Empty issuer or audience disables that check.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), audience: strings.TrimSpace(audience)}
}

// Verify parses token and returns the identity it asserts.
func (v *Verifier) Verify(token string) (session.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return session.Identity{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return session.Identity{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return session.Identity{
		UserID:    userID,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}

// Issue signs a token for id that expires after ttl.
func (v *Verifier) Issue(id session.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:      id.Email,
		GivenName:  id.FirstName,
		FamilyName: id.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errs.ErrUnauthenticated
	}
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", errs.ErrUnauthenticated
	}
	return strings.TrimSpace(h[len(prefix):]), nil
}
