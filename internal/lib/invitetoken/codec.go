// Package invitetoken mints and verifies the signed links sent with team
// invitations. Tokens are not persisted.
package invitetoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teams-service/internal/apperrors"
)

// Purpose binds a token to the invitation flow so tokens minted for other
// flows with the same secret are rejected.
const Purpose = "team-invitation"

const signingMethod = "HS256"

type Reason string

const (
	ReasonMalformed Reason = "malformed"
	ReasonSignature Reason = "signature"
	ReasonExpired   Reason = "expired"
	ReasonPurpose   Reason = "purpose"
)

// Error is returned for every token that fails to decode. Callers should only
// branch on apperrors.ErrInvalidToken; Reason is meant for logs.
type Error struct {
	Reason Reason
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("invitation token %s: %v", e.Reason, e.err)
	}
	return fmt.Sprintf("invitation token %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return apperrors.ErrInvalidToken
}

// Claims are the verified contents of an invitation token.
type Claims struct {
	TeamID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type invitationClaims struct {
	jwt.RegisteredClaims
	TeamID  string `json:"team_id"`
	Email   string `json:"email"`
	Purpose string `json:"type"`
}

type Codec struct {
	secret []byte
	now    func() time.Time
}

// New returns a codec signing with secret. now defaults to time.Now.
func New(secret string, now func() time.Time) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("invitation token secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), now: now}, nil
}

func (c *Codec) Encode(teamID, email string, ttlDays int) (string, error) {
	const op = "invitetoken.Encode"

	if ttlDays <= 0 {
		return "", fmt.Errorf("%s: ttl must be positive, got %d days", op, ttlDays)
	}

	issued := c.now().UTC()
	claims := invitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(time.Duration(ttlDays) * 24 * time.Hour)),
		},
		TeamID:  teamID,
		Email:   strings.ToLower(email),
		Purpose: Purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Decode verifies signature, algorithm, expiry and purpose in one step.
func (c *Codec) Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, &Error{Reason: ReasonMalformed}
	}

	var parsed invitationClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Purpose != Purpose {
		return Claims{}, &Error{Reason: ReasonPurpose}
	}
	if parsed.TeamID == "" || parsed.Email == "" {
		return Claims{}, &Error{Reason: ReasonMalformed, err: errors.New("missing team_id or email")}
	}

	claims := Claims{
		TeamID:    parsed.TeamID,
		Email:     strings.ToLower(parsed.Email),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}

	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &Error{Reason: ReasonExpired, err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &Error{Reason: ReasonSignature, err: err}
	default:
		return &Error{Reason: ReasonMalformed, err: err}
	}
}
