// Package accesstoken signs and verifies the bearer tokens issued by the
// identity service. The subject, verified email and subscription tier are
// read; the tier claim is the only source the service trusts for quotas.
package accesstoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid access token")

type Claims struct {
	Email string `json:"email"`
	Tier  string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID string
	Email  string
	Tier   string
}

// Sign issues a token for userID. It is used by the CLI and in tests; in
// production the identity service issues tokens with the same secret.
func Sign(secret, userID, email, tier string, ttl time.Duration) (string, error) {
	const op = "accesstoken.Sign"

	now := time.Now()
	claims := Claims{
		Email: strings.ToLower(email),
		Tier:  tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return Identity{}, fmt.Errorf("%w: missing subject or email", ErrInvalid)
	}

	return Identity{
		UserID: claims.Subject,
		Email:  strings.ToLower(claims.Email),
		Tier:   claims.Tier,
	}, nil
}
