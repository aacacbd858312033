package utils // helper functions for token issuing and password hashing

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/motosaga/moto-saga/internal/model"
)

// AccessToken is a signed HS256 JWT along with its expiry. The platform
// issues a single long-lived access token per session; there is no
// refresh-token rotation.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs a JWT for a user. Claims carry the
// subject (user id), email, display name and role so handlers can act on
// the caller's identity without a user lookup.
func NewAccessToken(secret string, u *model.User, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  string(u.Role),
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
