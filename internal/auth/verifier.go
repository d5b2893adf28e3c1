package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"hixa-chat-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by marketplace access tokens. Issuance is the auth
// service's concern; this package only verifies.
type Claims struct {
	UserID int         `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a signed bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// HMACVerifier verifies HS256 tokens with a shared secret.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier constructs a verifier for the given shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token.
func (v *HMACVerifier) Verify(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
