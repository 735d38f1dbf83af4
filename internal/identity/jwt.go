// Package identity validates inbound bearer tokens into principals.
//
// The archive's identity provider issues the tokens; this package only
// verifies the signature and reconstructs {id, role} from the claims. User
// management and password handling are out of scope.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	id "arkhiv/pkg/domain"
)

// JWTValidator verifies HMAC-signed bearer tokens.
type JWTValidator struct {
	signingKey []byte
}

// NewJWTValidator constructs a validator with the shared signing key.
func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a token, returning the principal it
// asserts. The subject claim must be a valid UUID and the role claim must be
// one of the supported roles.
func (v *JWTValidator) ValidateToken(tokenString string) (id.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return id.Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return id.Principal{}, fmt.Errorf("invalid token")
	}

	userID, err := id.ParseUserID(c.Subject)
	if err != nil {
		return id.Principal{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	role, err := id.ParseRole(c.Role)
	if err != nil {
		return id.Principal{}, fmt.Errorf("invalid role claim: %w", err)
	}

	return id.Principal{ID: userID, Role: role}, nil
}
