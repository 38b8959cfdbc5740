// Package auth verifies the bearer tokens that guard the cobrança API.
// Tokens are HS256 JWTs issued by the ERP with type "access".
package auth

import (
	"fmt"
	"time"

	"github.com/boddenberg/pj-cobranca-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenType = "access"
	issuer    = "pj-cobranca"
)

// Claims are the custom claims carried by access tokens. The subject is
// the operator or system that calls the API; CNPJ is the cedente it acts for.
type Claims struct {
	CNPJ string `json:"cnpj,omitempty"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Verifier checks tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an access token.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != tokenType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

// Issue signs an access token for subject valid for ttl. Used by cnabctl
// and tests; production tokens come from the ERP.
func (v *Verifier) Issue(subject, cnpj string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CNPJ: cnpj,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
