package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"assetup/internal/platform/middleware"
	id "assetup/pkg/domain"
)

// JWTService validates bearer tokens and extracts the acting principal from
// the subject claim. Key custody and token issuance live with the caller's
// identity provider; the ledger only checks signatures.
type JWTService struct {
	signingKey []byte
}

func NewJWTService(signingKey string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey)}
}

// ValidateToken implements middleware.JWTValidator.
func (s *JWTService) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token has no subject: %w", err)
	}
	principal, ok := id.ParsePrincipal(subject)
	if !ok {
		return nil, fmt.Errorf("token subject is empty")
	}

	return &middleware.JWTClaims{Principal: principal}, nil
}
