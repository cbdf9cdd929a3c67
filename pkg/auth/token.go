package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are issued by the identity provider. Only the subject, role and the
// optional doctor link are read.
type Claims struct {
	Role     string `json:"role"`
	DoctorID string `json:"doctor_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HMAC-signed token and returns its principal.
func ParseToken(tokenString, secret string) (*Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || !IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: missing subject or unknown role", ErrInvalidToken)
	}
	if claims.Role == RoleDoctor && claims.DoctorID == "" {
		return nil, fmt.Errorf("%w: doctor token without doctor_id", ErrInvalidToken)
	}

	return &Principal{
		ID:       claims.Subject,
		Role:     claims.Role,
		DoctorID: claims.DoctorID,
	}, nil
}

// SignToken issues a token for p. Used by the dev token command and by tests;
// production tokens come from the identity provider.
func SignToken(p Principal, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     p.Role,
		DoctorID: p.DoctorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
