package util

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims ties an admin token to the persisted login session that
// issued it.
type AdminClaims struct {
	AdminID   int64  `json:"admin_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func GenerateAdminToken(adminID int64, sessionID, secret string, expiration time.Duration) (string, error) {
	claims := &AdminClaims{
		AdminID:   adminID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAdminToken(tokenString, secret string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
