// Package auth issues and verifies session tokens. Tokens are HS256
// JWTs carrying the account identity plus an expiry claim; a structural
// parser for legacy (unsigned) tokens is kept for session bootstrap.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/models"
)

// Claims is the token claim set: registered claims plus the account
// identity snapshot embedded at issuance.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// GenerateToken signs a new HS256 token for the given account,
// expiring after validityDuration.
func GenerateToken(user *models.UserAccount, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// VerifyToken parses and verifies a token produced by GenerateToken.
// Any failure, including a bad signature, a fabricated claim set or an
// expired token, yields common.ErrMalformedToken so callers cannot
// learn which check rejected it.
func VerifyToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrMalformedToken
	}

	return claims, nil
}
