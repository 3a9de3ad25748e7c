package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vcompra/cartsync/internal/common"
)

// ParseLegacyClaims decodes a v1 session token: three dot-separated
// segments with a base64 JSON claim set in the middle and no verifiable
// signature. It exists only so sessions persisted by the original app
// survive an upgrade; it must never be used outside Bootstrap, because
// a forged token with valid structure passes this check.
func ParseLegacyClaims(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", common.ErrMalformedToken, len(parts))
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no user id claim", common.ErrMalformedToken)
	}

	return claims, nil
}

// decodeSegment accepts both raw-url (JWT) and padded standard (btoa)
// base64, since v1 tokens used the latter.
func decodeSegment(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
