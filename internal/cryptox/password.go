// Package cryptox implements the crypto primitives used by cartsync:
// bcrypt password hashing, AES-GCM payload encryption and per-user key
// derivation.
package cryptox

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is the bcrypt work factor for new hashes.
const PasswordHashCost = 12

// HashPassword returns a salted, one-way bcrypt hash of the password.
func HashPassword(password []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(password, PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
// bcrypt embeds salt and cost in the hash and compares in constant
// time, so no extra handling is needed here.
func VerifyPassword(password []byte, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), password) == nil
}
