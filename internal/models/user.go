// Package models defines the core data types shared by the cartsync
// credential store, vault and reconciliation engine.
package models

import "time"

// UserAccount is the persisted account record. It is owned by the
// credential store; PasswordHash must never leave the store/session
// layers (Sanitized strips it before the account is handed to callers).
type UserAccount struct {
	// ID is a stable, immutable identifier assigned at creation.
	ID string `json:"id"`

	// Username is unique, 3-20 chars, alphanumeric plus underscore.
	Username string `json:"username"`

	// Email is unique and matched case-sensitively at login.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	PasswordHash string `json:"passwordHash,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	// LastSync is nil until the first successful vault write.
	LastSync *time.Time `json:"lastSync,omitempty"`

	// EncryptedPayload holds the AES-GCM ciphertext of the account's
	// dataset when the inline blob backend is used. Empty means the
	// account has never synced, not an error.
	EncryptedPayload []byte `json:"encryptedPayload,omitempty"`

	// BlobKey locates the ciphertext in an external blob store (S3
	// backend). Unset when the payload is stored inline.
	BlobKey string `json:"blobKey,omitempty"`
}

// Sanitized returns a copy of the account safe to hand to callers:
// the password hash is stripped, everything else is preserved.
func (u *UserAccount) Sanitized() *UserAccount {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// Clone returns a deep-enough copy for whole-collection stores that
// must not alias caller memory.
func (u *UserAccount) Clone() *UserAccount {
	if u == nil {
		return nil
	}
	c := *u
	if u.EncryptedPayload != nil {
		c.EncryptedPayload = append([]byte(nil), u.EncryptedPayload...)
	}
	if u.LastSync != nil {
		t := *u.LastSync
		c.LastSync = &t
	}
	return &c
}
