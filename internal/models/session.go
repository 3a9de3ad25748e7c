package models

import "time"

// SessionDoc is the persisted session document reloaded at bootstrap.
// CurrentUser is stored sanitized (no password hash).
type SessionDoc struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	CurrentUser     *UserAccount `json:"currentUser,omitempty"`
	Token           string       `json:"token,omitempty"`
}

// SyncState is derived on demand, never persisted independently.
type SyncState struct {
	// HasLocalData reports whether an unsynced local dataset exists.
	HasLocalData bool

	// LastSync mirrors UserAccount.LastSync once authenticated.
	LastSync *time.Time
}
