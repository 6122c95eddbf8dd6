package domain

import "time"

// Session es la creencia del cliente sobre el usuario autenticado y la
// ventana de validez de sus tokens.
type Session struct {
	User             *User      `json:"user"`
	AccessExpiresAt  *time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt *time.Time `json:"refreshExpiresAt"`
}

// LoggedIn indica si hay usuario publicado.
func (s Session) LoggedIn() bool {
	return s.User != nil
}

// RefreshExpired indica si el refresh token ya venció en now.
func (s Session) RefreshExpired(now time.Time) bool {
	return s.RefreshExpiresAt == nil || !now.Before(*s.RefreshExpiresAt)
}
