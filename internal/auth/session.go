package auth

import "github.com/google/uuid"

// Session is the caller's authenticated context. It is passed explicitly to every
// operation that talks to the Apollo proxy.
type Session struct {
	UserID      uuid.UUID
	AccessToken string
}

func (s Session) Active() bool {
	return s.AccessToken != ""
}
