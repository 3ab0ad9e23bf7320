// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// User is the stable, authenticated identity behind a connection.
// Identity attributes come from the token verifier, never from the client.
type User struct {
	ID       UserID `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, username, avatar string) (*User, error) {
	u := &User{ID: id, Avatar: avatar}
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) SetUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	u.Username = username
	return nil
}
