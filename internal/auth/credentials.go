package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/dennisdiepolder/monti/insights/internal/config"
)

// ErrInvalidCredentials is returned for an unknown user or wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyPassword is compared against for unknown users
var dummyPassword = []byte("insights-unknown-user")

// Authenticator checks demo credentials. It is a login gate for the
// dashboard, not an identity provider.
type Authenticator struct {
	users map[string]config.DemoUser
}

// NewAuthenticator creates an Authenticator over the configured demo users
func NewAuthenticator(users []config.DemoUser) *Authenticator {
	a := &Authenticator{users: make(map[string]config.DemoUser, len(users))}
	for _, u := range users {
		a.users[u.Username] = u
	}
	return a
}

// Authenticate returns the role of a valid user
func (a *Authenticator) Authenticate(username, password string) (string, error) {
	u, ok := a.users[username]
	if !ok {
		// compare anyway so unknown users take as long as wrong passwords
		subtle.ConstantTimeCompare([]byte(password), dummyPassword)
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(u.Password)) != 1 {
		return "", ErrInvalidCredentials
	}
	return u.Role, nil
}
