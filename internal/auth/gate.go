package auth

import (
	"context"
	"errors"
	"time"

	"hal9001.dev/internal/access"
)

// dummyHash is compared against when the user lookup misses, so a failed
// login costs one bcrypt verification either way.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// UserSource is the user lookup the gate authenticates against.
type UserSource interface {
	FindUserByEmail(ctx context.Context, email string) (*access.User, error)
}

// Gate establishes who is calling. It composes the user lookup, credential
// verification and the token service; operation-level authorization stays
// with the resource handlers.
type Gate struct {
	users  UserSource
	tokens *TokenService
}

func NewGate(users UserSource, tokens *TokenService) *Gate {
	return &Gate{users: users, tokens: tokens}
}

// Authenticate verifies the email/password pair and issues a bearer token.
// Unknown user and wrong password both come back as ErrInvalidCredentials.
func (g *Gate) Authenticate(ctx context.Context, email, password string) (string, time.Time, error) {
	user, err := g.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			_, _ = VerifyPassword(dummyHash, password)
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}

	ok, err := VerifyPassword(user.CredentialHash, password)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}

	return g.tokens.Issue(user.ID, 0)
}

// Authorize validates a presented bearer token and returns its subject.
func (g *Gate) Authorize(token string) (string, error) {
	return g.tokens.Validate(token)
}
