package access

import "context"

// Store describes persistence operations required by the admin surface.
// Grants are owned entirely by this interface; resource tables themselves
// are external collaborators that only consult it.
type Store interface {
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdatePassword(ctx context.Context, userID, credentialHash string) error

	// Grants returns the grant set for a user. Resources without a stored
	// row are absent from the result.
	Grants(ctx context.Context, userID string) (GrantSet, error)

	// ReplaceGrants atomically swaps every grant the user holds for the
	// provided set. Omitted resources lose their grant. A concurrent
	// reader observes either the previous or the new set, never a mix.
	ReplaceGrants(ctx context.Context, userID string, grants GrantSet) error
}
