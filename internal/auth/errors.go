package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown user and wrong password.
	// The two cases are deliberately indistinguishable so callers cannot
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken covers bad signature, expiry and malformed input
	// alike; the boundary is intentionally not told which one it was.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrMalformedHash indicates a stored credential hash that bcrypt
	// cannot parse. A data-integrity fault, fatal to the request.
	ErrMalformedHash = errors.New("auth: malformed credential hash")
)
