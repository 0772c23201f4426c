// File: internal/session/provider.go
package session

import "context"

// Provider is the authentication backend. Implementations must invoke
// every callback registered through OnSessionChange whenever the
// current session starts or ends, including transitions they initiate
// themselves (a successful Authenticate, an expired token, EndSession).
//
// Errors returned by Provider methods are expected to already carry the
// common API error taxonomy (credential taken, weak credential, invalid
// credential) so callers can surface them unchanged.
type Provider interface {
	// CreateAccount registers a new email/password account and starts a
	// session for it. It does not create a Profile document.
	CreateAccount(ctx context.Context, email, password string) (*Identity, error)

	// Authenticate starts a session for an existing email/password account.
	Authenticate(ctx context.Context, email, password string) (*Identity, error)

	// AuthenticateFederated starts a session through a federated identity
	// provider such as "google".
	AuthenticateFederated(ctx context.Context, providerName string) (*Identity, error)

	// EndSession terminates the current session.
	EndSession(ctx context.Context) error

	// OnSessionChange registers a callback observing session transitions.
	// A nil Identity means the session ended.
	OnSessionChange(fn func(*Identity))
}
