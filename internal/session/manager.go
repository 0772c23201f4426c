// File: internal/session/manager.go
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

// State is the session lifecycle state.
type State int

const (
	// StateUnknown holds from construction until the provider reports the
	// initial session state.
	StateUnknown State = iota
	// StateAnonymous means no session is active.
	StateAnonymous
	// StateAuthenticated means a session is active; the profile
	// subscription is live (the Profile itself may still be in flight).
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Manager tracks the current session and keeps the signed-in Identity's
// Profile continuously synchronized from the document store. All
// exported methods are safe for concurrent use.
type Manager struct {
	provider Provider
	store    store.Store
	logger   *zap.Logger

	mu            sync.Mutex
	state         State
	identity      *Identity
	profile       *Profile
	cancelProfile store.CancelFunc
	// epoch increments on every session transition; deliveries and
	// subscription handles tagged with a stale epoch are discarded.
	epoch     uint64
	listeners []func(*Identity)
	subErr    func(error)
}

// NewManager wires a Manager to the provider's session transitions.
// The returned Manager stays in StateUnknown until the provider reports
// the initial session state.
func NewManager(provider Provider, st store.Store, logger *zap.Logger) *Manager {
	m := &Manager{
		provider: provider,
		store:    st,
		logger:   logger,
	}
	provider.OnSessionChange(m.applySession)
	return m
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the current Identity, or nil when no
// session is active.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// Profile returns a copy of the current Profile, or nil when it has not
// arrived yet or no session is active.
func (m *Manager) Profile() *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// OnChange registers a callback observing session transitions. A nil
// Identity means the session ended. Callbacks run outside the Manager's
// lock, in registration order.
func (m *Manager) OnChange(fn func(*Identity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetSubscriptionErrorHandler installs the handler invoked when the
// profile subscription reports a delivery error.
func (m *Manager) SetSubscriptionErrorHandler(fn func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subErr = fn
}

// SignUp registers a new email/password account and starts a session
// for it. Profile creation is the caller's follow-up via CreateProfile;
// otherwise defaults are synthesized on the next sign-in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	return m.provider.CreateAccount(ctx, email, password)
}

// SignIn starts a session for an existing email/password account.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	return m.provider.Authenticate(ctx, email, password)
}

// SignInWithProvider starts a session through a federated identity
// provider such as "google".
func (m *Manager) SignInWithProvider(ctx context.Context, providerName string) (*Identity, error) {
	return m.provider.AuthenticateFederated(ctx, providerName)
}

// SignOut ends the current session. Local state is cleared immediately,
// before the provider call, so the caller always observes an anonymous
// session afterwards; a provider failure is logged, never returned.
func (m *Manager) SignOut(ctx context.Context) error {
	m.applySession(nil)
	if err := m.provider.EndSession(ctx); err != nil {
		m.logger.Warn("Provider sign-out failed after local teardown", zap.Error(err))
	}
	return nil
}

// CreateProfile writes the full Profile document for the current
// Identity, replacing any existing one. It is the explicit follow-up to
// SignUp.
func (m *Manager) CreateProfile(ctx context.Context, p Profile) error {
	m.mu.Lock()
	id := m.identity
	m.mu.Unlock()
	if id == nil {
		return nil
	}
	if err := m.store.SetOne(ctx, profilePath(id.UID), profileFields(p), false); err != nil {
		m.logger.Error("Failed to create profile document", zap.String("uid", id.UID), zap.Error(err))
		return common.ErrPersistence.WithDetails(err.Error())
	}
	return nil
}

// UpdateProfile applies a partial mutation to the current Profile with
// merge semantics. It is a no-op when no session is active.
func (m *Manager) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	m.mu.Lock()
	id := m.identity
	m.mu.Unlock()
	if id == nil {
		return nil
	}
	fields := upd.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := m.store.SetOne(ctx, profilePath(id.UID), fields, true); err != nil {
		m.logger.Error("Failed to update profile document", zap.String("uid", id.UID), zap.Error(err))
		return common.ErrPersistence.WithDetails(err.Error())
	}
	return nil
}

// applySession is the single transition point for session state. It
// tears down the previous profile subscription, bumps the epoch, and
// starts a new subscription when an Identity is present.
func (m *Manager) applySession(id *Identity) {
	m.mu.Lock()
	if id == nil && m.state == StateAnonymous {
		// Already torn down; the provider echoing the sign-out is not a
		// new transition.
		m.mu.Unlock()
		return
	}
	if m.cancelProfile != nil {
		m.cancelProfile()
		m.cancelProfile = nil
	}
	m.epoch++
	epoch := m.epoch
	m.profile = nil
	if id == nil {
		m.identity = nil
		m.state = StateAnonymous
	} else {
		idCopy := *id
		m.identity = &idCopy
		m.state = StateAuthenticated
	}
	listeners := make([]func(*Identity), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if id != nil {
		m.subscribeProfile(epoch, *id)
	}
	for _, fn := range listeners {
		fn(id)
	}
}

func (m *Manager) subscribeProfile(epoch uint64, id Identity) {
	cancel, err := m.store.SubscribeOne(context.Background(), profilePath(id.UID),
		m.onProfileSnapshot(epoch, id), m.onProfileError(epoch))
	if err != nil {
		m.logger.Error("Failed to subscribe to profile document", zap.String("uid", id.UID), zap.Error(err))
		m.reportSubscriptionError(err)
		return
	}
	m.mu.Lock()
	if epoch == m.epoch {
		m.cancelProfile = cancel
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	// Session changed while subscribing.
	cancel()
}

func (m *Manager) onProfileSnapshot(epoch uint64, id Identity) func(store.Fields, bool) {
	return func(fields store.Fields, exists bool) {
		m.mu.Lock()
		if epoch != m.epoch {
			m.mu.Unlock()
			return
		}
		if exists {
			p := profileFromFields(fields)
			m.profile = &p
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		// First sign-in without a stored Profile: synthesize defaults with
		// a merge write so a concurrent explicit creation wins on the
		// fields it set. The subscription redelivers the stored result.
		def := DefaultProfile(id)
		if err := m.store.SetOne(context.Background(), profilePath(id.UID), profileFields(def), true); err != nil {
			m.logger.Error("Failed to synthesize default profile", zap.String("uid", id.UID), zap.Error(err))
			return
		}
		m.logger.Info("Synthesized default profile", zap.String("uid", id.UID))
		m.mu.Lock()
		if epoch == m.epoch && m.profile == nil {
			m.profile = &def
		}
		m.mu.Unlock()
	}
}

func (m *Manager) onProfileError(epoch uint64) func(error) {
	return func(err error) {
		m.mu.Lock()
		stale := epoch != m.epoch
		m.mu.Unlock()
		if stale {
			return
		}
		m.logger.Error("Profile subscription error", zap.Error(err))
		m.reportSubscriptionError(err)
	}
}

func (m *Manager) reportSubscriptionError(err error) {
	m.mu.Lock()
	fn := m.subErr
	m.mu.Unlock()
	if fn != nil {
		fn(common.ErrSubscription.WithDetails(err.Error()))
	}
}

func profilePath(uid string) string {
	return "users/" + uid
}
