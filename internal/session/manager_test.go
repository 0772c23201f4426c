// File: internal/session/manager_test.go
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeAccount struct {
	identity Identity
	password string
}

// fakeProvider is an in-process Provider with email/password accounts
// and synchronous session-change notification.
type fakeProvider struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	listeners []func(*Identity)
	endErr    error
	nextUID   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}}
}

func (p *fakeProvider) CreateAccount(_ context.Context, email, password string) (*Identity, error) {
	p.mu.Lock()
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return nil, common.ErrCredentialTaken
	}
	if len(password) < 6 {
		p.mu.Unlock()
		return nil, common.ErrWeakCredential
	}
	p.nextUID++
	acct := &fakeAccount{
		identity: Identity{UID: "uid-" + email, Email: email},
		password: password,
	}
	p.accounts[email] = acct
	id := acct.identity
	p.mu.Unlock()
	p.notify(&id)
	return &id, nil
}

func (p *fakeProvider) Authenticate(_ context.Context, email, password string) (*Identity, error) {
	p.mu.Lock()
	acct, ok := p.accounts[email]
	if !ok || acct.password != password {
		p.mu.Unlock()
		return nil, common.ErrInvalidCredential
	}
	id := acct.identity
	p.mu.Unlock()
	p.notify(&id)
	return &id, nil
}

func (p *fakeProvider) AuthenticateFederated(_ context.Context, providerName string) (*Identity, error) {
	id := Identity{
		UID:         "uid-" + providerName,
		Email:       providerName + "@example.com",
		DisplayName: "Aryan Bhardwaj",
	}
	p.notify(&id)
	return &id, nil
}

func (p *fakeProvider) EndSession(context.Context) error {
	p.mu.Lock()
	err := p.endErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.notify(nil)
	return nil
}

func (p *fakeProvider) OnSessionChange(fn func(*Identity)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

func (p *fakeProvider) notify(id *Identity) {
	p.mu.Lock()
	listeners := make([]func(*Identity), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(id)
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeProvider, *store.Memory) {
	t.Helper()
	provider := newFakeProvider()
	mem := store.NewMemory()
	mgr := NewManager(provider, mem, zap.NewNop())
	return mgr, provider, mem
}

func TestManagerStartsUnknown(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	assert.Equal(t, StateUnknown, mgr.State())
	assert.Nil(t, mgr.Identity())
	assert.Nil(t, mgr.Profile())
}

func TestSignUpThenSignIn(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	id, err := mgr.SignUp(ctx, "aryan@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, StateAuthenticated, mgr.State())
	require.NotNil(t, mgr.Identity())
	assert.Equal(t, id.UID, mgr.Identity().UID)

	require.NoError(t, mgr.SignOut(ctx))
	assert.Equal(t, StateAnonymous, mgr.State())

	again, err := mgr.SignIn(ctx, "aryan@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, id.UID, again.UID)
	assert.Equal(t, StateAuthenticated, mgr.State())
}

func TestCredentialErrorTaxonomy(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.SignUp(ctx, "dup@example.com", "secret123")
	require.NoError(t, err)

	_, err = mgr.SignUp(ctx, "dup@example.com", "another123")
	assert.ErrorIs(t, err, common.ErrCredentialTaken)

	_, err = mgr.SignUp(ctx, "weak@example.com", "abc")
	assert.ErrorIs(t, err, common.ErrWeakCredential)

	_, err = mgr.SignIn(ctx, "dup@example.com", "wrongpass")
	assert.ErrorIs(t, err, common.ErrInvalidCredential)

	_, err = mgr.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, common.ErrInvalidCredential)
}

func TestDefaultProfileSynthesized(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.SignInWithProvider(ctx, "google")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return mgr.Profile() != nil }, waitFor, tick)
	p := mgr.Profile()
	assert.Equal(t, "Aryan", p.FirstName)
	assert.Equal(t, "Bhardwaj", p.LastName)
	assert.Equal(t, "Job Seeker", p.Role)
	assert.Equal(t, "Ready to land my dream job!", p.Bio)
	assert.Equal(t, "Software Engineer", p.Preferences.TargetRole)
	assert.Equal(t, []string{"Remote"}, p.Preferences.Locations)
	assert.Equal(t, []string{"React", "JavaScript"}, p.Skills)
}

func TestDefaultsDoNotOverwriteCustomizedProfile(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.SignInWithProvider(ctx, "google")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mgr.Profile() != nil }, waitFor, tick)

	bio := "Shipping systems since 2019"
	require.NoError(t, mgr.UpdateProfile(ctx, ProfileUpdate{Bio: &bio}))
	require.Eventually(t, func() bool {
		p := mgr.Profile()
		return p != nil && p.Bio == bio
	}, waitFor, tick)

	require.NoError(t, mgr.SignOut(ctx))
	_, err = mgr.SignInWithProvider(ctx, "google")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return mgr.Profile() != nil }, waitFor, tick)
	assert.Equal(t, bio, mgr.Profile().Bio)
	assert.Equal(t, "Aryan", mgr.Profile().FirstName)
}

func TestSignOutClearsLocallyEvenWhenProviderFails(t *testing.T) {
	mgr, provider, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.SignUp(ctx, "aryan@example.com", "secret123")
	require.NoError(t, err)

	provider.mu.Lock()
	provider.endErr = errors.New("network down")
	provider.mu.Unlock()

	assert.NoError(t, mgr.SignOut(ctx))
	assert.Equal(t, StateAnonymous, mgr.State())
	assert.Nil(t, mgr.Identity())
	assert.Nil(t, mgr.Profile())
}

func TestUpdateProfileAnonymousIsNoop(t *testing.T) {
	mgr, _, mem := newTestManager(t)
	ctx := context.Background()

	role := "Staff Engineer"
	assert.NoError(t, mgr.UpdateProfile(ctx, ProfileUpdate{Role: &role}))

	_, exists, err := mem.GetOne(ctx, "users/uid-aryan@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOnChangeObservesTransitions(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	mgr.OnChange(func(id *Identity) {
		mu.Lock()
		defer mu.Unlock()
		if id == nil {
			seen = append(seen, "signed-out")
		} else {
			seen = append(seen, id.UID)
		}
	})

	_, err := mgr.SignUp(ctx, "aryan@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, mgr.SignOut(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"uid-aryan@example.com", "signed-out"}, seen)
}

func TestDefaultProfileNameSplitting(t *testing.T) {
	p := DefaultProfile(Identity{DisplayName: "Aryan Kumar Bhardwaj"})
	assert.Equal(t, "Aryan", p.FirstName)
	assert.Equal(t, "Kumar Bhardwaj", p.LastName)

	p = DefaultProfile(Identity{DisplayName: "Madonna"})
	assert.Equal(t, "Madonna", p.FirstName)
	assert.Empty(t, p.LastName)

	p = DefaultProfile(Identity{})
	assert.Equal(t, "User", p.FirstName)
}

// capturingDocStore records the document callback per path so a test can
// replay a delivery after the profile subscription is torn down.
type capturingDocStore struct {
	store.Store
	mu      sync.Mutex
	onNexts map[string]func(store.Fields, bool)
}

func (c *capturingDocStore) SubscribeOne(ctx context.Context, path string, onNext func(store.Fields, bool), onError func(error)) (store.CancelFunc, error) {
	c.mu.Lock()
	c.onNexts[path] = onNext
	c.mu.Unlock()
	return c.Store.SubscribeOne(ctx, path, onNext, onError)
}

func TestStaleProfileDeliveryAfterSignOutIsDiscarded(t *testing.T) {
	provider := newFakeProvider()
	cs := &capturingDocStore{Store: store.NewMemory(), onNexts: map[string]func(store.Fields, bool){}}
	mgr := NewManager(provider, cs, zap.NewNop())
	ctx := context.Background()

	id, err := mgr.SignUp(ctx, "aryan@example.com", "secret123")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mgr.Profile() != nil }, waitFor, tick)

	cs.mu.Lock()
	profileNext := cs.onNexts["users/"+id.UID]
	cs.mu.Unlock()
	require.NotNil(t, profileNext)

	require.NoError(t, mgr.SignOut(ctx))
	require.Nil(t, mgr.Profile())

	// A profile snapshot from the previous identity arriving after
	// sign-out must be discarded.
	profileNext(store.Fields{"firstName": "Ghost", "role": "Job Seeker"}, true)
	assert.Nil(t, mgr.Profile())
	assert.Equal(t, StateAnonymous, mgr.State())
}
