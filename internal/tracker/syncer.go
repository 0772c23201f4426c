// File: internal/tracker/syncer.go
package tracker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/AryanBhardwaj123/placement-tracker/internal/common"
	"github.com/AryanBhardwaj123/placement-tracker/internal/session"
	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

// IdentitySource supplies the session Identity the Syncer scopes its
// collections to. session.Manager satisfies it.
type IdentitySource interface {
	OnChange(fn func(*session.Identity))
	Identity() *session.Identity
}

// Syncer mirrors the signed-in user's applications and interviews from
// the document store and writes mutations through to it. Every
// subscription delivery replaces the corresponding local list
// wholesale; local state is never patched incrementally.
//
// All exported methods are safe for concurrent use.
type Syncer struct {
	store  store.Store
	logger *zap.Logger

	mu         sync.Mutex
	uid        string
	apps       []Application
	interviews []Interview
	loading    bool
	cancels    []store.CancelFunc
	// epoch increments on every identity transition; deliveries tagged
	// with a stale epoch are discarded.
	epoch     uint64
	listeners []func()
	subErr    func(error)
}

// NewSyncer binds a Syncer to the source's identity transitions and
// adopts the identity currently signed in, if any.
func NewSyncer(source IdentitySource, st store.Store, logger *zap.Logger) *Syncer {
	s := &Syncer{
		store:  st,
		logger: logger,
	}
	source.OnChange(s.handleIdentity)
	s.handleIdentity(source.Identity())
	return s
}

// Applications returns the current applications list, newest first.
func (s *Syncer) Applications() []Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Application(nil), s.apps...)
}

// Interviews returns the current interviews list in ascending date
// order.
func (s *Syncer) Interviews() []Interview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Interview(nil), s.interviews...)
}

// Loading reports whether the initial applications snapshot for the
// current identity is still in flight. It is false while signed out.
func (s *Syncer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// OnUpdate registers a callback invoked after every local state change,
// outside the Syncer's lock.
func (s *Syncer) OnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetSubscriptionErrorHandler installs the handler invoked when a
// collection subscription reports a delivery error.
func (s *Syncer) SetSubscriptionErrorHandler(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subErr = fn
}

// AddApplication creates an application for the current identity and
// returns its assigned ID. It is a no-op when signed out.
func (s *Syncer) AddApplication(ctx context.Context, app Application) (string, error) {
	uid := s.currentUID()
	if uid == "" {
		return "", nil
	}
	id, err := s.store.Create(ctx, applicationsPath(uid), app.createFields())
	if err != nil {
		s.logger.Error("Failed to create application", zap.String("uid", uid), zap.Error(err))
		return "", common.ErrWriteFailed.WithDetails(err.Error())
	}
	return id, nil
}

// UpdateApplication applies a partial mutation to one application. It
// is a no-op when signed out or when the update is empty.
func (s *Syncer) UpdateApplication(ctx context.Context, id string, upd ApplicationUpdate) error {
	uid := s.currentUID()
	if uid == "" {
		return nil
	}
	fields := upd.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Update(ctx, applicationsPath(uid), id, fields); err != nil {
		s.logger.Error("Failed to update application", zap.String("uid", uid), zap.String("id", id), zap.Error(err))
		return common.ErrWriteFailed.WithDetails(err.Error())
	}
	return nil
}

// DeleteApplication removes one application. Store failures are logged
// and swallowed; the deletion converges through the next snapshot
// either way.
func (s *Syncer) DeleteApplication(ctx context.Context, id string) {
	uid := s.currentUID()
	if uid == "" {
		return
	}
	if err := s.store.Delete(ctx, applicationsPath(uid), id); err != nil {
		s.logger.Warn("Failed to delete application", zap.String("uid", uid), zap.String("id", id), zap.Error(err))
	}
}

// AddInterview creates an interview for the current identity and
// returns its assigned ID. It is a no-op when signed out.
func (s *Syncer) AddInterview(ctx context.Context, iv Interview) (string, error) {
	uid := s.currentUID()
	if uid == "" {
		return "", nil
	}
	id, err := s.store.Create(ctx, interviewsPath(uid), iv.createFields())
	if err != nil {
		s.logger.Error("Failed to create interview", zap.String("uid", uid), zap.Error(err))
		return "", common.ErrWriteFailed.WithDetails(err.Error())
	}
	return id, nil
}

// UpdateInterview applies a partial mutation to one interview. It is a
// no-op when signed out or when the update is empty.
func (s *Syncer) UpdateInterview(ctx context.Context, id string, upd InterviewUpdate) error {
	uid := s.currentUID()
	if uid == "" {
		return nil
	}
	fields := upd.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := s.store.Update(ctx, interviewsPath(uid), id, fields); err != nil {
		s.logger.Error("Failed to update interview", zap.String("uid", uid), zap.String("id", id), zap.Error(err))
		return common.ErrWriteFailed.WithDetails(err.Error())
	}
	return nil
}

// DeleteInterview removes one interview. Store failures are logged and
// swallowed.
func (s *Syncer) DeleteInterview(ctx context.Context, id string) {
	uid := s.currentUID()
	if uid == "" {
		return
	}
	if err := s.store.Delete(ctx, interviewsPath(uid), id); err != nil {
		s.logger.Warn("Failed to delete interview", zap.String("uid", uid), zap.String("id", id), zap.Error(err))
	}
}

func (s *Syncer) currentUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uid
}

// handleIdentity is the single transition point for identity changes.
// It tears down the previous subscriptions, clears local state, and
// binds to the new identity's collections.
func (s *Syncer) handleIdentity(id *session.Identity) {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.epoch++
	epoch := s.epoch
	s.apps = nil
	s.interviews = nil
	if id == nil {
		s.uid = ""
		s.loading = false
		s.mu.Unlock()
		s.notifyUpdate()
		return
	}
	s.uid = id.UID
	s.loading = true
	s.mu.Unlock()

	s.bind(epoch, id.UID)
	s.notifyUpdate()
}

func (s *Syncer) bind(epoch uint64, uid string) {
	appsCancel, err := s.store.Subscribe(context.Background(), applicationsPath(uid),
		store.OrderSpec{Field: "createdAt", Desc: true},
		s.onApplications(epoch), s.onSubscriptionError(epoch, "applications"))
	if err != nil {
		s.logger.Error("Failed to subscribe to applications", zap.String("uid", uid), zap.Error(err))
		s.reportSubscriptionError(err)
		return
	}
	ivCancel, err := s.store.Subscribe(context.Background(), interviewsPath(uid),
		store.OrderSpec{Field: "date", Desc: false},
		s.onInterviews(epoch), s.onSubscriptionError(epoch, "interviews"))
	if err != nil {
		s.logger.Error("Failed to subscribe to interviews", zap.String("uid", uid), zap.Error(err))
		s.reportSubscriptionError(err)
		appsCancel()
		return
	}

	s.mu.Lock()
	if epoch == s.epoch {
		s.cancels = append(s.cancels, appsCancel, ivCancel)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// Identity changed while binding.
	appsCancel()
	ivCancel()
}

func (s *Syncer) onApplications(epoch uint64) func(store.Snapshot) {
	return func(snap store.Snapshot) {
		apps := make([]Application, 0, len(snap))
		for _, doc := range snap {
			apps = append(apps, applicationFromDoc(doc))
		}
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return
		}
		s.apps = apps
		s.loading = false
		s.mu.Unlock()
		s.notifyUpdate()
	}
}

func (s *Syncer) onInterviews(epoch uint64) func(store.Snapshot) {
	return func(snap store.Snapshot) {
		ivs := make([]Interview, 0, len(snap))
		for _, doc := range snap {
			ivs = append(ivs, interviewFromDoc(doc))
		}
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return
		}
		s.interviews = ivs
		s.mu.Unlock()
		s.notifyUpdate()
	}
}

func (s *Syncer) onSubscriptionError(epoch uint64, collection string) func(error) {
	return func(err error) {
		s.mu.Lock()
		if epoch != s.epoch {
			s.mu.Unlock()
			return
		}
		if collection == "applications" {
			// A broken applications feed will never confirm, so stop
			// gating consumers on it.
			s.loading = false
		}
		s.mu.Unlock()
		s.logger.Error("Collection subscription error", zap.String("collection", collection), zap.Error(err))
		s.reportSubscriptionError(err)
		if collection == "applications" {
			s.notifyUpdate()
		}
	}
}

func (s *Syncer) reportSubscriptionError(err error) {
	s.mu.Lock()
	fn := s.subErr
	s.mu.Unlock()
	if fn != nil {
		fn(common.ErrSubscription.WithDetails(err.Error()))
	}
}

func (s *Syncer) notifyUpdate() {
	s.mu.Lock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func applicationsPath(uid string) string {
	return "users/" + uid + "/applications"
}

func interviewsPath(uid string) string {
	return "users/" + uid + "/interviews"
}
