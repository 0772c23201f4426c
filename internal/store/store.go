// File: internal/store/store.go

// Package store defines the document-store contract shared by the
// session store and the live collection sync: per-user namespaced
// collections with push-based snapshot subscriptions.
package store

import (
	"context"
	"errors"
)

// Fields is the schemaless field set of a single document.
type Fields map[string]any

// Document is one materialized document inside a snapshot.
type Document struct {
	ID     string
	Fields Fields
}

// Snapshot is a complete, ordered materialization of a collection's
// current contents. Every delivery replaces the previous one wholesale;
// there is no incremental patching.
type Snapshot []Document

// OrderSpec names the field a collection subscription is ordered by.
type OrderSpec struct {
	Field string
	Desc  bool
}

// CancelFunc releases a subscription. After it returns, no further
// delivery reaches the registered callbacks, including batches that were
// in flight at the moment of cancellation.
type CancelFunc func()

// serverTimestampSentinel is unexported so the only valid marker value
// is the package-level ServerTimestamp.
type serverTimestampSentinel struct{}

// ServerTimestamp marks a field to be filled with the backing store's
// clock at write time.
var ServerTimestamp = serverTimestampSentinel{}

// ErrDocNotFound reports an update against an id that does not exist in
// the addressed collection.
var ErrDocNotFound = errors.New("store: document not found")

// Store is the backing-store contract. Collection paths address
// collections ("users/uid1/applications"); document paths address single
// documents ("users/uid1"). Snapshot errors flow through the dedicated
// error callback and never close the subscription.
type Store interface {
	Subscribe(ctx context.Context, path string, order OrderSpec, onNext func(Snapshot), onError func(error)) (CancelFunc, error)
	SubscribeOne(ctx context.Context, path string, onNext func(Fields, bool), onError func(error)) (CancelFunc, error)
	Create(ctx context.Context, path string, fields Fields) (string, error)
	Update(ctx context.Context, path, id string, fields Fields) error
	Delete(ctx context.Context, path, id string) error
	GetOne(ctx context.Context, path string) (Fields, bool, error)
	SetOne(ctx context.Context, path string, fields Fields, merge bool) error
}
