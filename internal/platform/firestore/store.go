// File: internal/platform/firestore/store.go
package firestore

import (
	"context"
	"sync/atomic"

	cf "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

// Store adapts a Firestore client to the document store contract. Each
// subscription runs its own listener goroutine fed by the client's
// snapshot iterator; cancellation stops the iterator and guarantees no
// further callback invocations.
type Store struct {
	client *cf.Client
}

// NewStore wraps an initialized Firestore client.
func NewStore(client *cf.Client) *Store {
	return &Store{client: client}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Subscribe(ctx context.Context, path string, order store.OrderSpec, onNext func(store.Snapshot), onError func(error)) (store.CancelFunc, error) {
	dir := cf.Asc
	if order.Desc {
		dir = cf.Desc
	}
	query := s.client.Collection(path).OrderBy(order.Field, dir)

	ctx, cancel := context.WithCancel(ctx)
	var stopped atomic.Bool
	go func() {
		it := query.Snapshots(ctx)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if stopped.Load() || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			docs, err := qs.Documents.GetAll()
			if err != nil {
				if stopped.Load() {
					return
				}
				if onError != nil {
					onError(err)
				}
				continue
			}
			if stopped.Load() {
				return
			}
			snap := make(store.Snapshot, 0, len(docs))
			for _, d := range docs {
				snap = append(snap, store.Document{ID: d.Ref.ID, Fields: store.Fields(d.Data())})
			}
			onNext(snap)
		}
	}()

	return func() {
		stopped.Store(true)
		cancel()
	}, nil
}

func (s *Store) SubscribeOne(ctx context.Context, path string, onNext func(store.Fields, bool), onError func(error)) (store.CancelFunc, error) {
	ref := s.client.Doc(path)

	ctx, cancel := context.WithCancel(ctx)
	var stopped atomic.Bool
	go func() {
		it := ref.Snapshots(ctx)
		defer it.Stop()
		for {
			ds, err := it.Next()
			if err != nil {
				if stopped.Load() || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(err)
				}
				return
			}
			if stopped.Load() {
				return
			}
			if !ds.Exists() {
				onNext(nil, false)
				continue
			}
			onNext(store.Fields(ds.Data()), true)
		}
	}()

	return func() {
		stopped.Store(true)
		cancel()
	}, nil
}

func (s *Store) Create(ctx context.Context, path string, fields store.Fields) (string, error) {
	ref, _, err := s.client.Collection(path).Add(ctx, translateFields(fields))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *Store) Update(ctx context.Context, path, id string, fields store.Fields) error {
	updates := make([]cf.Update, 0, len(fields))
	for key, value := range fields {
		updates = append(updates, cf.Update{Path: key, Value: translateValue(value)})
	}
	_, err := s.client.Collection(path).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return store.ErrDocNotFound
	}
	return err
}

func (s *Store) Delete(ctx context.Context, path, id string) error {
	_, err := s.client.Collection(path).Doc(id).Delete(ctx)
	return err
}

func (s *Store) GetOne(ctx context.Context, path string) (store.Fields, bool, error) {
	ds, err := s.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return store.Fields(ds.Data()), true, nil
}

func (s *Store) SetOne(ctx context.Context, path string, fields store.Fields, merge bool) error {
	ref := s.client.Doc(path)
	data := translateFields(fields)
	var err error
	if merge {
		_, err = ref.Set(ctx, data, cf.MergeAll)
	} else {
		_, err = ref.Set(ctx, data)
	}
	return err
}

// translateFields rewrites the store's field representation into what
// the Firestore client expects, replacing the server timestamp marker
// with the client's sentinel.
func translateFields(fields store.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = translateValue(value)
	}
	return out
}

func translateValue(v any) any {
	switch val := v.(type) {
	case store.Fields:
		return translateFields(val)
	case map[string]any:
		return translateFields(store.Fields(val))
	default:
		if v == store.ServerTimestamp {
			return cf.ServerTimestamp
		}
		return v
	}
}
