// File: internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs the test suites and any
// environment running without Firebase credentials. Snapshot delivery is
// asynchronous on a per-subscription goroutine, matching the backing
// store's model of writes and deliveries being independent events.
type Memory struct {
	mu          sync.Mutex
	now         func() time.Time
	collections map[string]map[string]Fields
	subs        map[string][]*memSubscription
	docSubs     map[string][]*memDocSubscription
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		collections: make(map[string]map[string]Fields),
		subs:        make(map[string][]*memSubscription),
		docSubs:     make(map[string][]*memDocSubscription),
	}
}

// SetClock overrides the server clock. Test hook.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

type memSubscription struct {
	order    OrderSpec
	onNext   func(Snapshot)
	next     chan Snapshot
	done     chan struct{}
	closed   sync.Once
	canceled atomic.Bool
}

// push queues a snapshot, replacing any still-undelivered one. Full-state
// snapshots make coalescing lossless: the latest always supersedes.
func (s *memSubscription) push(snap Snapshot) {
	for {
		select {
		case s.next <- snap:
			return
		default:
			select {
			case <-s.next:
			default:
			}
		}
	}
}

func (s *memSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case snap := <-s.next:
			if s.canceled.Load() {
				return
			}
			s.onNext(snap)
		}
	}
}

type memDocSubscription struct {
	onNext   func(Fields, bool)
	next     chan docState
	done     chan struct{}
	closed   sync.Once
	canceled atomic.Bool
}

type docState struct {
	fields Fields
	exists bool
}

func (s *memDocSubscription) push(st docState) {
	for {
		select {
		case s.next <- st:
			return
		default:
			select {
			case <-s.next:
			default:
			}
		}
	}
}

func (s *memDocSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case st := <-s.next:
			if s.canceled.Load() {
				return
			}
			s.onNext(st.fields, st.exists)
		}
	}
}

// Subscribe registers a collection listener. The current snapshot is
// delivered immediately, then again after every change to the collection.
func (m *Memory) Subscribe(ctx context.Context, path string, order OrderSpec, onNext func(Snapshot), onError func(error)) (CancelFunc, error) {
	sub := &memSubscription{
		order:  order,
		onNext: onNext,
		next:   make(chan Snapshot, 1),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.subs[path] = append(m.subs[path], sub)
	// Queue the initial snapshot under the lock so a concurrent write's
	// push cannot be superseded by an older materialization.
	sub.push(m.materializeLocked(path, order))
	m.mu.Unlock()

	go sub.run()

	cancel := func() {
		sub.canceled.Store(true)
		sub.closed.Do(func() { close(sub.done) })
		m.mu.Lock()
		m.subs[path] = removeSub(m.subs[path], sub)
		m.mu.Unlock()
	}
	return cancel, nil
}

// SubscribeOne registers a single-document listener.
func (m *Memory) SubscribeOne(ctx context.Context, path string, onNext func(Fields, bool), onError func(error)) (CancelFunc, error) {
	col, id, err := splitDocPath(path)
	if err != nil {
		return nil, err
	}

	sub := &memDocSubscription{
		onNext: onNext,
		next:   make(chan docState, 1),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.docSubs[path] = append(m.docSubs[path], sub)
	fields, exists := m.collections[col][id]
	sub.push(docState{fields: deepCopyFields(fields), exists: exists})
	m.mu.Unlock()

	go sub.run()

	cancel := func() {
		sub.canceled.Store(true)
		sub.closed.Do(func() { close(sub.done) })
		m.mu.Lock()
		m.docSubs[path] = removeDocSub(m.docSubs[path], sub)
		m.mu.Unlock()
	}
	return cancel, nil
}

// Create inserts a new document with a generated id.
func (m *Memory) Create(ctx context.Context, path string, fields Fields) (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	col := m.collections[path]
	if col == nil {
		col = make(map[string]Fields)
		m.collections[path] = col
	}
	col[id] = m.resolveTimestampsLocked(deepCopyFields(fields))
	m.notifyLocked(path, id)
	m.mu.Unlock()

	return id, nil
}

// Update merges the given fields into an existing document.
func (m *Memory) Update(ctx context.Context, path, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[path][id]
	if !ok {
		return ErrDocNotFound
	}
	for k, v := range m.resolveTimestampsLocked(deepCopyFields(fields)) {
		doc[k] = v
	}
	m.notifyLocked(path, id)
	return nil
}

// Delete removes a document. Deleting an unknown id is reported as
// ErrDocNotFound; callers decide whether that matters.
func (m *Memory) Delete(ctx context.Context, path, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[path][id]; !ok {
		return ErrDocNotFound
	}
	delete(m.collections[path], id)
	m.notifyLocked(path, id)
	return nil
}

// GetOne reads a single document by its document path.
func (m *Memory) GetOne(ctx context.Context, path string) (Fields, bool, error) {
	col, id, err := splitDocPath(path)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.collections[col][id]
	if !ok {
		return nil, false, nil
	}
	return deepCopyFields(fields), true, nil
}

// SetOne writes a single document by its document path. With merge, the
// given fields are layered over whatever exists; without it the document
// is replaced.
func (m *Memory) SetOne(ctx context.Context, path string, fields Fields, merge bool) error {
	col, id, err := splitDocPath(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collections[col]
	if c == nil {
		c = make(map[string]Fields)
		m.collections[col] = c
	}
	resolved := m.resolveTimestampsLocked(deepCopyFields(fields))
	if merge {
		doc := c[id]
		if doc == nil {
			doc = make(Fields)
			c[id] = doc
		}
		for k, v := range resolved {
			doc[k] = v
		}
	} else {
		c[id] = resolved
	}
	m.notifyLocked(col, id)
	return nil
}

// notifyLocked pushes fresh state to every subscription watching the
// changed collection or document. Caller holds m.mu.
func (m *Memory) notifyLocked(colPath, id string) {
	for _, sub := range m.subs[colPath] {
		sub.push(m.materializeLocked(colPath, sub.order))
	}
	docPath := colPath + "/" + id
	if subs := m.docSubs[docPath]; len(subs) > 0 {
		fields, exists := m.collections[colPath][id]
		for _, sub := range subs {
			sub.push(docState{fields: deepCopyFields(fields), exists: exists})
		}
	}
}

func (m *Memory) materializeLocked(path string, order OrderSpec) Snapshot {
	col := m.collections[path]
	snap := make(Snapshot, 0, len(col))
	for id, fields := range col {
		snap = append(snap, Document{ID: id, Fields: deepCopyFields(fields)})
	}
	sort.SliceStable(snap, func(i, j int) bool {
		c := compareValues(snap[i].Fields[order.Field], snap[j].Fields[order.Field])
		if c == 0 {
			return snap[i].ID < snap[j].ID
		}
		if order.Desc {
			return c > 0
		}
		return c < 0
	})
	return snap
}

func (m *Memory) resolveTimestampsLocked(fields Fields) Fields {
	for k, v := range fields {
		if _, ok := v.(serverTimestampSentinel); ok {
			fields[k] = m.now()
		}
	}
	return fields
}

func removeSub(subs []*memSubscription, target *memSubscription) []*memSubscription {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func removeDocSub(subs []*memDocSubscription, target *memDocSubscription) []*memDocSubscription {
	out := subs[:0]
	for _, s := range subs {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// splitDocPath splits "users/uid1/applications/doc1" into the collection
// path and the trailing document id.
func splitDocPath(path string) (col, id string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("store: %q is not a document path", path)
	}
	return path[:idx], path[idx+1:], nil
}

func deepCopyFields(fields Fields) Fields {
	if fields == nil {
		return nil
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return deepCopyFields(t)
	case map[string]any:
		return map[string]any(deepCopyFields(t))
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// compareValues orders heterogeneous field values: nil first, then by
// type-appropriate comparison, falling back to string formatting.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}
