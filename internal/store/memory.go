package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type subscription struct {
	order []Order
	fn    func(Snapshot)
}

// Memory is an in-process Store. Subscribers are called synchronously by
// the writing goroutine after the write is visible, never under the lock.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]map[string]Fields
	versions map[string]uint64
	subs     map[string]map[uint64]*subscription
	nextSub  uint64

	// deliverMu keeps snapshot delivery in version order.
	deliverMu sync.Mutex

	newID func() string
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]map[string]Fields),
		versions: make(map[string]uint64),
		subs:     make(map[string]map[uint64]*subscription),
		newID:    uuid.NewString,
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, order []Order, fn func(Snapshot)) (func(), error) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	sub := &subscription{order: order, fn: fn}
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[uint64]*subscription)
	}
	m.subs[collection][id] = sub
	snap := m.snapshotLocked(collection, order)
	m.mu.Unlock()

	fn(snap)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[collection], id)
			m.mu.Unlock()
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			unsubscribe()
		}()
	}
	return unsubscribe, nil
}

func (m *Memory) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := m.newID()
	m.write(collection, func(coll map[string]Fields) error {
		coll[id] = cloneFields(fields)
		return nil
	})
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields Fields) error {
	return m.UpdateIf(ctx, collection, id, nil, fields)
}

func (m *Memory) UpdateIf(ctx context.Context, collection, id string, expect []Filter, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.write(collection, func(coll map[string]Fields) error {
		current, ok := coll[id]
		if !ok {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		if !matchAll(Document{ID: id, Fields: current}, expect) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
		}
		next := cloneFields(current)
		for k, v := range fields {
			next[k] = v
		}
		coll[id] = next
		return nil
	})
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.write(collection, func(coll map[string]Fields) error {
		if _, ok := coll[id]; !ok {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		delete(coll, id)
		return nil
	})
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.docs[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return Document{ID: id, Fields: cloneFields(f)}, nil
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	docs := make([]Document, 0, len(m.docs[collection]))
	for id, f := range m.docs[collection] {
		d := Document{ID: id, Fields: f}
		if matchAll(d, q.Filters) {
			docs = append(docs, Document{ID: id, Fields: cloneFields(f)})
		}
	}
	m.mu.Unlock()

	sortDocs(docs, q.OrderBy)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// write applies fn under the lock and, when it succeeds, bumps the collection
// version and pushes a snapshot to every subscriber.
func (m *Memory) write(collection string, fn func(map[string]Fields) error) error {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	coll := m.docs[collection]
	if coll == nil {
		coll = make(map[string]Fields)
		m.docs[collection] = coll
	}
	if err := fn(coll); err != nil {
		m.mu.Unlock()
		return err
	}
	m.versions[collection]++

	type delivery struct {
		fn   func(Snapshot)
		snap Snapshot
	}
	var pending []delivery
	for _, sub := range m.subs[collection] {
		pending = append(pending, delivery{fn: sub.fn, snap: m.snapshotLocked(collection, sub.order)})
	}
	m.mu.Unlock()

	for _, d := range pending {
		d.fn(d.snap)
	}
	return nil
}

func (m *Memory) snapshotLocked(collection string, order []Order) Snapshot {
	docs := make([]Document, 0, len(m.docs[collection]))
	for id, f := range m.docs[collection] {
		docs = append(docs, Document{ID: id, Fields: cloneFields(f)})
	}
	sortDocs(docs, order)
	return Snapshot{Collection: collection, Version: m.versions[collection], Docs: docs}
}
