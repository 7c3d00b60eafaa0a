package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// PocketBase keeps documents as records of PocketBase collections. Realtime
// snapshots are fed by the app's record success hooks, so writes made through
// the admin UI or the REST API reach subscribers as well.
type PocketBase struct {
	app core.App

	mu       sync.Mutex
	subs     map[string]map[uint64]*subscription
	versions map[string]uint64
	hooked   map[string]bool
	nextSub  uint64

	deliverMu sync.Mutex
}

func NewPocketBase(app core.App) *PocketBase {
	return &PocketBase{
		app:      app,
		subs:     make(map[string]map[uint64]*subscription),
		versions: make(map[string]uint64),
		hooked:   make(map[string]bool),
	}
}

func (p *PocketBase) Subscribe(ctx context.Context, collection string, order []Order, fn func(Snapshot)) (func(), error) {
	if _, err := p.app.FindCollectionByNameOrId(collection); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	p.mu.Lock()
	if !p.hooked[collection] {
		p.bindHooks(collection)
		p.hooked[collection] = true
	}
	p.nextSub++
	id := p.nextSub
	if p.subs[collection] == nil {
		p.subs[collection] = make(map[uint64]*subscription)
	}
	p.subs[collection][id] = &subscription{order: order, fn: fn}
	p.mu.Unlock()

	if err := p.deliver(collection, false); err != nil {
		p.mu.Lock()
		delete(p.subs[collection], id)
		p.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs[collection], id)
			p.mu.Unlock()
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

func (p *PocketBase) bindHooks(collection string) {
	changed := func(e *core.RecordEvent) error {
		if err := p.deliver(collection, true); err != nil {
			p.app.Logger().Error("store: snapshot delivery failed", "collection", collection, "error", err)
		}
		return e.Next()
	}
	p.app.OnRecordAfterCreateSuccess(collection).BindFunc(changed)
	p.app.OnRecordAfterUpdateSuccess(collection).BindFunc(changed)
	p.app.OnRecordAfterDeleteSuccess(collection).BindFunc(changed)
}

// deliver reads the collection once per distinct subscriber ordering and
// pushes the result. Reads and version bumps happen under deliverMu, so a
// higher version never carries older data.
func (p *PocketBase) deliver(collection string, bump bool) error {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if bump {
		p.versions[collection]++
	}
	version := p.versions[collection]
	subs := make([]*subscription, 0, len(p.subs[collection]))
	for _, s := range p.subs[collection] {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	cache := make(map[string][]Document)
	for _, s := range subs {
		sortExpr := sortExpression(s.order)
		docs, ok := cache[sortExpr]
		if !ok {
			var err error
			docs, err = p.find(p.app, collection, Query{OrderBy: s.order})
			if err != nil {
				return err
			}
			cache[sortExpr] = docs
		}
		s.fn(Snapshot{Collection: collection, Version: version, Docs: docs})
	}
	return nil
}

func (p *PocketBase) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	coll, err := p.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	rec := core.NewRecord(coll)
	for k, v := range fields {
		rec.Set(k, v)
	}
	if err := p.app.SaveWithContext(ctx, rec); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return rec.Id, nil
}

func (p *PocketBase) Update(ctx context.Context, collection, id string, fields Fields) error {
	rec, err := p.findByID(p.app, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		rec.Set(k, v)
	}
	if err := p.app.SaveWithContext(ctx, rec); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *PocketBase) UpdateIf(ctx context.Context, collection, id string, expect []Filter, fields Fields) error {
	return p.app.RunInTransaction(func(txApp core.App) error {
		rec, err := p.findByID(txApp, collection, id)
		if err != nil {
			return err
		}
		if !matchAll(recordDocument(rec), expect) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
		}
		for k, v := range fields {
			rec.Set(k, v)
		}
		if err := txApp.SaveWithContext(ctx, rec); err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		return nil
	})
}

func (p *PocketBase) Delete(ctx context.Context, collection, id string) error {
	rec, err := p.findByID(p.app, collection, id)
	if err != nil {
		return err
	}
	if err := p.app.DeleteWithContext(ctx, rec); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *PocketBase) Get(ctx context.Context, collection, id string) (Document, error) {
	rec, err := p.findByID(p.app, collection, id)
	if err != nil {
		return Document{}, err
	}
	return recordDocument(rec), nil
}

func (p *PocketBase) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.find(p.app, collection, q)
}

func (p *PocketBase) find(app core.App, collection string, q Query) ([]Document, error) {
	filter, params := filterExpression(q.Filters)
	records, err := app.FindRecordsByFilter(collection, filter, sortExpression(q.OrderBy), q.Limit, 0, params)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		docs = append(docs, recordDocument(rec))
	}
	return docs, nil
}

func (p *PocketBase) findByID(app core.App, collection, id string) (*core.Record, error) {
	rec, err := app.FindRecordById(collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

func recordDocument(rec *core.Record) Document {
	data := rec.FieldsData()
	delete(data, "id")
	return Document{ID: rec.Id, Fields: data}
}

// filterExpression renders filters as a PocketBase filter with bound
// placeholders. An empty filter set matches every record.
//
// PocketBase only reads the literal '' as "empty or null", a bound empty
// string matches nothing. Equality against the zero value is therefore
// written out literally.
func filterExpression(filters []Filter) (string, dbx.Params) {
	params := dbx.Params{}
	if len(filters) == 0 {
		return "id != ''", params
	}
	parts := make([]string, 0, len(filters))
	for i, f := range filters {
		if (f.Op == OpEq || f.Op == OpNeq) && isEmpty(f.Value) {
			parts = append(parts, fmt.Sprintf("%s %s ''", f.Field, f.Op))
			continue
		}
		name := fmt.Sprintf("p%d", i)
		parts = append(parts, fmt.Sprintf("%s %s {:%s}", f.Field, f.Op, name))
		params[name] = f.Value
	}
	return strings.Join(parts, " && "), params
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func sortExpression(order []Order) string {
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if o.Desc {
			parts = append(parts, "-"+o.Field)
		} else {
			parts = append(parts, o.Field)
		}
	}
	return strings.Join(parts, ",")
}
