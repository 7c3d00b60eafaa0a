// Package store is the document persistence layer behind the queue engine.
// A store holds named collections of schemaless documents, answers bounded
// queries over them and pushes a full ordered snapshot of a collection to its
// subscribers every time the collection changes.
package store

import (
	"context"
	"errors"
)

const (
	CollectionQueue   = "queue"
	CollectionHistory = "queueHistory"
	CollectionUsers   = "users"
)

var (
	ErrNotFound = errors.New("store: document not found")
	// ErrConflict is returned by UpdateIf when the document no longer
	// matches the expected state.
	ErrConflict = errors.New("store: document changed concurrently")
)

// Fields is a partial or full document body.
type Fields map[string]any

type Document struct {
	ID     string
	Fields Fields
}

func (d Document) Get(field string) any {
	if field == "id" {
		return d.ID
	}
	return d.Fields[field]
}

type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "!="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter  { return Filter{Field: field, Op: OpEq, Value: v} }
func Neq(field string, v any) Filter { return Filter{Field: field, Op: OpNeq, Value: v} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v any) Filter  { return Filter{Field: field, Op: OpLt, Value: v} }

type Order struct {
	Field string
	Desc  bool
}

func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

type Query struct {
	Filters []Filter
	OrderBy []Order
	// Limit of 0 returns every match.
	Limit int
}

// Snapshot is the full, ordered content of a collection at one point in
// time. Version increases with every change to the collection, so a
// consumer can drop snapshots that arrive out of order.
type Snapshot struct {
	Collection string
	Version    uint64
	Docs       []Document
}

type Store interface {
	// Subscribe delivers the current snapshot before returning and a new
	// one after every change. Delivery stops when the returned func is
	// called or ctx is done.
	Subscribe(ctx context.Context, collection string, order []Order, fn func(Snapshot)) (func(), error)
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	// UpdateIf applies fields only when the stored document matches every
	// expect filter, atomically with respect to other writers.
	UpdateIf(ctx context.Context, collection, id string, expect []Filter, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
}
