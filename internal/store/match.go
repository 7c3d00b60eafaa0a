package store

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// compare orders two document values. Numbers compare numerically, strings
// lexically and booleans false before true. A missing value equals the zero
// value of the other side, which makes a nil desk match "".
func compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if isNumber(a) || isNumber(b) {
		x, y := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	if isBool(a) || isBool(b) {
		x, y := cast.ToBool(a), cast.ToBool(b)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (f Filter) match(d Document) bool {
	c := compare(d.Get(f.Field), f.Value)
	switch f.Op {
	case OpEq:
		return c == 0
	case OpNeq:
		return c != 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

func matchAll(d Document, filters []Filter) bool {
	for _, f := range filters {
		if !f.match(d) {
			return false
		}
	}
	return true
}

// sortDocs orders docs by each key in turn, falling back to the id so the
// result is deterministic.
func sortDocs(docs []Document, order []Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			c := compare(docs[i].Get(o.Field), docs[j].Get(o.Field))
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
