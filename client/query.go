package client

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Query baut Query-Strings in Einfügereihenfolge. Nil-Werte und leere
// Strings werden ausgelassen, Slices als wiederholte Schlüssel geschrieben.
type Query struct {
	keys   []string
	values map[string][]string
}

// NewQuery erstellt einen leeren Query.
func NewQuery() *Query {
	return &Query{values: map[string][]string{}}
}

// Set setzt key auf v. Ein erneutes Set ersetzt die Werte, behält aber die Position.
func (q *Query) Set(key string, v interface{}) *Query {
	vals := flatten(v)
	if len(vals) == 0 {
		return q
	}
	if _, ok := q.values[key]; !ok {
		q.keys = append(q.keys, key)
	}
	q.values[key] = vals
	return q
}

func flatten(v interface{}) []string {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []string
		for i := 0; i < rv.Len(); i++ {
			out = append(out, flatten(rv.Index(i).Interface())...)
		}
		return out
	case reflect.String:
		if rv.String() == "" {
			return nil
		}
		return []string{rv.String()}
	}
	return []string{fmt.Sprint(rv.Interface())}
}

// Len liefert die Anzahl der Schlüssel.
func (q *Query) Len() int {
	return len(q.keys)
}

// Encode liefert "?k=v&k=v" oder "" ohne Parameter.
func (q *Query) Encode() string {
	if q == nil || len(q.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range q.keys {
		for _, v := range q.values[k] {
			if b.Len() == 0 {
				b.WriteByte('?')
			} else {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// ListParams sind die Parameter von ListConflicts.
type ListParams struct {
	Page          *int
	PageSize      *int
	YearStart     *int
	YearEnd       *int
	ConflictTypes []string
	MinCasualties *int64
	MaxCasualties *int64
	Region        string
	Search        string
}

// Query serialisiert die Parameter in der festen Reihenfolge, die das
// Backend-Parsing erwartet.
func (p ListParams) Query() *Query {
	return NewQuery().
		Set("page", p.Page).
		Set("page_size", p.PageSize).
		Set("year_start", p.YearStart).
		Set("year_end", p.YearEnd).
		Set("conflict_type", p.ConflictTypes).
		Set("min_casualties", p.MinCasualties).
		Set("max_casualties", p.MaxCasualties).
		Set("region", p.Region).
		Set("search", p.Search)
}

// TimelineParams sind die Parameter von Timeline.
type TimelineParams struct {
	YearStart   *int
	YearEnd     *int
	Granularity string
}

func (p TimelineParams) Query() *Query {
	return NewQuery().
		Set("year_start", p.YearStart).
		Set("year_end", p.YearEnd).
		Set("granularity", p.Granularity)
}
