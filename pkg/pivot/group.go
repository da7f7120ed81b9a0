package pivot

import (
	"fmt"

	"github.com/eunmann/pivotab/pkg/table"
)

// Item is one (header, value) constraint of a group.
type Item struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Group is an ordered set of constraints identifying one row-group or
// col-group, one Item per dimension header.
type Group []Item

// Values returns the group's values in dimension order.
func (g Group) Values() []string {
	out := make([]string, len(g))
	for i, it := range g {
		out[i] = it.Value
	}
	return out
}

// IsWildcard reports whether g is the wildcard group for wkey.
func (g Group) IsWildcard(wkey string) bool {
	return len(g) == 1 && g[0].Name == wkey && g[0].Value == wkey
}

// WildcardGroup returns the group passed to an Aggregator in place of an
// unconstrained dimension.
func WildcardGroup(wkey string) Group {
	return Group{{Name: wkey, Value: wkey}}
}

// GroupKey folds a group's values into one key with agg.Keys. An empty group
// folds to agg.Wildcard().
func GroupKey[T any](g Group, agg Aggregator[T]) string {
	if len(g) == 0 {
		return agg.Wildcard()
	}
	key := g[0].Value
	for _, it := range g[1:] {
		key = agg.Keys(key, it.Value)
	}
	return key
}

// Request names the headers used as row dimensions, column dimensions and
// measures. Either dimension list may be empty.
type Request struct {
	Rows     []string `json:"rows"`
	Cols     []string `json:"cols"`
	Measures []string `json:"measures"`
}

// Validate checks that every header named by r exists in t.
func (r Request) Validate(t *table.Table) error {
	for _, part := range []struct {
		role    string
		headers []string
	}{
		{"row", r.Rows},
		{"col", r.Cols},
		{"measure", r.Measures},
	} {
		for _, h := range part.headers {
			if _, ok := t.Col(h); !ok {
				return fmt.Errorf("%s header: %w", part.role, &table.HeaderError{Name: h})
			}
		}
	}
	return nil
}

// dimension is one resolved dimension header.
type dimension struct {
	name   string
	col    int
	values []string
}

func resolveDimensions(t *table.Table, headers []string) ([]dimension, error) {
	dims := make([]dimension, len(headers))
	for i, h := range headers {
		col, ok := t.Col(h)
		if !ok {
			return nil, &table.HeaderError{Name: h}
		}
		values, err := t.Distinct(h)
		if err != nil {
			return nil, err
		}
		dims[i] = dimension{name: h, col: col, values: values}
	}
	return dims, nil
}

// enumerate returns the Cartesian product of the dimensions' distinct values
// in odometer order, together with each group's constraint columns.
func enumerate(dims []dimension) ([]Group, [][]constraint) {
	limits := make([]int, len(dims))
	for i, d := range dims {
		limits[i] = len(d.values)
	}

	var groups []Group
	var cons [][]constraint
	for tuple := range Tuples(limits) {
		g := make(Group, len(dims))
		c := make([]constraint, len(dims))
		for i, idx := range tuple {
			g[i] = Item{Name: dims[i].name, Value: dims[i].values[idx]}
			c[i] = constraint{col: dims[i].col, value: dims[i].values[idx]}
		}
		groups = append(groups, g)
		cons = append(cons, c)
	}
	return groups, cons
}

// constraint requires the cell at col to equal value.
type constraint struct {
	col   int
	value string
}

func matches(t *table.Table, row int, cons []constraint) bool {
	for _, c := range cons {
		if t.Get(row, c.col) != c.value {
			return false
		}
	}
	return true
}
