// Package collections holds small deterministic ordering and de-duplication
// helpers used when presenting plugin lists.
package collections

import (
	"cmp"
	"reflect"
	"slices"
)

// OrderBy sorts s in place by the key returned from key and returns s.
// The sort is stable, so elements with equal keys keep their relative order.
//
// A key is a scalar (bool, any integer or float kind, string, nil) or a
// []any tuple of scalars. Tuples are compared element by element and the
// first differing position decides. A nil key, or a missing tuple position,
// compares as the zero value of the other side.
func OrderBy[T any](s []T, key func(T) any) []T {
	slices.SortStableFunc(s, func(a, b T) int {
		return Compare(key(a), key(b))
	})
	return s
}

// Compare orders two keys the way OrderBy does. Scalars of different kinds
// are ranked bool < number < string.
func Compare(a, b any) int {
	ta, aTuple := a.([]any)
	tb, bTuple := b.([]any)
	switch {
	case aTuple && bTuple:
		return compareTuples(ta, tb)
	case aTuple && b != nil:
		return compareTuples(ta, []any{b})
	case bTuple && a != nil:
		return compareTuples([]any{a}, tb)
	case aTuple:
		return compareTuples(ta, nil)
	case bTuple:
		return compareTuples(nil, tb)
	}
	return compareScalars(a, b)
}

func compareTuples(a, b []any) int {
	for i := range max(len(a), len(b)) {
		var ea, eb any
		if i < len(a) {
			ea = a[i]
		}
		if i < len(b) {
			eb = b[i]
		}
		if c := Compare(ea, eb); c != 0 {
			return c
		}
	}
	return 0
}

const (
	rankNil = iota
	rankBool
	rankNumber
	rankString
)

type scalar struct {
	s    string
	n    float64
	rank int
	b    bool
}

func toScalar(v any) scalar {
	if v == nil {
		return scalar{rank: rankNil}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return scalar{rank: rankBool, b: rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{rank: rankNumber, n: float64(rv.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return scalar{rank: rankNumber, n: float64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return scalar{rank: rankNumber, n: rv.Float()}
	case reflect.String:
		return scalar{rank: rankString, s: rv.String()}
	}
	return scalar{rank: rankString, s: rv.String()}
}

func compareScalars(a, b any) int {
	sa, sb := toScalar(a), toScalar(b)
	// nil takes the zero value of whatever it is compared with.
	if sa.rank == rankNil {
		sa.rank = sb.rank
	}
	if sb.rank == rankNil {
		sb.rank = sa.rank
	}
	if sa.rank != sb.rank {
		return cmp.Compare(sa.rank, sb.rank)
	}
	switch sa.rank {
	case rankBool:
		switch {
		case sa.b == sb.b:
			return 0
		case !sa.b:
			return -1
		default:
			return 1
		}
	case rankNumber:
		return cmp.Compare(sa.n, sb.n)
	case rankString:
		return cmp.Compare(sa.s, sb.s)
	}
	return 0
}

// Distinct returns the elements of s in first-seen order with later
// duplicates removed.
func Distinct[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DistinctBy is Distinct with a caller-supplied equivalence. Elements are
// scanned left to right and an element is kept only when no element kept
// before it is equivalent to it. eq need not be transitive; the result then
// depends on scan order.
func DistinctBy[T any](s []T, eq func(a, b T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		dup := slices.ContainsFunc(out, func(kept T) bool { return eq(kept, v) })
		if !dup {
			out = append(out, v)
		}
	}
	return out
}
