// Package hashset is a small generic set built on a map.
package hashset

type Set[T comparable] map[T]struct{}

func NewSet[T comparable]() Set[T] {
	return map[T]struct{}{}
}

func SetFromSlice[T comparable](vals []T) Set[T] {
	set := make(Set[T], len(vals))
	for _, v := range vals {
		set.Set(v)
	}
	return set
}

func (vs Set[T]) Set(v T) {
	vs[v] = struct{}{}
}

// Add inserts v and reports whether it was not in the set before.
func (vs Set[T]) Add(v T) bool {
	if vs.Has(v) {
		return false
	}
	vs[v] = struct{}{}
	return true
}

func (vs Set[T]) Has(v T) bool {
	_, ok := vs[v]
	return ok
}

// Equal reports whether both sets hold exactly the same values.
func (vs Set[T]) Equal(xs Set[T]) bool {
	if len(vs) != len(xs) {
		return false
	}
	for v := range vs {
		if !xs.Has(v) {
			return false
		}
	}
	return true
}

// Unique returns the values of vals in first-seen order without duplicates.
// Values for which keep returns false are dropped. At most limit values are
// returned; limit <= 0 means no limit.
func Unique[T comparable](vals []T, keep func(T) bool, limit int) []T {
	seen := NewSet[T]()
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		if keep != nil && !keep(v) {
			continue
		}
		if !seen.Add(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
