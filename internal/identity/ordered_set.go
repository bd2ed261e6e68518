package identity

import "sort"

// OrderedSet is a keyed set that remembers insertion order and the value
// stored by the first Add of each key. Later Adds of a present key are no-ops.
type OrderedSet[K comparable, V any] struct {
	order []K
	vals  map[K]V
}

func NewOrderedSet[K comparable, V any]() *OrderedSet[K, V] {
	return &OrderedSet[K, V]{vals: make(map[K]V)}
}

// Add stores v under k if k is new. It reports whether the value was stored.
func (s *OrderedSet[K, V]) Add(k K, v V) bool {
	if _, ok := s.vals[k]; ok {
		return false
	}
	s.vals[k] = v
	s.order = append(s.order, k)
	return true
}

func (s *OrderedSet[K, V]) Get(k K) (V, bool) {
	v, ok := s.vals[k]
	return v, ok
}

func (s *OrderedSet[K, V]) Has(k K) bool {
	_, ok := s.vals[k]
	return ok
}

func (s *OrderedSet[K, V]) Len() int { return len(s.order) }

// Keys returns keys in first-insertion order.
func (s *OrderedSet[K, V]) Keys() []K {
	out := make([]K, len(s.order))
	copy(out, s.order)
	return out
}

// SortedKeys returns keys ordered by less; ties keep insertion order.
func (s *OrderedSet[K, V]) SortedKeys(less func(a, b K) bool) []K {
	out := s.Keys()
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
