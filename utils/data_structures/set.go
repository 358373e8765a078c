package data_structures

// Set is not safe for concurrent use
type Set[T comparable] map[T]struct{}

func NewSet[T comparable]() Set[T] {
	return make(Set[T])
}

func NewSetFromList[T comparable](l []T) Set[T] {
	s := make(Set[T], len(l))
	for _, item := range l {
		s[item] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(e T) {
	s[e] = struct{}{}
}

func (s Set[T]) Has(e T) bool {
	_, exists := s[e]
	return exists
}

func (s Set[T]) Remove(e T) {
	delete(s, e)
}

func (s Set[T]) Len() int {
	return len(s)
}

// Slice returns the elements in no particular order
func (s Set[T]) Slice() []T {
	l := make([]T, 0, len(s))
	for item := range s {
		l = append(l, item)
	}
	return l
}
