package utils

// KeySet is an insertion-ordered set of string keys.
// It is not safe for concurrent use.
type KeySet struct {
	seen  map[string]struct{}
	order []string
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet) Add(key string) bool {
	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
	return true
}

// Contains returns true if the key has already been added.
func (s *KeySet) Contains(key string) bool {
	_, exists := s.seen[key]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *KeySet) Size() int {
	return len(s.order)
}

// Keys returns the keys in first-insertion order.
func (s *KeySet) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
