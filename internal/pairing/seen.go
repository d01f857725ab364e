package pairing

// Seen remembers unordered id pairs. One Seen is scoped to one table.
type Seen struct {
	pairs map[[2]string]struct{}
}

func NewSeen() *Seen {
	return &Seen{pairs: make(map[[2]string]struct{})}
}

// Add records the pair and reports whether it was new.
func (s *Seen) Add(a, b string) bool {
	key := unordered(a, b)
	if _, ok := s.pairs[key]; ok {
		return false
	}
	s.pairs[key] = struct{}{}
	return true
}

func (s *Seen) Has(a, b string) bool {
	_, ok := s.pairs[unordered(a, b)]
	return ok
}

func (s *Seen) Len() int { return len(s.pairs) }

func unordered(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
