package ecs

// Mask is a bitset of component kinds.
type Mask uint64

func (m Mask) Has(k Kind) bool { return m&(1<<uint(k)) != 0 }

// Aspect selects entities by component presence: every kind in all, none of
// the kinds in exclude.
type Aspect struct {
	all     Mask
	exclude Mask
}

// All builds an aspect requiring every given kind.
func All(kinds ...Kind) Aspect {
	var a Aspect
	for _, k := range kinds {
		a.all |= 1 << uint(k)
	}
	return a
}

// Without returns a copy of a that additionally rejects the given kinds.
func (a Aspect) Without(kinds ...Kind) Aspect {
	for _, k := range kinds {
		a.exclude |= 1 << uint(k)
	}
	return a
}

func (a Aspect) Matches(m Mask) bool {
	return m&a.all == a.all && m&a.exclude == 0
}
