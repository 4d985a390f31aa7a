package system

import (
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/service"
)

// PairInteraction is applied to two overlapping entities: a matches the
// rule's first aspect and b its second.
type PairInteraction interface {
	Apply(s *service.Services, a, b ecs.EntityID)
}

// PairFunc adapts a function to PairInteraction.
type PairFunc func(s *service.Services, a, b ecs.EntityID)

func (f PairFunc) Apply(s *service.Services, a, b ecs.EntityID) { f(s, a, b) }

// OverlapFunc decides whether two entities touch.
type OverlapFunc func(s *service.Services, a, b ecs.EntityID) bool

// CircleOverlap tests the Shape radii of two positioned entities.
func CircleOverlap(s *service.Services, a, b ecs.EntityID) bool {
	pa, ok1 := s.C.Position.Get(a)
	pb, ok2 := s.C.Position.Get(b)
	sa, ok3 := s.C.Shape.Get(a)
	sb, ok4 := s.C.Shape.Get(b)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return pa.P.Dist(pb.P) < sa.Radius+sb.Radius
}

type pairRule struct {
	a, b  *ecs.View
	apply PairInteraction
}

type pairKey struct {
	rule   int
	lo, hi ecs.EntityID
}

// InteractionSystem fires pair rules for overlapping entities. Each unordered
// pair fires a given rule at most once per tick, and entities queued for
// destruction take no further part. Phase 6 (Interaction).
type InteractionSystem struct {
	s       *service.Services
	rules   []pairRule
	views   map[ecs.Aspect]*ecs.View
	overlap OverlapFunc
	fired   map[pairKey]struct{}
}

func NewInteractionSystem(s *service.Services) *InteractionSystem {
	return &InteractionSystem{
		s:       s,
		views:   make(map[ecs.Aspect]*ecs.View),
		overlap: CircleOverlap,
		fired:   make(map[pairKey]struct{}),
	}
}

func (sys *InteractionSystem) Phase() coresys.Phase { return coresys.PhaseInteraction }

// Add registers a rule. Rules must be added before the first flush so their
// views see every entity.
func (sys *InteractionSystem) Add(a, b ecs.Aspect, rule PairInteraction) {
	sys.rules = append(sys.rules, pairRule{a: sys.view(a), b: sys.view(b), apply: rule})
}

// SetOverlap replaces the overlap predicate.
func (sys *InteractionSystem) SetOverlap(fn OverlapFunc) {
	sys.overlap = fn
}

func (sys *InteractionSystem) view(a ecs.Aspect) *ecs.View {
	if v, ok := sys.views[a]; ok {
		return v
	}
	v := ecs.NewView(sys.s.World, a)
	sys.views[a] = v
	return v
}

func (sys *InteractionSystem) Update(_ time.Duration) {
	clear(sys.fired)
	for i, r := range sys.rules {
		as := r.a.Slice()
		bs := r.b.Slice()
		for _, a := range as {
			for _, b := range bs {
				if a == b {
					continue
				}
				if !sys.s.Usable(a) {
					break
				}
				if !sys.s.Usable(b) {
					continue
				}
				key := pairKey{rule: i, lo: min(a, b), hi: max(a, b)}
				if _, ok := sys.fired[key]; ok {
					continue
				}
				if !sys.overlap(sys.s, a, b) {
					continue
				}
				sys.fired[key] = struct{}{}
				r.apply.Apply(sys.s, a, b)
			}
		}
	}
}
