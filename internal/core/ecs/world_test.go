package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pos struct{ X, Y float32 }
type vel struct{ X, Y float32 }

func newTestWorld() (*World, *ComponentStore[pos], *ComponentStore[vel]) {
	w := NewWorld()
	return w, NewComponentStore[pos](w), NewComponentStore[vel](w)
}

func TestCreateIsInertUntilFlush(t *testing.T) {
	w, p, _ := newTestWorld()
	v := NewView(w, All(p.Kind()))

	id := w.CreateEntity()
	p.Set(id, &pos{X: 1})

	assert.True(t, w.Alive(id))
	assert.False(t, w.Active(id))
	assert.Equal(t, 0, v.Len())

	w.Flush()
	assert.True(t, w.Active(id))
	assert.True(t, v.Contains(id))
}

func TestDestroyIsDeferred(t *testing.T) {
	w, p, _ := newTestWorld()
	v := NewView(w, All(p.Kind()))

	id := w.CreateEntity()
	p.Set(id, &pos{})
	w.Flush()

	w.MarkForDestruction(id)
	assert.True(t, w.Doomed(id))
	assert.True(t, v.Contains(id), "membership only changes at flush")
	_, ok := p.Get(id)
	assert.True(t, ok)

	w.Flush()
	assert.False(t, w.Alive(id))
	assert.False(t, v.Contains(id))
	assert.False(t, p.Has(id))
}

func TestCreateThenDestroyBeforeFlushIsNeverAnnounced(t *testing.T) {
	w, p, _ := newTestWorld()
	rec := &recorder{aspect: All(p.Kind())}
	w.Observe(rec)

	id := w.CreateEntity()
	p.Set(id, &pos{})
	w.MarkForDestruction(id)
	w.Flush()

	assert.Empty(t, rec.added)
	assert.Empty(t, rec.removed)
	assert.Equal(t, 0, w.Len())
}

func TestAspectSelectsByComponentPresence(t *testing.T) {
	w, p, vl := newTestWorld()
	moving := NewView(w, All(p.Kind(), vl.Kind()))
	static := NewView(w, All(p.Kind()).Without(vl.Kind()))

	a := w.CreateEntity()
	p.Set(a, &pos{})
	vl.Set(a, &vel{X: 1})
	b := w.CreateEntity()
	p.Set(b, &pos{})
	w.Flush()

	assert.ElementsMatch(t, []EntityID{a}, moving.Slice())
	assert.ElementsMatch(t, []EntityID{b}, static.Slice())
}

func TestWithOnStaleHandle(t *testing.T) {
	w, p, _ := newTestWorld()
	id := w.CreateEntity()
	p.Set(id, &pos{X: 3})
	w.Flush()

	var got float32
	require.NoError(t, With(w, p, id, func(c *pos) { got = c.X }))
	assert.Equal(t, float32(3), got)

	w.MarkForDestruction(id)
	w.Flush()

	// The index is recycled with a new generation; the old handle stays dead.
	reused := w.CreateEntity()
	p.Set(reused, &pos{X: 9})
	assert.Equal(t, id.Index(), reused.Index())
	assert.NotEqual(t, id, reused)

	err := With(w, p, id, func(*pos) { t.Fatal("stale handle dereferenced") })
	assert.ErrorIs(t, err, ErrEntityGone)
}

func TestMarkForDestructionTwiceIsNoop(t *testing.T) {
	w, p, _ := newTestWorld()
	rec := &recorder{aspect: All(p.Kind())}
	w.Observe(rec)

	id := w.CreateEntity()
	p.Set(id, &pos{})
	w.Flush()
	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	w.Flush()

	assert.Equal(t, []EntityID{id}, rec.removed)
	assert.Equal(t, 0, w.Pool().Len())
}

type recorder struct {
	aspect  Aspect
	added   []EntityID
	removed []EntityID
}

func (r *recorder) Aspect() Aspect        { return r.aspect }
func (r *recorder) OnAdded(id EntityID)   { r.added = append(r.added, id) }
func (r *recorder) OnRemoved(id EntityID) { r.removed = append(r.removed, id) }
