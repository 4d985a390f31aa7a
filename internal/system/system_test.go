package system

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/data"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tick = time.Second / 64

func newTestWorld(t *testing.T, players ...proto.PlayerID) (*service.Services, *Systems) {
	t.Helper()
	m := data.NewEmptyMap("test", 32, 32, 32, 32)
	s := service.New(m, tick, rand.New(rand.NewPCG(7, 11)), zap.NewNop())
	sys := New(s)
	require.NoError(t, s.PrepareForTick(1, players))
	return s, sys
}

func place(s *service.Services, typ proto.EntityTypeID, owner proto.PlayerID, at mathx.Vec2) ecs.EntityID {
	e := s.BuildNet(typ, owner)
	if pos, ok := s.C.Position.Get(e); ok {
		pos.P = at
	}
	return e
}

func eventsOf[T proto.GameEvent](events []proto.GameEvent) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func TestPairRuleFiresOncePerTick(t *testing.T) {
	s, _ := newTestWorld(t)
	inter := NewInteractionSystem(s)
	calls := 0
	inter.Add(bouncyAspect(s), bouncyAspect(s), PairFunc(func(*service.Services, ecs.EntityID, ecs.EntityID) {
		calls++
	}))

	place(s, entity.TypeBouncyEnemy, 0, mathx.V(100, 100))
	place(s, entity.TypeBouncyEnemy, 0, mathx.V(105, 100))
	s.World.Flush()

	inter.Update(tick)
	assert.Equal(t, 1, calls)
	inter.Update(tick)
	assert.Equal(t, 2, calls)
}

func TestPairRuleFiresAgainAfterSeparating(t *testing.T) {
	s, _ := newTestWorld(t)
	inter := NewInteractionSystem(s)
	inter.Add(bouncyAspect(s), bouncyAspect(s), PairFunc(func(s *service.Services, _, _ ecs.EntityID) {
		s.AddEvent(proto.PlayerDied{PlayerID: 1, Reason: proto.DeathBouncyBall})
	}))

	a := place(s, entity.TypeBouncyEnemy, 0, mathx.V(100, 100))
	b := place(s, entity.TypeBouncyEnemy, 0, mathx.V(105, 100))
	s.World.Flush()
	s.Events.TakeLog()

	inter.Update(tick)
	assert.Len(t, eventsOf[proto.PlayerDied](s.Events.TakeLog()), 1)

	pb, _ := s.C.Position.Get(b)
	pb.P = mathx.V(300, 300)
	inter.Update(tick)
	inter.Update(tick)
	assert.Empty(t, eventsOf[proto.PlayerDied](s.Events.TakeLog()))

	pa, _ := s.C.Position.Get(a)
	pb.P = mathx.V(pa.P.X, pa.P.Y+5)
	inter.Update(tick)
	assert.Len(t, eventsOf[proto.PlayerDied](s.Events.TakeLog()), 1)
}

func TestPairRuleSkipsDoomedEntities(t *testing.T) {
	s, _ := newTestWorld(t)
	inter := NewInteractionSystem(s)
	calls := 0
	inter.Add(bouncyAspect(s), bouncyAspect(s), PairFunc(func(*service.Services, ecs.EntityID, ecs.EntityID) {
		calls++
	}))

	a := place(s, entity.TypeBouncyEnemy, 0, mathx.V(100, 100))
	place(s, entity.TypeBouncyEnemy, 0, mathx.V(105, 100))
	s.World.Flush()
	s.RemoveNet(a)

	inter.Update(tick)
	assert.Zero(t, calls)
}

func TestProjectileHittingTwoWallsImpactsOnce(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	w1 := place(s, entity.TypeWallWood, 0, mathx.Vec2{})
	w2 := place(s, entity.TypeWallWood, 0, mathx.Vec2{})
	wp1, _ := s.C.WallPosition.Get(w1)
	*wp1 = proto.WallPosition{A: mathx.V(200, 0), B: mathx.V(200, 400)}
	wp2, _ := s.C.WallPosition.Get(w2)
	*wp2 = proto.WallPosition{A: mathx.V(0, 200), B: mathx.V(400, 200)}

	bullet := place(s, entity.TypeBullet, 1, mathx.V(201, 201))
	s.World.Flush()
	s.Events.Take(1)
	s.Events.TakeLog()

	sys.Walls.Update(tick)

	log := s.Events.TakeLog()
	assert.Len(t, eventsOf[proto.ProjectileImpact](log), 1)
	assert.Len(t, eventsOf[proto.RemoveEntity](log), 1)
	assert.True(t, s.World.Doomed(bullet))

	netID, ok := s.NetID(bullet)
	require.True(t, ok)
	s.World.Flush()
	assert.False(t, s.World.Alive(bullet))
	full, _ := sys.Net.Snapshot()
	assert.NotContains(t, full.Entities(), netID)
}

func TestBouncyFlipsOffWall(t *testing.T) {
	s, sys := newTestWorld(t)
	w := place(s, entity.TypeWallWood, 0, mathx.Vec2{})
	wp, _ := s.C.WallPosition.Get(w)
	*wp = proto.WallPosition{A: mathx.V(100, 0), B: mathx.V(100, 400)}

	ball := place(s, entity.TypeBouncyEnemy, 0, mathx.V(90, 200))
	vel, _ := s.C.LinearVelocity.Get(ball)
	vel.V = mathx.V(50, 0)
	s.World.Flush()

	sys.Walls.Update(tick)

	assert.Less(t, vel.V.X, float32(0))
	pos, _ := s.C.Position.Get(ball)
	assert.LessOrEqual(t, pos.P.X, float32(100-entity.BouncyRadius))
}

func TestCatcherCatchesVulnerablePlayer(t *testing.T) {
	s, sys := newTestWorld(t, 1, 2)
	a := place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	b := place(s, entity.TypePlayer, 2, mathx.V(110, 100))
	sa, _ := s.C.PlayerState.Get(a)
	sa.IsCatcher = true
	sb, _ := s.C.PlayerState.Get(b)
	sb.InvulnerableS = 1
	s.World.Flush()
	s.Events.TakeLog()

	sys.Interaction.Update(tick)
	assert.Empty(t, eventsOf[proto.PlayerDied](s.Events.TakeLog()))

	sb.InvulnerableS = 0
	sys.Interaction.Update(tick)
	died := eventsOf[proto.PlayerDied](s.Events.TakeLog())
	require.Len(t, died, 1)
	assert.Equal(t, proto.PlayerDied{
		PlayerID:    2,
		Position:    mathx.V(110, 100),
		Responsible: 1,
		Reason:      proto.DeathCaught,
	}, died[0])
}

func TestShieldAbsorbsBouncyHit(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	p := place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	st, _ := s.C.PlayerState.Get(p)
	st.HasShield = true
	place(s, entity.TypeBouncyEnemy, 0, mathx.V(110, 100))
	s.World.Flush()
	s.Events.TakeLog()

	sys.Interaction.Update(tick)
	assert.False(t, st.HasShield)
	assert.True(t, st.Invulnerable())
	assert.Empty(t, eventsOf[proto.PlayerDied](s.Events.TakeLog()))

	st.InvulnerableS = 0
	sys.Interaction.Update(tick)
	died := eventsOf[proto.PlayerDied](s.Events.TakeLog())
	require.Len(t, died, 1)
	assert.Equal(t, proto.DeathBouncyBall, died[0].Reason)
	assert.Equal(t, proto.NeutralPlayerID, died[0].Responsible)
}

func TestProjectileIgnoresOwner(t *testing.T) {
	s, sys := newTestWorld(t, 1, 2)
	place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	victim := place(s, entity.TypePlayer, 2, mathx.V(300, 100))
	place(s, entity.TypeBullet, 1, mathx.V(102, 100))
	bullet := place(s, entity.TypeBullet, 1, mathx.V(302, 100))
	s.World.Flush()
	s.Events.TakeLog()

	sys.Interaction.Update(tick)
	log := s.Events.TakeLog()
	died := eventsOf[proto.PlayerDied](log)
	require.Len(t, died, 1)
	assert.Equal(t, proto.PlayerID(2), died[0].PlayerID)
	assert.Equal(t, proto.PlayerID(1), died[0].Responsible)
	assert.True(t, s.World.Doomed(bullet))
	assert.False(t, s.World.Doomed(victim))
}

func TestItemPickupFillsFreeSlot(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	p := place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	spawn := place(s, entity.TypeItemSpawn, 0, mathx.V(105, 100))
	is, _ := s.C.ItemSpawn.Get(spawn)
	is.HasItem, is.Item = true, proto.ItemFragWeapon
	s.World.Flush()
	s.Events.TakeLog()

	sys.Interaction.Update(tick)

	st, _ := s.C.PlayerState.Get(p)
	assert.Equal(t, proto.Item{Kind: proto.ItemFragWeapon, Charges: 2}, st.Items[0])
	assert.False(t, is.HasItem)
	assert.Equal(t, []proto.ItemPickup{{PlayerID: 1, Item: proto.ItemFragWeapon}},
		eventsOf[proto.ItemPickup](s.Events.TakeLog()))
}

func TestControllerAppliesOneInputPerTick(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	p := place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	s.World.Flush()

	ctrl, _ := s.C.PlayerController.Get(p)
	fwd := proto.TimedPlayerInput{Input: proto.PlayerInput{Forward: true, UseItem: -1}}
	ctrl.Inputs = append(ctrl.Inputs, fwd, fwd)

	sys.Controller.Update(tick)
	assert.Len(t, ctrl.Inputs, 1)
	vel, _ := s.C.LinearVelocity.Get(p)
	assert.InDelta(t, entity.PlayerSpeed, vel.V.X, 0.001)

	sys.Movement.Update(tick)
	pos, _ := s.C.Position.Get(p)
	assert.Greater(t, pos.P.X, float32(100))

	sys.Controller.Update(tick)
	sys.Controller.Update(tick)
	assert.Empty(t, ctrl.Inputs)
	assert.True(t, vel.V.IsZero())
}

func TestWeaponSpawnsBulletAndSpendsCharge(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	p := place(s, entity.TypePlayer, 1, mathx.V(100, 100))
	st, _ := s.C.PlayerState.Get(p)
	st.Items[1] = proto.Item{Kind: proto.ItemWeapon, Charges: 1}
	s.World.Flush()
	s.Events.TakeLog()

	ctrl, _ := s.C.PlayerController.Get(p)
	ctrl.Inputs = append(ctrl.Inputs, proto.TimedPlayerInput{Input: proto.PlayerInput{UseItem: 1}})
	sys.Controller.Update(tick)

	created := eventsOf[proto.CreateEntity](s.Events.TakeLog())
	require.Len(t, created, 1)
	assert.Equal(t, entity.TypeBullet, created[0].Type)
	assert.Equal(t, proto.PlayerID(1), created[0].Owner)
	assert.Equal(t, proto.Item{}, st.Items[1])
}

func TestMovementSlidesAlongBlockedTiles(t *testing.T) {
	s, sys := newTestWorld(t)
	s.Map.SetTileBlocked(4, 3, true)
	p := place(s, entity.TypePlayer, 1, mathx.V(140, 80))
	s.World.Flush()

	vel, _ := s.C.LinearVelocity.Get(p)
	vel.V = mathx.V(0, 640) // 10 px per tick straight down into the blocked tile
	for range 10 {
		sys.Movement.Update(tick)
	}
	pos, _ := s.C.Position.Get(p)
	assert.LessOrEqual(t, pos.P.Y+entity.PlayerRadius, float32(96))
}

func TestFragBurstsIntoBullets(t *testing.T) {
	s, sys := newTestWorld(t)
	frag := place(s, entity.TypeFrag, 1, mathx.V(300, 300))
	proj, _ := s.C.Projectile.Get(frag)
	proj.LifetimeS = 0.001
	s.World.Flush()
	s.Events.TakeLog()

	sys.Projectile.Update(tick)

	log := s.Events.TakeLog()
	assert.Len(t, eventsOf[proto.CreateEntity](log), entity.FragBullets)
	assert.Len(t, eventsOf[proto.RemoveEntity](log), 1)
	assert.True(t, s.World.Doomed(frag))
}

func TestItemSpawnMaterializesItem(t *testing.T) {
	s, sys := newTestWorld(t)
	spawn := place(s, entity.TypeItemSpawn, 0, mathx.V(50, 50))
	s.World.Flush()

	sys.ItemSpawn.Update(tick)
	is, _ := s.C.ItemSpawn.Get(spawn)
	assert.True(t, is.HasItem)
	assert.NotEqual(t, proto.ItemNone, is.Item)
}

func TestReplicateEntitiesSortedForOnePlayer(t *testing.T) {
	s, sys := newTestWorld(t, 1, 2)
	for range 5 {
		place(s, entity.TypeBouncyEnemy, 0, mathx.V(50, 50))
	}
	s.World.Flush()
	s.Events.Take(1)
	s.Events.Take(2)
	s.Events.TakeLog()

	require.NoError(t, sys.Net.ReplicateEntities(2))
	created := eventsOf[proto.CreateEntity](s.Events.Take(2))
	require.Len(t, created, 5)
	for i := 1; i < len(created); i++ {
		assert.Less(t, created[i-1].ID, created[i].ID)
	}
	assert.Empty(t, s.Events.Take(1))
	assert.Empty(t, s.Events.Log())
}

func TestRemovePlayerEntities(t *testing.T) {
	s, sys := newTestWorld(t, 1)
	mine := place(s, entity.TypePlayer, 1, mathx.V(50, 50))
	ball := place(s, entity.TypeBouncyEnemy, 1, mathx.V(80, 50))
	other := place(s, entity.TypeBouncyEnemy, 0, mathx.V(80, 80))
	s.World.Flush()

	sys.Net.RemovePlayerEntities(1)
	assert.True(t, s.World.Doomed(mine))
	assert.True(t, s.World.Doomed(ball))
	assert.False(t, s.World.Doomed(other))

	s.World.Flush()
	assert.Equal(t, 1, sys.Net.Len())
}

func TestSnapshotDeltaAndForced(t *testing.T) {
	s, sys := newTestWorld(t)
	a := place(s, entity.TypeBouncyEnemy, 0, mathx.V(50, 50))
	place(s, entity.TypeBouncyEnemy, 0, mathx.V(80, 80))
	s.World.Flush()

	full, delta := sys.Net.Snapshot()
	assert.Len(t, full.Position, 2)
	assert.Len(t, delta.Position, 2)
	assert.Empty(t, full.PlayerState)

	pos, _ := s.C.Position.Get(a)
	pos.P = mathx.V(60, 50)
	netID, _ := s.NetID(a)
	s.ForceComponent(netID, proto.ComponentPosition)

	full, delta = sys.Net.Snapshot()
	assert.Len(t, full.Position, 2)
	assert.Equal(t, map[proto.NetEntityID]proto.Position{netID: {P: mathx.V(60, 50)}}, delta.Position)
	assert.Empty(t, delta.Orientation)
	assert.Equal(t, []proto.ForcedComponent{{ID: netID, Type: proto.ComponentPosition}}, delta.Forced)
	assert.Equal(t, delta.Forced, full.Forced)

	_, delta = sys.Net.Snapshot()
	assert.Empty(t, delta.Position)
	assert.Empty(t, delta.Forced)
}
