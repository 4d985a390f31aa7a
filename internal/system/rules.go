package system

import (
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
	"go.uber.org/zap"
)

// Aspects shared by the interaction rules.
func playerAspect(s *service.Services) ecs.Aspect {
	return ecs.All(s.C.PlayerController.Kind(), s.C.PlayerState.Kind(), s.C.Position.Kind())
}

func bouncyAspect(s *service.Services) ecs.Aspect {
	return ecs.All(s.C.BouncyEnemy.Kind(), s.C.Position.Kind(), s.C.LinearVelocity.Kind())
}

func projectileAspect(s *service.Services) ecs.Aspect {
	return ecs.All(s.C.Projectile.Kind(), s.C.Position.Kind())
}

func itemSpawnAspect(s *service.Services) ecs.Aspect {
	return ecs.All(s.C.ItemSpawner.Kind(), s.C.ItemSpawn.Kind(), s.C.Position.Kind())
}

// AddDefaultRules registers the game's pair rules.
func AddDefaultRules(sys *InteractionSystem, s *service.Services) {
	player := playerAspect(s)
	bouncy := bouncyAspect(s)
	projectile := projectileAspect(s)

	sys.Add(player, bouncy, PairFunc(playerBouncy))
	sys.Add(bouncy, bouncy, PairFunc(bouncyBouncy))
	sys.Add(player, player, PairFunc(playerCatch))
	sys.Add(player, projectile, PairFunc(playerProjectile))
	sys.Add(player, itemSpawnAspect(s), PairFunc(playerItemSpawn))
	sys.Add(projectile, bouncy, PairFunc(projectileBouncy))
}

// hitPlayer applies a lethal hit to a player entity. Invulnerable players are
// immune and a shield absorbs one hit. Returns false if nothing happened.
func hitPlayer(s *service.Services, player ecs.EntityID, responsible proto.PlayerID, reason proto.DeathReason) bool {
	state, _ := s.C.PlayerState.Get(player)
	if state.Invulnerable() {
		return false
	}
	if state.HasShield {
		state.HasShield = false
		state.InvulnerableS = entity.ShieldGraceS
		return true
	}
	killPlayer(s, player, responsible, reason)
	return true
}

func killPlayer(s *service.Services, player ecs.EntityID, responsible proto.PlayerID, reason proto.DeathReason) {
	ctrl, _ := s.C.PlayerController.Get(player)
	pos, _ := s.C.Position.Get(player)
	if responsible == ctrl.Owner {
		responsible = proto.NeutralPlayerID
	}
	s.KillPlayer(proto.PlayerDied{
		PlayerID:    ctrl.Owner,
		Position:    pos.P,
		Responsible: responsible,
		Reason:      reason,
	})
}

func playerBouncy(s *service.Services, player, ball ecs.EntityID) {
	ctrl, _ := s.C.PlayerController.Get(player)
	enemy, _ := s.C.BouncyEnemy.Get(ball)
	if enemy.Owner == ctrl.Owner {
		return
	}
	if hitPlayer(s, player, enemy.Owner, proto.DeathBouncyBall) {
		pp, _ := s.C.Position.Get(player)
		pb, _ := s.C.Position.Get(ball)
		deflect(s, ball, pb.P.Sub(pp.P).Norm())
	}
}

func bouncyBouncy(s *service.Services, a, b ecs.EntityID) {
	pa, _ := s.C.Position.Get(a)
	pb, _ := s.C.Position.Get(b)
	n := pa.P.Sub(pb.P).Norm()
	deflect(s, a, n)
	deflect(s, b, n.Scale(-1))
}

// deflect reflects e's velocity about n if e moves against n.
func deflect(s *service.Services, e ecs.EntityID, n mathx.Vec2) {
	vel, ok := s.C.LinearVelocity.Get(e)
	if !ok || n.IsZero() || vel.V.Dot(n) >= 0 {
		return
	}
	vel.V = vel.V.Reflect(n)
	if o, ok := s.C.Orientation.Get(e); ok {
		o.Angle = vel.V.Angle()
	}
}

func playerCatch(s *service.Services, a, b ecs.EntityID) {
	sa, _ := s.C.PlayerState.Get(a)
	sb, _ := s.C.PlayerState.Get(b)
	catcher, victim, victimState := a, b, sb
	switch {
	case sa.IsCatcher && !sb.IsCatcher:
	case sb.IsCatcher && !sa.IsCatcher:
		catcher, victim, victimState = b, a, sa
	default:
		return
	}
	if victimState.Invulnerable() {
		return
	}
	ctrl, _ := s.C.PlayerController.Get(catcher)
	killPlayer(s, victim, ctrl.Owner, proto.DeathCaught)
}

func playerProjectile(s *service.Services, player, projectile ecs.EntityID) {
	ctrl, _ := s.C.PlayerController.Get(player)
	proj, _ := s.C.Projectile.Get(projectile)
	if proj.Owner == ctrl.Owner {
		return
	}
	if !hitPlayer(s, player, proj.Owner, proto.DeathProjectile) {
		return
	}
	pos, _ := s.C.Position.Get(projectile)
	s.AddEvent(proto.ProjectileImpact{Position: pos.P})
	s.RemoveNet(projectile)
}

func playerItemSpawn(s *service.Services, player, spawnID ecs.EntityID) {
	spawn, _ := s.C.ItemSpawn.Get(spawnID)
	if !spawn.HasItem {
		return
	}
	state, _ := s.C.PlayerState.Get(player)
	slot := state.FreeSlot()
	if slot < 0 {
		return
	}
	ctrl, _ := s.C.PlayerController.Get(player)
	state.Items[slot] = proto.Item{Kind: spawn.Item, Charges: entity.ItemCharges(spawn.Item)}
	s.AddEvent(proto.ItemPickup{PlayerID: ctrl.Owner, Item: spawn.Item})
	s.Log.Debug("item picked up",
		zap.Uint32("player", uint32(ctrl.Owner)),
		zap.Stringer("item", spawn.Item))
	spawn.HasItem = false
	spawn.Item = proto.ItemNone
}

func projectileBouncy(s *service.Services, projectile, ball ecs.EntityID) {
	pos, _ := s.C.Position.Get(projectile)
	s.AddEvent(proto.ProjectileImpact{Position: pos.P})
	s.RemoveNet(projectile)
	s.RemoveNet(ball)
}
