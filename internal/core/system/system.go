package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput       Phase = iota // 0: apply queued player input
	PhaseMovement                 // 1: integrate player-controlled entities
	PhaseAI                       // 2: server-controlled movers
	PhaseProjectile               // 3: projectiles and their lifetimes
	PhaseSpawn                    // 4: item spawners
	PhaseRotate                   // 5: cosmetic rotation
	PhaseInteraction              // 6: pairwise and wall interactions
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseMovement:
		return "movement"
	case PhaseAI:
		return "ai"
	case PhaseProjectile:
		return "projectile"
	case PhaseSpawn:
		return "spawn"
	case PhaseRotate:
		return "rotate"
	case PhaseInteraction:
		return "interaction"
	default:
		return "unknown"
	}
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
