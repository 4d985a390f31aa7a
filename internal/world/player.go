package world

import (
	"github.com/catcharena/server/internal/core/ecs"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
)

// Player is the game-side record of a connected player.
// Accessed only from the game loop goroutine, no locks needed.
type Player struct {
	// Has this player been sent its first tick yet?
	isNew bool

	// Set on disconnect; the player and everything it owns are removed at the
	// start of the next tick.
	remove bool

	// The next tick sent to this player carries the full NetState.
	needsFullState bool

	info proto.PlayerInfo

	// Entity controlled by the player, valid while alive.
	entity ecs.EntityID
	alive  bool

	// Countdown until the next spawn, while respawning.
	respawnS   float32
	respawning bool
}

func newPlayer(info proto.PlayerInfo) *Player {
	return &Player{
		isNew:      true,
		info:       info,
		respawning: true,
	}
}

func (p *Player) Info() proto.PlayerInfo { return p.info }
func (p *Player) Alive() bool            { return p.alive }

// SpawnPoint is an axis-aligned map region players respawn in.
type SpawnPoint struct {
	Position mathx.Vec2
	Size     mathx.Vec2
}
