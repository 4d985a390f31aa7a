package proto

type PlayerStats struct {
	Kills  uint32
	Deaths uint32
	Score  int32
}

type PlayerInfo struct {
	ID    PlayerID
	Name  string
	Stats PlayerStats
}

func NewPlayerInfo(id PlayerID, name string) PlayerInfo {
	return PlayerInfo{ID: id, Name: name}
}

// PlayerInput is one sample of a client's controls.
type PlayerInput struct {
	Angle       float32
	Forward     bool
	Backward    bool
	StrafeLeft  bool
	StrafeRight bool
	UseItem     int8 // item slot to use, -1 for none
}

// TimedPlayerInput is an input held for Duration seconds.
type TimedPlayerInput struct {
	Duration float32
	Input    PlayerInput
}

// DeathReason explains a PlayerDied event.
type DeathReason uint8

const (
	DeathCaught DeathReason = iota
	DeathProjectile
	DeathBouncyBall
)

func (r DeathReason) String() string {
	switch r {
	case DeathCaught:
		return "caught"
	case DeathProjectile:
		return "projectile"
	case DeathBouncyBall:
		return "bouncy_ball"
	default:
		return "unknown"
	}
}

// GameInfo describes the running game to a client on accept.
type GameInfo struct {
	MapName        string
	MapHash        uint64
	TicksPerSecond uint32
	EntityTypes    []string // indexed by EntityTypeID
}
