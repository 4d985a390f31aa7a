// Package world runs the authoritative simulation: the player table and the
// ordered tick pipeline on top of the entity store and systems.
package world

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/catcharena/server/internal/component"
	"github.com/catcharena/server/internal/core/ecs"
	coresys "github.com/catcharena/server/internal/core/system"
	"github.com/catcharena/server/internal/data"
	"github.com/catcharena/server/internal/entity"
	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/service"
	"github.com/catcharena/server/internal/system"
	"go.uber.org/zap"
)

// ErrInvariant reports a broken game invariant. The state must not be ticked
// again after Tick returns it.
var ErrInvariant = errors.New("game invariant violated")

// MaxQueuedInputs bounds the input backlog of one player entity.
const MaxQueuedInputs = 64

// ScoreRules decides how many points a kill is worth.
type ScoreRules interface {
	KillScore(reason proto.DeathReason) int32
}

// DefaultScore awards 10 points for a catch and 1 for any other kill.
type DefaultScore struct{}

func (DefaultScore) KillScore(reason proto.DeathReason) int32 {
	if reason == proto.DeathCaught {
		return 10
	}
	return 1
}

// ResultSink receives the final stats of players leaving the game.
type ResultSink interface {
	PlayerFinished(info proto.PlayerInfo)
}

// Options configures a State.
type Options struct {
	TicksPerSecond uint32
	RespawnTime    time.Duration
	Rand           *rand.Rand
	Score          ScoreRules
	Results        ResultSink
}

// State is the authoritative game state.
type State struct {
	log         *zap.Logger
	info        proto.GameInfo
	m           *data.Map
	spawnPoints []SpawnPoint
	respawnS    float32

	svc    *service.Services
	sys    *system.Systems
	runner *coresys.Runner

	score   ScoreRules
	results ResultSink

	tickNumber proto.TickNumber
	elapsed    time.Duration
	players    map[proto.PlayerID]*Player

	full, delta *proto.NetState
}

func NewState(m *data.Map, opts Options, log *zap.Logger) *State {
	if opts.TicksPerSecond == 0 {
		opts.TicksPerSecond = 64
	}
	if opts.RespawnTime == 0 {
		opts.RespawnTime = 5 * time.Second
	}
	if opts.Rand == nil {
		now := uint64(time.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(now, now>>32))
	}
	if opts.Score == nil {
		opts.Score = DefaultScore{}
	}

	tickDur := time.Second / time.Duration(opts.TicksPerSecond)
	svc := service.New(m, tickDur, opts.Rand, log)
	sys := system.New(svc)
	runner := coresys.NewRunner()
	sys.Register(runner)

	var spawnPoints []SpawnPoint
	for _, o := range m.ObjectsOfType(data.ObjectPlayerSpawn) {
		spawnPoints = append(spawnPoints, SpawnPoint{
			Position: mathx.V(o.X, o.Y),
			Size:     mathx.V(o.Width, o.Height),
		})
	}

	return &State{
		log: log,
		info: proto.GameInfo{
			MapName:        m.Name,
			MapHash:        m.Hash,
			TicksPerSecond: opts.TicksPerSecond,
			EntityTypes:    entity.Names(),
		},
		m:           m,
		spawnPoints: spawnPoints,
		respawnS:    float32(opts.RespawnTime.Seconds()),
		svc:         svc,
		sys:         sys,
		runner:      runner,
		score:       opts.Score,
		results:     opts.Results,
		players:     make(map[proto.PlayerID]*Player),
		full:        proto.NewNetState(),
		delta:       proto.NewNetState(),
	}
}

func (st *State) GameInfo() proto.GameInfo         { return st.info }
func (st *State) TickNumber() proto.TickNumber     { return st.tickNumber }
func (st *State) Elapsed() time.Duration           { return st.elapsed }
func (st *State) TickDuration() time.Duration      { return st.svc.TickDur }
func (st *State) Player(id proto.PlayerID) *Player { return st.players[id] }

// PlayerIDs returns the ids of all players in ascending order.
func (st *State) PlayerIDs() []proto.PlayerID {
	return slices.Sorted(maps.Keys(st.players))
}

// AddPlayer registers a player. It joins the game at the next tick.
func (st *State) AddPlayer(info proto.PlayerInfo) error {
	if _, ok := st.players[info.ID]; ok {
		return fmt.Errorf("add player %d: already in game", info.ID)
	}
	st.players[info.ID] = newPlayer(info)
	return nil
}

// RemovePlayer marks a player for removal at the start of the next tick.
func (st *State) RemovePlayer(id proto.PlayerID) error {
	p, ok := st.players[id]
	if !ok {
		return fmt.Errorf("remove player %d: not in game", id)
	}
	p.remove = true
	return nil
}

// OnPlayerInput queues input for the player's entity. Input for a dead
// player is dropped.
func (st *State) OnPlayerInput(id proto.PlayerID, input proto.TimedPlayerInput) error {
	p, ok := st.players[id]
	if !ok {
		return fmt.Errorf("input for player %d: not in game", id)
	}
	if !p.alive {
		return nil
	}
	var full bool
	err := ecs.With(st.svc.World, st.svc.C.PlayerController, p.entity, func(c *component.PlayerController) {
		if len(c.Inputs) >= MaxQueuedInputs {
			full = true
			return
		}
		c.Inputs = append(c.Inputs, input)
	})
	if err != nil {
		return fmt.Errorf("input for player %d: %w", id, err)
	}
	if full {
		st.log.Warn("input queue full, dropping input", zap.Uint32("player", uint32(id)))
	}
	return nil
}

// PlayerTick drains the player's events of the last tick and pairs them with
// the NetState the player should receive.
func (st *State) PlayerTick(id proto.PlayerID) (*proto.Tick, bool) {
	events := st.svc.Events.Take(id)
	p, ok := st.players[id]
	if !ok {
		return nil, false
	}
	ns := st.delta
	if p.needsFullState {
		ns = st.full
		p.needsFullState = false
	}
	return &proto.Tick{Number: st.tickNumber, Events: events, NetState: ns}, true
}

// Catcher returns the player currently holding the catcher role.
func (st *State) Catcher() (proto.PlayerID, bool) {
	for _, id := range st.PlayerIDs() {
		if st.isCatcher(st.players[id]) {
			return id, true
		}
	}
	return 0, false
}

func (st *State) isCatcher(p *Player) bool {
	if !p.alive {
		return false
	}
	var catcher bool
	_ = ecs.With(st.svc.World, st.svc.C.PlayerState, p.entity, func(s *proto.PlayerState) {
		catcher = s.IsCatcher
	})
	return catcher
}

// Tick advances the game by one tick. Events generated during the tick are
// stored per player until drained by PlayerTick. An error wrapping
// ErrInvariant means the state is no longer consistent.
func (st *State) Tick() error {
	if err := st.checkIntegrity(); err != nil {
		return err
	}

	st.tickNumber++
	dt := st.svc.TickDur

	// The order below matters: it keeps players from receiving invalid or
	// duplicate events.
	if err := st.svc.PrepareForTick(st.tickNumber, st.PlayerIDs()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}
	if err := st.addNewPlayers(); err != nil {
		return err
	}
	if err := st.removeDisconnectedPlayers(); err != nil {
		return err
	}
	st.replicatePlayerStats()
	if st.tickNumber == 1 {
		st.initFirstTick()
	}
	if err := st.respawnPlayers(); err != nil {
		return err
	}

	// The only place where player-controlled entities consume input.
	st.runner.TickPhase(coresys.PhaseInput, dt)
	st.svc.World.Flush()

	st.runner.Tick(coresys.PhaseMovement, coresys.PhaseInteraction, dt)

	if err := st.processEvents(); err != nil {
		return err
	}
	st.svc.World.Flush()

	st.elapsed += dt
	st.full, st.delta = st.sys.Net.Snapshot()
	return nil
}

// addNewPlayers replicates the current state to new players and announces
// them to everyone else.
func (st *State) addNewPlayers() error {
	var newPlayers, others []proto.PlayerID
	for _, id := range st.PlayerIDs() {
		p := st.players[id]
		if p.isNew {
			p.isNew = false
			p.needsFullState = true
			newPlayers = append(newPlayers, id)
		} else {
			others = append(others, id)
		}
	}

	for _, id := range newPlayers {
		st.log.Info("replicating state to player", zap.Uint32("player", uint32(id)))

		list := make([]proto.PlayerInfo, 0, len(st.players))
		for _, pid := range st.PlayerIDs() {
			list = append(list, st.players[pid].info)
		}
		if err := st.svc.AddPlayerEvent(id, proto.InitialPlayerList{Players: list}); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}
		if err := st.sys.Net.ReplicateEntities(id); err != nil {
			return fmt.Errorf("%w: %w", ErrInvariant, err)
		}

		join := proto.PlayerJoin{ID: id, Info: st.players[id].info}
		for _, other := range others {
			if err := st.svc.AddPlayerEvent(other, join); err != nil {
				return fmt.Errorf("%w: %w", ErrInvariant, err)
			}
		}
	}
	return nil
}

func (st *State) removeDisconnectedPlayers() error {
	for _, id := range st.PlayerIDs() {
		p := st.players[id]
		if !p.remove {
			continue
		}
		st.log.Info("removing player", zap.Uint32("player", uint32(id)))

		wasCatcher := st.isCatcher(p)
		var lastPos mathx.Vec2
		if p.alive {
			if pos, ok := st.svc.C.Position.Get(p.entity); ok {
				lastPos = pos.P
			}
		}

		st.sys.Net.RemovePlayerEntities(id)
		delete(st.players, id)
		st.svc.AddEvent(proto.PlayerLeave{ID: id})
		if st.results != nil {
			st.results.PlayerFinished(p.info)
		}

		if wasCatcher {
			if err := st.handOffCatcher(id, lastPos, proto.NeutralPlayerID); err != nil {
				return err
			}
		}
	}

	st.svc.World.Flush()
	return nil
}

func (st *State) replicatePlayerStats() {
	stats := make(map[proto.PlayerID]proto.PlayerStats, len(st.players))
	for id, p := range st.players {
		stats[id] = p.info.Stats
	}
	st.svc.AddEvent(proto.UpdatePlayerStats{Stats: stats})
}

// initFirstTick creates the entities described by the map.
func (st *State) initFirstTick() {
	for _, o := range st.m.Objects {
		switch o.Type {
		case data.ObjectItemSpawn:
			e := st.svc.BuildNet(entity.TypeItemSpawn, proto.NeutralPlayerID)
			st.setPosition(e, mathx.V(o.X, o.Y))
		case data.ObjectBouncyEnemy:
			e := st.svc.BuildNet(entity.TypeBouncyEnemy, proto.NeutralPlayerID)
			st.setPosition(e, mathx.V(o.X, o.Y))
			if orient, ok := st.svc.C.Orientation.Get(e); ok {
				orient.Angle = st.svc.Rand.Float32() * 2 * math.Pi
			}
			if b, ok := st.svc.C.BouncyEnemy.Get(e); ok {
				b.Attract = st.svc.Rand.IntN(2) == 0
			}
		case data.ObjectPlayerSpawn:
		default:
			st.log.Warn("ignoring unknown map object", zap.String("type", o.Type))
		}
	}

	for _, line := range st.m.Lines {
		e := st.svc.BuildNet(entity.TypeWallWood, proto.NeutralPlayerID)
		if wall, ok := st.svc.C.WallPosition.Get(e); ok {
			wall.A, wall.B = line.Points()
		}
	}

	st.svc.World.Flush()
}

func (st *State) setPosition(e ecs.EntityID, p mathx.Vec2) {
	if pos, ok := st.svc.C.Position.Get(e); ok {
		pos.P = p
	}
}

func (st *State) respawnPlayers() error {
	dt := st.svc.TickSeconds()
	for _, id := range st.PlayerIDs() {
		p := st.players[id]
		if p.alive || !p.respawning {
			continue
		}
		p.respawnS -= dt
		if p.respawnS > 0 {
			continue
		}
		p.respawning = false
		if err := st.spawnPlayer(id); err != nil {
			return err
		}
	}

	st.svc.World.Flush()
	return nil
}

func (st *State) spawnPlayer(id proto.PlayerID) error {
	p := st.players[id]
	if p.alive {
		return fmt.Errorf("%w: spawning player %d who already controls an entity", ErrInvariant, id)
	}

	// If nobody is catcher right now, this player is lucky.
	_, hasCatcher := st.Catcher()

	e := st.svc.BuildNet(entity.TypePlayer, id)
	st.setPosition(e, st.randomSpawnPosition())
	if state, ok := st.svc.C.PlayerState.Get(e); ok {
		state.IsCatcher = !hasCatcher
		state.HasShield = true
		state.InvulnerableS = entity.InvulnerableS
	}
	p.entity = e
	p.alive = true

	if netID, ok := st.svc.NetID(e); ok {
		st.svc.ForceComponent(netID, proto.ComponentPosition)
	}
	st.log.Debug("player spawned",
		zap.Uint32("player", uint32(id)),
		zap.Bool("catcher", !hasCatcher))
	return nil
}

func (st *State) randomSpawnPosition() mathx.Vec2 {
	if len(st.spawnPoints) == 0 {
		return mathx.V(st.m.WidthPixels()/2, st.m.HeightPixels()/2)
	}
	sp := st.spawnPoints[st.svc.Rand.IntN(len(st.spawnPoints))]
	return mathx.V(
		sp.Position.X+st.svc.Rand.Float32()*sp.Size.X,
		sp.Position.Y+st.svc.Rand.Float32()*sp.Size.Y,
	)
}

// processEvents applies the state transitions of this tick's events.
func (st *State) processEvents() error {
	for {
		events := st.svc.Events.TakeLog()
		if len(events) == 0 {
			return nil
		}
		for _, e := range events {
			if died, ok := e.(proto.PlayerDied); ok {
				if err := st.onPlayerDied(died); err != nil {
					return err
				}
			}
		}
	}
}

func (st *State) onPlayerDied(d proto.PlayerDied) error {
	p, ok := st.players[d.PlayerID]
	if !ok {
		return fmt.Errorf("%w: player %d died but is not in the game", ErrInvariant, d.PlayerID)
	}
	if !p.alive {
		st.log.Debug("killing a dead player", zap.Uint32("player", uint32(d.PlayerID)))
		return nil
	}
	st.log.Info("player died",
		zap.Uint32("player", uint32(d.PlayerID)),
		zap.Uint32("responsible", uint32(d.Responsible)),
		zap.Stringer("reason", d.Reason))

	p.info.Stats.Deaths++
	if d.Responsible != proto.NeutralPlayerID && d.Responsible != d.PlayerID {
		if r, ok := st.players[d.Responsible]; ok {
			r.info.Stats.Kills++
			r.info.Stats.Score += st.score.KillScore(d.Reason)
		} else {
			st.log.Warn("kill credited to unknown player", zap.Uint32("responsible", uint32(d.Responsible)))
		}
	}

	var wasCatcher bool
	err := ecs.With(st.svc.World, st.svc.C.PlayerState, p.entity, func(s *proto.PlayerState) {
		wasCatcher = s.IsCatcher
		s.IsCatcher = false
	})
	if err != nil {
		return fmt.Errorf("%w: player %d entity: %w", ErrInvariant, d.PlayerID, err)
	}

	entityID := p.entity
	p.alive = false
	p.respawning = true
	p.respawnS = st.respawnS

	if wasCatcher {
		if err := st.handOffCatcher(d.PlayerID, d.Position, d.Responsible); err != nil {
			return err
		}
	}

	st.svc.RemoveNet(entityID)
	return nil
}

// handOffCatcher passes the catcher role on from a player who died or left.
// The responsible player takes it if alive, otherwise the alive player
// closest to where the catcher was. With nobody alive the role stays free.
func (st *State) handOffCatcher(from proto.PlayerID, lastPos mathx.Vec2, responsible proto.PlayerID) error {
	if responsible != from && responsible != proto.NeutralPlayerID {
		if r, ok := st.players[responsible]; ok && r.alive {
			return st.makeCatcher(responsible)
		}
	}

	var closest proto.PlayerID
	bestDist := float32(-1)
	for _, id := range st.PlayerIDs() {
		p := st.players[id]
		if id == from || !p.alive {
			continue
		}
		pos, ok := st.svc.C.Position.Get(p.entity)
		if !ok {
			continue
		}
		if d := pos.P.Dist(lastPos); bestDist < 0 || d < bestDist {
			closest, bestDist = id, d
		}
	}
	if bestDist < 0 {
		st.log.Debug("no alive player to take the catcher role")
		return nil
	}
	return st.makeCatcher(closest)
}

func (st *State) makeCatcher(id proto.PlayerID) error {
	p := st.players[id]
	var already bool
	err := ecs.With(st.svc.World, st.svc.C.PlayerState, p.entity, func(s *proto.PlayerState) {
		already = s.IsCatcher
		s.IsCatcher = true
	})
	if err != nil {
		return fmt.Errorf("%w: new catcher %d: %w", ErrInvariant, id, err)
	}
	if already {
		return fmt.Errorf("%w: player %d is already catcher", ErrInvariant, id)
	}
	st.log.Info("catcher handed off", zap.Uint32("player", uint32(id)))
	return nil
}

// checkIntegrity verifies that exactly one alive player is catcher whenever
// anyone is alive.
func (st *State) checkIntegrity() error {
	var alive, catchers int
	for id, p := range st.players {
		if !p.alive {
			continue
		}
		if !st.svc.World.Alive(p.entity) {
			return fmt.Errorf("%w: player %d controls a removed entity", ErrInvariant, id)
		}
		alive++
		if st.isCatcher(p) {
			catchers++
		}
	}
	if alive > 0 && catchers != 1 {
		return fmt.Errorf("%w: %d catchers among %d alive players", ErrInvariant, catchers, alive)
	}
	return nil
}
