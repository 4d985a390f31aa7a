// Package server owns the client table and the single game-loop goroutine:
// it services the transport, dispatches client messages and ticks the world.
package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	gonet "github.com/catcharena/server/internal/net"
	"github.com/catcharena/server/internal/net/packet"
	"github.com/catcharena/server/internal/proto"
	"github.com/catcharena/server/internal/world"
	"go.uber.org/zap"
)

const (
	// idleWait is how long the loop sleeps when the transport had nothing.
	idleWait = time.Millisecond
	// maxCatchUp bounds the ticks run back to back after a stall.
	maxCatchUp = 8
)

type Options struct {
	MaxNameLength    int
	MaxEventsPerPoll int
	PingInterval     time.Duration
}

type Server struct {
	host  gonet.Host
	state *world.State
	reg   *packet.Registry
	opts  Options

	clients         map[proto.PlayerID]*Client
	peers           map[gonet.PeerID]proto.PlayerID
	playerIDCounter proto.PlayerID

	tickTimer *PeriodicTimer
	pingTimer *PeriodicTimer
	now       func() time.Time

	log *zap.Logger
}

func New(host gonet.Host, state *world.State, opts Options, log *zap.Logger) *Server {
	if opts.MaxEventsPerPoll <= 0 {
		opts.MaxEventsPerPoll = 256
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = time.Second
	}
	s := &Server{
		host:      host,
		state:     state,
		reg:       packet.NewRegistry(log),
		opts:      opts,
		clients:   make(map[proto.PlayerID]*Client),
		peers:     make(map[gonet.PeerID]proto.PlayerID),
		tickTimer: NewPeriodicTimer(state.TickDuration()),
		pingTimer: NewPeriodicTimer(opts.PingInterval),
		now:       time.Now,
		log:       log,
	}
	s.registerHandlers()
	return s
}

// Client returns the connected client with the given id, or nil.
func (s *Server) Client(id proto.PlayerID) *Client { return s.clients[id] }

// Run services the transport and ticks the game until ctx is cancelled. It
// returns a non-nil error only when the game state broke an invariant.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("game loop started",
		zap.Duration("tick", s.tickTimer.Period()),
		zap.String("map", s.state.GameInfo().MapName))

	idle := time.NewTicker(idleWait)
	defer idle.Stop()

	last := s.now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("game loop stopped", zap.Uint32("tick", uint32(s.state.TickNumber())))
			return nil
		default:
		}

		busy := s.poll()

		now := s.now()
		if err := s.advance(now.Sub(last)); err != nil {
			return err
		}
		last = now

		if !busy {
			select {
			case <-ctx.Done():
			case <-idle.C:
			}
		}
	}
}

// advance feeds elapsed wall time to the timers and runs whatever ticks and
// pings became due.
func (s *Server) advance(elapsed time.Duration) error {
	s.tickTimer.Add(elapsed)
	if dropped := s.tickTimer.Clamp(maxCatchUp); dropped > 0 {
		s.log.Warn("game loop fell behind, skipping ticks", zap.Int("skipped", dropped))
	}
	for s.tickTimer.Next() {
		if err := s.tick(); err != nil {
			return err
		}
	}

	s.pingTimer.Add(elapsed)
	s.pingTimer.Clamp(1)
	if s.pingTimer.Next() {
		s.ping()
	}
	return nil
}

// poll handles up to MaxEventsPerPoll transport events and reports whether
// there was anything to do.
func (s *Server) poll() bool {
	handled := 0
	for handled < s.opts.MaxEventsPerPoll {
		ev, err := s.host.Service()
		if err != nil {
			s.log.Error("transport service failed", zap.Error(err))
			break
		}
		if ev.Kind == gonet.EventNone {
			break
		}
		s.handleEvent(ev)
		handled++
	}
	return handled > 0
}

func (s *Server) handleEvent(ev gonet.Event) {
	switch ev.Kind {
	case gonet.EventConnect:
		s.onConnect(ev)
	case gonet.EventDisconnect:
		s.onDisconnect(ev)
	case gonet.EventReceive:
		s.onReceive(ev)
	}
}

func (s *Server) onConnect(ev gonet.Event) {
	s.playerIDCounter++
	id := s.playerIDCounter
	if _, ok := s.clients[id]; ok {
		s.log.Error("player id already in use, dropping peer", zap.Uint32("player", uint32(id)))
		s.host.Disconnect(ev.Peer)
		return
	}
	c := &Client{
		ID:    id,
		Peer:  ev.Peer,
		State: packet.StateConnecting,
		log:   s.log.With(zap.Uint32("player", uint32(id))),
	}
	s.clients[id] = c
	s.peers[ev.Peer] = id
	c.log.Info("client connecting", zap.String("addr", ev.Addr))
}

func (s *Server) onDisconnect(ev gonet.Event) {
	id, ok := s.peers[ev.Peer]
	if !ok {
		s.log.Warn("disconnect from unknown peer", zap.Uint64("peer", uint64(ev.Peer)))
		return
	}
	c := s.clients[id]
	delete(s.peers, ev.Peer)
	delete(s.clients, id)
	wasNormal := c.State == packet.StateNormal
	c.State = packet.StateDisconnected
	c.log.Info("client disconnected")

	if wasNormal {
		s.Broadcast(proto.PlayerDisconnect{ID: id})
		if err := s.state.RemovePlayer(id); err != nil {
			c.log.Warn("remove player", zap.Error(err))
		}
	}
}

func (s *Server) onReceive(ev gonet.Event) {
	id, ok := s.peers[ev.Peer]
	if !ok {
		s.log.Warn("message from unknown peer", zap.Uint64("peer", uint64(ev.Peer)))
		return
	}
	c := s.clients[id]
	if ev.Channel != proto.ChannelMessages {
		c.log.Warn("message on non-message channel", zap.Uint8("channel", uint8(ev.Channel)))
	}
	if err := s.reg.Dispatch(c, c.State, ev.Data); err != nil {
		c.log.Warn("invalid message dropped", zap.Error(err))
	}
}

// tick advances the game one tick and sends every Normal client its Tick.
func (s *Server) tick() error {
	if err := s.state.Tick(); err != nil {
		if errors.Is(err, world.ErrInvariant) {
			s.log.Error("game state inconsistent", zap.Error(err))
		}
		return fmt.Errorf("tick %d: %w", s.state.TickNumber(), err)
	}

	for _, id := range s.state.PlayerIDs() {
		tick, ok := s.state.PlayerTick(id)
		if !ok {
			continue
		}
		c, ok := s.clients[id]
		if !ok || c.State != packet.StateNormal {
			continue
		}
		data, err := proto.EncodeServerMessage(tick)
		if err != nil {
			c.log.Error("encode tick", zap.Error(err))
			continue
		}
		if err := s.host.Send(c.Peer, proto.ChannelTicks, data); err != nil {
			c.log.Warn("send tick", zap.Error(err))
		}
	}
	return nil
}

// ping sends a Ping to every Normal client without one in flight.
func (s *Server) ping() {
	now := s.now()
	for _, c := range s.normalClients() {
		if c.pingPending {
			continue
		}
		if err := s.Send(c, proto.Ping{}); err != nil {
			continue
		}
		c.pingSent = now
		c.pingPending = true
	}
}

func (s *Server) normalClients() []*Client {
	out := make([]*Client, 0, len(s.clients))
	for _, id := range slices.Sorted(maps.Keys(s.clients)) {
		if c := s.clients[id]; c.State == packet.StateNormal {
			out = append(out, c)
		}
	}
	return out
}

// Broadcast sends msg to every Normal client. A failed send is logged and
// does not stop the others.
func (s *Server) Broadcast(msg proto.ServerMessage) {
	data, err := proto.EncodeServerMessage(msg)
	if err != nil {
		s.log.Error("encode broadcast", zap.Uint8("opcode", msg.Opcode()), zap.Error(err))
		return
	}
	for _, c := range s.normalClients() {
		if err := s.host.Send(c.Peer, proto.ChannelMessages, data); err != nil {
			c.log.Warn("send broadcast", zap.Error(err))
		}
	}
}

var errNotNormal = errors.New("client not connected")

// Send delivers msg to one Normal client on the message channel.
func (s *Server) Send(c *Client, msg proto.ServerMessage) error {
	if c.State != packet.StateNormal {
		return fmt.Errorf("send to %d in %s: %w", c.ID, c.State, errNotNormal)
	}
	data, err := proto.EncodeServerMessage(msg)
	if err != nil {
		c.log.Error("encode message", zap.Uint8("opcode", msg.Opcode()), zap.Error(err))
		return err
	}
	if err := s.host.Send(c.Peer, proto.ChannelMessages, data); err != nil {
		c.log.Warn("send message", zap.Error(err))
		return err
	}
	return nil
}
