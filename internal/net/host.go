// Package net moves channel-tagged frames between clients and the game loop.
// Connection goroutines only shuttle bytes; everything they observe reaches
// the game loop as Events polled through Host.Service.
package net

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/catcharena/server/internal/proto"
	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("host closed")
	ErrUnknownPeer  = errors.New("unknown peer")
	ErrBackpressure = errors.New("peer output queue full")
)

// PeerID identifies one transport connection. Never reused within a process.
type PeerID uint64

type EventKind int

const (
	EventNone EventKind = iota
	EventConnect
	EventDisconnect
	EventReceive
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReceive:
		return "receive"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one thing that happened on the transport. Events of a single peer
// arrive in order: Connect, then Receives, then exactly one Disconnect.
type Event struct {
	Kind    EventKind
	Peer    PeerID
	Channel proto.Channel
	Data    []byte
	Addr    string
}

// Host is the transport as seen by the game loop.
type Host interface {
	// Service returns the next pending event without blocking, or an
	// EventNone event when there is nothing to do.
	Service() (Event, error)
	Send(peer PeerID, ch proto.Channel, data []byte) error
	Disconnect(peer PeerID)
	Close() error
}

type Options struct {
	MaxPeers     int
	InQueueSize  int // per peer share of the shared event queue
	OutQueueSize int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Hub is the Host shared by every listener. Sessions register themselves
// from their accept goroutine; the game loop polls and sends.
type Hub struct {
	opts   Options
	nextID atomic.Uint64

	mu       sync.RWMutex
	sessions map[PeerID]*Session

	events    chan Event
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

var _ Host = (*Hub)(nil)

func NewHub(opts Options, log *zap.Logger) *Hub {
	if opts.MaxPeers <= 0 {
		opts.MaxPeers = 1
	}
	if opts.InQueueSize <= 0 {
		opts.InQueueSize = 1
	}
	if opts.OutQueueSize <= 0 {
		opts.OutQueueSize = 1
	}
	return &Hub{
		opts:     opts,
		sessions: make(map[PeerID]*Session),
		events:   make(chan Event, opts.InQueueSize*opts.MaxPeers),
		closeCh:  make(chan struct{}),
		log:      log,
	}
}

// attach registers a freshly accepted connection and starts its goroutines.
// The connection is closed when the hub is full or shutting down.
func (h *Hub) attach(conn frameConn, transport string) *Session {
	h.mu.Lock()
	if h.closed.Load() || len(h.sessions) >= h.opts.MaxPeers {
		full := !h.closed.Load()
		h.mu.Unlock()
		if full {
			h.log.Warn("peer limit reached, refusing connection",
				zap.String("addr", conn.RemoteAddr().String()),
				zap.String("transport", transport))
		}
		conn.Close()
		return nil
	}
	id := PeerID(h.nextID.Add(1))
	sess := newSession(h, conn, id, transport)
	h.sessions[id] = sess
	h.mu.Unlock()

	sess.start()
	return sess
}

func (h *Hub) detach(id PeerID) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// post hands an event to the game loop, waiting for queue space unless the
// hub is closing.
func (h *Hub) post(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.closeCh:
		return false
	}
}

func (h *Hub) Service() (Event, error) {
	if h.closed.Load() {
		return Event{}, ErrClosed
	}
	select {
	case ev := <-h.events:
		return ev, nil
	default:
		return Event{Kind: EventNone}, nil
	}
}

// Send queues data for the peer. A peer whose output queue is full is
// disconnected.
func (h *Hub) Send(peer PeerID, ch proto.Channel, data []byte) error {
	if h.closed.Load() {
		return ErrClosed
	}
	h.mu.RLock()
	sess, ok := h.sessions[peer]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("peer %d: %w", peer, ErrUnknownPeer)
	}
	return sess.send(ch, data)
}

// Disconnect closes the peer's connection. Its Disconnect event still
// arrives through Service.
func (h *Hub) Disconnect(peer PeerID) {
	h.mu.RLock()
	sess, ok := h.sessions[peer]
	h.mu.RUnlock()
	if ok {
		sess.Close()
	}
}

// Len reports the number of connected peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close drops every connection. Pending events are discarded.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed.Store(true)
		close(h.closeCh)
		sessions := make([]*Session, 0, len(h.sessions))
		for _, s := range h.sessions {
			sessions = append(sessions, s)
		}
		h.mu.Unlock()

		for _, s := range sessions {
			s.Close()
		}
	})
	return nil
}
