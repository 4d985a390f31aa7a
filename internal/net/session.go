package net

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/catcharena/server/internal/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type frame struct {
	ch   proto.Channel
	data []byte
}

// Session is a single client connection. Its reader goroutine is the only
// producer of the peer's events; the writer goroutine drains out.
type Session struct {
	ID        PeerID
	Token     uuid.UUID // tagged on every log line of the connection
	Transport string
	Addr      string

	hub  *Hub
	conn frameConn
	out  chan frame

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func newSession(h *Hub, conn frameConn, id PeerID, transport string) *Session {
	token := uuid.New()
	addr := conn.RemoteAddr().String()
	return &Session{
		ID:        id,
		Token:     token,
		Transport: transport,
		Addr:      addr,
		hub:       h,
		conn:      conn,
		out:       make(chan frame, h.opts.OutQueueSize),
		closeCh:   make(chan struct{}),
		log: h.log.With(
			zap.Uint64("peer", uint64(id)),
			zap.String("conn", token.String()),
			zap.String("transport", transport),
		),
	}
}

func (s *Session) start() {
	s.log.Info("peer connected", zap.String("addr", s.Addr))
	go s.readLoop()
	go s.writeLoop()
}

// send queues one frame. Non-blocking: a full queue disconnects the peer.
func (s *Session) send(ch proto.Channel, data []byte) error {
	if s.closed.Load() {
		return fmt.Errorf("peer %d: %w", s.ID, ErrClosed)
	}
	select {
	case s.out <- frame{ch: ch, data: data}:
		return nil
	default:
		s.log.Warn("output queue full, dropping slow peer")
		s.Close()
		return fmt.Errorf("peer %d: %w", s.ID, ErrBackpressure)
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop announces the peer, forwards its frames and finally reports the
// disconnect. Events are posted in that order from this goroutine alone.
func (s *Session) readLoop() {
	defer func() {
		s.Close()
		s.hub.detach(s.ID)
		s.hub.post(Event{Kind: EventDisconnect, Peer: s.ID, Addr: s.Addr})
		s.log.Info("peer disconnected")
	}()

	if !s.hub.post(Event{Kind: EventConnect, Peer: s.ID, Addr: s.Addr}) {
		return
	}

	for {
		if s.hub.opts.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.hub.opts.ReadTimeout))
		}
		ch, payload, err := s.conn.ReadFrame()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if ch >= proto.NumChannels {
			s.log.Warn("frame dropped", zap.Error(fmt.Errorf("channel %d: %w", ch, ErrBadChannel)))
			continue
		}

		select {
		case <-s.closeCh:
			return
		default:
		}
		if !s.hub.post(Event{Kind: EventReceive, Peer: s.ID, Channel: ch, Data: payload}) {
			return
		}
	}
}

func (s *Session) writeLoop() {
	defer s.Close()

	for {
		select {
		case f := <-s.out:
			if !s.writeOne(f) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOne(f frame) bool {
	if s.hub.opts.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.hub.opts.WriteTimeout))
	}
	if err := s.conn.WriteFrame(f.ch, f.data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
