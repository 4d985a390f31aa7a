package net

import (
	"errors"
	"net"

	"go.uber.org/zap"
)

// Server accepts TCP connections and attaches them to a Hub.
type Server struct {
	listener net.Listener
	hub      *Hub
	log      *zap.Logger
	closeCh  chan struct{}
}

func NewServer(bindAddr string, hub *Hub, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: ln,
		hub:      hub,
		log:      log,
		closeCh:  make(chan struct{}),
	}, nil
}

// AcceptLoop accepts connections until Shutdown. It returns nil after a
// Shutdown and the listener error otherwise.
func (s *Server) AcceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}
		s.hub.attach(tcpConn{conn}, "tcp")
	}
}

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	select {
	case <-s.closeCh:
	default:
		close(s.closeCh)
	}
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
