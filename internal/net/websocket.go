package net

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketPath is where browser clients connect.
const WebSocketPath = "/ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebSocketServer upgrades requests on WebSocketPath and attaches them to a
// Hub. Each binary message carries one frame.
type WebSocketServer struct {
	listener net.Listener
	http     *http.Server
	hub      *Hub
	log      *zap.Logger
}

func NewWebSocketServer(bindAddr string, hub *Hub, log *zap.Logger) (*WebSocketServer, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	s := &WebSocketServer{
		listener: ln,
		hub:      hub,
		log:      log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Serve blocks until Shutdown. It returns nil after a Shutdown.
func (s *WebSocketServer) Serve() error {
	if err := s.http.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting upgrades. Upgraded connections belong to the hub
// and are closed with it.
func (s *WebSocketServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *WebSocketServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.String("addr", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(MaxFrameSize)
	s.hub.attach(wsConn{conn}, "websocket")
}
