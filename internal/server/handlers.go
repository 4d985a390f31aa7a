package server

import (
	"github.com/catcharena/server/internal/net/packet"
	"github.com/catcharena/server/internal/proto"
	"go.uber.org/zap"
)

func (s *Server) registerHandlers() {
	anyState := []packet.ClientState{packet.StateConnecting, packet.StateNormal}

	s.reg.Register(proto.OpPong, anyState,
		func(c any, _ *packet.Reader) error {
			s.handlePong(c.(*Client))
			return nil
		},
	)
	s.reg.Register(proto.OpWishConnect, anyState,
		func(c any, r *packet.Reader) error {
			m, err := proto.ReadWishConnect(r)
			if err != nil {
				return err
			}
			s.handleWishConnect(c.(*Client), m)
			return nil
		},
	)
	s.reg.Register(proto.OpPlayerInput, []packet.ClientState{packet.StateNormal},
		func(c any, r *packet.Reader) error {
			m, err := proto.ReadSendInput(r)
			if err != nil {
				return err
			}
			s.handlePlayerInput(c.(*Client), m)
			return nil
		},
	)
}

func (s *Server) handlePong(c *Client) {
	if !c.pingPending {
		c.log.Warn("unwarranted pong")
		return
	}
	c.rtt = s.now().Sub(c.pingSent)
	c.pingPending = false
	c.log.Debug("pong", zap.Duration("rtt", c.rtt))
}

func (s *Server) handleWishConnect(c *Client, m proto.WishConnect) {
	if c.State != packet.StateConnecting {
		c.log.Warn("connected player is trying to connect again, ignoring")
		return
	}
	name := normalizeName(m.Name, s.opts.MaxNameLength)
	c.Name = name
	c.log.Info("player connected", zap.String("name", name))

	// Sent before the joiner turns Normal, so it only reaches the others.
	s.Broadcast(proto.PlayerConnect{ID: c.ID, Name: name})

	c.State = packet.StateNormal
	_ = s.Send(c, proto.AcceptConnect{YourID: c.ID, GameInfo: s.state.GameInfo()})

	if err := s.state.AddPlayer(proto.NewPlayerInfo(c.ID, name)); err != nil {
		c.log.Error("add player", zap.Error(err))
	}
}

func (s *Server) handlePlayerInput(c *Client, m proto.SendInput) {
	if err := s.state.OnPlayerInput(c.ID, m.Input); err != nil {
		c.log.Debug("input dropped", zap.Error(err))
	}
}
