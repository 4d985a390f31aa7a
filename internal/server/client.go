package server

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	gonet "github.com/catcharena/server/internal/net"
	"github.com/catcharena/server/internal/net/packet"
	"github.com/catcharena/server/internal/proto"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultName is given to players who connect with a blank name.
const DefaultName = "player"

// Client is one connection as seen by the game loop.
type Client struct {
	ID    proto.PlayerID
	Peer  gonet.PeerID
	State packet.ClientState
	Name  string

	pingSent    time.Time
	pingPending bool
	rtt         time.Duration

	log *zap.Logger
}

// RTT is the last measured ping round trip, zero until the first Pong.
func (c *Client) RTT() time.Duration { return c.rtt }

// normalizeName returns the display name for a requested one: NFC, trimmed,
// stripped of control characters and cut to maxLen runes.
func normalizeName(name string, maxLen int) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if maxLen > 0 && utf8.RuneCountInString(name) > maxLen {
		name = strings.TrimSpace(string([]rune(name)[:maxLen]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}
