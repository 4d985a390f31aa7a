package net

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/catcharena/server/internal/proto"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHub(maxPeers int) *Hub {
	return NewHub(Options{
		MaxPeers:     maxPeers,
		InQueueSize:  16,
		OutQueueSize: 16,
		WriteTimeout: time.Second,
	}, zap.NewNop())
}

func startTCP(t *testing.T, hub *Hub) *Server {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", hub, zap.NewNop())
	require.NoError(t, err)
	go srv.AcceptLoop()
	t.Cleanup(func() {
		srv.Shutdown()
		hub.Close()
	})
	return srv
}

// nextEvent polls the hub the way the game loop does.
func nextEvent(t *testing.T, hub *Hub) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev, err := hub.Service()
		require.NoError(t, err)
		if ev.Kind != EventNone {
			return ev
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no event")
	return Event{}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, proto.ChannelTicks, []byte{1, 2, 3}))
	assert.Equal(t, []byte{4, 0, 0, 0, 1, 1, 2, 3}, buf.Bytes())

	ch, payload, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, proto.ChannelTicks, ch)
	assert.Equal(t, []byte{1, 2, 3}, payload)
}

func TestFrameSizeLimits(t *testing.T) {
	err := WriteFrame(io.Discard, proto.ChannelMessages, make([]byte, MaxFrameSize))
	assert.ErrorIs(t, err, ErrFrameSize)

	_, _, err = ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0}))
	assert.ErrorIs(t, err, ErrFrameSize)

	_, _, err = ReadFrame(bytes.NewReader([]byte{0, 0, 0x20, 0}))
	assert.ErrorIs(t, err, ErrFrameSize)

	_, _, err = ReadFrame(bytes.NewReader([]byte{5, 0, 0, 0, 0, 1}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTCPPeerLifecycle(t *testing.T) {
	hub := testHub(4)
	srv := startTCP(t, hub)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	ev := nextEvent(t, hub)
	require.Equal(t, EventConnect, ev.Kind)
	peer := ev.Peer

	require.NoError(t, WriteFrame(conn, proto.ChannelMessages, []byte{proto.OpPong}))
	ev = nextEvent(t, hub)
	assert.Equal(t, EventReceive, ev.Kind)
	assert.Equal(t, peer, ev.Peer)
	assert.Equal(t, proto.ChannelMessages, ev.Channel)
	assert.Equal(t, []byte{proto.OpPong}, ev.Data)

	require.NoError(t, hub.Send(peer, proto.ChannelTicks, []byte{9, 9}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	ch, payload, err := ReadFrame(conn)
	require.NoError(t, err)
	assert.Equal(t, proto.ChannelTicks, ch)
	assert.Equal(t, []byte{9, 9}, payload)

	conn.Close()
	ev = nextEvent(t, hub)
	assert.Equal(t, EventDisconnect, ev.Kind)
	assert.Equal(t, peer, ev.Peer)
	assert.Equal(t, 0, hub.Len())
	assert.ErrorIs(t, hub.Send(peer, proto.ChannelTicks, nil), ErrUnknownPeer)
}

func TestServerSideDisconnectIsReported(t *testing.T) {
	hub := testHub(4)
	srv := startTCP(t, hub)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	ev := nextEvent(t, hub)
	require.Equal(t, EventConnect, ev.Kind)

	hub.Disconnect(ev.Peer)
	next := nextEvent(t, hub)
	assert.Equal(t, EventDisconnect, next.Kind)
	assert.Equal(t, ev.Peer, next.Peer)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ReadFrame(conn)
	assert.Error(t, err)
}

func TestUnknownChannelIsDropped(t *testing.T) {
	hub := testHub(4)
	srv := startTCP(t, hub)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, EventConnect, nextEvent(t, hub).Kind)

	require.NoError(t, WriteFrame(conn, proto.Channel(7), []byte{1}))
	require.NoError(t, WriteFrame(conn, proto.ChannelMessages, []byte{2}))

	ev := nextEvent(t, hub)
	assert.Equal(t, EventReceive, ev.Kind)
	assert.Equal(t, []byte{2}, ev.Data)
}

func TestPeerLimit(t *testing.T) {
	hub := testHub(1)
	srv := startTCP(t, hub)

	first, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	require.Equal(t, EventConnect, nextEvent(t, hub).Kind)

	second, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, hub.Len())
}

func TestPeerIDsAreNotReused(t *testing.T) {
	hub := testHub(4)
	srv := startTCP(t, hub)

	seen := map[PeerID]bool{}
	for range 3 {
		conn, err := net.Dial("tcp", srv.Addr().String())
		require.NoError(t, err)
		ev := nextEvent(t, hub)
		require.Equal(t, EventConnect, ev.Kind)
		assert.False(t, seen[ev.Peer])
		seen[ev.Peer] = true
		conn.Close()
		require.Equal(t, EventDisconnect, nextEvent(t, hub).Kind)
	}
}

func TestClosedHub(t *testing.T) {
	hub := testHub(4)
	require.NoError(t, hub.Close())

	_, err := hub.Service()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, hub.Send(1, proto.ChannelMessages, nil), ErrClosed)
}

func TestWebSocketPeer(t *testing.T) {
	hub := testHub(4)
	srv, err := NewWebSocketServer("127.0.0.1:0", hub, zap.NewNop())
	require.NoError(t, err)
	go srv.Serve()
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		hub.Close()
	})

	url := "ws://" + srv.Addr().String() + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := nextEvent(t, hub)
	require.Equal(t, EventConnect, ev.Kind)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{byte(proto.ChannelMessages), proto.OpPong}))
	recv := nextEvent(t, hub)
	assert.Equal(t, EventReceive, recv.Kind)
	assert.Equal(t, proto.ChannelMessages, recv.Channel)
	assert.Equal(t, []byte{proto.OpPong}, recv.Data)

	require.NoError(t, hub.Send(ev.Peer, proto.ChannelTicks, []byte{7}))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{byte(proto.ChannelTicks), 7}, msg)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
	assert.Equal(t, EventDisconnect, nextEvent(t, hub).Kind)
}
