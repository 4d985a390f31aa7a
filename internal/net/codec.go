package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/catcharena/server/internal/proto"
	"github.com/gorilla/websocket"
)

// MaxFrameSize bounds the channel byte plus payload of one frame.
const MaxFrameSize = 1 << 20

var (
	ErrFrameSize  = errors.New("frame size out of range")
	ErrBadChannel = errors.New("unknown channel")
	ErrNotBinary  = errors.New("websocket message is not binary")
	errEmptyFrame = errors.New("empty frame")
)

// frameConn moves whole channel-tagged frames over one connection.
type frameConn interface {
	ReadFrame() (proto.Channel, []byte, error)
	WriteFrame(ch proto.Channel, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
	Close() error
}

// ReadFrame reads one TCP frame from r.
// Wire format: [4 bytes LE: length of the rest][1 byte channel][payload].
func ReadFrame(r io.Reader) (proto.Channel, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:4]); err != nil {
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}

	size := binary.LittleEndian.Uint32(header[:4])
	if size == 0 || size > MaxFrameSize {
		return 0, nil, fmt.Errorf("frame length %d: %w", size, ErrFrameSize)
	}
	if _, err := io.ReadFull(r, header[4:5]); err != nil {
		return 0, nil, fmt.Errorf("read frame channel: %w", err)
	}

	payload := make([]byte, size-1)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload (%d bytes): %w", len(payload), err)
	}
	return proto.Channel(header[4]), payload, nil
}

// WriteFrame writes one TCP frame to w in a single Write call.
func WriteFrame(w io.Writer, ch proto.Channel, data []byte) error {
	size := len(data) + 1
	if size > MaxFrameSize {
		return fmt.Errorf("frame length %d: %w", size, ErrFrameSize)
	}
	buf := make([]byte, 5+len(data))
	binary.LittleEndian.PutUint32(buf[:4], uint32(size))
	buf[4] = byte(ch)
	copy(buf[5:], data)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

type tcpConn struct {
	net.Conn
}

func (c tcpConn) ReadFrame() (proto.Channel, []byte, error) { return ReadFrame(c.Conn) }

func (c tcpConn) WriteFrame(ch proto.Channel, data []byte) error {
	return WriteFrame(c.Conn, ch, data)
}

// wsConn carries one frame per binary message: [1 byte channel][payload].
type wsConn struct {
	*websocket.Conn
}

func (c wsConn) ReadFrame() (proto.Channel, []byte, error) {
	kind, msg, err := c.ReadMessage()
	if err != nil {
		return 0, nil, fmt.Errorf("read message: %w", err)
	}
	if kind != websocket.BinaryMessage {
		return 0, nil, ErrNotBinary
	}
	if len(msg) == 0 {
		return 0, nil, errEmptyFrame
	}
	if len(msg) > MaxFrameSize {
		return 0, nil, fmt.Errorf("frame length %d: %w", len(msg), ErrFrameSize)
	}
	return proto.Channel(msg[0]), msg[1:], nil
}

func (c wsConn) WriteFrame(ch proto.Channel, data []byte) error {
	if len(data)+1 > MaxFrameSize {
		return fmt.Errorf("frame length %d: %w", len(data)+1, ErrFrameSize)
	}
	buf := make([]byte, 1+len(data))
	buf[0] = byte(ch)
	copy(buf[1:], data)
	if err := c.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
