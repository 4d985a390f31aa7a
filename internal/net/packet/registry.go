package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrEmpty         = errors.New("empty message")
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrNotAllowed    = errors.New("opcode not allowed in state")
)

// ClientState is a connection's position in the handshake.
type ClientState int

const (
	StateConnecting ClientState = iota // transport connected, awaiting WishConnect
	StateNormal                        // accepted, registered in the game
	StateDisconnected
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateNormal:
		return "Normal"
	case StateDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers. The client is
// passed as an opaque value to avoid import cycles. A returned error means the
// payload could not be decoded.
type HandlerFunc func(client any, r *Reader) error

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[ClientState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given client states.
func (reg *Registry) Register(opcode byte, states []ClientState, fn HandlerFunc) {
	allowed := make(map[ClientState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the client
// state, and calls the handler. Every failure is returned to the caller, who
// logs it and drops the message; none of them affects the connection.
func (reg *Registry) Dispatch(client any, state ClientState, data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	opcode := data[0]
	reg.log.Debug("message received",
		zap.Uint8("opcode", opcode),
		zap.Int("size", len(data)),
		zap.Stringer("state", state),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		return fmt.Errorf("opcode %d: %w", opcode, ErrUnknownOpcode)
	}
	if !entry.allowedStates[state] {
		return fmt.Errorf("opcode %d in %s: %w", opcode, state, ErrNotAllowed)
	}

	return reg.safeCall(entry.fn, client, NewReader(data), opcode)
}

// safeCall executes a handler with panic recovery so a single bad message
// cannot take down the game loop.
func (reg *Registry) safeCall(fn HandlerFunc, client any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	return fn(client, r)
}
