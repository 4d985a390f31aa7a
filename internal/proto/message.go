package proto

// Client→server opcodes.
const (
	OpPong byte = iota + 1
	OpWishConnect
	OpPlayerInput
)

// Server→client opcodes.
const (
	OpPing byte = iota + 100
	OpAcceptConnect
	OpPlayerConnect
	OpPlayerDisconnect
	OpTick
)

// ClientMessage is one of Pong, WishConnect, SendInput.
type ClientMessage interface {
	Opcode() byte
}

type Pong struct{}

type WishConnect struct {
	Name string
}

type SendInput struct {
	Input TimedPlayerInput
}

func (Pong) Opcode() byte        { return OpPong }
func (WishConnect) Opcode() byte { return OpWishConnect }
func (SendInput) Opcode() byte   { return OpPlayerInput }

// ServerMessage is one of Ping, AcceptConnect, PlayerConnect,
// PlayerDisconnect, Tick.
type ServerMessage interface {
	Opcode() byte
}

type Ping struct{}

type AcceptConnect struct {
	YourID   PlayerID
	GameInfo GameInfo
}

type PlayerConnect struct {
	ID   PlayerID
	Name string
}

type PlayerDisconnect struct {
	ID PlayerID
}

func (Ping) Opcode() byte             { return OpPing }
func (AcceptConnect) Opcode() byte    { return OpAcceptConnect }
func (PlayerConnect) Opcode() byte    { return OpPlayerConnect }
func (PlayerDisconnect) Opcode() byte { return OpPlayerDisconnect }
func (*Tick) Opcode() byte            { return OpTick }
