package proto

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/catcharena/server/internal/mathx"
	"github.com/catcharena/server/internal/net/packet"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrUnknownEvent   = errors.New("unknown event")
)

// EncodeClientMessage serializes a client→server message.
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	w := packet.NewWriterWithOpcode(m.Opcode())
	switch m := m.(type) {
	case Pong:
	case WishConnect:
		w.WriteS(m.Name)
	case SendInput:
		writeTimedInput(w, m.Input)
	default:
		return nil, fmt.Errorf("encode %T: %w", m, ErrUnknownMessage)
	}
	return w.Bytes()
}

// DecodeClientMessage parses a client→server message.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	r := packet.NewReader(data)
	if r.Err() != nil {
		return nil, r.Err()
	}
	switch op := r.Opcode(); op {
	case OpPong:
		return Pong{}, nil
	case OpWishConnect:
		return ReadWishConnect(r)
	case OpPlayerInput:
		return ReadSendInput(r)
	default:
		return nil, fmt.Errorf("opcode %d: %w", op, ErrUnknownMessage)
	}
}

// ReadWishConnect decodes the body of an OpWishConnect message.
func ReadWishConnect(r *packet.Reader) (WishConnect, error) {
	m := WishConnect{Name: r.ReadS()}
	if err := r.Err(); err != nil {
		return WishConnect{}, fmt.Errorf("decode wish connect: %w", err)
	}
	return m, nil
}

// ReadSendInput decodes the body of an OpPlayerInput message.
func ReadSendInput(r *packet.Reader) (SendInput, error) {
	m := SendInput{Input: readTimedInput(r)}
	if err := r.Err(); err != nil {
		return SendInput{}, fmt.Errorf("decode player input: %w", err)
	}
	return m, nil
}

// EncodeServerMessage serializes a server→client message.
func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	w := packet.NewWriterWithOpcode(m.Opcode())
	switch m := m.(type) {
	case Ping:
	case AcceptConnect:
		w.WriteDU(uint32(m.YourID))
		writeGameInfo(w, m.GameInfo)
	case PlayerConnect:
		w.WriteDU(uint32(m.ID))
		w.WriteS(m.Name)
	case PlayerDisconnect:
		w.WriteDU(uint32(m.ID))
	case *Tick:
		w.WriteDU(uint32(m.Number))
		w.WriteDU(uint32(len(m.Events)))
		for _, e := range m.Events {
			writeEvent(w, e)
		}
		ns := m.NetState
		if ns == nil {
			ns = NewNetState()
		}
		writeNetState(w, ns)
	default:
		return nil, fmt.Errorf("encode %T: %w", m, ErrUnknownMessage)
	}
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode opcode %d: %w", m.Opcode(), err)
	}
	return data, nil
}

// DecodeServerMessage parses a server→client message.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	r := packet.NewReader(data)
	if r.Err() != nil {
		return nil, r.Err()
	}
	var m ServerMessage
	switch op := r.Opcode(); op {
	case OpPing:
		m = Ping{}
	case OpAcceptConnect:
		m = AcceptConnect{YourID: PlayerID(r.ReadDU()), GameInfo: readGameInfo(r)}
	case OpPlayerConnect:
		m = PlayerConnect{ID: PlayerID(r.ReadDU()), Name: r.ReadS()}
	case OpPlayerDisconnect:
		m = PlayerDisconnect{ID: PlayerID(r.ReadDU())}
	case OpTick:
		t := &Tick{Number: TickNumber(r.ReadDU())}
		n := readCount(r, 1)
		t.Events = make([]GameEvent, 0, n)
		for i := 0; i < n; i++ {
			e, err := readEvent(r)
			if err != nil {
				return nil, err
			}
			t.Events = append(t.Events, e)
		}
		t.NetState = readNetState(r)
		m = t
	default:
		return nil, fmt.Errorf("opcode %d: %w", op, ErrUnknownMessage)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode opcode %d: %w", r.Opcode(), err)
	}
	return m, nil
}

// readCount reads a u32 element count and rejects counts that cannot fit in
// the remaining payload, given each element takes at least minSize bytes.
func readCount(r *packet.Reader, minSize int) int {
	n := int(r.ReadDU())
	if n*minSize > r.Remaining() {
		r.ReadBytes(r.Remaining() + 1) // trip ErrShortRead
		return 0
	}
	return n
}

func writeVec(w *packet.Writer, v mathx.Vec2) {
	w.WriteF(v.X)
	w.WriteF(v.Y)
}

func readVec(r *packet.Reader) mathx.Vec2 {
	x := r.ReadF()
	return mathx.Vec2{X: x, Y: r.ReadF()}
}

func writeTimedInput(w *packet.Writer, in TimedPlayerInput) {
	w.WriteF(in.Duration)
	w.WriteF(in.Input.Angle)
	var flags byte
	if in.Input.Forward {
		flags |= 1
	}
	if in.Input.Backward {
		flags |= 2
	}
	if in.Input.StrafeLeft {
		flags |= 4
	}
	if in.Input.StrafeRight {
		flags |= 8
	}
	w.WriteC(flags)
	w.WriteC(byte(in.Input.UseItem))
}

func readTimedInput(r *packet.Reader) TimedPlayerInput {
	var in TimedPlayerInput
	in.Duration = r.ReadF()
	in.Input.Angle = r.ReadF()
	flags := r.ReadC()
	in.Input.Forward = flags&1 != 0
	in.Input.Backward = flags&2 != 0
	in.Input.StrafeLeft = flags&4 != 0
	in.Input.StrafeRight = flags&8 != 0
	in.Input.UseItem = int8(r.ReadC())
	return in
}

func writeGameInfo(w *packet.Writer, g GameInfo) {
	w.WriteS(g.MapName)
	w.WriteQ(g.MapHash)
	w.WriteDU(g.TicksPerSecond)
	w.WriteLen(len(g.EntityTypes))
	for _, name := range g.EntityTypes {
		w.WriteS(name)
	}
}

func readGameInfo(r *packet.Reader) GameInfo {
	g := GameInfo{
		MapName:        r.ReadS(),
		MapHash:        r.ReadQ(),
		TicksPerSecond: r.ReadDU(),
	}
	n := int(r.ReadH())
	for i := 0; i < n && r.Err() == nil; i++ {
		g.EntityTypes = append(g.EntityTypes, r.ReadS())
	}
	return g
}

func writePlayerInfo(w *packet.Writer, p PlayerInfo) {
	w.WriteDU(uint32(p.ID))
	w.WriteS(p.Name)
	writeStats(w, p.Stats)
}

func readPlayerInfo(r *packet.Reader) PlayerInfo {
	id := PlayerID(r.ReadDU())
	name := r.ReadS()
	return PlayerInfo{ID: id, Name: name, Stats: readStats(r)}
}

func writeStats(w *packet.Writer, s PlayerStats) {
	w.WriteDU(s.Kills)
	w.WriteDU(s.Deaths)
	w.WriteD(s.Score)
}

func readStats(r *packet.Reader) PlayerStats {
	k := r.ReadDU()
	d := r.ReadDU()
	return PlayerStats{Kills: k, Deaths: d, Score: r.ReadD()}
}

func writeEvent(w *packet.Writer, e GameEvent) {
	w.WriteC(byte(e.Tag()))
	switch e := e.(type) {
	case PlayerJoin:
		w.WriteDU(uint32(e.ID))
		writePlayerInfo(w, e.Info)
	case PlayerLeave:
		w.WriteDU(uint32(e.ID))
	case InitialPlayerList:
		w.WriteLen(len(e.Players))
		for _, p := range e.Players {
			writePlayerInfo(w, p)
		}
	case UpdatePlayerStats:
		ids := slices.Sorted(maps.Keys(e.Stats))
		w.WriteLen(len(ids))
		for _, id := range ids {
			w.WriteDU(uint32(id))
			writeStats(w, e.Stats[id])
		}
	case CreateEntity:
		w.WriteDU(uint32(e.ID))
		w.WriteC(byte(e.Type))
		w.WriteDU(uint32(e.Owner))
	case RemoveEntity:
		w.WriteDU(uint32(e.ID))
	case PlayerDied:
		w.WriteDU(uint32(e.PlayerID))
		writeVec(w, e.Position)
		w.WriteDU(uint32(e.Responsible))
		w.WriteC(byte(e.Reason))
	case ProjectileImpact:
		writeVec(w, e.Position)
	case ItemPickup:
		w.WriteDU(uint32(e.PlayerID))
		w.WriteC(byte(e.Item))
	default:
		w.Fail(fmt.Errorf("encode event %T: %w", e, ErrUnknownEvent))
	}
}

func readEvent(r *packet.Reader) (GameEvent, error) {
	tag := EventTag(r.ReadC())
	var e GameEvent
	switch tag {
	case EventPlayerJoin:
		id := PlayerID(r.ReadDU())
		e = PlayerJoin{ID: id, Info: readPlayerInfo(r)}
	case EventPlayerLeave:
		e = PlayerLeave{ID: PlayerID(r.ReadDU())}
	case EventInitialPlayerList:
		n := int(r.ReadH())
		list := InitialPlayerList{Players: make([]PlayerInfo, 0, n)}
		for i := 0; i < n && r.Err() == nil; i++ {
			list.Players = append(list.Players, readPlayerInfo(r))
		}
		e = list
	case EventUpdatePlayerStats:
		n := int(r.ReadH())
		stats := UpdatePlayerStats{Stats: make(map[PlayerID]PlayerStats, n)}
		for i := 0; i < n && r.Err() == nil; i++ {
			id := PlayerID(r.ReadDU())
			stats.Stats[id] = readStats(r)
		}
		e = stats
	case EventCreateEntity:
		id := NetEntityID(r.ReadDU())
		typ := EntityTypeID(r.ReadC())
		e = CreateEntity{ID: id, Type: typ, Owner: PlayerID(r.ReadDU())}
	case EventRemoveEntity:
		e = RemoveEntity{ID: NetEntityID(r.ReadDU())}
	case EventPlayerDied:
		d := PlayerDied{PlayerID: PlayerID(r.ReadDU())}
		d.Position = readVec(r)
		d.Responsible = PlayerID(r.ReadDU())
		d.Reason = DeathReason(r.ReadC())
		e = d
	case EventProjectileImpact:
		e = ProjectileImpact{Position: readVec(r)}
	case EventItemPickup:
		id := PlayerID(r.ReadDU())
		e = ItemPickup{PlayerID: id, Item: ItemKind(r.ReadC())}
	default:
		if r.Err() != nil {
			return nil, r.Err()
		}
		return nil, fmt.Errorf("event tag %d: %w", tag, ErrUnknownEvent)
	}
	return e, r.Err()
}

func writeComponents[V any](w *packet.Writer, m map[NetEntityID]V, fn func(V)) {
	ids := slices.Sorted(maps.Keys(m))
	w.WriteDU(uint32(len(ids)))
	for _, id := range ids {
		w.WriteDU(uint32(id))
		fn(m[id])
	}
}

func readComponents[V any](r *packet.Reader, minSize int, fn func() V) map[NetEntityID]V {
	n := readCount(r, 4+minSize)
	m := make(map[NetEntityID]V, n)
	for i := 0; i < n && r.Err() == nil; i++ {
		id := NetEntityID(r.ReadDU())
		m[id] = fn()
	}
	return m
}

func writePlayerState(w *packet.Writer, s PlayerState) {
	w.WriteBool(s.IsCatcher)
	w.WriteBool(s.HasShield)
	w.WriteF(s.InvulnerableS)
	for _, it := range s.Items {
		w.WriteC(byte(it.Kind))
		w.WriteC(it.Charges)
	}
}

func readPlayerState(r *packet.Reader) PlayerState {
	var s PlayerState
	s.IsCatcher = r.ReadBool()
	s.HasShield = r.ReadBool()
	s.InvulnerableS = r.ReadF()
	for i := range s.Items {
		s.Items[i].Kind = ItemKind(r.ReadC())
		s.Items[i].Charges = r.ReadC()
	}
	return s
}

func writeNetState(w *packet.Writer, s *NetState) {
	writeComponents(w, s.Position, func(c Position) { writeVec(w, c.P) })
	writeComponents(w, s.Orientation, func(c Orientation) { w.WriteF(c.Angle) })
	writeComponents(w, s.LinearVelocity, func(c LinearVelocity) { writeVec(w, c.V) })
	writeComponents(w, s.PlayerState, func(c PlayerState) { writePlayerState(w, c) })
	writeComponents(w, s.ItemSpawn, func(c ItemSpawn) {
		w.WriteBool(c.HasItem)
		w.WriteC(byte(c.Item))
	})
	writeComponents(w, s.WallPosition, func(c WallPosition) {
		writeVec(w, c.A)
		writeVec(w, c.B)
	})
	w.WriteDU(uint32(len(s.Forced)))
	for _, f := range s.Forced {
		w.WriteDU(uint32(f.ID))
		w.WriteC(byte(f.Type))
	}
}

func readNetState(r *packet.Reader) *NetState {
	s := &NetState{}
	s.Position = readComponents(r, 8, func() Position { return Position{P: readVec(r)} })
	s.Orientation = readComponents(r, 4, func() Orientation { return Orientation{Angle: r.ReadF()} })
	s.LinearVelocity = readComponents(r, 8, func() LinearVelocity { return LinearVelocity{V: readVec(r)} })
	s.PlayerState = readComponents(r, 6+2*NumItemSlots, func() PlayerState { return readPlayerState(r) })
	s.ItemSpawn = readComponents(r, 2, func() ItemSpawn {
		has := r.ReadBool()
		return ItemSpawn{HasItem: has, Item: ItemKind(r.ReadC())}
	})
	s.WallPosition = readComponents(r, 16, func() WallPosition {
		a := readVec(r)
		return WallPosition{A: a, B: readVec(r)}
	})
	n := readCount(r, 5)
	for i := 0; i < n && r.Err() == nil; i++ {
		id := NetEntityID(r.ReadDU())
		s.Forced = append(s.Forced, ForcedComponent{ID: id, Type: ComponentType(r.ReadC())})
	}
	return s
}
