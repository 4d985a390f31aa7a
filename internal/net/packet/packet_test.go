package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReaderWriterFields(t *testing.T) {
	w := NewWriterWithOpcode(7)
	w.WriteC(0xAB)
	w.WriteBool(true)
	w.WriteH(0xBEEF)
	w.WriteD(-42)
	w.WriteQ(1 << 40)
	w.WriteF(1.5)
	w.WriteS("héllo")
	data, err := w.Bytes()
	require.NoError(t, err)

	r := NewReader(data)
	assert.Equal(t, byte(7), r.Opcode())
	assert.Equal(t, byte(0xAB), r.ReadC())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint16(0xBEEF), r.ReadH())
	assert.Equal(t, int32(-42), r.ReadD())
	assert.Equal(t, uint64(1<<40), r.ReadQ())
	assert.Equal(t, float32(1.5), r.ReadF())
	assert.Equal(t, "héllo", r.ReadS())
	assert.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestReaderShortReadIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 2})
	assert.Equal(t, byte(2), r.ReadC())
	assert.Equal(t, uint32(0), r.ReadDU())
	assert.ErrorIs(t, r.Err(), ErrShortRead)
	assert.Equal(t, byte(0), r.ReadC())
	assert.ErrorIs(t, r.Err(), ErrShortRead)
}

func TestReaderStringLengthPastEnd(t *testing.T) {
	r := NewReader([]byte{1, 10, 0, 'a'})
	assert.Equal(t, "", r.ReadS())
	assert.ErrorIs(t, r.Err(), ErrShortRead)
}

func TestWriterRejectsOversizedString(t *testing.T) {
	w := NewWriter()
	w.WriteS(string(make([]byte, 70000)))
	_, err := w.Bytes()
	assert.Error(t, err)
}

func TestRegistryGatesByState(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var calls int
	reg.Register(3, []ClientState{StateNormal}, func(_ any, r *Reader) error {
		calls++
		return r.Err()
	})

	err := reg.Dispatch(nil, StateConnecting, []byte{3})
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 0, calls)

	assert.NoError(t, reg.Dispatch(nil, StateNormal, []byte{3}))
	assert.Equal(t, 1, calls)

	assert.ErrorIs(t, reg.Dispatch(nil, StateNormal, []byte{99}), ErrUnknownOpcode)
	assert.ErrorIs(t, reg.Dispatch(nil, StateNormal, nil), ErrEmpty)
}

func TestRegistryRecoversPanics(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(1, []ClientState{StateNormal}, func(any, *Reader) error {
		panic("boom")
	})
	err := reg.Dispatch(nil, StateNormal, []byte{1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotAllowed))
}
