package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFansOutToEveryRecipient(t *testing.T) {
	b := NewBus[uint32, string]()
	require.NoError(t, b.PrepareForTick(1, []uint32{1, 2}))

	b.Add("join")
	require.NoError(t, b.AddFor(2, "private"))

	assert.Equal(t, []string{"join"}, b.Take(1))
	assert.Equal(t, []string{"join", "private"}, b.Take(2))
	assert.Equal(t, []string{"join"}, b.TakeLog())
}

func TestAddForUnknownRecipient(t *testing.T) {
	b := NewBus[uint32, string]()
	require.NoError(t, b.PrepareForTick(1, []uint32{1}))
	assert.Error(t, b.AddFor(7, "lost"))
}

func TestPrepareRejectsUndrainedQueues(t *testing.T) {
	b := NewBus[uint32, string]()
	require.NoError(t, b.PrepareForTick(1, []uint32{1}))
	b.Add("x")
	b.TakeLog()

	err := b.PrepareForTick(2, []uint32{1})
	assert.ErrorIs(t, err, ErrUndrained)

	b.Take(1)
	assert.NoError(t, b.PrepareForTick(2, []uint32{1}))
}

func TestPrepareRejectsUnprocessedLog(t *testing.T) {
	b := NewBus[uint32, string]()
	require.NoError(t, b.PrepareForTick(1, nil))
	b.Add("x")
	assert.ErrorIs(t, b.PrepareForTick(2, nil), ErrUndrained)
}

func TestDepartedRecipientIsDropped(t *testing.T) {
	b := NewBus[uint32, string]()
	require.NoError(t, b.PrepareForTick(1, []uint32{1, 2}))
	b.Add("leave")
	b.TakeLog()
	b.Take(1)

	// Recipient 2 left during tick 1 and is not carried into tick 2.
	require.NoError(t, b.PrepareForTick(2, []uint32{1}))
	assert.False(t, b.Has(2))
	assert.Nil(t, b.Take(2))
}
