package xps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRequiresEnableAndHome(t *testing.T) {
	m := NewMock("")
	err := m.MoveAbs("X", 1)
	assert.Equal(t, Err(-50), err)

	require.NoError(t, m.Enable("X"))
	err = m.MoveAbs("X", 1)
	assert.Equal(t, Err(-109), err)

	m.HomeDelay = time.Millisecond
	require.NoError(t, m.Home("X"))
	homed, err := m.Homed("X")
	require.NoError(t, err)
	assert.True(t, homed)
}

func TestMockMoveConverges(t *testing.T) {
	m := NewMock("")
	m.HomeDelay = time.Millisecond
	require.NoError(t, m.Enable("X"))
	require.NoError(t, m.Home("X"))
	require.NoError(t, m.SetVelocity("X", 5000))

	require.NoError(t, m.MoveAbs("X", 0.5))
	pos, err := m.GetPos("X")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pos, 1e-6)

	require.NoError(t, m.MoveRel("X", -0.25))
	pos, err = m.GetPos("X")
	require.NoError(t, err)
	assert.InDelta(t, 0.25, pos, 1e-6)
}

func TestMockStopAbortsMove(t *testing.T) {
	m := NewMock("")
	m.HomeDelay = time.Millisecond
	require.NoError(t, m.Enable("X"))
	require.NoError(t, m.Home("X"))
	require.NoError(t, m.SetVelocity("X", 0.001))

	done := make(chan error, 1)
	go func() { done <- m.MoveAbs("X", 100) }()
	// wait for the move to be in flight, then abort it
	deadline := time.Now().Add(time.Second)
	for {
		m.Lock()
		moving := m.moving["X"]
		m.Unlock()
		if moving || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, m.Stop("X"))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("move did not abort")
	}
	pos, err := m.GetPos("X")
	require.NoError(t, err)
	assert.Less(t, pos, 100.0)
}

func TestMockDisableRules(t *testing.T) {
	m := NewMock("")
	require.NoError(t, m.Enable("X"))
	enabled, err := m.GetEnabled("X")
	require.NoError(t, err)
	assert.True(t, enabled)
	require.NoError(t, m.Disable("X"))
	enabled, err = m.GetEnabled("X")
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = m.Raw("FirmwareVersionGet(char *)")
	assert.Error(t, err)
}
