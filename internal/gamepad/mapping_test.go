package gamepad_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/soar/padcontrol/internal/gamepad"
	"github.com/soar/padcontrol/internal/input"
)

func TestNormalizeAxis(t *testing.T) {
	assert.Equal(t, 0.0, gamepad.NormalizeAxis(0))
	assert.Equal(t, 1.0, gamepad.NormalizeAxis(math.MaxInt16))
	assert.Equal(t, -1.0, gamepad.NormalizeAxis(math.MinInt16))
}

func TestNormalizeTrigger(t *testing.T) {
	tests := []struct {
		name             string
		raw, lo, hi      int16
		want             float64
	}{
		{name: "full range released", raw: -32768, lo: -32768, hi: 32767, want: 0},
		{name: "full range pressed", raw: 32767, lo: -32768, hi: 32767, want: 1},
		{name: "half range released", raw: 0, lo: 0, hi: 32767, want: 0},
		{name: "half range below min", raw: -100, lo: 0, hi: 32767, want: 0},
		{name: "empty range", raw: 5, lo: 3, hi: 3, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gamepad.NormalizeTrigger(tt.raw, tt.lo, tt.hi))
		})
	}
}

func TestGetMapping(t *testing.T) {
	assert.Equal(t, "xbox", gamepad.GetMapping(0x045E, 0x0B12).Name)
	assert.Equal(t, "playstation", gamepad.GetMapping(0x054C, 0x0CE6).Name)

	m := gamepad.GetMapping(0x046D, 0xC24F)
	assert.Equal(t, "generic", m.Name)
	assert.True(t, m.Generic())
	assert.False(t, gamepad.GetMapping(0x057E, 0x2009).Generic())
}

func TestProfiles(t *testing.T) {
	for _, name := range gamepad.Profiles {
		t.Run(name, func(t *testing.T) {
			entries, err := gamepad.Profile(name)
			require.NoError(t, err)
			_, err = input.NewRegistry(entries...)
			require.NoError(t, err)
		})
	}

	_, err := gamepad.Profile("steering_yoke")
	assert.Error(t, err)
}

func TestProfileInputsAreFresh(t *testing.T) {
	a, err := gamepad.Profile("xbox")
	require.NoError(t, err)
	b, err := gamepad.Profile("xbox")
	require.NoError(t, err)
	assert.NotSame(t, a[0].Input, b[0].Input)
}

func TestWheelProfile(t *testing.T) {
	entries, err := gamepad.Profile("wheel")
	require.NoError(t, err)
	reg, err := input.NewRegistry(entries...)
	require.NoError(t, err)

	snap := input.Snapshot{
		Buttons: make([]input.Button, gamepad.NumButtons),
		Axes:    []float64{-0.6},
	}
	snap.Buttons[gamepad.ButtonRB] = gamepad.Digital(true)

	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(1),
		"direccion": input.Scalar(-0.6),
	}, reg.Update(snap))
}

func TestGPIOSource(t *testing.T) {
	up := &gpiotest.Pin{N: "GPIO6", L: gpio.Low}
	down := &gpiotest.Pin{N: "GPIO19", L: gpio.High}
	src := gamepad.NewGPIOSource([]gpio.PinIn{up, down})

	snap, err := src.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Buttons, 2)
	assert.True(t, snap.Buttons[0].Pressed)
	assert.Equal(t, 1.0, snap.Buttons[0].Value)
	assert.False(t, snap.Buttons[1].Pressed)
	assert.Empty(t, snap.Axes)
}
