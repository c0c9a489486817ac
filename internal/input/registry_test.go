package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padcontrol/internal/input"
)

func wheelRegistry(t *testing.T) *input.Registry {
	t.Helper()
	r, err := input.NewRegistry(
		input.Entry("adelante", input.NewDigitalButton(5)),
		input.Entry("atras", input.NewDigitalButton(4)),
		input.Entry("direccion", input.NewSingleAxis(0)),
	)
	require.NoError(t, err)
	return r
}

func buttons(pressed ...int) []input.Button {
	out := make([]input.Button, 6)
	for _, i := range pressed {
		out[i] = input.Button{Pressed: true, Value: 1}
	}
	return out
}

func TestRegistryEndToEnd(t *testing.T) {
	r := wheelRegistry(t)

	got := r.Update(input.Snapshot{Buttons: buttons(5), Axes: []float64{0}})
	assert.Equal(t, input.Status{"adelante": input.Scalar(1)}, got)

	got = r.Update(input.Snapshot{Buttons: buttons(5), Axes: []float64{0.8}})
	assert.Equal(t, input.Status{"direccion": input.Scalar(0.8)}, got)

	got = r.Update(input.Snapshot{Buttons: buttons(5), Axes: []float64{0}})
	assert.Equal(t, input.Status{"direccion": input.Scalar(0)}, got)

	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(1),
		"atras":     input.Scalar(0),
		"direccion": input.Scalar(0),
	}, r.Status())
}

func TestRegistryNoOpTicksAreEmpty(t *testing.T) {
	r := wheelRegistry(t)
	snap := input.Snapshot{Buttons: buttons(4, 5), Axes: []float64{-0.7}}

	first := r.Update(snap)
	assert.Len(t, first, 3)

	second := r.Update(snap)
	require.NotNil(t, second)
	assert.Empty(t, second)
}

func TestRegistryUpdateNeverNil(t *testing.T) {
	r := wheelRegistry(t)
	got := r.Update(input.Snapshot{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistryShortSnapshotReadsZero(t *testing.T) {
	r, err := input.NewRegistry(
		input.Entry("trigger", input.NewAnalogButton(7)),
		input.Entry("stick", input.NewDualAxis(0, input.Unwired)),
	)
	require.NoError(t, err)

	got := r.Update(input.Snapshot{Axes: []float64{0.5}})
	assert.Equal(t, input.Status{"stick": input.Vec(0.5, 0)}, got)

	got = r.Update(input.Snapshot{
		Buttons: []input.Button{7: {Pressed: true, Value: 0.9}},
		Axes:    []float64{0.5},
	})
	assert.Equal(t, input.Status{"trigger": input.Scalar(0.9)}, got)
}

func TestRegistryReset(t *testing.T) {
	r := wheelRegistry(t)
	snap := input.Snapshot{Buttons: buttons(5), Axes: []float64{0.9}}
	require.Len(t, r.Update(snap), 2)

	r.Reset()
	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(0),
		"atras":     input.Scalar(0),
		"direccion": input.Scalar(0),
	}, r.Status())

	// the same raw input is reported again after a reset
	assert.Len(t, r.Update(snap), 2)
}

func TestRegistryStatusIsACopy(t *testing.T) {
	r := wheelRegistry(t)
	s := r.Status()
	s["adelante"] = input.Scalar(1)
	assert.Equal(t, input.Scalar(0), r.Status()["adelante"])
}

func TestRegistryNames(t *testing.T) {
	r := wheelRegistry(t)
	assert.Equal(t, []string{"adelante", "atras", "direccion"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestNewRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []input.Named
		wantErr error
	}{
		{
			name: "duplicate",
			entries: []input.Named{
				input.Entry("a", input.NewDigitalButton(0)),
				input.Entry("a", input.NewDigitalButton(1)),
			},
			wantErr: input.ErrDuplicateInput,
		},
		{
			name:    "negative scalar index",
			entries: []input.Named{input.Entry("a", input.NewSingleAxis(-1))},
			wantErr: input.ErrInvalidIndex,
		},
		{
			name:    "dual axis without any index",
			entries: []input.Named{input.Entry("a", input.NewDualAxis(input.Unwired, input.Unwired))},
			wantErr: input.ErrInvalidIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := input.NewRegistry(tt.entries...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := input.NewRegistry(input.Entry("", input.NewDigitalButton(0)))
	assert.Error(t, err)
	_, err = input.NewRegistry(input.Entry("a", nil))
	assert.Error(t, err)
}

func TestRegistryThresholdPolicy(t *testing.T) {
	r := wheelRegistry(t)
	dir, ok := r.Input("direccion")
	require.True(t, ok)
	atras, ok := r.Input("atras")
	require.True(t, ok)

	require.NoError(t, r.SetNoiseThresholdFor("direccion", 0.5))
	require.NoError(t, r.SetNoiseThreshold(0.3))
	require.NoError(t, r.SetInputDelta(0.2))

	assert.Equal(t, 0.3, r.NoiseThreshold())
	assert.Equal(t, 0.5, dir.NoiseThreshold(), "override survives a registry wide change")
	assert.Equal(t, 0.3, atras.NoiseThreshold())
	assert.Equal(t, 0.2, dir.InputDelta())

	require.NoError(t, r.SetInputDeltaFor("atras", 0.05))
	require.NoError(t, r.SetInputDelta(0.4))
	assert.Equal(t, 0.05, atras.InputDelta())
	assert.Equal(t, 0.4, dir.InputDelta())
}

func TestRegistryThresholdValidation(t *testing.T) {
	r := wheelRegistry(t)

	err := r.SetNoiseThreshold(-0.1)
	assert.ErrorIs(t, err, input.ErrOutOfRange)
	assert.Equal(t, 0.15, r.NoiseThreshold())
	for _, name := range r.Names() {
		in, _ := r.Input(name)
		assert.Equal(t, 0.15, in.NoiseThreshold())
	}

	err = r.SetInputDelta(2)
	assert.ErrorIs(t, err, input.ErrOutOfRange)
	assert.Equal(t, 0.10, r.InputDelta())

	err = r.SetNoiseThresholdFor("missing", 0.2)
	assert.ErrorIs(t, err, input.ErrUnknownInput)
	err = r.SetInputDeltaFor("direccion", 1.5)
	assert.ErrorIs(t, err, input.ErrOutOfRange)
}
