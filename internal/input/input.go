// Package input implements the debouncing engine that turns raw gamepad
// samples into a stable logical status.
//
// Every logical input is one of three variants. Digital inputs follow the
// press state of a button exactly. Analog inputs (button pressure, trigger,
// single axis) and dual axis inputs (thumbsticks) apply a two-phase
// activation policy: at rest, a sample must exceed the noise threshold to
// register; once active, it must move further than the input delta from the
// committed value. Dropping below the noise threshold commits zero once.
package input

import (
	"fmt"
	"math"
)

const (
	DefaultNoiseThreshold = 0.15
	DefaultInputDelta     = 0.10
)

// Unwired marks a missing dual axis component. It always reads as 0.
const Unwired = -1

type Kind uint8

const (
	Digital Kind = iota
	Analog
	DualAxis
)

func (k Kind) String() string {
	switch k {
	case Digital:
		return "digital"
	case Analog:
		return "analog"
	case DualAxis:
		return "dual_axis"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Source selects which snapshot array an analog input reads from.
type Source uint8

const (
	ButtonSource Source = iota
	AxisSource
)

// Input is one logical input. The index mapping is fixed at construction;
// only the committed value and the thresholds change afterwards.
type Input struct {
	kind   Kind
	source Source
	x, y   int

	value Vector

	noiseThreshold float64
	inputDelta     float64
	noiseOverride  bool
	deltaOverride  bool
}

func newInput(kind Kind, source Source, x, y int) *Input {
	return &Input{
		kind:           kind,
		source:         source,
		x:              x,
		y:              y,
		noiseThreshold: DefaultNoiseThreshold,
		inputDelta:     DefaultInputDelta,
	}
}

// NewDigitalButton returns an input that follows the pressed flag of a button.
func NewDigitalButton(index int) *Input {
	return newInput(Digital, ButtonSource, index, Unwired)
}

// NewAnalogButton returns an input that follows the pressure of a button or
// trigger.
func NewAnalogButton(index int) *Input {
	return newInput(Analog, ButtonSource, index, Unwired)
}

// NewSingleAxis returns an input that follows one axis.
func NewSingleAxis(index int) *Input {
	return newInput(Analog, AxisSource, index, Unwired)
}

// NewDualAxis returns an input that follows two axes as one vector. Either
// index may be Unwired.
func NewDualAxis(x, y int) *Input {
	return newInput(DualAxis, AxisSource, x, y)
}

func (in *Input) Kind() Kind {
	return in.kind
}

// Index returns the snapshot indices the input reads. y is Unwired for
// scalar inputs.
func (in *Input) Index() (x, y int) {
	return in.x, in.y
}

func (in *Input) validate() error {
	switch in.kind {
	case Digital, Analog:
		if in.x < 0 {
			return fmt.Errorf("%w: %s input index %d", ErrInvalidIndex, in.kind, in.x)
		}
	case DualAxis:
		if in.x < Unwired || in.y < Unwired || (in.x == Unwired && in.y == Unwired) {
			return fmt.Errorf("%w: dual axis index (%d, %d)", ErrInvalidIndex, in.x, in.y)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidIndex, in.kind)
	}
	return nil
}

// read extracts the raw sample of the input from s.
func (in *Input) read(s Snapshot) Vector {
	switch in.kind {
	case Digital:
		if s.button(in.x).Pressed {
			return Vector{X: 1}
		}
		return Vector{}
	case DualAxis:
		return Vector{X: s.axis(in.x), Y: s.axis(in.y)}
	}
	if in.source == AxisSource {
		return Vector{X: s.axis(in.x)}
	}
	return Vector{X: s.button(in.x).Value}
}

func (in *Input) magnitude(v Vector) float64 {
	if in.kind == DualAxis {
		return v.Norm()
	}
	return math.Abs(v.X)
}

// Sample feeds one raw reading to the input and reports whether the
// committed value changed. The new value is committed when it did.
func (in *Input) Sample(raw Vector) bool {
	if in.kind == Digital {
		if raw == in.value {
			return false
		}
		in.value = raw
		return true
	}

	var moved bool
	if in.magnitude(in.value) > in.noiseThreshold {
		moved = in.magnitude(raw.sub(in.value)) > in.inputDelta
	} else {
		moved = in.magnitude(raw) > in.noiseThreshold
	}
	if !moved {
		return false
	}

	if in.magnitude(raw) > in.noiseThreshold {
		in.value = raw
	} else {
		// released: both components go back together
		in.value = Vector{}
	}
	return true
}

// Value returns the last committed value.
func (in *Input) Value() Value {
	if in.kind == DualAxis {
		return Vec(in.value.X, in.value.Y)
	}
	return Scalar(in.value.X)
}

// Reset commits the zero value without reporting a change.
func (in *Input) Reset() {
	in.value = Vector{}
}

func (in *Input) NoiseThreshold() float64 {
	return in.noiseThreshold
}

func (in *Input) InputDelta() float64 {
	return in.inputDelta
}

// SetNoiseThreshold overrides the noise threshold of this input. A registry
// wide change no longer applies to it afterwards.
func (in *Input) SetNoiseThreshold(v float64) error {
	if err := checkRange("noiseThreshold", v); err != nil {
		return err
	}
	in.noiseThreshold = v
	in.noiseOverride = true
	return nil
}

// SetInputDelta overrides the input delta of this input. A registry wide
// change no longer applies to it afterwards.
func (in *Input) SetInputDelta(v float64) error {
	if err := checkRange("inputDelta", v); err != nil {
		return err
	}
	in.inputDelta = v
	in.deltaOverride = true
	return nil
}

func checkRange(param string, v float64) error {
	// NaN fails both comparisons, so test for the accepted range instead.
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%w: %s = %v", ErrOutOfRange, param, v)
	}
	return nil
}
