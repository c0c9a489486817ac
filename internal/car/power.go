package car

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/soar/padcontrol/internal/input"
)

// BasePower is a power request for a differential drive base. Linear.Y
// drives forward (positive) and back, Angular.Z turns left (positive) and
// right. Components are in [-1, 1].
type BasePower struct {
	Linear  r3.Vector
	Angular r3.Vector
}

// PowerFor maps the throttle and steering inputs to base power. Values are
// quantized to tenths so small wobble does not produce new commands.
func PowerFor(s input.Status) BasePower {
	return BasePower{
		Linear:  r3.Vector{Y: quantize(s[InputForward].Float() - s[InputBackward].Float())},
		Angular: r3.Vector{Z: quantize(-s[InputDirection].Float())},
	}
}

func quantize(a float64) float64 {
	a = math.Round(math.Max(-1, math.Min(1, a))*10) / 10
	if a == 0 {
		return 0 // no negative zero on the wire
	}
	return a
}
