package input

import (
	"bytes"
	"encoding/json"
	"math"
)

// Vector is a raw or committed sample. Scalar inputs only use X.
type Vector struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
}

func (v Vector) sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// Value is the externally visible value of an input: a scalar for buttons,
// triggers and single axes, or a vector for dual axes.
type Value struct {
	Vector
	dual bool
}

// Scalar returns a scalar value.
func Scalar(v float64) Value {
	return Value{Vector: Vector{X: v}}
}

// Vec returns a dual axis value.
func Vec(x, y float64) Value {
	return Value{Vector: Vector{X: x, Y: y}, dual: true}
}

// Float returns the scalar reading of v. For dual axis values it is the X
// component.
func (v Value) Float() float64 {
	return v.X
}

func (v Value) IsDual() bool {
	return v.dual
}

// Interface returns float64 for scalars and Vector for dual axis values, the
// shape used by the JSON and CBOR encoders.
func (v Value) Interface() any {
	if v.dual {
		return v.Vector
	}
	return v.X
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts either a number or an {"x","y"} object.
func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		var vec Vector
		if err := json.Unmarshal(b, &vec); err != nil {
			return err
		}
		*v = Vec(vec.X, vec.Y)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Scalar(f)
	return nil
}

// Status maps input names to committed values. Every Status returned by this
// package is a fresh map owned by the caller.
type Status map[string]Value

// Merge copies every entry of partial into s.
func (s Status) Merge(partial Status) {
	for name, v := range partial {
		s[name] = v
	}
}

// Clone returns a copy of s.
func (s Status) Clone() Status {
	out := make(Status, len(s))
	out.Merge(s)
	return out
}
