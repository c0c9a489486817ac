package input

import (
	"errors"
	"fmt"
)

// Named pairs an input with the name it is reported under.
type Named struct {
	Name  string
	Input *Input
}

// Entry is shorthand for building a Named.
func Entry(name string, in *Input) Named {
	return Named{Name: name, Input: in}
}

// Registry owns a fixed set of named inputs and aggregates their changes
// into one status per tick.
//
// A Registry is not safe for concurrent use; the polling driver serializes
// every call.
type Registry struct {
	names  []string
	inputs map[string]*Input

	noiseThreshold float64
	inputDelta     float64
}

// NewRegistry builds a registry from entries. Iteration follows the order of
// entries. Inputs keep any threshold they were given before registration;
// the others use the registry defaults.
func NewRegistry(entries ...Named) (*Registry, error) {
	r := &Registry{
		names:          make([]string, 0, len(entries)),
		inputs:         make(map[string]*Input, len(entries)),
		noiseThreshold: DefaultNoiseThreshold,
		inputDelta:     DefaultInputDelta,
	}
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New("input name must not be empty")
		}
		if e.Input == nil {
			return nil, fmt.Errorf("input %q is nil", e.Name)
		}
		if _, ok := r.inputs[e.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateInput, e.Name)
		}
		if err := e.Input.validate(); err != nil {
			return nil, fmt.Errorf("input %q: %w", e.Name, err)
		}
		r.names = append(r.names, e.Name)
		r.inputs[e.Name] = e.Input
	}
	return r, nil
}

// Update samples every input from s and returns the inputs whose committed
// value changed, with their new values. The result is empty, never nil,
// when nothing changed.
func (r *Registry) Update(s Snapshot) Status {
	changed := make(Status)
	for _, name := range r.names {
		in := r.inputs[name]
		if in.Sample(in.read(s)) {
			changed[name] = in.Value()
		}
	}
	return changed
}

// Status returns the committed value of every input.
func (r *Registry) Status() Status {
	out := make(Status, len(r.names))
	for _, name := range r.names {
		out[name] = r.inputs[name].Value()
	}
	return out
}

// Reset zeroes every input. No change is reported; the caller decides
// whether to publish the resulting status.
func (r *Registry) Reset() {
	for _, name := range r.names {
		r.inputs[name].Reset()
	}
}

// Names returns the input names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int {
	return len(r.names)
}

func (r *Registry) Input(name string) (*Input, bool) {
	in, ok := r.inputs[name]
	return in, ok
}

// NoiseThreshold returns the registry wide default.
func (r *Registry) NoiseThreshold() float64 {
	return r.noiseThreshold
}

// InputDelta returns the registry wide default.
func (r *Registry) InputDelta() float64 {
	return r.inputDelta
}

// SetNoiseThreshold changes the default noise threshold and applies it to
// every input without an override.
func (r *Registry) SetNoiseThreshold(v float64) error {
	if err := checkRange("noiseThreshold", v); err != nil {
		return err
	}
	r.noiseThreshold = v
	for _, in := range r.inputs {
		if !in.noiseOverride {
			in.noiseThreshold = v
		}
	}
	return nil
}

// SetInputDelta changes the default input delta and applies it to every
// input without an override.
func (r *Registry) SetInputDelta(v float64) error {
	if err := checkRange("inputDelta", v); err != nil {
		return err
	}
	r.inputDelta = v
	for _, in := range r.inputs {
		if !in.deltaOverride {
			in.inputDelta = v
		}
	}
	return nil
}

// SetNoiseThresholdFor overrides the noise threshold of one input.
func (r *Registry) SetNoiseThresholdFor(name string, v float64) error {
	in, ok := r.inputs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	return in.SetNoiseThreshold(v)
}

// SetInputDeltaFor overrides the input delta of one input.
func (r *Registry) SetInputDeltaFor(name string, v float64) error {
	in, ok := r.inputs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownInput, name)
	}
	return in.SetInputDelta(v)
}
