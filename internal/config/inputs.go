package config

import (
	"errors"
	"fmt"

	"github.com/soar/padcontrol/internal/gamepad"
	"github.com/soar/padcontrol/internal/input"
)

// Custom input types.
const (
	TypeDigital      = "digital"
	TypeAnalogButton = "analog_button"
	TypeSingleAxis   = "single_axis"
	TypeDualAxis     = "dual_axis"
)

// Registry builds the registry from the custom inputs or, when none are
// declared, from the profile. Registry-wide thresholds are applied before
// per-input overrides.
func (c *Config) Registry() (*input.Registry, error) {
	entries, err := c.entries()
	if err != nil {
		return nil, err
	}
	reg, err := input.NewRegistry(entries...)
	if err != nil {
		return nil, err
	}
	if err := reg.SetNoiseThreshold(c.NoiseThreshold); err != nil {
		return nil, err
	}
	if err := reg.SetInputDelta(c.InputDelta); err != nil {
		return nil, err
	}
	for _, ic := range c.Inputs {
		if ic.NoiseThreshold != nil {
			if err := reg.SetNoiseThresholdFor(ic.Name, *ic.NoiseThreshold); err != nil {
				return nil, err
			}
		}
		if ic.InputDelta != nil {
			if err := reg.SetInputDeltaFor(ic.Name, *ic.InputDelta); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func (c *Config) entries() ([]input.Named, error) {
	if len(c.Inputs) == 0 {
		return gamepad.Profile(c.Profile)
	}
	entries := make([]input.Named, 0, len(c.Inputs))
	for _, ic := range c.Inputs {
		in, err := ic.build()
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", ic.Name, err)
		}
		entries = append(entries, input.Entry(ic.Name, in))
	}
	return entries, nil
}

func (ic InputConfig) build() (*input.Input, error) {
	switch ic.Type {
	case TypeDualAxis:
		if ic.X == nil && ic.Y == nil {
			return nil, errors.New("dual_axis needs x or y")
		}
		x, y := input.Unwired, input.Unwired
		if ic.X != nil {
			x = *ic.X
		}
		if ic.Y != nil {
			y = *ic.Y
		}
		return input.NewDualAxis(x, y), nil
	case TypeDigital, TypeAnalogButton, TypeSingleAxis:
	default:
		return nil, fmt.Errorf("unknown type %q", ic.Type)
	}

	if ic.Index == nil {
		return nil, fmt.Errorf("%s needs index", ic.Type)
	}
	switch ic.Type {
	case TypeDigital:
		return input.NewDigitalButton(*ic.Index), nil
	case TypeAnalogButton:
		return input.NewAnalogButton(*ic.Index), nil
	default:
		return input.NewSingleAxis(*ic.Index), nil
	}
}
