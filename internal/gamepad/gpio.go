package gamepad

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/soar/padcontrol/internal/input"
)

// GPIOSource reads buttons wired to GPIO pins, like the joystick and keys of
// a Raspberry Pi HAT. Button i of the snapshot is pins[i]; pins are active
// low. The snapshot has no axes.
type GPIOSource struct {
	pins []gpio.PinIn
}

// OpenGPIO initializes the host drivers and configures the named pins
// (e.g. "GPIO6") as pulled-up inputs.
func OpenGPIO(names []string) (*GPIOSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init gpio host: %w", err)
	}
	pins := make([]gpio.PinIn, 0, len(names))
	for _, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown gpio pin %q", name)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("setup pin %s: %w", name, err)
		}
		pins = append(pins, p)
	}
	return NewGPIOSource(pins), nil
}

func NewGPIOSource(pins []gpio.PinIn) *GPIOSource {
	return &GPIOSource{pins: pins}
}

func (g *GPIOSource) Snapshot() (input.Snapshot, error) {
	snap := input.Snapshot{Buttons: make([]input.Button, len(g.pins))}
	for i, p := range g.pins {
		snap.Buttons[i] = Digital(p.Read() == gpio.Low)
	}
	return snap, nil
}
