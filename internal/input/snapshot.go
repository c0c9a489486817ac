package input

// Button is one raw button reading. Value carries the pressure of analog
// buttons and triggers; digital buttons report 0 or 1.
type Button struct {
	Pressed bool    `json:"pressed"`
	Value   float64 `json:"value"`
}

// Snapshot is one raw device sample, refreshed by the device layer every tick.
// Axis values are expected in [-1, 1] and button values in [0, 1], but they
// are not validated.
type Snapshot struct {
	Buttons []Button  `json:"buttons"`
	Axes    []float64 `json:"axes"`
}

// Indices outside the snapshot read as zero.

func (s Snapshot) button(i int) Button {
	if i < 0 || i >= len(s.Buttons) {
		return Button{}
	}
	return s.Buttons[i]
}

func (s Snapshot) axis(i int) float64 {
	if i < 0 || i >= len(s.Axes) {
		return 0
	}
	return s.Axes[i]
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Buttons: make([]Button, len(s.Buttons)),
		Axes:    make([]float64, len(s.Axes)),
	}
	copy(out.Buttons, s.Buttons)
	copy(out.Axes, s.Axes)
	return out
}
