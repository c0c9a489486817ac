package gamepad

import (
	"fmt"
	"math"

	"github.com/soar/padcontrol/internal/input"
)

// Standard layout indices. Readers reorder device buttons and axes into this
// layout so profiles do not depend on the controller model.
const (
	ButtonA = iota
	ButtonB
	ButtonX
	ButtonY
	ButtonLB
	ButtonRB
	ButtonLT
	ButtonRT
	ButtonSelect
	ButtonStart
	ButtonL3
	ButtonR3
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
	ButtonHome

	NumButtons
)

const (
	AxisLeftX = iota
	AxisLeftY
	AxisRightX
	AxisRightY

	NumAxes
)

// AxisMapping defines how a raw axis index maps to the standard layout.
// Triggers become analog buttons; the other axes keep their sign
// (right and down are positive).
type AxisMapping struct {
	Index     int32
	Target    int
	IsTrigger bool
	// For triggers: raw range. Some devices use -32768..32767, others 0..32767.
	RawMin int16
	RawMax int16
}

// ButtonMapping defines how a raw button index maps to a standard button.
type ButtonMapping struct {
	Index  int32
	Target int
}

// DeviceMapping holds the complete mapping for a specific device type.
type DeviceMapping struct {
	Name    string
	Axes    []AxisMapping
	Buttons []ButtonMapping
	HasHat  bool
}

// Generic reports whether the mapping passes the device layout through.
func (m *DeviceMapping) Generic() bool {
	return len(m.Axes) == 0 && len(m.Buttons) == 0
}

// Digital builds a button reading from a pressed flag.
func Digital(pressed bool) input.Button {
	if pressed {
		return input.Button{Pressed: true, Value: 1}
	}
	return input.Button{}
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// NormalizeTrigger converts a raw trigger value to 0.0..1.0.
func NormalizeTrigger(raw int16, rawMin, rawMax int16) float64 {
	if rawMax == rawMin {
		return 0
	}
	v := (float64(raw) - float64(rawMin)) / (float64(rawMax) - float64(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

var sticks = []AxisMapping{
	{Index: 0, Target: AxisLeftX},
	{Index: 1, Target: AxisLeftY},
	{Index: 2, Target: AxisRightX},
	{Index: 3, Target: AxisRightY},
}

var triggers = []AxisMapping{
	{Index: 4, Target: ButtonLT, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	{Index: 5, Target: ButtonRT, IsTrigger: true, RawMin: -32768, RawMax: 32767},
}

var xboxMapping = &DeviceMapping{
	Name: "xbox",
	Axes: append(append([]AxisMapping{}, sticks...), triggers...),
	Buttons: []ButtonMapping{
		{Index: 0, Target: ButtonA},
		{Index: 1, Target: ButtonB},
		{Index: 2, Target: ButtonX},
		{Index: 3, Target: ButtonY},
		{Index: 4, Target: ButtonLB},
		{Index: 5, Target: ButtonRB},
		{Index: 6, Target: ButtonSelect},
		{Index: 7, Target: ButtonStart},
		{Index: 8, Target: ButtonL3},
		{Index: 9, Target: ButtonR3},
		{Index: 10, Target: ButtonHome},
	},
	HasHat: true,
}

var playstationMapping = &DeviceMapping{
	Name: "playstation",
	Axes: append(append([]AxisMapping{}, sticks...), triggers...),
	Buttons: []ButtonMapping{
		{Index: 0, Target: ButtonA},      // Cross
		{Index: 1, Target: ButtonB},      // Circle
		{Index: 2, Target: ButtonX},      // Square
		{Index: 3, Target: ButtonY},      // Triangle
		{Index: 4, Target: ButtonSelect}, // Share / Create
		{Index: 5, Target: ButtonHome},   // PS button
		{Index: 6, Target: ButtonStart},  // Options
		{Index: 7, Target: ButtonL3},
		{Index: 8, Target: ButtonR3},
		{Index: 9, Target: ButtonLB},  // L1
		{Index: 10, Target: ButtonRB}, // R1
	},
	HasHat: true,
}

var switchProMapping = &DeviceMapping{
	Name: "switch_pro",
	Axes: sticks,
	Buttons: []ButtonMapping{
		{Index: 0, Target: ButtonA},
		{Index: 1, Target: ButtonB},
		{Index: 2, Target: ButtonX},
		{Index: 3, Target: ButtonY},
		{Index: 4, Target: ButtonLB},
		{Index: 5, Target: ButtonRB},
		{Index: 6, Target: ButtonSelect},
		{Index: 7, Target: ButtonStart},
		{Index: 8, Target: ButtonL3},
		{Index: 9, Target: ButtonR3},
		{Index: 10, Target: ButtonHome},
	},
	HasHat: true,
}

// genericMapping passes buttons and axes through in device order. Wheels
// and other unknown devices end up here, so profiles for them use raw
// indices.
var genericMapping = &DeviceMapping{
	Name: "generic",
}

// Known vendor/product IDs.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	// Microsoft Xbox controllers
	{0x045E, 0x028E}: xboxMapping, // Xbox 360
	{0x045E, 0x02FF}: xboxMapping, // Xbox One
	{0x045E, 0x0B12}: xboxMapping, // Xbox Series X|S
	{0x045E, 0x0B13}: xboxMapping, // Xbox Series X|S (wireless)
	// Sony PlayStation controllers
	{0x054C, 0x0CE6}: playstationMapping, // DualSense
	{0x054C, 0x09CC}: playstationMapping, // DualShock 4 v2
	{0x054C, 0x05C4}: playstationMapping, // DualShock 4 v1
	// Nintendo Switch Pro Controller
	{0x057E, 0x2009}: switchProMapping,
}

// GetMapping returns the appropriate mapping for a device identified by vendor/product ID.
// Falls back to generic mapping if no specific mapping is found.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	key := deviceKey{VendorID: vendorID, ProductID: productID}
	if m, ok := knownDevices[key]; ok {
		return m
	}
	return genericMapping
}

// Profiles lists the built-in input profiles.
var Profiles = []string{"wheel", "xbox", "xbox_full"}

// Profile returns a freshly built input set for a named profile. Inputs are
// stateful, so every registry needs its own set.
func Profile(name string) ([]input.Named, error) {
	switch name {
	case "wheel":
		return []input.Named{
			input.Entry("adelante", input.NewDigitalButton(ButtonRB)),
			input.Entry("atras", input.NewDigitalButton(ButtonLB)),
			input.Entry("direccion", input.NewSingleAxis(AxisLeftX)),
		}, nil
	case "xbox":
		return []input.Named{
			input.Entry("adelante", input.NewAnalogButton(ButtonRT)),
			input.Entry("atras", input.NewAnalogButton(ButtonLT)),
			input.Entry("direccion", input.NewDualAxis(AxisLeftX, input.Unwired)),
		}, nil
	case "xbox_full":
		return []input.Named{
			input.Entry("A", input.NewDigitalButton(ButtonA)),
			input.Entry("B", input.NewDigitalButton(ButtonB)),
			input.Entry("X", input.NewDigitalButton(ButtonX)),
			input.Entry("Y", input.NewDigitalButton(ButtonY)),
			input.Entry("BUMPER_LEFT", input.NewDigitalButton(ButtonLB)),
			input.Entry("BUMPER_RIGHT", input.NewDigitalButton(ButtonRB)),
			input.Entry("TRIGGER_LEFT", input.NewAnalogButton(ButtonLT)),
			input.Entry("TRIGGER_RIGHT", input.NewAnalogButton(ButtonRT)),
			input.Entry("BUTTON_VIEW", input.NewDigitalButton(ButtonSelect)),
			input.Entry("BUTTON_MENU", input.NewDigitalButton(ButtonStart)),
			input.Entry("THUMBSTICK_L_CLICK", input.NewDigitalButton(ButtonL3)),
			input.Entry("THUMBSTICK_R_CLICK", input.NewDigitalButton(ButtonR3)),
			input.Entry("D_PAD_UP", input.NewDigitalButton(ButtonUp)),
			input.Entry("D_PAD_DOWN", input.NewDigitalButton(ButtonDown)),
			input.Entry("D_PAD_LEFT", input.NewDigitalButton(ButtonLeft)),
			input.Entry("D_PAD_RIGHT", input.NewDigitalButton(ButtonRight)),
			input.Entry("BUTTON_HOME", input.NewDigitalButton(ButtonHome)),
			input.Entry("LEFT_THUMBSTICK", input.NewDualAxis(AxisLeftX, AxisLeftY)),
			input.Entry("RIGHT_THUMBSTICK", input.NewDualAxis(AxisRightX, AxisRightY)),
		}, nil
	default:
		return nil, fmt.Errorf("unknown profile %q (available: %v)", name, Profiles)
	}
}
