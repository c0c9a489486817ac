// Package sdlpad reads gamepads through the SDL3 joystick API.
package sdlpad

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/soar/padcontrol/internal/gamepad"
	"github.com/soar/padcontrol/internal/input"
)

const (
	pollDelayNS       = 16_000_000 // ~60Hz
	triggerPressLevel = 0.12

	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

var ErrNoDevice = errors.New("no gamepad connected")

type joystickInfo struct {
	joystick *sdl.Joystick
	mapping  *gamepad.DeviceMapping
	name     string
	id       sdl.JoystickID
}

// Reader reads the SDL3 Joystick API on its own locked thread and keeps the
// latest raw snapshot of the active device.
type Reader struct {
	// Slot selects the active device among the connected ones, in
	// connection order. Negative means the first one.
	slot int

	joysticks map[sdl.JoystickID]*joystickInfo
	order     []sdl.JoystickID
	activeID  sdl.JoystickID
	hasActive bool
	logger    *slog.Logger

	// OnInit, if set, runs on the reader thread right after SDL init.
	OnInit func()

	mu       sync.RWMutex
	snapshot input.Snapshot
	ready    bool
}

func NewReader(slot int, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{
		slot:      slot,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		logger:    logger,
	}
}

// Snapshot returns a copy of the latest sample of the active device.
func (r *Reader) Snapshot() (input.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.ready {
		return input.Snapshot{}, ErrNoDevice
	}
	return r.snapshot.Clone(), nil
}

// Run initializes SDL and runs the event+polling loop on the current thread
// until ctx is done.
func (r *Reader) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		return fmt.Errorf("SDL init failed: %s", sdl.GetError())
	}
	defer sdl.Quit()

	r.logger.Info("SDL3 joystick subsystem initialized")
	if r.OnInit != nil {
		r.OnInit()
	}

	// Check for already-connected joysticks
	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		default:
		}

		r.processEvents()
		r.pollState()
		sdl.DelayNS(pollDelayNS)
	}
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.logger.Warn("Failed to open joystick", "id", instanceID, "error", sdl.GetError())
		return
	}

	jsID := sdl.GetJoystickID(js)
	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	info := &joystickInfo{
		joystick: js,
		mapping:  gamepad.GetMapping(vendorID, productID),
		name:     sdl.GetJoystickName(js),
		id:       jsID,
	}
	r.joysticks[jsID] = info
	r.order = append(r.order, jsID)

	r.logger.Info("Joystick connected",
		"name", info.name,
		"vid", fmt.Sprintf("%04X", vendorID),
		"pid", fmt.Sprintf("%04X", productID),
		"mapping", info.mapping.Name,
		"axes", sdl.GetNumJoystickAxes(js),
		"buttons", sdl.GetNumJoystickButtons(js),
		"hats", sdl.GetNumJoystickHats(js))

	r.selectActive()
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	r.logger.Info("Joystick disconnected", "name", info.name)
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)
	for i, id := range r.order {
		if id == instanceID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.hasActive && r.activeID == instanceID {
		r.hasActive = false
		r.mu.Lock()
		r.ready = false
		r.snapshot = input.Snapshot{}
		r.mu.Unlock()
	}
	r.selectActive()
}

// selectActive picks the device in the configured slot.
func (r *Reader) selectActive() {
	slot := r.slot
	if slot < 0 {
		slot = 0
	}
	if slot >= len(r.order) {
		return
	}
	id := r.order[slot]
	if r.hasActive && r.activeID == id {
		return
	}
	info := r.joysticks[id]
	r.activeID = id
	r.hasActive = true
	r.logger.Info("Active joystick set", "name", info.name, "mapping", info.mapping.Name, "id", id)
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		delete(r.joysticks, id)
	}
	r.order = nil
	r.hasActive = false
}

func (r *Reader) pollState() {
	if !r.hasActive {
		return
	}

	info, exists := r.joysticks[r.activeID]
	if !exists || !sdl.JoystickConnected(info.joystick) {
		return
	}

	var snap input.Snapshot
	if info.mapping.Generic() {
		snap = readRaw(info.joystick)
	} else {
		snap = readMapped(info.joystick, info.mapping)
	}

	r.mu.Lock()
	r.snapshot = snap
	r.ready = true
	r.mu.Unlock()
}

// readRaw copies every button and axis in device order.
func readRaw(js *sdl.Joystick) input.Snapshot {
	numButtons := sdl.GetNumJoystickButtons(js)
	numAxes := sdl.GetNumJoystickAxes(js)
	snap := input.Snapshot{
		Buttons: make([]input.Button, numButtons),
		Axes:    make([]float64, numAxes),
	}
	for i := int32(0); i < numButtons; i++ {
		snap.Buttons[i] = gamepad.Digital(sdl.GetJoystickButton(js, i))
	}
	for i := int32(0); i < numAxes; i++ {
		snap.Axes[i] = gamepad.NormalizeAxis(sdl.GetJoystickAxis(js, i))
	}
	return snap
}

// readMapped reorders the device into the standard layout.
func readMapped(js *sdl.Joystick, mapping *gamepad.DeviceMapping) input.Snapshot {
	snap := input.Snapshot{
		Buttons: make([]input.Button, gamepad.NumButtons),
		Axes:    make([]float64, gamepad.NumAxes),
	}

	for _, am := range mapping.Axes {
		raw := sdl.GetJoystickAxis(js, am.Index)
		if am.IsTrigger {
			v := gamepad.NormalizeTrigger(raw, am.RawMin, am.RawMax)
			snap.Buttons[am.Target] = input.Button{Pressed: v > triggerPressLevel, Value: v}
		} else {
			snap.Axes[am.Target] = gamepad.NormalizeAxis(raw)
		}
	}

	numButtons := sdl.GetNumJoystickButtons(js)
	for _, bm := range mapping.Buttons {
		if bm.Index >= numButtons {
			continue
		}
		snap.Buttons[bm.Target] = gamepad.Digital(sdl.GetJoystickButton(js, bm.Index))
	}

	if mapping.HasHat && sdl.GetNumJoystickHats(js) > 0 {
		hat := sdl.GetJoystickHat(js, 0)
		snap.Buttons[gamepad.ButtonUp] = gamepad.Digital(hat&hatUp != 0)
		snap.Buttons[gamepad.ButtonRight] = gamepad.Digital(hat&hatRight != 0)
		snap.Buttons[gamepad.ButtonDown] = gamepad.Digital(hat&hatDown != 0)
		snap.Buttons[gamepad.ButtonLeft] = gamepad.Digital(hat&hatLeft != 0)
	}
	return snap
}

