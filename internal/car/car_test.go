package car_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padcontrol/internal/car"
	"github.com/soar/padcontrol/internal/input"
)

type recorder struct {
	cmds chan car.Command
	err  error
}

func newRecorder() *recorder {
	return &recorder{cmds: make(chan car.Command, 16)}
}

func (r *recorder) Dispatch(_ context.Context, cmd car.Command) error {
	r.cmds <- cmd
	return r.err
}

func (r *recorder) Close() error { return nil }

func (r *recorder) next(t *testing.T) car.Command {
	t.Helper()
	select {
	case cmd := <-r.cmds:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("no command dispatched")
		return car.Command{}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		status input.Status
		want   car.Instruction
	}{
		{name: "empty", status: input.Status{}, want: car.Halt},
		{name: "forward", status: input.Status{"adelante": input.Scalar(1)}, want: car.Forward},
		{name: "backward", status: input.Status{"atras": input.Scalar(0.5)}, want: car.Backward},
		{name: "forward wins", status: input.Status{"adelante": input.Scalar(1), "atras": input.Scalar(1)}, want: car.Forward},
		{name: "left", status: input.Status{"direccion": input.Scalar(-0.5)}, want: car.Left},
		{name: "right over forward", status: input.Status{"direccion": input.Scalar(0.7), "adelante": input.Scalar(1)}, want: car.Right},
		{name: "dual axis x", status: input.Status{"direccion": input.Vec(-0.9, 0.2)}, want: car.Left},
		{name: "light throttle", status: input.Status{"adelante": input.Scalar(0.3)}, want: car.Halt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, car.Decide(tt.status))
		})
	}
}

func TestBasicModeSendsOnlyNewInstructions(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{Mode: car.Basic}, rec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Handle(input.Status{"adelante": input.Scalar(1)})
	assert.Equal(t, car.Forward, rec.next(t).Instruction)

	// steering change under the activation level keeps the instruction
	c.Handle(input.Status{"direccion": input.Scalar(0.3)})
	c.Handle(input.Status{"direccion": input.Scalar(0.8)})
	assert.Equal(t, car.Right, rec.next(t).Instruction)

	c.Handle(input.Status{"adelante": input.Scalar(0), "direccion": input.Scalar(0)})
	assert.Equal(t, car.Halt, rec.next(t).Instruction)
	assert.Equal(t, car.Halt, c.LastInstruction())

	select {
	case cmd := <-rec.cmds:
		t.Fatalf("unexpected command %+v", cmd)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicModeInitialHaltIsNotSent(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{}, rec, nil)

	c.Handle(input.Status{"adelante": input.Scalar(0)})
	c.Flush(context.Background())
	assert.Empty(t, rec.cmds)
}

func TestAdvancedModeSendsFullStatus(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{Mode: car.Advanced}, rec, nil)

	c.Handle(input.Status{"adelante": input.Scalar(1)})
	c.Handle(input.Status{"direccion": input.Vec(0.4, 0)})
	c.Flush(context.Background())

	first := rec.next(t)
	assert.Empty(t, first.Instruction)
	assert.Equal(t, input.Status{"adelante": input.Scalar(1)}, first.Status)

	second := rec.next(t)
	assert.Equal(t, input.Status{
		"adelante":  input.Scalar(1),
		"direccion": input.Vec(0.4, 0),
	}, second.Status)
	assert.NotZero(t, second.Timestamp)

	dispatched, dropped := c.Stats()
	assert.Equal(t, 2, dispatched)
	assert.Equal(t, 0, dropped)
}

func TestControllerDropsWhenQueueFull(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{Mode: car.Advanced, QueueSize: 1}, rec, nil)

	c.Handle(input.Status{"a": input.Scalar(1)})
	c.Handle(input.Status{"a": input.Scalar(0)})
	c.Handle(input.Status{"a": input.Scalar(1)})

	_, dropped := c.Stats()
	assert.Equal(t, 2, dropped)

	c.Flush(context.Background())
	assert.Equal(t, input.Status{"a": input.Scalar(1)}, rec.next(t).Status)
}

func TestControllerDispatchErrorIsNotCounted(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("car unreachable")
	c := car.NewController(car.Config{}, rec, nil)

	c.Handle(input.Status{"atras": input.Scalar(1)})
	c.Flush(context.Background())
	rec.next(t)

	dispatched, _ := c.Stats()
	assert.Equal(t, 0, dispatched)
	assert.Zero(t, c.Latency())
}

func TestPowerFor(t *testing.T) {
	tests := []struct {
		name    string
		status  input.Status
		linear  r3.Vector
		angular r3.Vector
	}{
		{name: "rest", status: input.Status{}},
		{name: "forward", status: input.Status{"adelante": input.Scalar(0.83)}, linear: r3.Vector{Y: 0.8}},
		{name: "both pedals cancel", status: input.Status{"adelante": input.Scalar(1), "atras": input.Scalar(1)}},
		{name: "reverse right", status: input.Status{"atras": input.Scalar(0.5), "direccion": input.Vec(0.46, 0.9)},
			linear: r3.Vector{Y: -0.5}, angular: r3.Vector{Z: -0.5}},
		{name: "wobble rounds away", status: input.Status{"direccion": input.Scalar(-0.04)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := car.PowerFor(tt.status)
			assert.Equal(t, tt.linear, p.Linear)
			assert.Equal(t, tt.angular, p.Angular)
		})
	}
}

func TestPowerModeSendsOnChange(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{Mode: car.Power}, rec, nil)

	c.Handle(input.Status{"adelante": input.Scalar(0.62)})
	c.Handle(input.Status{"adelante": input.Scalar(0.58)})
	c.Handle(input.Status{"adelante": input.Scalar(0)})
	c.Flush(context.Background())

	first := rec.next(t)
	require.NotNil(t, first.Power)
	assert.Equal(t, 0.6, first.Power.Linear.Y)
	assert.Empty(t, first.Instruction)

	second := rec.next(t)
	require.NotNil(t, second.Power)
	assert.Equal(t, car.BasePower{}, *second.Power)
	assert.Empty(t, rec.cmds)
}

func TestParseMode(t *testing.T) {
	m, err := car.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, car.Basic, m)

	m, err = car.ParseMode("advanced")
	require.NoError(t, err)
	assert.Equal(t, car.Advanced, m)

	m, err = car.ParseMode("power")
	require.NoError(t, err)
	assert.Equal(t, car.Power, m)

	_, err = car.ParseMode("turbo")
	assert.Error(t, err)
}

func TestFinalHaltSurvivesFullQueue(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{QueueSize: 1}, rec, nil)

	c.Handle(input.Status{"adelante": input.Scalar(1)})
	// the all-zero status sent when the session stops
	c.Handle(input.Status{"adelante": input.Scalar(0), "atras": input.Scalar(0), "direccion": input.Scalar(0)})
	c.Flush(context.Background())

	assert.Equal(t, car.Halt, rec.next(t).Instruction)
	assert.Empty(t, rec.cmds)
	_, dropped := c.Stats()
	assert.Equal(t, 1, dropped)
}

func TestPowerModeFinalZeroSurvivesFullQueue(t *testing.T) {
	rec := newRecorder()
	c := car.NewController(car.Config{Mode: car.Power, QueueSize: 1}, rec, nil)

	c.Handle(input.Status{"adelante": input.Scalar(1)})
	c.Handle(input.Status{"adelante": input.Scalar(0)})
	c.Flush(context.Background())

	last := rec.next(t)
	require.NotNil(t, last.Power)
	assert.Equal(t, car.BasePower{}, *last.Power)
	assert.Empty(t, rec.cmds)
}
