// Package dispatch implements the transports that deliver car commands.
package dispatch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/geo/r3"

	"github.com/soar/padcontrol/internal/car"
	"github.com/soar/padcontrol/internal/input"
)

// Codec encodes a command for the wire.
type Codec interface {
	Name() string
	ContentType() string
	// Binary reports whether the payload must be sent as binary data.
	Binary() bool
	Encode(cmd car.Command) ([]byte, error)
}

func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	case "text":
		return Text, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
	Text Codec = textCodec{}
)

// wireCommand is the encoder-neutral form of car.Command: scalar values
// become numbers and dual axis values {x, y} objects.
type wireCommand struct {
	Instruction string         `json:"instruction,omitempty" cbor:"instruction,omitempty"`
	Status      map[string]any `json:"status,omitempty" cbor:"status,omitempty"`
	Power       *wirePower     `json:"power,omitempty" cbor:"power,omitempty"`
	Timestamp   int64          `json:"timestamp" cbor:"timestamp"`
}

type wireVector struct {
	X float64 `json:"x" cbor:"x"`
	Y float64 `json:"y" cbor:"y"`
	Z float64 `json:"z" cbor:"z"`
}

type wirePower struct {
	Linear  wireVector `json:"linear" cbor:"linear"`
	Angular wireVector `json:"angular" cbor:"angular"`
}

func vector(v r3.Vector) wireVector {
	return wireVector{X: v.X, Y: v.Y, Z: v.Z}
}

func toWire(cmd car.Command) wireCommand {
	w := wireCommand{
		Instruction: string(cmd.Instruction),
		Timestamp:   cmd.Timestamp,
	}
	if cmd.Power != nil {
		w.Power = &wirePower{Linear: vector(cmd.Power.Linear), Angular: vector(cmd.Power.Angular)}
	}
	if len(cmd.Status) > 0 {
		w.Status = make(map[string]any, len(cmd.Status))
		for name, v := range cmd.Status {
			w.Status[name] = v.Interface()
		}
	}
	return w
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }
func (jsonCodec) Binary() bool        { return false }

func (jsonCodec) Encode(cmd car.Command) ([]byte, error) {
	return json.Marshal(toWire(cmd))
}

type cborCodec struct{}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) ContentType() string { return "application/cbor" }
func (cborCodec) Binary() bool        { return true }

func (cborCodec) Encode(cmd car.Command) ([]byte, error) {
	return cbor.Marshal(toWire(cmd))
}

// textCodec writes one line per command for microcontroller firmware:
// the instruction alone, "linear=x,y,z angular=x,y,z" for power, or
// "name=value" pairs sorted by name with dual axis values written as "x,y".
type textCodec struct{}

func (textCodec) Name() string        { return "text" }
func (textCodec) ContentType() string { return "text/plain" }
func (textCodec) Binary() bool        { return false }

func (textCodec) Encode(cmd car.Command) ([]byte, error) {
	if cmd.Instruction != "" {
		return []byte(string(cmd.Instruction) + "\n"), nil
	}
	if p := cmd.Power; p != nil {
		return []byte("linear=" + formatVector(p.Linear) + " angular=" + formatVector(p.Angular) + "\n"), nil
	}
	names := make([]string, 0, len(cmd.Status))
	for name := range cmd.Status {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(formatValue(cmd.Status[name]))
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func formatValue(v input.Value) string {
	if v.IsDual() {
		return formatFloat(v.X) + "," + formatFloat(v.Y)
	}
	return formatFloat(v.X)
}

func formatVector(v r3.Vector) string {
	return formatFloat(v.X) + "," + formatFloat(v.Y) + "," + formatFloat(v.Z)
}
