package dispatch

import (
	"context"
	"fmt"
	"io"

	"github.com/tarm/serial"

	"github.com/soar/padcontrol/internal/car"
)

// Serial writes commands to a serial line, typically a microcontroller
// driving the motors.
type Serial struct {
	port  io.WriteCloser
	codec Codec
}

func NewSerial(port io.WriteCloser, codec Codec) *Serial {
	return &Serial{port: port, codec: codec}
}

func OpenSerial(name string, baud int, codec Codec) (*Serial, error) {
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return NewSerial(port, codec), nil
}

func (s *Serial) Dispatch(ctx context.Context, cmd car.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := s.codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if s.codec == JSON {
		payload = append(payload, '\n')
	}
	_, err = s.port.Write(payload)
	return err
}

func (s *Serial) Close() error {
	return s.port.Close()
}
