package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lxzan/gws"

	"github.com/soar/padcontrol/internal/car"
)

// WebSocket keeps one connection to the car open and writes every command
// as a single message.
type WebSocket struct {
	conn   *gws.Conn
	codec  Codec
	logger *slog.Logger
}

type wsEvents struct {
	gws.BuiltinEventHandler
	logger *slog.Logger
}

func (e *wsEvents) OnClose(_ *gws.Conn, err error) {
	e.logger.Info("Car websocket closed", "reason", err)
}

func (e *wsEvents) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()
	e.logger.Debug("Car websocket message", "data", message.Data.String())
}

// DialWebSocket connects to addr (ws:// or wss://).
func DialWebSocket(addr string, codec Codec, logger *slog.Logger) (*WebSocket, error) {
	conn, _, err := gws.NewClient(&wsEvents{logger: logger}, &gws.ClientOption{Addr: addr})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	go conn.ReadLoop()
	logger.Info("Connected to car websocket", "addr", addr)
	return &WebSocket{conn: conn, codec: codec, logger: logger}, nil
}

func (w *WebSocket) Dispatch(ctx context.Context, cmd car.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := w.codec.Encode(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	op := gws.OpcodeText
	if w.codec.Binary() {
		op = gws.OpcodeBinary
	}
	return w.conn.WriteMessage(op, payload)
}

func (w *WebSocket) Close() error {
	w.conn.WriteClose(1000, nil)
	return nil
}
