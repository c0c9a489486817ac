package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/soar/padcontrol/internal/car"
)

// Config selects and configures a transport.
type Config struct {
	Transport string
	URL       string
	Codec     string
	Timeout   time.Duration
	MQTT      MQTTConfig
	Serial    SerialConfig
}

type SerialConfig struct {
	Port string
	Baud int
}

// New builds the dispatcher named by cfg.Transport.
func New(cfg Config, logger *slog.Logger) (car.Dispatcher, error) {
	codec, err := ParseCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	switch cfg.Transport {
	case "http", "":
		return NewHTTP(cfg.URL, codec, &http.Client{Timeout: cfg.Timeout}), nil
	case "websocket", "ws":
		return DialWebSocket(cfg.URL, codec, logger)
	case "mqtt":
		mc := cfg.MQTT
		if mc.Broker == "" {
			mc.Broker = cfg.URL
		}
		if mc.Timeout == 0 {
			mc.Timeout = cfg.Timeout
		}
		return DialMQTT(mc, codec, logger)
	case "serial":
		return OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, codec)
	case "log":
		return NewLog(codec, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// Log only logs commands. It is the dry-run transport.
type Log struct {
	codec  Codec
	logger *slog.Logger
}

func NewLog(codec Codec, logger *slog.Logger) *Log {
	return &Log{codec: codec, logger: logger}
}

func (l *Log) Dispatch(_ context.Context, cmd car.Command) error {
	payload, err := l.codec.Encode(cmd)
	if err != nil {
		return err
	}
	if l.codec.Binary() {
		l.logger.Info("Command", "bytes", len(payload))
		return nil
	}
	l.logger.Info("Command", "payload", string(payload))
	return nil
}

func (l *Log) Close() error {
	return nil
}
