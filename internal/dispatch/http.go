package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soar/padcontrol/internal/car"
)

const probeTimeout = time.Second

// HTTP talks to the car's web server: basic commands are GET /{instruction},
// full status updates are POST /control and power requests POST /power.
type HTTP struct {
	baseURL string
	codec   Codec
	client  *http.Client
}

func NewHTTP(baseURL string, codec Codec, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		codec:   codec,
		client:  client,
	}
}

func (h *HTTP) Dispatch(ctx context.Context, cmd car.Command) error {
	var req *http.Request
	var err error
	if cmd.Instruction != "" {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+string(cmd.Instruction), nil)
	} else {
		var body []byte
		body, err = h.codec.Encode(cmd)
		if err != nil {
			return fmt.Errorf("encode command: %w", err)
		}
		path := "/control"
		if cmd.Power != nil {
			path = "/power"
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", h.codec.ContentType())
		}
	}
	if err != nil {
		return err
	}
	return h.do(req)
}

// Probe checks that the car answers by sending it a halt instruction.
func (h *HTTP) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+string(car.Halt), nil)
	if err != nil {
		return err
	}
	return h.do(req)
}

func (h *HTTP) do(req *http.Request) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: unexpected status %s", req.Method, req.URL.Path, resp.Status)
	}
	return nil
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
