package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/soar/padcontrol/internal/hub"
	"github.com/soar/padcontrol/internal/input"
	"github.com/soar/padcontrol/internal/poller"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := hub.NewClient(s.hub, conn)
	s.hub.Register(client)
	s.broadcaster.SendInitialState(client)

	go client.WritePump()
	go client.ReadPump(s.ctl)
}

type statusResponse struct {
	Running bool         `json:"running"`
	Status  input.Status `json:"status"`
	Car     *CarStats    `json:"car,omitempty"`
}

func (s *Server) status() statusResponse {
	resp := statusResponse{
		Running: s.ctl.Running(),
		Status:  s.broadcaster.Status(),
	}
	if s.carStats != nil {
		stats := s.carStats()
		resp.Car = &stats
	}
	return resp
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

type sessionRequest struct {
	Action string `json:"action"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	msg := hub.Execute(s.ctl, hub.ClientMessage{Type: req.Action})
	switch {
	case msg.Type == hub.TypeAck:
		writeJSON(w, http.StatusOK, s.status())
	case req.Action != hub.CmdStart && req.Action != hub.CmdStop:
		writeJSON(w, http.StatusBadRequest, msg)
	default:
		writeJSON(w, http.StatusConflict, msg)
	}
}

type thresholdsRequest struct {
	Name           string   `json:"name,omitempty"`
	NoiseThreshold *float64 `json:"noise_threshold,omitempty"`
	InputDelta     *float64 `json:"input_delta,omitempty"`
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.NoiseThreshold == nil && req.InputDelta == nil {
		writeError(w, http.StatusBadRequest, errors.New("nothing to set"))
		return
	}

	if req.NoiseThreshold != nil {
		if err := s.ctl.SetNoiseThreshold(req.Name, *req.NoiseThreshold); err != nil {
			writeError(w, thresholdStatus(err), err)
			return
		}
	}
	if req.InputDelta != nil {
		if err := s.ctl.SetInputDelta(req.Name, *req.InputDelta); err != nil {
			writeError(w, thresholdStatus(err), err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func thresholdStatus(err error) int {
	switch {
	case errors.Is(err, input.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, input.ErrUnknownInput):
		return http.StatusNotFound
	case errors.Is(err, poller.ErrAlreadyStarted), errors.Is(err, poller.ErrNotStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
