// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/imu_visualizer/internal/fusion"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

const (
	wsSendBuffer = 64
	wsWriteWait  = 2 * time.Second
)

// ErrUnknownAction is returned for websocket commands the hub does not know.
var ErrUnknownAction = errors.New("unknown action")

// WSEvent is pushed to browsers. Type is one of orientation, sample, rate,
// error, disconnect or config.
type WSEvent struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// WSCommand is sent by browsers to change the fusion settings.
type WSCommand struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub streams engine output to websocket clients and applies their
// configuration commands through the fusion loop. A slow client loses
// messages instead of stalling the engine.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*wsClient
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local development
			},
		},
		clients: make(map[string]*wsClient),
	}
}

func (h *Hub) OnSample(s imu.Sample) { h.broadcast(WSEvent{Type: "sample", Data: s}) }

func (h *Hub) OnOrientation(st orientation.State) {
	h.broadcast(WSEvent{Type: "orientation", Data: st})
}

func (h *Hub) OnRate(hz float64) { h.broadcast(WSEvent{Type: "rate", Data: RatePayload{Hz: hz}}) }

func (h *Hub) OnDecodeError(err error) { h.broadcast(WSEvent{Type: "error", Message: err.Error()}) }

func (h *Hub) OnDisconnect(err error) {
	ev := WSEvent{Type: "disconnect"}
	if err != nil {
		ev.Message = err.Error()
	}
	h.broadcast(ev)
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev WSEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("web: marshal %s event: %v", ev.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) sendTo(c *wsClient, ev WSEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("web: marshal %s event: %v", ev.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) register(conn *websocket.Conn) *wsClient {
	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// Handler upgrades requests and serves each client until it goes away.
// Commands are applied through loop. The current configuration is sent
// first.
func (h *Hub) Handler(loop *fusion.Loop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveWS(loop, w, r)
	}
}

func (h *Hub) serveWS(loop *fusion.Loop, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := h.register(conn)
	log.Printf("web: websocket client %s connected", c.id)
	go c.writePump()
	defer func() {
		h.unregister(c)
		log.Printf("web: websocket client %s disconnected", c.id)
	}()

	var cfg fusion.FusionConfig
	if err := loop.Do(r.Context(), func(e *fusion.Engine) error {
		cfg = e.Config()
		return nil
	}); err != nil {
		return
	}
	h.sendTo(c, WSEvent{Type: "config", Data: cfg})

	for {
		var cmd WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}

		err := loop.Do(r.Context(), func(e *fusion.Engine) error {
			if err := applyCommand(e, cmd); err != nil {
				return err
			}
			cfg = e.Config()
			if cmd.Action == "reset" {
				h.OnOrientation(e.State())
			}
			return nil
		})
		if err != nil {
			h.sendTo(c, WSEvent{Type: "error", Message: err.Error()})
			continue
		}
		h.sendTo(c, WSEvent{Type: "config", Data: cfg})
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// applyCommand runs on the fusion goroutine.
func applyCommand(e *fusion.Engine, cmd WSCommand) error {
	switch cmd.Action {
	case "set_alpha":
		v, err := floatValue(cmd)
		if err != nil {
			return err
		}
		return e.SetAlpha(v)
	case "set_gyro_threshold":
		v, err := floatValue(cmd)
		if err != nil {
			return err
		}
		return e.SetGyroThreshold(v)
	case "set_ma_window_size":
		v, err := floatValue(cmd)
		if err != nil {
			return err
		}
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return fmt.Errorf("%w: moving average window must be a whole number, got %v", fusion.ErrInvalidConfig, v)
		}
		return e.SetMAWindowSize(int(v))
	case "set_drift_change_threshold":
		v, err := floatValue(cmd)
		if err != nil {
			return err
		}
		return e.SetDriftChangeThreshold(v)
	case "set_drift_compensation":
		var enabled bool
		if err := json.Unmarshal(cmd.Value, &enabled); err != nil {
			return fmt.Errorf("%s: value must be a boolean: %w", cmd.Action, err)
		}
		e.SetDriftCompensationEnabled(enabled)
		return nil
	case "reset":
		e.Reset()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

func floatValue(cmd WSCommand) (float64, error) {
	var v float64
	if err := json.Unmarshal(cmd.Value, &v); err != nil {
		return 0, fmt.Errorf("%s: value must be a number: %w", cmd.Action, err)
	}
	return v, nil
}
