// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/relabs-tech/imu_visualizer/internal/fusion"
	"github.com/relabs-tech/imu_visualizer/internal/imu"
	"github.com/relabs-tech/imu_visualizer/internal/orientation"
)

const webShutdownTimeout = 5 * time.Second

// OrientationResponse is served by /api/orientation and /api/reset.
type OrientationResponse struct {
	orientation.State
	Bias   imu.Vector3 `json:"bias"`
	RateHz float64     `json:"rate_hz"`
}

// NewWebHandler serves the JSON API, the websocket stream, the history
// chart and, when staticDir is set, the browser UI.
func NewWebHandler(loop *fusion.Loop, hub *Hub, history *History, staticDir string) http.Handler {
	mux := http.NewServeMux()

	// JSON API endpoint: latest pose
	mux.HandleFunc("GET /api/orientation", func(w http.ResponseWriter, r *http.Request) {
		var resp OrientationResponse
		err := loop.Do(r.Context(), func(e *fusion.Engine) error {
			resp = orientationResponse(e)
			return nil
		})
		writeResult(w, resp, err)
	})

	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, r *http.Request) {
		var cfg fusion.FusionConfig
		err := loop.Do(r.Context(), func(e *fusion.Engine) error {
			cfg = e.Config()
			return nil
		})
		writeResult(w, cfg, err)
	})

	// Fields left out of the body keep their current value.
	mux.HandleFunc("POST /api/config", func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var cfg fusion.FusionConfig
		err = loop.Do(r.Context(), func(e *fusion.Engine) error {
			next := e.Config()
			if err := json.Unmarshal(body, &next); err != nil {
				return fmt.Errorf("%w: %v", fusion.ErrInvalidConfig, err)
			}
			if err := e.SetConfig(next); err != nil {
				return err
			}
			cfg = e.Config()
			return nil
		})
		writeResult(w, cfg, err)
	})

	// Reset zeroes attitude and drift only; the sample history is kept.
	mux.HandleFunc("POST /api/reset", func(w http.ResponseWriter, r *http.Request) {
		var resp OrientationResponse
		err := loop.Do(r.Context(), func(e *fusion.Engine) error {
			e.Reset()
			resp = orientationResponse(e)
			if hub != nil {
				hub.OnOrientation(resp.State)
			}
			return nil
		})
		writeResult(w, resp, err)
	})

	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		var stats fusion.Stats
		err := loop.Do(r.Context(), func(e *fusion.Engine) error {
			stats = e.Stats()
			return nil
		})
		writeResult(w, stats, err)
	})

	if hub != nil {
		mux.Handle("GET /ws", hub.Handler(loop))
	}

	if history != nil {
		mux.HandleFunc("GET /chart", func(w http.ResponseWriter, r *http.Request) {
			var buf bytes.Buffer
			if err := RenderHistoryChart(&buf, history.Points()); err != nil {
				writeError(w, http.StatusInternalServerError, fmt.Errorf("render error: %w", err))
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(buf.Bytes())
		})
	}

	// Static files as the root
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return mux
}

// RunWeb serves handler on addr until ctx is cancelled.
func RunWeb(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), webShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("web: shutdown: %v", err)
		}
	}()

	log.Printf("web server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func orientationResponse(e *fusion.Engine) OrientationResponse {
	return OrientationResponse{State: e.State(), Bias: e.Bias(), RateHz: e.Rate()}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, 1<<16)); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), nil
}

// writeResult maps a loop error to a status code, or writes v.
func writeResult(w http.ResponseWriter, v any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case errors.Is(err, fusion.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, fusion.ErrLoopStopped):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorPayload{Error: err.Error()})
}
