// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package fusion

import (
	"context"
	"errors"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("fusion loop stopped")

// event is a chunk or, when disconnected is set, the end of the stream.
type event struct {
	chunk        []byte
	disconnected bool
	err          error
}

type command struct {
	fn   func(*Engine) error
	done chan error
}

// Loop runs an Engine on a single goroutine. Transport callbacks and
// configuration requests may come from any goroutine; they are queued and
// applied one at a time, so every chunk is fully processed before the next
// one or any configuration change is looked at.
type Loop struct {
	engine   *Engine
	events   chan event
	commands chan command
	stopped  chan struct{}
}

// NewLoop wraps engine. The engine must not be used directly afterwards.
func NewLoop(engine *Engine) *Loop {
	return &Loop{
		engine:   engine,
		events:   make(chan event, 64),
		commands: make(chan command),
		stopped:  make(chan struct{}),
	}
}

// OnChunk queues a chunk from the transport. It blocks while the queue is
// full and returns immediately once the loop has stopped. The chunk must
// not be modified afterwards.
func (l *Loop) OnChunk(chunk []byte) {
	l.post(event{chunk: chunk})
}

// OnDisconnect queues a disconnect notification behind any pending chunks.
func (l *Loop) OnDisconnect(err error) {
	l.post(event{disconnected: true, err: err})
}

func (l *Loop) post(ev event) {
	select {
	case l.events <- ev:
	case <-l.stopped:
	}
}

// Do runs fn on the loop goroutine and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(*Engine) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case l.commands <- cmd:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			if ev.disconnected {
				l.engine.Disconnect(ev.err)
			} else {
				l.engine.Feed(ev.chunk)
			}
		case cmd := <-l.commands:
			cmd.done <- cmd.fn(l.engine)
		}
	}
}
