// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Framing tells the decoder how the transport delimits frames.
type Framing int

const (
	// StreamFraming is a byte stream (serial): chunks are arbitrary slices
	// of newline-delimited text.
	StreamFraming Framing = iota

	// MessageFraming is a message transport (BLE notifications, MQTT): a
	// message of exactly BinaryFrameSize bytes is one binary frame, anything
	// else is a fragment of newline-delimited text.
	MessageFraming
)

func (f Framing) String() string {
	if f == MessageFraming {
		return "message"
	}
	return "stream"
}

// MaxLineLength bounds the partial-line buffer. A longer line is dropped.
const MaxLineLength = 1024

// Result is one decoded frame or the reason one was dropped.
type Result struct {
	Frame Frame
	Err   error
}

// Decoder turns transport chunks into frames. It is not safe for
// concurrent use.
type Decoder struct {
	framing  Framing
	pending  []byte
	overflow bool // discarding until the next newline
}

// NewDecoder returns a decoder for the given framing.
func NewDecoder(framing Framing) *Decoder {
	return &Decoder{framing: framing}
}

// Framing returns the framing the decoder was created with.
func (d *Decoder) Framing() Framing {
	return d.framing
}

// Pending returns the number of buffered bytes of an incomplete line.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

// Feed decodes a chunk and returns the results of every frame it
// completed, in order. The trailing incomplete line is kept for the next
// call.
func (d *Decoder) Feed(chunk []byte) []Result {
	if d.framing == MessageFraming {
		if len(chunk) == BinaryFrameSize {
			return []Result{{Frame: DecodeBinary([BinaryFrameSize]byte(chunk))}}
		}
		if !utf8.Valid(chunk) {
			return []Result{{Err: newDecodeError("",
				fmt.Sprintf("unexpected %d-byte binary message, want %d", len(chunk), BinaryFrameSize), nil)}}
		}
	}
	return d.feedText(chunk)
}

func (d *Decoder) feedText(chunk []byte) []Result {
	var results []Result
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			d.buffer(chunk, &results)
			break
		}

		d.buffer(chunk[:i], &results)
		chunk = chunk[i+1:]

		if d.overflow {
			d.overflow = false
			d.pending = d.pending[:0]
			continue
		}

		line := bytes.TrimSpace(d.pending)
		if len(line) > 0 {
			f, err := DecodeLine(string(line))
			results = append(results, Result{Frame: f, Err: err})
		}
		d.pending = d.pending[:0]
	}
	return results
}

// buffer appends to the partial line, switching to discard mode once the
// line grows past MaxLineLength.
func (d *Decoder) buffer(b []byte, results *[]Result) {
	if d.overflow {
		return
	}
	if len(d.pending)+len(b) > MaxLineLength {
		*results = append(*results, Result{Err: newDecodeError(string(d.pending),
			fmt.Sprintf("line exceeds %d bytes", MaxLineLength), nil)})
		d.pending = d.pending[:0]
		d.overflow = true
		return
	}
	d.pending = append(d.pending, b...)
}
