// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrMalformedFrame is returned for a text line that cannot be parsed or
	// for a message-framed unit of the wrong size that is not text.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrIncompleteSample is returned when a frame parsed but lacks the
	// accelerometer or gyroscope vector.
	ErrIncompleteSample = errors.New("incomplete sample")
)

// DecodeError describes one dropped frame. It matches ErrMalformedFrame
// with errors.Is, and also the underlying parse error when there is one.
type DecodeError struct {
	Line   string // offending line, truncated
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("malformed frame: %s", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Line != "" {
		msg += fmt.Sprintf(" (line: %q)", e.Line)
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedFrame}
	}
	return []error{ErrMalformedFrame, e.Err}
}

const maxQuotedLine = 80

func newDecodeError(line, reason string, err error) *DecodeError {
	if len(line) > maxQuotedLine {
		n := maxQuotedLine
		for n > 0 && !utf8.RuneStart(line[n]) {
			n--
		}
		line = line[:n] + "..."
	}
	return &DecodeError{Line: line, Reason: reason, Err: err}
}
