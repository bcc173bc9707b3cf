// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package installer downloads a composed installer bundle and runs it.
// A run is a single goroutine reporting back over an ordered message
// channel; there is never more than one live run, enforced by the caller.
package installer

import "errors"

// ErrNoAppsSelected is returned synchronously when Start is called with
// an empty selection.
var ErrNoAppsSelected = errors.New("no applications selected")

// State is the pipeline state as observed by the consumer.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateInstalling
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateInstalling:
		return "installing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MessageKind discriminates pipeline messages.
type MessageKind int

const (
	// KindStateChanged carries a State transition.
	KindStateChanged MessageKind = iota
	// KindProgress carries a download fraction in [0, 1]. Emitted only
	// when the server reported a content length.
	KindProgress
	// KindFailed carries a failure description; the run is over and the
	// consumer should surface the error state.
	KindFailed
)

// Message is one FIFO channel entry from a pipeline run. Consumers must
// apply messages in order: state transitions are exact.
type Message struct {
	Kind     MessageKind
	State    State   // KindStateChanged
	Progress float64 // KindProgress
	Err      string  // KindFailed
}
