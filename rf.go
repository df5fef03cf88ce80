// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import "time"

// RF is the virtual radio medium collaborator. The medium itself, carrier
// sense, and clock are supplied by the caller; the core only ever consumes
// them through this interface.
type RF interface {
	// Receive blocks until a frame is available and returns its raw bytes.
	Receive() []byte
	// Transmit puts raw frame bytes on the medium.
	Transmit([]byte)
	// InUse reports carrier sense: true if the medium is currently busy.
	InUse() bool
	// Clock returns the medium's millisecond-resolution monotonic clock.
	Clock() int64
	// Timing returns the collaborator's fixed 802.11-style timing constants.
	Timing() Timing
}

// Timing bundles the RF collaborator's constants. SIFS and Slot are real
// durations; CWMin/CWMax/RetryLimit are counts.
type Timing struct {
	SIFS       time.Duration
	Slot       time.Duration
	CWMin      int
	CWMax      int
	RetryLimit int
}

// DIFS is the distributed inter-frame space derived from the collaborator's
// constants: SIFS + 2*Slot.
func (t Timing) DIFS() time.Duration {
	return t.SIFS + 2*t.Slot
}
