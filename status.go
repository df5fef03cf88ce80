// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import "sync/atomic"

// Status codes published on the link surface's status word. Values other
// than these are tolerated but not produced by this core.
const (
	StatusNone        int32 = 0
	StatusRxOK        int32 = 1
	StatusTxDelivered int32 = 4
	StatusTxFailed    int32 = 5
)

// statusWord is a single machine word readable by the upper layer and
// written by the Transmitter from its own goroutine and by Link.Send and
// Link.Recv from the caller's goroutine. A plain atomic int32 is sufficient
// here: the word has no compound invariant across fields.
type statusWord struct {
	v atomic.Int32
}

func (s *statusWord) set(code int32) { s.v.Store(code) }
func (s *statusWord) get() int32     { return s.v.Load() }
