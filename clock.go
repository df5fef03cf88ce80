// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import "sync/atomic"

// clockOffset is the millisecond offset added to the RF's clock reading to
// produce this node's local clock. It is written only by the Receiver on
// beacon reception and only ever advances.
type clockOffset struct {
	ms atomic.Int64
}

// local returns rfClock + the current offset.
func (c *clockOffset) local(rfClock int64) int64 {
	return rfClock + c.ms.Load()
}

// advance raises the offset to candidate if candidate is larger than the
// current value. Returns true if the offset moved; the offset never
// decreases.
func (c *clockOffset) advance(candidate int64) bool {
	for {
		cur := c.ms.Load()
		if candidate <= cur {
			return false
		}
		if c.ms.CompareAndSwap(cur, candidate) {
			return true
		}
	}
}
