// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/go-dot11/dot11mac/internal/logx"
)

// recvQueueUnicastLimit is the backpressure gate on the recv-queue for
// unicast DATA frames: once 4 undelivered frames are queued for the upper
// layer, further unicasts addressed to us are dropped silently. Broadcasts
// are exempt from this gate.
const recvQueueUnicastLimit = 4

// recvFudgeFactorMS is the implementer-calibrated receive-path latency
// compensation subtracted from a beacon's remote timestamp before it is
// compared against the local clock.
const recvFudgeFactorMS = 2500

// Receiver is the continuous RF-poll loop: the state it touches (the clock
// offset, the recv-queue and ack-queue, and the RF write lock) is shared with
// the rest of the Link, so it is constructed with references into the shared
// Link surface rather than owning copies.
type Receiver struct {
	id     xid.ID
	rf     RF
	rfMu   *sync.Mutex
	ourMAC MAC

	recvQ *queue[[]byte]
	ackQ  *queue[Frame]
	clock *clockOffset
}

func newReceiver(rf RF, rfMu *sync.Mutex, ourMAC MAC, recvQ *queue[[]byte], ackQ *queue[Frame], clock *clockOffset) *Receiver {
	return &Receiver{
		id:     xid.New(),
		rf:     rf,
		rfMu:   rfMu,
		ourMAC: ourMAC,
		recvQ:  recvQ,
		ackQ:   ackQ,
		clock:  clock,
	}
}

// Run is the receiver's worker loop: one pass per RF reception, for as long
// as stop is open. It never returns under normal operation.
func (r *Receiver) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		raw := r.rf.Receive()
		r.handle(raw)
	}
}

func (r *Receiver) handle(raw []byte) {
	f, err := Decode(raw)
	if err != nil {
		// Shorter than the fixed header: nothing to even dispatch on.
		return
	}
	if !f.CRCOk {
		logx.Debugf("receiver[%s]: dropping frame with bad CRC from %s", r.id, f.Src)
		return
	}

	switch {
	case f.Type == FrameData && f.Dst == r.ourMAC:
		r.handleUnicastData(f, raw)
	case f.Type == FrameData && f.Dst == Broadcast:
		r.recvQ.TryPush(raw)
	case f.Type == FrameAck && f.Dst == r.ourMAC:
		r.ackQ.TryPush(f)
	case f.Type == FrameBeacon && f.Dst == Broadcast:
		r.handleBeacon(f)
	default:
		// RTS/CTS and anything else: silently dropped.
	}
}

func (r *Receiver) handleUnicastData(f Frame, raw []byte) {
	if r.recvQ.Len() < recvQueueUnicastLimit {
		r.recvQ.TryPush(raw)
	}

	timing := r.rf.Timing()
	time.Sleep(timing.SIFS)

	ack := Encode(FrameAck, false, r.ourMAC, f.Src, nil, 0, f.Seq)
	r.rfMu.Lock()
	r.rf.Transmit(ack)
	r.rfMu.Unlock()
}

func (r *Receiver) handleBeacon(f Frame) {
	if len(f.Payload) != 8 {
		return
	}
	remote := int64(BytesToTimestamp(f.Payload)) - recvFudgeFactorMS
	local := r.clock.local(r.rf.Clock())
	if remote > local {
		r.clock.advance(remote - r.rf.Clock())
	}
}
