// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/go-dot11/dot11mac/internal/logx"
)

// ackTxTime is the implementer constant calibrating how long an ACK takes to
// go out on this RF simulator, used to size the AWAIT_ACK timeout.
const ackTxTime = 1113 * time.Millisecond

// wallAlignMS is the wall-clock boundary (ms) transmissions are aligned to.
const wallAlignMS = 50

// senderFudgeFactorMS is added to the local clock when building a beacon
// payload, compensating for send-path latency.
const senderFudgeFactorMS = 2100

// txState is the explicit state enumeration for the CSMA/CA FSM, preferred
// over nested conditionals so the machine can be unit tested as a
// transition function in isolation from RF.
type txState int

const (
	stateAwaitPacket txState = iota
	stateIdleDIFSWait
	stateBusyDIFSWait
	stateSlotWait
	stateAwaitAck
)

// txConfig holds the upper-layer command(cmd, val) settings that steer the
// FSM: debug logging is handled by internal/logx directly, slot-selection
// mode and the beacon scheduler live here.
type txConfig struct {
	mu               sync.Mutex
	maxSlotMode      bool
	beaconsEnabled   bool
	beaconIntervalMS int64
}

func (c *txConfig) setSlotMode(maxSlot bool) {
	c.mu.Lock()
	c.maxSlotMode = maxSlot
	c.mu.Unlock()
}

func (c *txConfig) slotMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxSlotMode
}

// setBeacon configures the beacon scheduler. valSeconds == -1 disables
// beacons; valSeconds == 0 is illegal and ignored; valSeconds > 0 enables
// beaconing at that interval.
func (c *txConfig) setBeacon(valSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case valSeconds < 0:
		c.beaconsEnabled = false
	case valSeconds == 0:
		// illegal, silently ignored
	default:
		c.beaconsEnabled = true
		c.beaconIntervalMS = int64(valSeconds) * 1000
	}
}

func (c *txConfig) beaconSettings() (enabled bool, intervalMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beaconsEnabled, c.beaconIntervalMS
}

// pendingFrame is the frame the FSM is currently trying to land on the
// medium.
type pendingFrame struct {
	raw         []byte
	dst         MAC
	src         MAC
	seq         uint16
	isBroadcast bool
	retries     int
}

// Transmitter is the CSMA/CA state machine. It is the sole writer of RF
// frames except for the Receiver's inline ACK emission, which is why both
// share rfMu.
type Transmitter struct {
	id     xid.ID
	rf     RF
	rfMu   *sync.Mutex
	ourMAC MAC

	sendQ  *queue[[]byte]
	ackQ   *queue[Frame]
	seqReg *seqRegistry
	clock  *clockOffset
	status *statusWord
	cfg    *txConfig

	lastBeaconSentTime int64 // ms, wall-clock as seen via rf.Clock()

	// sleep is overridable in tests so the FSM's timing predicates can be
	// exercised without real wall-clock delays.
	sleep func(time.Duration)
	rng   *rand.Rand
}

func newTransmitter(rf RF, rfMu *sync.Mutex, ourMAC MAC, sendQ *queue[[]byte], ackQ *queue[Frame], seqReg *seqRegistry, clock *clockOffset, status *statusWord, cfg *txConfig) *Transmitter {
	return &Transmitter{
		id:     xid.New(),
		rf:     rf,
		rfMu:   rfMu,
		ourMAC: ourMAC,
		sendQ:  sendQ,
		ackQ:   ackQ,
		seqReg: seqReg,
		clock:  clock,
		status: status,
		cfg:    cfg,
		sleep:  time.Sleep,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the FSM forward until stop is closed.
func (t *Transmitter) Run(stop <-chan struct{}) {
	state := stateAwaitPacket
	var pf *pendingFrame
	var cw int
	var slotRand int

	for {
		select {
		case <-stop:
			return
		default:
		}

		switch state {
		case stateAwaitPacket:
			pf, cw = t.awaitPacket(stop)
			if pf == nil {
				return // stop requested mid-wait
			}
			if t.rf.InUse() {
				state = stateBusyDIFSWait
			} else {
				state = stateIdleDIFSWait
			}

		case stateIdleDIFSWait:
			next := t.idleDIFSWait(pf)
			state = next

		case stateBusyDIFSWait:
			next, sr := t.busyDIFSWait(pf, cw)
			slotRand = sr
			state = next

		case stateSlotWait:
			state = t.slotWait(pf, &slotRand)

		case stateAwaitAck:
			next, newCW := t.awaitAck(pf, cw, slotRand)
			cw = newCW
			state = next
			if state == stateAwaitPacket {
				pf = nil
			}
		}
	}
}

// awaitPacket implements the AWAIT_PACKET state: beacon generation or a
// (possibly beacon-interval-timed) blocking take from the send-queue, then
// resets the per-frame retry/CW state.
func (t *Transmitter) awaitPacket(stop <-chan struct{}) (*pendingFrame, int) {
	enabled, intervalMS := t.cfg.beaconSettings()

	var raw []byte
	if enabled && t.isTimeToBeacon(intervalMS) {
		raw = t.createBeacon()
	} else if enabled {
		timeout := time.Duration(intervalMS) * time.Millisecond
		var ok bool
		raw, ok = t.sendQ.PopTimeout(timeout)
		if !ok {
			raw = t.createBeacon()
		}
	} else {
		select {
		case <-stop:
			return nil, t.rf.Timing().CWMin
		case raw = <-t.sendQ.ch:
		}
	}

	f, err := Decode(raw)
	if err != nil {
		// Malformed locally-built frame should never happen; drop and retry.
		logx.Warnf("transmitter[%s]: dropped unencodable pending frame", t.id)
		return t.awaitPacket(stop)
	}

	pf := &pendingFrame{
		raw:         raw,
		dst:         f.Dst,
		src:         f.Src,
		seq:         f.Seq,
		isBroadcast: f.Dst == Broadcast,
		retries:     0,
	}
	return pf, t.rf.Timing().CWMin
}

func (t *Transmitter) isTimeToBeacon(intervalMS int64) bool {
	if intervalMS <= 0 {
		return false
	}
	return t.rf.Clock()-t.lastBeaconSentTime >= intervalMS
}

func (t *Transmitter) createBeacon() []byte {
	ts := uint64(t.clock.local(t.rf.Clock()) + senderFudgeFactorMS)
	payload := TimestampToBytes(ts)
	seq := t.seqReg.nextFor(Broadcast)
	return Encode(FrameBeacon, false, t.ourMAC, Broadcast, payload[:], len(payload), seq)
}

// idleDIFSWait implements IDLE_DIFS_WAIT.
func (t *Transmitter) idleDIFSWait(pf *pendingFrame) txState {
	if t.rf.InUse() {
		return stateBusyDIFSWait
	}

	timing := t.rf.Timing()
	t.sleep(wallAlignSleep(t.rf.Clock()) + timing.DIFS())

	if t.rf.InUse() {
		return stateBusyDIFSWait
	}

	t.transmitOnChannel(pf)
	if pf.isBroadcast {
		return stateAwaitPacket
	}
	return stateAwaitAck
}

// busyDIFSWait implements BUSY_DIFS_WAIT: spin while busy, then draw a slot
// and attempt one more DIFS sleep before committing to SLOT_WAIT.
func (t *Transmitter) busyDIFSWait(pf *pendingFrame, cw int) (txState, int) {
	timing := t.rf.Timing()
	for t.rf.InUse() {
		t.sleep(wallAlignSleep(t.rf.Clock()) + timing.DIFS())
	}

	slotRand := t.drawSlot(cw)
	t.sleep(timing.DIFS())
	if t.rf.InUse() {
		return stateBusyDIFSWait, slotRand
	}
	return stateSlotWait, slotRand
}

func (t *Transmitter) drawSlot(cw int) int {
	if t.cfg.slotMode() {
		return cw
	}
	return t.rng.Intn(cw + 1) // inclusive [0, cw]
}

// slotWait implements SLOT_WAIT. slotRand is decremented in place. A
// busy-abort returns to BUSY_DIFS_WAIT, which draws a fresh slot count, so
// the remaining count is not carried into the next countdown.
func (t *Transmitter) slotWait(pf *pendingFrame, slotRand *int) txState {
	timing := t.rf.Timing()
	for *slotRand > 0 {
		sleepFor := timing.Slot
		if boundary := wallAlignSleep(t.rf.Clock()); boundary < sleepFor {
			sleepFor = boundary
		}
		t.sleep(sleepFor)

		if t.rf.InUse() {
			return stateBusyDIFSWait
		}
		// Only decrement when the full slot duration was the limiting
		// factor, not the 50ms wall-clock boundary.
		if sleepFor >= timing.Slot {
			*slotRand--
		}
	}

	if t.rf.InUse() {
		return stateBusyDIFSWait
	}

	t.transmitOnChannel(pf)
	if pf.isBroadcast {
		return stateAwaitPacket
	}
	return stateAwaitAck
}

// transmitOnChannel transmits pf.raw under the shared RF write lock and
// stamps lastBeaconSentTime. This happens for every transmission, not only
// beacon emissions, which postpones the next scheduled beacon after any
// unicast.
func (t *Transmitter) transmitOnChannel(pf *pendingFrame) {
	t.rfMu.Lock()
	t.rf.Transmit(pf.raw)
	t.rfMu.Unlock()
	t.lastBeaconSentTime = t.rf.Clock()
}

// awaitAck implements AWAIT_ACK: wait for a correspondent ACK or retry with
// exponential backoff up to dot11RetryLimit.
func (t *Transmitter) awaitAck(pf *pendingFrame, cw int, slotRand int) (txState, int) {
	timing := t.rf.Timing()
	timeout := timing.SIFS + ackTxTime + time.Duration(slotRand)*timing.Slot

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		f, ok := t.ackQ.PopTimeout(remaining)
		if !ok {
			break
		}
		if f.Dst == t.ourMAC && f.Src == pf.dst {
			t.status.set(StatusTxDelivered)
			return stateAwaitPacket, cw
		}
		// Not the ACK we're waiting for; keep waiting out the remainder.
	}

	if pf.retries < timing.RetryLimit {
		if pf.retries == 0 {
			cw = timing.CWMin
		} else {
			cw *= 2
			if cw > timing.CWMax {
				cw = timing.CWMax
			}
		}
		pf.retries++
		pf.raw = setRetryBit(pf.raw)
		return stateBusyDIFSWait, cw
	}

	t.status.set(StatusTxFailed)
	return stateAwaitPacket, cw
}

// setRetryBit returns a re-encoded copy of an already-encoded frame with the
// retry bit set and the trailing CRC recomputed, so a retransmission carries
// retry=1 with the same sequence number. raw itself is not modified.
func setRetryBit(raw []byte) []byte {
	f, err := Decode(raw)
	if err != nil {
		return raw
	}
	return Encode(f.Type, true, f.Src, f.Dst, f.Payload, len(f.Payload), f.Seq)
}

// wallAlignSleep computes (50 - now%50) ms so transmissions land on a 50ms
// wall-clock boundary. When now is exactly on a boundary this yields a full
// 50ms, not 0.
func wallAlignSleep(nowMS int64) time.Duration {
	rem := wallAlignMS - (nowMS % wallAlignMS)
	return time.Duration(rem) * time.Millisecond
}
