// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import (
	"fmt"
	"sync"

	"github.com/go-dot11/dot11mac/internal/logx"
)

// sendQueueLimit gates admission to the send-queue: Send reports backpressure
// once 4 entries are already queued, well below the queue's full bound
// capacity of 10.
const sendQueueLimit = 4

// Command identifiers for Link.Command.
const (
	CmdPrintSettings = 0
	CmdDebug         = 1
	CmdSlotMode      = 2
	CmdBeacon        = 3
)

// Transmission is the caller-supplied destination for Link.Recv.
type Transmission struct {
	Buf        []byte
	SourceAddr MAC
	DestAddr   MAC
}

// Link is the upper-layer-facing surface of the core: per-peer sequence
// numbers, the three queues, the clock offset and status word, and the
// command surface that drives the Transmitter's beacon/slot-mode behavior.
// Constructing one starts the Receiver and Transmitter workers.
type Link struct {
	ourMAC MAC
	rf     RF
	rfMu   sync.Mutex

	sendQ *queue[[]byte]
	recvQ *queue[[]byte]
	ackQ  *queue[Frame]

	seqReg *seqRegistry
	clock  *clockOffset
	status *statusWord
	cfg    *txConfig

	recv     *Receiver
	transmit *Transmitter
	stop     chan struct{}
	once     sync.Once
}

// NewLink constructs the Link surface for ourMAC over the given RF
// collaborator and starts its Receiver and Transmitter workers.
func NewLink(ourMAC MAC, rf RF) *Link {
	l := &Link{
		ourMAC: ourMAC,
		rf:     rf,
		sendQ:  newQueue[[]byte](),
		recvQ:  newQueue[[]byte](),
		ackQ:   newQueue[Frame](),
		seqReg: newSeqRegistry(),
		clock:  &clockOffset{},
		status: &statusWord{},
		cfg:    &txConfig{},
		stop:   make(chan struct{}),
	}
	l.recv = newReceiver(rf, &l.rfMu, ourMAC, l.recvQ, l.ackQ, l.clock)
	l.transmit = newTransmitter(rf, &l.rfMu, ourMAC, l.sendQ, l.ackQ, l.seqReg, l.clock, l.status, l.cfg)

	go l.recv.Run(l.stop)
	go l.transmit.Run(l.stop)
	return l
}

// Close signals both workers to exit at the top of their next loop
// iteration.
func (l *Link) Close() {
	l.once.Do(func() { close(l.stop) })
}

// Send enqueues data for dst, returning the number of bytes accepted. Returns
// 0 and publishes StatusTxFailed under send-queue backpressure.
func (l *Link) Send(dst MAC, data []byte, length int) int {
	if l.sendQ.Len() >= sendQueueLimit {
		l.status.set(StatusTxFailed)
		return 0
	}
	if length > len(data) {
		length = len(data)
	}
	if length < 0 {
		length = 0
	}

	seq := l.seqReg.nextFor(dst)
	raw := Encode(FrameData, false, l.ourMAC, dst, data, length, seq)
	l.sendQ.Push(raw)
	return length
}

// Recv blocks for the next frame addressed to us or to the broadcast
// address, writes it into t, and returns the payload length. The frame is
// re-decoded from the raw queued bytes and its CRC re-checked; a CRC failure
// here simply drops the entry and Recv waits for the next one.
func (l *Link) Recv(t *Transmission) int {
	for {
		raw := l.recvQ.Pop()
		f, err := Decode(raw)
		if err != nil || !f.CRCOk {
			continue
		}

		t.Buf = f.Payload
		t.SourceAddr = f.Src
		t.DestAddr = f.Dst
		l.status.set(StatusRxOK)
		return len(f.Payload)
	}
}

// Status returns the current status word.
func (l *Link) Status() int32 {
	return l.status.get()
}

// Command implements the recognized configuration options: print settings,
// toggle debug logging, set slot-selection mode, and arm/disarm beaconing.
func (l *Link) Command(cmd int, val int) int {
	switch cmd {
	case CmdPrintSettings:
		logx.Infof("dot11mac: mac=%s slotMode=%v beacon=%v", l.ourMAC, l.cfg.slotMode(), l.cfg.beaconsEnabled)
		return 0
	case CmdDebug:
		if val == -1 {
			logx.SetLevel(logx.LevelDebug)
		} else {
			logx.SetLevel(logx.LevelInfo)
		}
		return 0
	case CmdSlotMode:
		l.cfg.setSlotMode(val != 0)
		return 0
	case CmdBeacon:
		l.cfg.setBeacon(val)
		return 0
	default:
		logx.Warnf("dot11mac: ignoring unknown command %d", cmd)
		return -1
	}
}

// String renders a short identity line for debug output.
func (l *Link) String() string {
	return fmt.Sprintf("dot11.Link{mac=%s}", l.ourMAC)
}
