package dot11

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureRF records every frame handed to Transmit, for asserting on the ACK
// a Receiver emits.
type captureRF struct {
	fakeRF
	mu   sync.Mutex
	sent [][]byte
}

func (c *captureRF) Transmit(raw []byte) {
	c.mu.Lock()
	c.sent = append(c.sent, append([]byte(nil), raw...))
	c.mu.Unlock()
}

// TestReceiverAcksUnicastData checks ACK correspondence: a unicast DATA
// frame addressed to us is queued and answered with exactly one ACK
// carrying the same sequence number and swapped addresses.
func TestReceiverAcksUnicastData(t *testing.T) {
	rf := &captureRF{fakeRF: fakeRF{timing: Timing{SIFS: time.Millisecond}}}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	raw := Encode(FrameData, false, MAC(17), MAC(23), []byte("hi"), 2, 5)
	f, err := Decode(raw)
	require.NoError(t, err)

	r.handleUnicastData(f, raw)

	require.Equal(t, 1, recvQ.Len())
	assert.Equal(t, raw, recvQ.Pop())

	require.Len(t, rf.sent, 1)
	ackFrame, err := Decode(rf.sent[0])
	require.NoError(t, err)
	assert.Equal(t, FrameAck, ackFrame.Type)
	assert.Equal(t, MAC(23), ackFrame.Src)
	assert.Equal(t, MAC(17), ackFrame.Dst)
	assert.Equal(t, uint16(5), ackFrame.Seq)
	assert.Empty(t, ackFrame.Payload)
}

// TestReceiverDropsUnicastWhenRecvQueueFull confirms the recv-queue gate
// silently drops further unicast DATA once 4 are already queued, but still
// ACKs, since the ACK is the medium-access contract, independent of whether
// the upper layer ever drains the frame.
func TestReceiverDropsUnicastWhenRecvQueueFull(t *testing.T) {
	rf := &captureRF{fakeRF: fakeRF{timing: Timing{SIFS: time.Millisecond}}}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	for i := 0; i < recvQueueUnicastLimit; i++ {
		raw := Encode(FrameData, false, MAC(17), MAC(23), []byte{byte(i)}, 1, uint16(i))
		f, err := Decode(raw)
		require.NoError(t, err)
		r.handleUnicastData(f, raw)
	}
	assert.Equal(t, recvQueueUnicastLimit, recvQ.Len())

	raw := Encode(FrameData, false, MAC(17), MAC(23), []byte("overflow"), 8, 99)
	f, err := Decode(raw)
	require.NoError(t, err)
	r.handleUnicastData(f, raw)

	assert.Equal(t, recvQueueUnicastLimit, recvQ.Len(), "queue must stay at the gate limit")
	assert.Len(t, rf.sent, recvQueueUnicastLimit+1, "ACK still goes out even when the gate drops the frame")
}

// TestReceiverBroadcastDataBypassesGate confirms broadcast DATA is exempt
// from the unicast recv-queue gate and is never ACKed.
func TestReceiverBroadcastDataBypassesGate(t *testing.T) {
	rf := &captureRF{fakeRF: fakeRF{timing: Timing{SIFS: time.Millisecond}}}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	for i := 0; i < recvQueueUnicastLimit; i++ {
		recvQ.Push(Encode(FrameData, false, MAC(17), MAC(23), []byte{byte(i)}, 1, uint16(i)))
	}

	raw := Encode(FrameData, false, MAC(17), Broadcast, []byte("all"), 3, 0)
	r.handle(raw)

	assert.Equal(t, recvQueueUnicastLimit+1, recvQ.Len())
	assert.Empty(t, rf.sent, "broadcast DATA must not be ACKed")
}

// TestReceiverRoutesUnicastAckToAckQueue confirms handle() dispatches ACKs
// addressed to us onto the ack-queue the Transmitter's AWAIT_ACK polls.
func TestReceiverRoutesUnicastAckToAckQueue(t *testing.T) {
	rf := &captureRF{}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	raw := Encode(FrameAck, false, MAC(17), MAC(23), nil, 0, 7)
	r.handle(raw)

	require.Equal(t, 1, ackQ.Len())
	assert.Equal(t, uint16(7), ackQ.Pop().Seq)
}

// TestReceiverDropsBadCRC confirms a corrupted frame is dropped before any
// dispatch rather than forwarded.
func TestReceiverDropsBadCRC(t *testing.T) {
	rf := &captureRF{}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	raw := Encode(FrameData, false, MAC(17), MAC(23), []byte("x"), 1, 0)
	raw[0] ^= 0xFF

	r.handle(raw)
	assert.Equal(t, 0, recvQ.Len())
	assert.Empty(t, rf.sent)
}

// TestBeaconClockSync drives the beacon-driven clock sync path: a beacon
// carrying a later remote timestamp advances the local offset, and the
// offset never moves backward for a stale beacon.
func TestBeaconClockSync(t *testing.T) {
	rf := &fakeRF{clockMS: 1_000_000}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	ts := TimestampToBytes(1_005_000)
	r.handleBeacon(Frame{Type: FrameBeacon, Dst: Broadcast, Src: MAC(17), Payload: ts[:]})

	assert.GreaterOrEqual(t, clock.local(rf.Clock()), int64(1_005_000-recvFudgeFactorMS))

	before := clock.local(rf.Clock())
	stale := TimestampToBytes(999_000)
	r.handleBeacon(Frame{Type: FrameBeacon, Dst: Broadcast, Src: MAC(17), Payload: stale[:]})
	assert.Equal(t, before, clock.local(rf.Clock()), "a stale beacon must not move the clock offset backward")
}

// TestBeaconIgnoresMalformedPayload confirms a beacon whose payload isn't
// exactly the 8-byte timestamp is ignored rather than panicking or
// corrupting the clock offset.
func TestBeaconIgnoresMalformedPayload(t *testing.T) {
	rf := &fakeRF{clockMS: 500}
	var mu sync.Mutex
	recvQ := newQueue[[]byte]()
	ackQ := newQueue[Frame]()
	clock := &clockOffset{}
	r := newReceiver(rf, &mu, MAC(23), recvQ, ackQ, clock)

	r.handleBeacon(Frame{Type: FrameBeacon, Dst: Broadcast, Src: MAC(17), Payload: []byte{1, 2, 3}})
	assert.Equal(t, int64(500), clock.local(rf.Clock()))
}
