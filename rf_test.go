package dot11

// fakeRF is a minimal, single-goroutine RF stand-in for unit tests that
// exercise FSM/receiver logic directly without a live simrf medium.
type fakeRF struct {
	clockMS int64
	busy    bool
	timing  Timing
}

func (f *fakeRF) Receive() []byte { return nil }
func (f *fakeRF) Transmit([]byte) {}
func (f *fakeRF) InUse() bool     { return f.busy }
func (f *fakeRF) Clock() int64    { return f.clockMS }
func (f *fakeRF) Timing() Timing  { return f.timing }

var _ RF = (*fakeRF)(nil)
