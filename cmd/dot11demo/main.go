// Command dot11demo wires two dot11.Link stations to an in-memory RF medium
// and exchanges one unicast datagram, printing status transitions. It
// exists to exercise the Link Surface end-to-end outside of _test.go files;
// it does not reimplement an interactive console.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-dot11/dot11mac"
	"github.com/go-dot11/dot11mac/dot11metrics"
	"github.com/go-dot11/dot11mac/internal/simrf"
)

func main() {
	macA := pflag.Int("mac-a", 17, "MAC address of station A")
	macB := pflag.Int("mac-b", 23, "MAC address of station B")
	beaconSeconds := pflag.Int("beacon-interval", -1, "beacon interval in seconds, -1 to disable")
	maxSlot := pflag.Bool("max-slot", false, "use max-slot backoff instead of random")
	debug := pflag.Bool("debug", false, "enable debug logging")
	message := pflag.String("message", "hello", "payload to send from A to B")
	pflag.Parse()

	timing := dot11.Timing{
		SIFS:       2 * time.Millisecond,
		Slot:       1 * time.Millisecond,
		CWMin:      3,
		CWMax:      31,
		RetryLimit: 3,
	}
	medium := simrf.NewMedium(timing)

	a := dot11.NewLink(dot11.MAC(*macA), medium.NewNode())
	b := dot11.NewLink(dot11.MAC(*macB), medium.NewNode())
	defer a.Close()
	defer b.Close()

	metricsA := dot11metrics.NewCollector(fmt.Sprint(*macA))
	metricsB := dot11metrics.NewCollector(fmt.Sprint(*macB))

	if *debug {
		a.Command(dot11.CmdDebug, -1)
	}
	a.Command(dot11.CmdSlotMode, boolToVal(*maxSlot))
	if *beaconSeconds > 0 || *beaconSeconds == -1 {
		a.Command(dot11.CmdBeacon, *beaconSeconds)
	}

	go func() {
		var t dot11.Transmission
		n := b.Recv(&t)
		fmt.Printf("B received %d bytes from %s: %q\n", n, t.SourceAddr, t.Buf)
		metricsB.ObserveStatus(b.Status())
	}()

	n := a.Send(dot11.MAC(*macB), []byte(*message), len(*message))
	if n == 0 {
		fmt.Fprintln(os.Stderr, "send refused: backpressure")
		os.Exit(1)
	}

	time.Sleep(200 * time.Millisecond)
	metricsA.ObserveStatus(a.Status())
	fmt.Printf("A status: %d\n", a.Status())
}

func boolToVal(b bool) int {
	if b {
		return 1
	}
	return 0
}
