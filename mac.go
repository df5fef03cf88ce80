// Copyright (c) 2022 0x9ef. All rights reserved.
// Use of this source code is governed by an MIT license
// that can be found in the LICENSE file.
package dot11

import "fmt"

// MAC is a node address on the simulated 802.11~ medium. Unlike classic
// Ethernet's 48-bit hardware address, this medium addresses nodes with a
// signed 16-bit value so that the broadcast pseudo-address can be expressed
// as -1 (wire value 0xFFFF) without a separate "is broadcast" flag.
type MAC int16

// Broadcast is the pseudo-destination used for beacons and broadcast DATA
// frames. On the wire it is encoded as 0xFFFF.
const Broadcast MAC = -1

// wire encodes the MAC as the big-endian uint16 used on the wire.
func (m MAC) wire() uint16 { return uint16(m) }

// macFromWire decodes the big-endian wire value, preserving the 0xFFFF ==
// Broadcast identity.
func macFromWire(v uint16) MAC { return MAC(int16(v)) }

// IsBroadcast reports whether m is the broadcast pseudo-address.
func (m MAC) IsBroadcast() bool { return m == Broadcast }

// String renders the address for debug output, substituting "broadcast" for
// the -1/0xFFFF sentinel.
func (m MAC) String() string {
	if m.IsBroadcast() {
		return "broadcast"
	}
	return fmt.Sprintf("%d", int16(m))
}
