// Package addressmanager implements C8 of the consensus core: the
// known-peer directory of spec.md §4.8. It tracks not-banned addresses
// (mirrored in memory for O(1) enumeration and weighted sampling) and
// banned IPs, independently of the header-processing commit protocol -
// nothing here participates in a cross-store atomic batch, since no
// other store's consistency depends on it.
package addressmanager

import "net"

// NetAddress identifies a peer by its routable IP and port.
type NetAddress struct {
	IP   net.IP
	Port uint16
}

// AddressKey is the normalized, comparable identity of a NetAddress: its
// 16-byte IPv4-mapped-or-IPv6 form plus port. net.IP is a slice and can't
// serve as a map key directly, so every lookup goes through this.
type AddressKey struct {
	ip   [16]byte
	port uint16
}

func newAddressKey(address NetAddress) AddressKey {
	var key AddressKey
	copy(key.ip[:], address.IP.To16())
	key.port = address.Port
	return key
}

// IP returns the address key's IP component.
func (k AddressKey) IP() net.IP {
	return net.IP(append([]byte{}, k.ip[:]...))
}

// isIP reports whether the key's IP equals ip, the predicate ban/unban
// use to find every not-banned entry for a given address.
func (k AddressKey) isIP(ip net.IP) bool {
	return k.IP().Equal(ip)
}

const addressKeyLength = 18 // 16-byte IP + 2-byte port

func (k AddressKey) bytes() []byte {
	b := make([]byte, addressKeyLength)
	copy(b, k.ip[:])
	b[16] = byte(k.port >> 8)
	b[17] = byte(k.port)
	return b
}

func addressKeyFromBytes(b []byte) AddressKey {
	var key AddressKey
	copy(key.ip[:], b[:16])
	key.port = uint16(b[16])<<8 | uint16(b[17])
	return key
}

// Entry is one not-banned directory record: the address plus its streak
// of consecutive connection failures since the last success.
type Entry struct {
	Address               NetAddress
	ConnectionFailedCount uint64
}
