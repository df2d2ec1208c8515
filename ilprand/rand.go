// Package ilprand wraps the CSPRNG this module uses for ILP request IDs
// and the handshake's unfulfillable condition: one package-level
// io.Reader callers read fixed-size values from, rather than importing
// crypto/rand ad hoc all over the tree.
package ilprand

import "crypto/rand"

// Reader is the CSPRNG every request_id/condition in this module is
// drawn from.
var Reader = rand.Reader

// Uint32 returns a uniformly random 32-bit request_id.
func Uint32() uint32 {
	var b [4]byte
	if _, err := Reader.Read(b[:]); err != nil {
		panic(err)
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
