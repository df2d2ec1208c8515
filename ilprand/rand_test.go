package ilprand

import "testing"

func TestUint32Varies(t *testing.T) {
	a := Uint32()
	b := Uint32()
	if a == b {
		t.Skip("extremely unlikely collision, not a failure on its own")
	}
}
