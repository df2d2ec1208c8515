package ilppacket

import "encoding/binary"

// MaxPacketAmountDetails is the payload a connector attaches to an F08
// (max packet amount exceeded) Reject.
type MaxPacketAmountDetails struct {
	AmountReceived uint64
	MaxAmount      uint64
}

// ParseF08Error reads the F08 payload out of reject.Data, if present.
// It returns (details, true) iff reject.Code == "F08" and
// len(reject.Data) >= 16; any bytes beyond the first 16 are ignored for
// forward compatibility.
func ParseF08Error(reject *Reject) (MaxPacketAmountDetails, bool) {
	if reject.Code != "F08" || len(reject.Data) < 16 {
		return MaxPacketAmountDetails{}, false
	}
	return MaxPacketAmountDetails{
		AmountReceived: binary.BigEndian.Uint64(reject.Data[0:8]),
		MaxAmount:      binary.BigEndian.Uint64(reject.Data[8:16]),
	}, true
}
