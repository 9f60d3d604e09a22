package sap

import (
	"encoding/binary"
	"net"
)

// sdpMIMEType is the SAP payload type field for embedded SDP (RFC 2974).
// Its presence, NUL-terminated, is required per the Open Question
// resolution in spec.md §9.
const sdpMIMEType = "application/sdp\x00"

// announceFlags / deleteFlags are the first SAP header byte: V(3)=1,
// A=0, R=0, T, E=0, C=0.
const (
	announceFlags byte = 0x20
	deleteFlags   byte = 0x24
)

// BuildPacket renders a full SAP datagram (RFC 2974 layout, spec.md §4.5):
// 1-byte flags, 1-byte auth length (always 0), 2-byte message id hash,
// 4-byte originating source IPv4, NUL-terminated MIME type, then the SDP
// bytes. delete selects the deletion framing (T-bit set, byte0 = 0x24).
func BuildPacket(msgIDHash uint16, originIP net.IP, sdp string, delete bool) []byte {
	flags := announceFlags
	if delete {
		flags = deleteFlags
	}

	v4 := originIP.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}

	buf := make([]byte, 0, 8+len(sdpMIMEType)+len(sdp))
	buf = append(buf, flags, 0x00)
	var hashBytes [2]byte
	binary.BigEndian.PutUint16(hashBytes[:], msgIDHash)
	buf = append(buf, hashBytes[:]...)
	buf = append(buf, v4...)
	buf = append(buf, []byte(sdpMIMEType)...)
	buf = append(buf, []byte(sdp)...)
	return buf
}

// AsDeletion returns a copy of an announcement packet built by BuildPacket
// with only byte 0 replaced to set the T (deletion) bit, matching Property
// 6 in spec.md §8: a deletion packet equals its announcement with byte 0
// flipped from 0x20 to 0x24, all other bytes identical.
func AsDeletion(announcement []byte) []byte {
	out := make([]byte, len(announcement))
	copy(out, announcement)
	if len(out) > 0 {
		out[0] = deleteFlags
	}
	return out
}
