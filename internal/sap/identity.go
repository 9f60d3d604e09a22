package sap

import (
	"fmt"
	"hash/crc32"

	"golang.org/x/text/unicode/norm"
)

// Identity is a flow's stable cross-restart identity, derived purely from
// its configuration so that repeated starts of the gateway never look like
// a "new" flow to a receiver such as Dante Controller.
type Identity struct {
	Key        string
	SessID     uint32 // SDP o= sess-id: full CRC32
	MsgIDHash  uint16 // SAP message id hash: low 16 bits of the same CRC32
}

// NewIdentity builds the canonical identity key
// "stream_name|mcast_ip|mcast_port|pt|sr|ch|codec" (spec.md §3) and its
// derived hashes. stream_name is NFC-normalized first so that NDI source
// names containing combining characters hash identically across restarts
// regardless of how the source happened to encode them.
func NewIdentity(streamName, mcastIP string, mcastPort, payloadType, sampleRate, channels int, codec string) Identity {
	normalized := norm.NFC.String(streamName)
	key := fmt.Sprintf("%s|%s|%d|pt=%d|sr=%d|ch=%d|%s",
		normalized, mcastIP, mcastPort, payloadType, sampleRate, channels, codec)
	sum := crc32.ChecksumIEEE([]byte(key))
	return Identity{
		Key:       key,
		SessID:    sum,
		MsgIDHash: uint16(sum & 0xFFFF),
	}
}
