package sap

import (
	"net"
	"strings"
	"testing"
)

func TestIdentityStableAcrossCalls(t *testing.T) {
	a := NewIdentity("Studio A", "239.69.0.10", 5004, 96, 48000, 2, "L24")
	b := NewIdentity("Studio A", "239.69.0.10", 5004, 96, 48000, 2, "L24")
	if a.SessID != b.SessID {
		t.Fatalf("sess-id not stable: %d vs %d", a.SessID, b.SessID)
	}
	if a.MsgIDHash != b.MsgIDHash {
		t.Fatalf("msg-id-hash not stable: %d vs %d", a.MsgIDHash, b.MsgIDHash)
	}
	if a.MsgIDHash != uint16(a.SessID&0xFFFF) {
		t.Fatalf("msg-id-hash must be low 16 bits of sess-id CRC32")
	}
}

func TestIdentityChangesWithConfig(t *testing.T) {
	a := NewIdentity("Studio A", "239.69.0.10", 5004, 96, 48000, 2, "L24")
	b := NewIdentity("Studio B", "239.69.0.10", 5004, 96, 48000, 2, "L24")
	if a.SessID == b.SessID {
		t.Fatalf("different stream names must not collide")
	}
}

func TestBuildSDPShape(t *testing.T) {
	id := NewIdentity("Studio A", "239.69.0.10", 5004, 96, 48000, 2, "L24")
	sdpText := BuildSDP(SDPParams{
		OriginUser:       "SSQ",
		SessID:           id.SessID,
		StreamName:       "Studio A",
		McastIP:          "239.69.0.10",
		McastPort:        5004,
		PayloadType:      96,
		Codec:            "L24",
		SampleRate:       48000,
		Channels:         2,
		SamplesPerPacket: 48,
		OriginIP:         "10.0.0.5",
	})

	if !strings.HasPrefix(sdpText, "v=0\r\n") {
		t.Fatalf("sdp must start with v=0: %q", sdpText)
	}
	if !strings.HasSuffix(sdpText, "\r\n\r\n") {
		t.Fatalf("sdp must end with a trailing blank line: %q", sdpText)
	}
	if !strings.Contains(sdpText, "m=audio 5004 RTP/AVP 96\r\n") {
		t.Fatalf("missing media line: %q", sdpText)
	}
	if !strings.Contains(sdpText, "a=rtcp:5005\r\n") {
		t.Fatalf("missing rtcp attribute: %q", sdpText)
	}
	if !strings.Contains(sdpText, "a=rtpmap:96 L24/48000/2\r\n") {
		t.Fatalf("missing rtpmap: %q", sdpText)
	}
	if !strings.Contains(sdpText, "a=ptime:1\r\n") {
		t.Fatalf("expected ptime 1 for 48 samples/channel: %q", sdpText)
	}
	if strings.Contains(sdpText, "ts-refclk") {
		t.Fatalf("ts-refclk must be absent without a PTP_GMID: %q", sdpText)
	}
}

func TestBuildSDPWithPTP(t *testing.T) {
	sdpText := BuildSDP(SDPParams{
		OriginUser: "SSQ", StreamName: "Studio A", McastIP: "239.69.0.10",
		McastPort: 5004, PayloadType: 96, Codec: "L24", SampleRate: 48000,
		Channels: 2, SamplesPerPacket: 192,
		PTPGMID: "00-11-22-33-44-55-66-77", PTPDomain: "0",
	})
	if !strings.Contains(sdpText, "a=ts-refclk:ptp=IEEE1588-2008:00-11-22-33-44-55-66-77:0\r\n") {
		t.Fatalf("expected ts-refclk line: %q", sdpText)
	}
	if !strings.Contains(sdpText, "a=ptime:4\r\n") {
		t.Fatalf("expected ptime 4 for 192 samples/channel: %q", sdpText)
	}
}

func TestPtimeMillis(t *testing.T) {
	if got := PtimeMillis(48, 48000); got != 1 {
		t.Fatalf("PtimeMillis(48,48000) = %d, want 1", got)
	}
	if got := PtimeMillis(192, 48000); got != 4 {
		t.Fatalf("PtimeMillis(192,48000) = %d, want 4", got)
	}
}

func TestDeletionPacketMatchesAnnouncementExceptByteZero(t *testing.T) {
	announce := BuildPacket(0x1234, net.ParseIP("10.0.0.5"), "v=0\r\n", false)
	del := AsDeletion(announce)

	if len(announce) != len(del) {
		t.Fatalf("length mismatch: %d vs %d", len(announce), len(del))
	}
	if del[0] != 0x24 {
		t.Fatalf("deletion byte0 = %#x, want 0x24", del[0])
	}
	if announce[0] != 0x20 {
		t.Fatalf("announce byte0 = %#x, want 0x20", announce[0])
	}
	for i := 1; i < len(announce); i++ {
		if announce[i] != del[i] {
			t.Fatalf("byte %d differs: %#x vs %#x", i, announce[i], del[i])
		}
	}
}

func TestBuildPacketLayout(t *testing.T) {
	pkt := BuildPacket(0xABCD, net.ParseIP("192.168.1.1"), "v=0\r\n", false)

	if pkt[0] != 0x20 {
		t.Fatalf("byte0 = %#x, want 0x20", pkt[0])
	}
	if pkt[1] != 0x00 {
		t.Fatalf("auth len = %#x, want 0x00", pkt[1])
	}
	if pkt[2] != 0xAB || pkt[3] != 0xCD {
		t.Fatalf("msg id hash mismatch: %#x %#x", pkt[2], pkt[3])
	}
	if pkt[4] != 192 || pkt[5] != 168 || pkt[6] != 1 || pkt[7] != 1 {
		t.Fatalf("origin ip mismatch: %v", pkt[4:8])
	}
	mime := string(pkt[8:24])
	if mime != "application/sdp\x00" {
		t.Fatalf("mime type mismatch: %q", mime)
	}
	if string(pkt[24:]) != "v=0\r\n" {
		t.Fatalf("sdp payload mismatch: %q", string(pkt[24:]))
	}
}
