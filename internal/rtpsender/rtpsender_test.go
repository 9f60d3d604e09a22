package rtpsender

import (
	"net"
	"testing"

	"github.com/pion/rtp"
)

// loopbackSender builds a Sender bypassing New's interface selection, so
// tests don't depend on the host having a real multicast-capable NIC.
func loopbackSender(t *testing.T, ssrc uint32, startSeq uint16, startTS uint32) (*Sender, *net.UDPConn) {
	t.Helper()

	rx, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { rx.Close() })

	tx, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { tx.Close() })

	s := &Sender{
		conn:        tx,
		dst:         rx.LocalAddr().(*net.UDPAddr),
		ssrc:        ssrc,
		payloadType: 96,
		seq:         startSeq,
		timestamp:   startTS,
	}
	s.lastSendError.Store("")
	return s, rx
}

func TestSendAdvancesSequenceAndTimestamp(t *testing.T) {
	s, rx := loopbackSender(t, 0xCAFEBABE, 1000, 480000)

	payload := make([]byte, 48*2*3) // 48 samples/channel, stereo, L24

	for i := 0; i < 3; i++ {
		if err := s.Send(payload, 48); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	if s.PacketsSent() != 3 {
		t.Fatalf("packets sent = %d, want 3", s.PacketsSent())
	}

	buf := make([]byte, 1500)
	for i, wantSeq := range []uint16{1000, 1001, 1002} {
		n, err := rx.Read(buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			t.Fatalf("unmarshal %d: %v", i, err)
		}
		if pkt.SequenceNumber != wantSeq {
			t.Fatalf("packet %d seq = %d, want %d", i, pkt.SequenceNumber, wantSeq)
		}
		wantTS := uint32(480000 + i*48)
		if pkt.Timestamp != wantTS {
			t.Fatalf("packet %d timestamp = %d, want %d", i, pkt.Timestamp, wantTS)
		}
		if pkt.SSRC != 0xCAFEBABE {
			t.Fatalf("packet %d ssrc = %#x, want fixed ssrc", i, pkt.SSRC)
		}
		if pkt.PayloadType != 96 {
			t.Fatalf("packet %d payload type = %d, want 96", i, pkt.PayloadType)
		}
		if len(pkt.Payload) != len(payload) {
			t.Fatalf("packet %d payload len = %d, want %d", i, len(pkt.Payload), len(payload))
		}
	}
}

func TestSequenceNumberWrapsAt16Bit(t *testing.T) {
	s, rx := loopbackSender(t, 1, 65535, 0)

	payload := make([]byte, 48*2*3)
	if err := s.Send(payload, 48); err != nil {
		t.Fatalf("send 1: %v", err)
	}
	if err := s.Send(payload, 48); err != nil {
		t.Fatalf("send 2: %v", err)
	}

	buf := make([]byte, 1500)
	want := []uint16{65535, 0}
	for i, w := range want {
		n, err := rx.Read(buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			t.Fatalf("unmarshal %d: %v", i, err)
		}
		if pkt.SequenceNumber != w {
			t.Fatalf("packet %d seq = %d, want %d (16-bit wraparound)", i, pkt.SequenceNumber, w)
		}
	}
}

func TestTimestampWrapsAt32Bit(t *testing.T) {
	s, rx := loopbackSender(t, 1, 0, 4294967295-47)

	payload := make([]byte, 48*2*3)
	if err := s.Send(payload, 48); err != nil {
		t.Fatalf("send 1: %v", err)
	}
	if err := s.Send(payload, 48); err != nil {
		t.Fatalf("send 2: %v", err)
	}

	buf := make([]byte, 1500)
	n, err := rx.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(buf[:n]); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if pkt.Timestamp != 4294967295-47 {
		t.Fatalf("packet 0 timestamp = %d, want %d", pkt.Timestamp, uint32(4294967295-47))
	}

	n, err = rx.Read(buf)
	if err != nil {
		t.Fatalf("read 2: %v", err)
	}
	pkt2 := &rtp.Packet{}
	if err := pkt2.Unmarshal(buf[:n]); err != nil {
		t.Fatalf("unmarshal 2: %v", err)
	}
	if pkt2.Timestamp != 0 {
		t.Fatalf("packet 1 timestamp = %d, want 0 (32-bit wraparound)", pkt2.Timestamp)
	}
}
