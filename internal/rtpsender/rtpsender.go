// Package rtpsender packetizes fixed-size PCM payloads into RTP/UDP
// multicast, mirroring the original RTPAES67Sender (aes67_rtp.py) but built
// on pion/rtp for header marshaling instead of hand-rolled struct packing.
package rtpsender

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/pion/rtp"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/streamsquirrel/aes67gateway/internal/mcastiface"
)

const ttl = 16

// Sender owns one outgoing RTP socket for a single AES67 (or monitor) flow.
// It holds the SSRC and free-running sequence/timestamp counters described
// in spec.md §3's SlotRuntime, wrapping them modulo 2^16/2^32 as RFC 3550
// requires.
type Sender struct {
	conn *net.UDPConn
	dst  *net.UDPAddr

	ssrc        uint32
	payloadType uint8

	mu        sync.Mutex
	seq       uint16
	timestamp uint32

	packetsSent   atomic.Uint64
	lastSendError atomic.Value // string
}

// New opens a send socket bound to the selected multicast-capable
// interface. The first packet carries startSeq and startTimestamp exactly
// as given; choosing unpredictable starting values (RFC 3550) is left to
// the caller.
func New(mcastIP string, mcastPort int, ssrc uint32, payloadType uint8, startSeq uint16, startTimestamp uint32) (*Sender, error) {
	conn, err := openSendSocket()
	if err != nil {
		return nil, fmt.Errorf("rtpsender: open socket: %w", err)
	}

	sel := mcastiface.Pick()
	if sel.Iface != nil {
		p := ipv4.NewPacketConn(conn)
		if err := p.SetMulticastInterface(sel.Iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rtpsender: set multicast interface: %w", err)
		}
	}

	s := &Sender{
		conn:        conn,
		dst:         &net.UDPAddr{IP: net.ParseIP(mcastIP), Port: mcastPort},
		ssrc:        ssrc,
		payloadType: payloadType,
		seq:         startSeq,
		timestamp:   startTimestamp,
	}
	s.lastSendError.Store("")
	return s, nil
}

func openSendSocket() (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		return nil, err
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set multicast ttl: %w", err)
	}
	return conn, nil
}

// SSRC returns the fixed synchronization source for this flow.
func (s *Sender) SSRC() uint32 { return s.ssrc }

// PacketsSent returns the number of RTP packets successfully sent so far.
func (s *Sender) PacketsSent() uint64 { return s.packetsSent.Load() }

// LastSendError returns the most recent send error, or "" if none occurred.
func (s *Sender) LastSendError() string { return s.lastSendError.Load().(string) }

// Send marshals one RTP packet carrying payload and advances the sequence
// number by one and the timestamp by samplesPerChannel, both wrapping per
// RFC 3550 (spec.md Property 1/2). It is safe for concurrent use, though in
// practice each slot drives its sender from a single repacketizer goroutine.
func (s *Sender) Send(payload []byte, samplesPerChannel int) error {
	s.mu.Lock()
	seq := s.seq
	ts := s.timestamp
	s.seq++
	s.timestamp += uint32(samplesPerChannel)
	s.mu.Unlock()

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Padding:        false,
			Extension:      false,
			Marker:         false,
			PayloadType:    s.payloadType,
			SequenceNumber: seq,
			Timestamp:      ts,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}

	buf, err := pkt.Marshal()
	if err != nil {
		s.lastSendError.Store(err.Error())
		return fmt.Errorf("rtpsender: marshal: %w", err)
	}

	if _, err := s.conn.WriteToUDP(buf, s.dst); err != nil {
		s.lastSendError.Store(err.Error())
		return fmt.Errorf("rtpsender: write: %w", err)
	}
	s.packetsSent.Add(1)
	return nil
}

// Close releases the send socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}
