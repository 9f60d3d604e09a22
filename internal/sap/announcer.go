package sap

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/streamsquirrel/aes67gateway/internal/mcastiface"
)

// Group is the well-known SAP multicast group that Dante Controller and
// other AES67 discovery tools listen on (spec.md §4.5).
const (
	Group = "239.255.255.255"
	Port  = 9875
	ttl   = 16
)

// Announcer owns one outgoing SAP socket and periodically emits the
// announcement built from a fixed SDP/identity pair, mirroring the original
// SAPAnnouncer (sap.py): send_once/send_delete_burst, independent of the
// audio path.
type Announcer struct {
	conn   *net.UDPConn
	dst    *net.UDPAddr
	iface  mcastiface.Selection
	sdp    []byte // pre-built announcement packet
	sdpDel []byte // pre-built deletion packet (same bytes, byte 0 flipped)

	packetsSent   atomic.Uint64
	lastSendError atomic.Value // string

	mu sync.Mutex
}

// New opens the outgoing SAP socket and pre-renders both the announcement
// and deletion packets for one flow identity.
func New(identity Identity, sdpText string, originIP string) (*Announcer, error) {
	conn, err := openSendSocket()
	if err != nil {
		return nil, fmt.Errorf("sap: open socket: %w", err)
	}

	sel := mcastiface.Pick()
	if err := bindMulticastInterface(conn, sel); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sap: bind interface: %w", err)
	}

	origin := net.ParseIP(originIP)
	if origin == nil {
		if sel.IPv4 != "" {
			origin = net.ParseIP(sel.IPv4)
		} else {
			origin = net.IPv4zero
		}
	}

	announce := BuildPacket(identity.MsgIDHash, origin, sdpText, false)

	a := &Announcer{
		conn:   conn,
		dst:    &net.UDPAddr{IP: net.ParseIP(Group), Port: Port},
		iface:  sel,
		sdp:    announce,
		sdpDel: AsDeletion(announce),
	}
	a.lastSendError.Store("")
	return a, nil
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

func bindMulticastInterface(conn *net.UDPConn, sel mcastiface.Selection) error {
	if sel.Iface == nil {
		return nil
	}
	p := ipv4.NewPacketConn(conn)
	return p.SetMulticastInterface(sel.Iface)
}

// Iface reports the interface name the announcer is bound to ("" if none).
func (a *Announcer) Iface() string {
	if a.iface.Iface == nil {
		return ""
	}
	return a.iface.Iface.Name
}

// PacketsSent returns the number of SAP packets successfully sent so far.
func (a *Announcer) PacketsSent() uint64 { return a.packetsSent.Load() }

// LastSendError returns the most recent send error, or "" if none occurred.
func (a *Announcer) LastSendError() string { return a.lastSendError.Load().(string) }

// SendOnce emits one announcement (or deletion, if delete is true). A send
// failure is recorded but does not panic or terminate the announcer,
// matching spec.md §4.5/§7's SAP SendFailed policy.
func (a *Announcer) SendOnce(delete bool) error {
	pkt := a.sdp
	if delete {
		pkt = a.sdpDel
	}
	a.mu.Lock()
	_, err := a.conn.WriteToUDP(pkt, a.dst)
	a.mu.Unlock()
	if err != nil {
		a.lastSendError.Store(err.Error())
		return err
	}
	a.packetsSent.Add(1)
	return nil
}

// SendDeleteBurst emits count deletion packets spaced by interval,
// swallowing individual send failures — withdrawal is best-effort
// (spec.md §4.5).
func (a *Announcer) SendDeleteBurst(count int, interval time.Duration) {
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		_ = a.SendOnce(true)
		if i != count-1 {
			time.Sleep(interval)
		}
	}
}

// Close releases the SAP socket. No further packets may be sent afterward.
func (a *Announcer) Close() error {
	return a.conn.Close()
}

// Run announces at interval until ctx is cancelled, polling cancellation at
// least every 200ms regardless of the configured interval (spec.md §4.5,
// §5). It sends the first announcement immediately so receivers discover
// the stream without waiting a full interval.
func (a *Announcer) Run(ctx context.Context, interval time.Duration) {
	const pollInterval = 200 * time.Millisecond

	nextSend := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := time.Now()
		if !now.Before(nextSend) {
			_ = a.SendOnce(false)
			nextSend = now.Add(interval)
		}

		sleep := pollInterval
		if remaining := time.Until(nextSend); remaining > 0 && remaining < sleep {
			sleep = remaining
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}
