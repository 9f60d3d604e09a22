// Package slot wires one NDI source through a repacketizer to an AES67 RTP
// sender, plus an independent SAP announcer, mirroring the later SlotPipeline
// (pipeline.py) with a goroutine per concurrent activity instead of daemon
// threads.
package slot

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamsquirrel/aes67gateway/internal/audiopipe"
	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
	"github.com/streamsquirrel/aes67gateway/internal/ndi"
	"github.com/streamsquirrel/aes67gateway/internal/repacketizer"
	"github.com/streamsquirrel/aes67gateway/internal/rtpsender"
	"github.com/streamsquirrel/aes67gateway/internal/sap"
)

const (
	monitorPortOffset = 2
	monitorPayloadPT  = 97
	captureTimeoutMs  = 500
	silenceFloorDBFS  = -144.0
)

// Status is a snapshot of one slot's runtime state, grounded on
// SlotPipeline.debug()'s returned dict.
type Status struct {
	SlotID          int
	NDISourceName   string
	AES67StreamName string
	McastIP         string
	McastPort       int
	MonitorPort     int
	AudioFrames     uint64
	RTPPacketsSent  uint64
	RTPLastError    string
	RTPIface        string
	MonPacketsSent  uint64
	MonLastError    string
	LastError       string
	Running         bool
	PeakDBFS        float64
	RMSDBFS         float64
}

// Runtime owns the goroutines and sockets for one configured slot.
type Runtime struct {
	cfg     gwconfig.SlotConfig
	monitor gwconfig.MonitorConfig

	audioFrames atomic.Uint64
	lastError   atomic.Value // string
	running     atomic.Bool
	peakDBFS    atomic.Value // float64
	rmsDBFS     atomic.Value // float64

	rtp     *rtpsender.Sender
	rtpMon  *rtpsender.Sender
	sapMain *sap.Announcer
	sapMon  *sap.Announcer

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New builds sockets and announcers for a slot but does not start its
// goroutines. On error it closes whatever it had already opened and
// returns a nil Runtime, so a failure leaves no open resources (spec.md
// §4.1's transactional start).
func New(cfg gwconfig.SlotConfig, monitor gwconfig.MonitorConfig) (*Runtime, error) {
	r := &Runtime{cfg: cfg, monitor: monitor}
	r.lastError.Store("")
	r.peakDBFS.Store(silenceFloorDBFS)
	r.rmsDBFS.Store(silenceFloorDBFS)

	ssrc, err := randomSSRC()
	if err != nil {
		return nil, fmt.Errorf("slot %d: random ssrc: %w", cfg.SlotID, err)
	}
	startSeq, err := randomSeq()
	if err != nil {
		return nil, fmt.Errorf("slot %d: random sequence: %w", cfg.SlotID, err)
	}

	r.rtp, err = rtpsender.New(cfg.McastIP, cfg.McastPort, ssrc, gwconfig.PayloadType, startSeq, ssrc)
	if err != nil {
		return nil, fmt.Errorf("slot %d: rtp sender: %w", cfg.SlotID, err)
	}

	identity := sap.NewIdentity(cfg.AES67StreamName, cfg.McastIP, cfg.McastPort, gwconfig.PayloadType, gwconfig.SampleRate, gwconfig.Channels, "L24")
	gmid, domain := gwconfig.PTPIdentity()
	sdpText := sap.BuildSDP(sap.SDPParams{
		OriginUser:       gwconfig.SDPOriginUser,
		SessID:           identity.SessID,
		StreamName:       cfg.AES67StreamName,
		McastIP:          cfg.McastIP,
		McastPort:        cfg.McastPort,
		PayloadType:      gwconfig.PayloadType,
		Codec:            "L24",
		SampleRate:       gwconfig.SampleRate,
		Channels:         gwconfig.Channels,
		SamplesPerPacket: gwconfig.SamplesPerPacket,
		OriginIP:         gwconfig.SAPSourceIP(),
		PTPGMID:          gmid,
		PTPDomain:        domain,
	})
	r.sapMain, err = sap.New(identity, sdpText, gwconfig.SAPSourceIP())
	if err != nil {
		r.rtp.Close()
		return nil, fmt.Errorf("slot %d: sap announcer: %w", cfg.SlotID, err)
	}

	if monitor.Enabled {
		monPort := cfg.McastPort + monitorPortOffset
		monSSRC, err := randomSSRC()
		if err != nil {
			r.rtp.Close()
			r.sapMain.Close()
			return nil, fmt.Errorf("slot %d: monitor ssrc: %w", cfg.SlotID, err)
		}
		r.rtpMon, err = rtpsender.New(cfg.McastIP, monPort, monSSRC, monitorPayloadPT, startSeq, monSSRC)
		if err != nil {
			r.rtp.Close()
			r.sapMain.Close()
			return nil, fmt.Errorf("slot %d: monitor rtp sender: %w", cfg.SlotID, err)
		}

		monIdentity := sap.NewIdentity(cfg.AES67StreamName+" (Monitor L16)", cfg.McastIP, monPort, monitorPayloadPT, gwconfig.SampleRate, gwconfig.Channels, "L16")
		monSDP := sap.BuildSDP(sap.SDPParams{
			OriginUser:       gwconfig.SDPOriginUser,
			SessID:           monIdentity.SessID,
			StreamName:       cfg.AES67StreamName + " (Monitor L16)",
			McastIP:          cfg.McastIP,
			McastPort:        monPort,
			PayloadType:      monitorPayloadPT,
			Codec:            "L16",
			SampleRate:       gwconfig.SampleRate,
			Channels:         gwconfig.Channels,
			SamplesPerPacket: gwconfig.SamplesPerPacket,
			OriginIP:         gwconfig.SAPSourceIP(),
			PTPGMID:          gmid,
			PTPDomain:        domain,
		})
		r.sapMon, err = sap.New(monIdentity, monSDP, gwconfig.SAPSourceIP())
		if err != nil {
			r.rtp.Close()
			r.sapMain.Close()
			r.rtpMon.Close()
			return nil, fmt.Errorf("slot %d: monitor sap announcer: %w", cfg.SlotID, err)
		}
	}

	return r, nil
}

func randomSSRC() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func randomSeq() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// Start connects to the NDI source synchronously, then launches the audio
// and SAP goroutines. A connect failure here propagates to the caller so
// Supervisor.Start can roll the whole transaction back before anything is
// running (spec.md §4.1, Scenario 5) — the original SlotPipeline.start()
// calls NDIReceiver.connect() the same way, before spawning its threads.
func (r *Runtime) Start(ctx context.Context) error {
	receiver, err := ndi.Connect(r.cfg.NDISourceName)
	if err != nil {
		return fmt.Errorf("slot %d: ndi connect: %w", r.cfg.SlotID, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running.Store(true)

	interval := time.Duration(1000) * time.Millisecond

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		r.sapMain.Run(runCtx, interval)
	}()
	go func() {
		defer r.wg.Done()
		if r.sapMon != nil {
			r.sapMon.Run(runCtx, interval)
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runAudio(runCtx, receiver)
	}()

	return nil
}

func (r *Runtime) runAudio(ctx context.Context, receiver *ndi.Receiver) {
	defer receiver.Close()

	repack := repacketizer.New(gwconfig.SamplesPerPacket)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, frame, err := receiver.Capture(captureTimeoutMs)
		if err != nil {
			r.lastError.Store(err.Error())
			log.Printf("slot %d: ndi capture error: %v", r.cfg.SlotID, err)
			return
		}
		if result != ndi.FrameAudio || frame == nil {
			continue
		}

		af := &audiopipe.Frame{
			SampleRate:        frame.SampleRate,
			ChannelCount:      frame.ChannelCount,
			SamplesPerChannel: frame.SamplesPerChannel,
			Planar:            frame.Planar,
		}
		if !af.Accepted() {
			continue
		}

		level := audiopipe.Measure(af)
		r.peakDBFS.Store(level.PeakDBFS)
		r.rmsDBFS.Store(level.RMSDBFS)

		r.audioFrames.Add(1)
		for _, pkt := range repack.Push(af) {
			if err := r.rtp.Send(pkt.PCM24BE, pkt.SamplesPerChannel); err != nil {
				r.lastError.Store(err.Error())
			}
			if r.rtpMon != nil {
				// The monitor flow is L16: keep the two most significant
				// bytes of each 24-bit sample.
				l16 := make([]byte, 0, len(pkt.PCM24BE)/3*2)
				for i := 0; i+2 < len(pkt.PCM24BE); i += 3 {
					l16 = append(l16, pkt.PCM24BE[i], pkt.PCM24BE[i+1])
				}
				if err := r.rtpMon.Send(l16, pkt.SamplesPerChannel); err != nil {
					r.lastError.Store(err.Error())
				}
			}
		}
	}
}

// Stop cancels the slot's goroutines, waits for them to exit, withdraws the
// SAP announcement, and releases all sockets.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() {
		return
	}
	r.running.Store(false)

	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	r.sapMain.SendDeleteBurst(3, 50*time.Millisecond)
	if r.sapMon != nil {
		r.sapMon.SendDeleteBurst(3, 50*time.Millisecond)
	}

	r.rtp.Close()
	r.sapMain.Close()
	if r.rtpMon != nil {
		r.rtpMon.Close()
	}
	if r.sapMon != nil {
		r.sapMon.Close()
	}
}

// Close releases resources without the graceful SAP withdrawal, used to
// unwind a slot that failed partway through Supervisor's transactional
// start (spec.md §4.1/Scenario 5) before it was ever started.
func (r *Runtime) Close() {
	r.rtp.Close()
	r.sapMain.Close()
	if r.rtpMon != nil {
		r.rtpMon.Close()
	}
	if r.sapMon != nil {
		r.sapMon.Close()
	}
}

// Status reports a snapshot of the slot's counters and last error.
func (r *Runtime) Status() Status {
	s := Status{
		SlotID:          r.cfg.SlotID,
		NDISourceName:   r.cfg.NDISourceName,
		AES67StreamName: r.cfg.AES67StreamName,
		McastIP:         r.cfg.McastIP,
		McastPort:       r.cfg.McastPort,
		AudioFrames:     r.audioFrames.Load(),
		RTPPacketsSent:  r.rtp.PacketsSent(),
		RTPLastError:    r.rtp.LastSendError(),
		LastError:       r.lastError.Load().(string),
		Running:         r.running.Load(),
		PeakDBFS:        r.peakDBFS.Load().(float64),
		RMSDBFS:         r.rmsDBFS.Load().(float64),
	}
	if r.monitor.Enabled {
		s.MonitorPort = r.cfg.McastPort + monitorPortOffset
	}
	if r.rtpMon != nil {
		s.MonPacketsSent = r.rtpMon.PacketsSent()
		s.MonLastError = r.rtpMon.LastSendError()
	}
	return s
}

// SDP returns the currently-announced SDP text for this slot's AES67 flow.
func (r *Runtime) SDP() string {
	identity := sap.NewIdentity(r.cfg.AES67StreamName, r.cfg.McastIP, r.cfg.McastPort, gwconfig.PayloadType, gwconfig.SampleRate, gwconfig.Channels, "L24")
	gmid, domain := gwconfig.PTPIdentity()
	return sap.BuildSDP(sap.SDPParams{
		OriginUser:       gwconfig.SDPOriginUser,
		SessID:           identity.SessID,
		StreamName:       r.cfg.AES67StreamName,
		McastIP:          r.cfg.McastIP,
		McastPort:        r.cfg.McastPort,
		PayloadType:      gwconfig.PayloadType,
		Codec:            "L24",
		SampleRate:       gwconfig.SampleRate,
		Channels:         gwconfig.Channels,
		SamplesPerPacket: gwconfig.SamplesPerPacket,
		OriginIP:         gwconfig.SAPSourceIP(),
		PTPGMID:          gmid,
		PTPDomain:        domain,
	})
}

// MonitorSDP returns the monitor flow's SDP text, or "" when monitoring is
// disabled for this slot.
func (r *Runtime) MonitorSDP() string {
	if !r.monitor.Enabled {
		return ""
	}
	monPort := r.cfg.McastPort + monitorPortOffset
	identity := sap.NewIdentity(r.cfg.AES67StreamName+" (Monitor L16)", r.cfg.McastIP, monPort, monitorPayloadPT, gwconfig.SampleRate, gwconfig.Channels, "L16")
	gmid, domain := gwconfig.PTPIdentity()
	return sap.BuildSDP(sap.SDPParams{
		OriginUser:       gwconfig.SDPOriginUser,
		SessID:           identity.SessID,
		StreamName:       r.cfg.AES67StreamName + " (Monitor L16)",
		McastIP:          r.cfg.McastIP,
		McastPort:        monPort,
		PayloadType:      monitorPayloadPT,
		Codec:            "L16",
		SampleRate:       gwconfig.SampleRate,
		Channels:         gwconfig.Channels,
		SamplesPerPacket: gwconfig.SamplesPerPacket,
		OriginIP:         gwconfig.SAPSourceIP(),
		PTPGMID:          gmid,
		PTPDomain:        domain,
	})
}
