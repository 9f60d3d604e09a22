// Package metrics exposes per-slot counters as Prometheus collectors, flat
// names with unit suffixes and no namespace prefix, matching the teacher's
// NewPrometheusMetrics/promauto style in prometheus.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the gateway exports, labeled by slot_id
// where per-slot granularity applies. The packet/frame/SAP counters are
// cumulative snapshots read from each slot's own atomic counters (spec.md
// §3's SlotRuntime), so they are exported as gauges rather than Prometheus
// counters: there is no Inc() event to hook, only a periodically-polled
// running total.
type Metrics struct {
	rtpPacketsSent          *prometheus.GaugeVec
	rtpMonPacketsSent       *prometheus.GaugeVec
	audioFrames             *prometheus.GaugeVec
	sapAnnouncementsSent    *prometheus.GaugeVec
	sapDeletionsSent        *prometheus.GaugeVec
	slotLastErrorInfo       *prometheus.GaugeVec
	slotRunning             *prometheus.GaugeVec
	audioLevelPeakDBFS      *prometheus.GaugeVec
	audioLevelRMSDBFS       *prometheus.GaugeVec
	gatewayRunning          prometheus.Gauge
	ndiSourceListErrorTotal prometheus.Counter
}

// New registers and returns the gateway's metric collectors against reg. A
// nil reg leaves the collectors unregistered. The gateway's single
// long-lived instance passes prometheus.DefaultRegisterer; tests pass a
// fresh prometheus.NewRegistry() so repeated New() calls don't collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rtpPacketsSent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_rtp_packets_sent_total",
				Help: "Cumulative AES67 RTP packets sent per slot",
			},
			[]string{"slot_id"},
		),
		rtpMonPacketsSent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_monitor_rtp_packets_sent_total",
				Help: "Cumulative monitor-flow RTP packets sent per slot",
			},
			[]string{"slot_id"},
		),
		audioFrames: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_ndi_audio_frames_total",
				Help: "Cumulative NDI audio frames accepted per slot",
			},
			[]string{"slot_id"},
		),
		sapAnnouncementsSent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_sap_announcements_total",
				Help: "Cumulative SAP announcement packets sent per slot",
			},
			[]string{"slot_id"},
		),
		sapDeletionsSent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_sap_deletions_total",
				Help: "Cumulative SAP deletion packets sent per slot",
			},
			[]string{"slot_id"},
		),
		slotLastErrorInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_slot_last_error_info",
				Help: "1 if the slot has a recorded last error, 0 otherwise",
			},
			[]string{"slot_id"},
		),
		slotRunning: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_slot_running",
				Help: "1 if the slot is currently running, 0 otherwise",
			},
			[]string{"slot_id"},
		),
		audioLevelPeakDBFS: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_audio_level_peak_dbfs",
				Help: "Peak sample level in dBFS, last measured frame",
			},
			[]string{"slot_id"},
		),
		audioLevelRMSDBFS: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aes67_audio_level_rms_dbfs",
				Help: "RMS level in dBFS, last measured frame",
			},
			[]string{"slot_id"},
		),
		gatewayRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aes67_gateway_running",
				Help: "1 if the gateway is running, 0 if stopped",
			},
		),
		ndiSourceListErrorTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aes67_ndi_source_list_errors_total",
				Help: "Total failures discovering NDI sources via /api/sources",
			},
		),
	}
}

func slotLabel(slotID int) string {
	return itoa(slotID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// ObserveSlot snapshots one slot's counters into the exported gauges. Safe
// to call repeatedly on a polling interval; every field is simply Set to
// its latest observed value.
func (m *Metrics) ObserveSlot(slotID int, running bool, audioFrames, rtpPackets, rtpMonPackets, sapSent, sapDeletions uint64, hasLastError bool) {
	label := slotLabel(slotID)

	running01 := 0.0
	if running {
		running01 = 1.0
	}
	m.slotRunning.WithLabelValues(label).Set(running01)

	errInfo := 0.0
	if hasLastError {
		errInfo = 1.0
	}
	m.slotLastErrorInfo.WithLabelValues(label).Set(errInfo)

	m.audioFrames.WithLabelValues(label).Set(float64(audioFrames))
	m.rtpPacketsSent.WithLabelValues(label).Set(float64(rtpPackets))
	m.rtpMonPacketsSent.WithLabelValues(label).Set(float64(rtpMonPackets))
	m.sapAnnouncementsSent.WithLabelValues(label).Set(float64(sapSent))
	m.sapDeletionsSent.WithLabelValues(label).Set(float64(sapDeletions))
}

// ObserveAudioLevel records the most recent peak/RMS levels for a slot.
func (m *Metrics) ObserveAudioLevel(slotID int, peakDBFS, rmsDBFS float64) {
	label := slotLabel(slotID)
	m.audioLevelPeakDBFS.WithLabelValues(label).Set(peakDBFS)
	m.audioLevelRMSDBFS.WithLabelValues(label).Set(rmsDBFS)
}

// SetGatewayRunning reports the gateway's overall running state.
func (m *Metrics) SetGatewayRunning(running bool) {
	if running {
		m.gatewayRunning.Set(1)
		return
	}
	m.gatewayRunning.Set(0)
}

// IncNDISourceListError records a failed /api/sources discovery call.
func (m *Metrics) IncNDISourceListError() {
	m.ndiSourceListErrorTotal.Inc()
}
