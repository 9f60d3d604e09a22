package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestObserveSlotSetsGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSlot(1, true, 100, 200, 50, 10, 0, false)

	if got := gaugeValue(t, m.slotRunning, "1"); got != 1 {
		t.Fatalf("slotRunning = %v, want 1", got)
	}
	if got := gaugeValue(t, m.slotLastErrorInfo, "1"); got != 0 {
		t.Fatalf("slotLastErrorInfo = %v, want 0", got)
	}
	if got := gaugeValue(t, m.audioFrames, "1"); got != 100 {
		t.Fatalf("audioFrames = %v, want 100", got)
	}
	if got := gaugeValue(t, m.rtpPacketsSent, "1"); got != 200 {
		t.Fatalf("rtpPacketsSent = %v, want 200", got)
	}
	if got := gaugeValue(t, m.rtpMonPacketsSent, "1"); got != 50 {
		t.Fatalf("rtpMonPacketsSent = %v, want 50", got)
	}
	if got := gaugeValue(t, m.sapAnnouncementsSent, "1"); got != 10 {
		t.Fatalf("sapAnnouncementsSent = %v, want 10", got)
	}
}

func TestObserveSlotReportsLastError(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveSlot(2, false, 0, 0, 0, 0, 0, true)

	if got := gaugeValue(t, m.slotRunning, "2"); got != 0 {
		t.Fatalf("slotRunning = %v, want 0", got)
	}
	if got := gaugeValue(t, m.slotLastErrorInfo, "2"); got != 1 {
		t.Fatalf("slotLastErrorInfo = %v, want 1", got)
	}
}

func TestSetGatewayRunning(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetGatewayRunning(true)

	out := &dto.Metric{}
	if err := m.gatewayRunning.Write(out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out.GetGauge().GetValue() != 1 {
		t.Fatalf("gatewayRunning = %v, want 1", out.GetGauge().GetValue())
	}

	m.SetGatewayRunning(false)
	out2 := &dto.Metric{}
	if err := m.gatewayRunning.Write(out2); err != nil {
		t.Fatalf("write: %v", err)
	}
	if out2.GetGauge().GetValue() != 0 {
		t.Fatalf("gatewayRunning = %v, want 0", out2.GetGauge().GetValue())
	}
}

func TestItoaNegativeAndZero(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1", -1: "-1", 42: "42", -42: "-42"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Fatalf("itoa(%d) = %q, want %q", in, got, want)
		}
	}
}
