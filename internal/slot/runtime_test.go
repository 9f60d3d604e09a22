package slot

import (
	"strings"
	"testing"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
)

func testSlotConfig() gwconfig.SlotConfig {
	return gwconfig.SlotConfig{
		SlotID:          1,
		NDISourceName:   "TEST-SOURCE",
		AES67StreamName: "Studio A",
		McastIP:         "239.69.0.10",
		McastPort:       5004,
	}
}

func TestNewOpensSocketsAndRendersSDP(t *testing.T) {
	r, err := New(testSlotConfig(), gwconfig.MonitorConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	sdpText := r.SDP()
	if !strings.Contains(sdpText, "s=Studio A") {
		t.Fatalf("expected session name in sdp: %q", sdpText)
	}
	if !strings.Contains(sdpText, "m=audio 5004 RTP/AVP 96") {
		t.Fatalf("expected media line: %q", sdpText)
	}

	if r.MonitorSDP() != "" {
		t.Fatalf("monitor sdp should be empty when monitoring disabled")
	}

	st := r.Status()
	if st.Running {
		t.Fatalf("status should not report running before Start")
	}
	if st.SlotID != 1 {
		t.Fatalf("status slot id = %d, want 1", st.SlotID)
	}
}

func TestNewWithMonitorEnabledRendersMonitorSDP(t *testing.T) {
	r, err := New(testSlotConfig(), gwconfig.MonitorConfig{Enabled: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	monSDP := r.MonitorSDP()
	if !strings.Contains(monSDP, "Monitor L16") {
		t.Fatalf("expected monitor session name: %q", monSDP)
	}
	if !strings.Contains(monSDP, "m=audio 5006 RTP/AVP 97") {
		t.Fatalf("expected monitor media line on offset port: %q", monSDP)
	}

	st := r.Status()
	if st.MonitorPort != 5006 {
		t.Fatalf("status monitor port = %d, want 5006", st.MonitorPort)
	}
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	r, err := New(testSlotConfig(), gwconfig.MonitorConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Stop() // running is false; must return without panicking on nil cancel
}
