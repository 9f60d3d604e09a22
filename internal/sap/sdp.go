package sap

import (
	"fmt"
	"math"
	"strings"
)

// SDPParams carries everything needed to render one SDP description. It is
// deliberately flat rather than reusing Identity, since the monitor flow
// (spec.md §9) renders a second, related-but-distinct SDP for the same slot.
type SDPParams struct {
	OriginUser       string
	SessID           uint32
	StreamName       string
	McastIP          string
	McastPort        int
	PayloadType      int
	Codec            string // "L24" for the AES67 flow, "L16" for the optional monitor flow
	SampleRate       int
	Channels         int
	SamplesPerPacket int    // packetization size used to compute a=ptime
	OriginIP         string // o= address; "0.0.0.0" when empty (slot runtimes pass only the SAP_SRC_IP override)
	PTPGMID          string // PTP_GMID env var; empty disables the ts-refclk line
	PTPDomain        string // PTP_DOMAIN env var; only used when PTPGMID is set
}

// sessVer is pinned per the later-variant resolution in spec.md §9: Dante
// treats a changed sess-ver as a new/updated flow, so it never changes
// across restarts.
const sessVer = 1

// BuildSDP renders the canonical SDP text (spec.md §4.5), CRLF line endings
// and a trailing blank line.
func BuildSDP(p SDPParams) string {
	originIP := p.OriginIP
	if originIP == "" {
		originIP = "0.0.0.0"
	}

	lines := []string{
		"v=0",
		fmt.Sprintf("o=%s %d %d IN IP4 %s", p.OriginUser, p.SessID, sessVer, originIP),
		fmt.Sprintf("s=%s", p.StreamName),
		"t=0 0",
		fmt.Sprintf("m=audio %d RTP/AVP %d", p.McastPort, p.PayloadType),
		fmt.Sprintf("c=IN IP4 %s/32", p.McastIP),
		fmt.Sprintf("a=rtcp:%d", p.McastPort+1),
		fmt.Sprintf("a=rtpmap:%d %s/%d/%d", p.PayloadType, p.Codec, p.SampleRate, p.Channels),
		fmt.Sprintf("a=ptime:%d", PtimeMillis(p.SamplesPerPacket, p.SampleRate)),
		"a=recvonly",
		"a=mediaclk:direct=0",
	}

	if p.PTPGMID != "" {
		if p.PTPDomain != "" {
			lines = append(lines, fmt.Sprintf("a=ts-refclk:ptp=IEEE1588-2008:%s:%s", p.PTPGMID, p.PTPDomain))
		} else {
			lines = append(lines, fmt.Sprintf("a=ts-refclk:ptp=IEEE1588-2008:%s", p.PTPGMID))
		}
	}

	return strings.Join(lines, "\r\n") + "\r\n\r\n"
}

// PtimeMillis computes the rounded SDP a=ptime value in milliseconds from
// the packetization size, e.g. 1 for 48 samples/channel, 4 for 192.
func PtimeMillis(samplesPerPacket, sampleRate int) int {
	return int(math.Round(float64(samplesPerPacket) * 1000.0 / float64(sampleRate)))
}
