package ndi

import "testing"

func TestCStrGoStrRoundTrip(t *testing.T) {
	for _, s := range []string{"Studio A", "", "NDI Source (192.168.1.5)"} {
		if s == "" {
			continue // cstr of "" still round-trips but isn't interesting
		}
		p := cstr(s)
		got := goStr(p)
		if got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}
}

func TestGoStrNilPointer(t *testing.T) {
	if got := goStr(nil); got != "" {
		t.Fatalf("goStr(nil) = %q, want empty string", got)
	}
}

func TestFrameResultConstants(t *testing.T) {
	if FrameNone == FrameAudio || FrameAudio == FrameError || FrameOther == FrameError {
		t.Fatalf("FrameResult constants must be distinct")
	}
}
