package audiopipe

import "testing"

func TestAcceptedRequiresStereo48k(t *testing.T) {
	f := &Frame{SampleRate: 48000, ChannelCount: 2, SamplesPerChannel: 10}
	if !f.Accepted() {
		t.Fatalf("expected stereo 48kHz frame to be accepted")
	}
	f.ChannelCount = 1
	if f.Accepted() {
		t.Fatalf("expected mono frame to be rejected")
	}
	f.ChannelCount = 2
	f.SampleRate = 44100
	if f.Accepted() {
		t.Fatalf("expected non-48kHz frame to be rejected")
	}
}

func TestMeasureFullScaleIsZeroDBFS(t *testing.T) {
	f := &Frame{
		SampleRate:        48000,
		ChannelCount:      2,
		SamplesPerChannel: 4,
		Planar: [][]float32{
			{1, -1, 1, -1},
			{1, -1, 1, -1},
		},
	}
	lvl := Measure(f)
	if lvl.PeakDBFS < -0.1 || lvl.PeakDBFS > 0.1 {
		t.Fatalf("expected ~0 dBFS peak for full-scale samples, got %v", lvl.PeakDBFS)
	}
	if lvl.RMSDBFS < -0.1 || lvl.RMSDBFS > 0.1 {
		t.Fatalf("expected ~0 dBFS rms for full-scale samples, got %v", lvl.RMSDBFS)
	}
}

func TestMeasureSilenceReturnsFloor(t *testing.T) {
	f := &Frame{
		SampleRate:        48000,
		ChannelCount:      2,
		SamplesPerChannel: 4,
		Planar: [][]float32{
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		},
	}
	lvl := Measure(f)
	if lvl.PeakDBFS != silenceFloorDBFS || lvl.RMSDBFS != silenceFloorDBFS {
		t.Fatalf("expected silence floor for all-zero samples, got %+v", lvl)
	}
}

func TestMeasureHandlesEmptyPlanar(t *testing.T) {
	f := &Frame{SampleRate: 48000, ChannelCount: 2, SamplesPerChannel: 0}
	lvl := Measure(f)
	if lvl.PeakDBFS != silenceFloorDBFS {
		t.Fatalf("expected silence floor for empty frame, got %+v", lvl)
	}
}
