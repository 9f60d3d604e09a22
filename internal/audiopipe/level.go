package audiopipe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Level is a per-frame loudness snapshot, used only for observability
// (slot.Status's PeakDBFS/RMSDBFS); it never feeds back into the audio path.
type Level struct {
	PeakDBFS float64
	RMSDBFS  float64
}

const silenceFloorDBFS = -144.0

// Measure computes peak and RMS level across the first two channels of a
// frame, same signal-statistics approach as the decoder-side DSP helpers
// elsewhere in this corpus, just applied to raw PCM instead of a spectrum.
func Measure(f *Frame) Level {
	if len(f.Planar) < 2 || f.SamplesPerChannel == 0 {
		return Level{PeakDBFS: silenceFloorDBFS, RMSDBFS: silenceFloorDBFS}
	}

	combined := make([]float64, 0, f.SamplesPerChannel*2)
	for ch := 0; ch < 2; ch++ {
		for _, s := range f.Planar[ch] {
			combined = append(combined, float64(s))
		}
	}
	if len(combined) == 0 {
		return Level{PeakDBFS: silenceFloorDBFS, RMSDBFS: silenceFloorDBFS}
	}

	peak := floats.Max(absCopy(combined))
	meanSquare := floats.Dot(combined, combined) / float64(len(combined))
	rms := math.Sqrt(meanSquare)

	return Level{
		PeakDBFS: dbfs(peak),
		RMSDBFS:  dbfs(rms),
	}
}

func absCopy(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = math.Abs(v)
	}
	return out
}

func dbfs(linear float64) float64 {
	if linear <= 0 {
		return silenceFloorDBFS
	}
	db := 20 * math.Log10(linear)
	if db < silenceFloorDBFS {
		return silenceFloorDBFS
	}
	return db
}
