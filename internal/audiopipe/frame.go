// Package audiopipe holds the audio data types shared between the NDI
// producer and the repacketizer.
package audiopipe

// Frame is one block of audio handed from the producer to the repacketizer.
// Samples are planar (one slice per channel) 32-bit float, nominal range
// [-1.0, +1.0].
type Frame struct {
	SampleRate        int
	ChannelCount      int
	SamplesPerChannel int
	Planar            [][]float32
}

// Accepted reports whether the frame meets the AES67 source format
// (48 kHz, at least stereo). Frames that don't are dropped silently by the
// caller; Accepted never mutates the frame.
func (f *Frame) Accepted() bool {
	return f.SampleRate == 48000 && f.ChannelCount >= 2
}
