// Package repacketizer converts variable-length planar float32 audio frames
// into fixed-size interleaved 24-bit-big-endian packets, matching the
// original pi-aes67 service's carry-buffer approach (see the original
// implementation's _pack_l24_from_i32le and the sample_carry handling in
// pipeline.py) but built around a single owned []int32 carry slice rather
// than a numpy array.
package repacketizer

import "github.com/streamsquirrel/aes67gateway/internal/audiopipe"

// Packet is one fixed-size block of interleaved, 24-bit-packed stereo audio,
// ready to be handed to the RTP sender. SamplesPerChannel is constant for
// the lifetime of a Repacketizer.
type Packet struct {
	PCM24BE           []byte // interleaved L/R, 3 bytes per sample, MSB first
	SamplesPerChannel int
}

// Repacketizer buffers interleaved int32 samples across calls to Push and
// emits fixed-size packets once enough samples have accumulated.
type Repacketizer struct {
	samplesPerPacket int
	carry            []int32 // interleaved L,R,L,R,...
}

// New creates a Repacketizer that emits packets of samplesPerPacket samples
// per channel (typically 48 for 1ms or 192 for 4ms at 48kHz).
func New(samplesPerPacket int) *Repacketizer {
	return &Repacketizer{samplesPerPacket: samplesPerPacket}
}

// CarryLen returns the number of interleaved samples (both channels)
// currently held pending the next packet. Exposed for tests and status.
func (r *Repacketizer) CarryLen() int {
	return len(r.carry)
}

// Push takes the first two channels of frame, converts them to the packed
// 24-bit wire format, and returns zero or more fixed-size packets. Leftover
// samples remain buffered in the Repacketizer for the next call.
func (r *Repacketizer) Push(frame *audiopipe.Frame) []Packet {
	if len(frame.Planar) < 2 {
		return nil
	}
	left, right := frame.Planar[0], frame.Planar[1]
	n := frame.SamplesPerChannel
	if len(left) < n {
		n = len(left)
	}
	if len(right) < n {
		n = len(right)
	}

	for i := 0; i < n; i++ {
		r.carry = append(r.carry, floatToInt32(left[i]), floatToInt32(right[i]))
	}

	var out []Packet
	samplesPerPacket := r.samplesPerPacket * 2 // interleaved L+R
	for len(r.carry) >= samplesPerPacket {
		out = append(out, Packet{
			PCM24BE:           packL24BE(r.carry[:samplesPerPacket]),
			SamplesPerChannel: r.samplesPerPacket,
		})
		remaining := len(r.carry) - samplesPerPacket
		copy(r.carry, r.carry[samplesPerPacket:])
		r.carry = r.carry[:remaining]
	}
	return out
}

// floatToInt32 converts a float32 sample in nominal range [-1.0, +1.0] to a
// clipped int32, matching clip(x * 2147483647, -2147483648, 2147483647).
func floatToInt32(x float32) int32 {
	v := float64(x) * 2147483647.0
	switch {
	case v >= 2147483647.0:
		return 2147483647
	case v <= -2147483648.0:
		return -2147483648
	default:
		return int32(v)
	}
}

// packL24BE keeps the high 24 bits of each int32 (arithmetic shift right by
// 8) and emits three bytes most-significant-first per sample.
func packL24BE(samples []int32) []byte {
	out := make([]byte, 0, len(samples)*3)
	for _, s := range samples {
		s24 := s >> 8
		out = append(out, byte(s24>>16), byte(s24>>8), byte(s24))
	}
	return out
}
