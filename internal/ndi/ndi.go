// Package ndi binds the subset of the NewTek/Vizrt NDI SDK needed to
// discover sources and receive audio, using purego to call into libndi
// directly instead of cgo — the same cgo-free dynamic-binding approach the
// windows-audio client takes with its own native audio backend.
package ndi

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/google/uuid"
)

// LibraryEnv overrides the search path for the NDI shared library.
const LibraryEnv = "NDI_LIB"

var candidateNames = []string{
	"libndi.so.6",
	"libndi.so",
	"/usr/local/lib/libndi.so",
	"/usr/lib/libndi.so",
}

type sourceT struct {
	name *byte
	url  *byte
}

type findCreateT struct {
	showLocalSources byte
	_                [3]byte
	groups           *byte
	extraIPs         *byte
}

type recvCreateV3T struct {
	sourceToConnectTo sourceT
	colorFormat       int32
	bandwidth         int32
	allowVideoFields  byte
	_                 [3]byte
	recvName          *byte
}

type audioFrameV2T struct {
	sampleRate           int32
	noChannels           int32
	noSamples            int32
	timecode             int64
	data                 *float32
	channelStrideInBytes int32
	metadata             *byte
	timestamp            int64
}

const (
	frameTypeNone         = 0
	frameTypeVideo        = 1
	frameTypeAudio        = 2
	frameTypeMetadata     = 3
	frameTypeError        = 4
	frameTypeStatusChange = 100
)

var (
	libOnce sync.Once
	libErr  error

	fnInitialize            func() bool
	fnFindCreateV2          func(settings *findCreateT) uintptr
	fnFindDestroy           func(instance uintptr)
	fnFindWaitForSources    func(instance uintptr, timeoutMs uint32) bool
	fnFindGetCurrentSources func(instance uintptr, noSources *uint32) uintptr
	fnRecvCreateV3          func(settings *recvCreateV3T) uintptr
	fnRecvDestroy           func(instance uintptr)
	fnRecvConnect           func(instance uintptr, source *sourceT)
	fnRecvCaptureV2         func(instance uintptr, video uintptr, audio *audioFrameV2T, metadata uintptr, timeoutMs uint32) int32
	fnRecvFreeAudioV2       func(instance uintptr, audio *audioFrameV2T)
)

// Load opens libndi (NDI_LIB override, then common install paths) and
// initializes the SDK. It is idempotent; repeated calls reuse the first
// load's result.
func Load() error {
	libOnce.Do(func() {
		handle, err := openLibrary()
		if err != nil {
			libErr = err
			return
		}

		purego.RegisterLibFunc(&fnInitialize, handle, "NDIlib_initialize")
		purego.RegisterLibFunc(&fnFindCreateV2, handle, "NDIlib_find_create_v2")
		purego.RegisterLibFunc(&fnFindDestroy, handle, "NDIlib_find_destroy")
		purego.RegisterLibFunc(&fnFindWaitForSources, handle, "NDIlib_find_wait_for_sources")
		purego.RegisterLibFunc(&fnFindGetCurrentSources, handle, "NDIlib_find_get_current_sources")
		purego.RegisterLibFunc(&fnRecvCreateV3, handle, "NDIlib_recv_create_v3")
		purego.RegisterLibFunc(&fnRecvDestroy, handle, "NDIlib_recv_destroy")
		purego.RegisterLibFunc(&fnRecvConnect, handle, "NDIlib_recv_connect")
		purego.RegisterLibFunc(&fnRecvCaptureV2, handle, "NDIlib_recv_capture_v2")
		purego.RegisterLibFunc(&fnRecvFreeAudioV2, handle, "NDIlib_recv_free_audio_v2")

		if !fnInitialize() {
			libErr = fmt.Errorf("ndi: NDIlib_initialize() returned false")
		}
	})
	return libErr
}

func openLibrary() (uintptr, error) {
	if env := os.Getenv(LibraryEnv); env != "" {
		if _, err := os.Stat(env); err == nil {
			return purego.Dlopen(env, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		}
	}
	var lastErr error
	for _, name := range candidateNames {
		h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return h, nil
		}
		lastErr = err
	}
	return 0, fmt.Errorf("ndi: could not load libndi, set %s=/path/to/libndi.so: %w", LibraryEnv, lastErr)
}

func cstr(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

func goStr(p *byte) string {
	if p == nil {
		return ""
	}
	var out []byte
	for {
		b := *(*byte)(unsafe.Add(unsafe.Pointer(p), len(out)))
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	return string(out)
}

// ListSources discovers currently-advertised NDI source names on the
// network, deduplicated and sorted, mirroring list_sources() in the
// original ctypes backend.
func ListSources(timeoutMs uint32) ([]string, error) {
	if err := Load(); err != nil {
		return nil, err
	}

	settings := findCreateT{showLocalSources: 1}
	finder := fnFindCreateV2(&settings)
	if finder == 0 {
		return nil, fmt.Errorf("ndi: NDIlib_find_create_v2 failed")
	}
	defer fnFindDestroy(finder)

	fnFindWaitForSources(finder, timeoutMs)

	var count uint32
	srcs := fnFindGetCurrentSources(finder, &count)

	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		s := (*sourceT)(unsafe.Add(unsafe.Pointer(srcs), uintptr(i)*unsafe.Sizeof(sourceT{})))
		name := goStr(s.name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func lookupSourceURL(name string, timeoutMs uint32) (string, error) {
	settings := findCreateT{showLocalSources: 1}
	finder := fnFindCreateV2(&settings)
	if finder == 0 {
		return "", fmt.Errorf("ndi: NDIlib_find_create_v2 failed")
	}
	defer fnFindDestroy(finder)

	fnFindWaitForSources(finder, timeoutMs)

	var count uint32
	srcs := fnFindGetCurrentSources(finder, &count)
	for i := uint32(0); i < count; i++ {
		s := (*sourceT)(unsafe.Add(unsafe.Pointer(srcs), uintptr(i)*unsafe.Sizeof(sourceT{})))
		if goStr(s.name) == name {
			return goStr(s.url), nil
		}
	}
	return "", nil
}

// AudioFrame is a float32 planar frame handed back from Receiver.Capture,
// owned by the caller (copied out of the SDK's buffer before
// NDIlib_recv_free_audio_v2 releases it).
type AudioFrame struct {
	SampleRate        int
	ChannelCount      int
	SamplesPerChannel int
	Planar            [][]float32
}

// FrameResult reports what Capture observed during one poll.
type FrameResult int

const (
	// FrameNone means no frame arrived within the timeout; not an error.
	FrameNone FrameResult = iota
	FrameAudio
	FrameOther
	FrameError
)

// Receiver owns one NDI receive instance connected to a single source.
type Receiver struct {
	sourceName string
	handle     uintptr
}

// Connect builds an owned source descriptor (copying name/url bytes so they
// outlive the finder that discovered them, per the SDK's pointer-lifetime
// requirement) and opens a receive instance for it.
func Connect(sourceName string) (*Receiver, error) {
	if err := Load(); err != nil {
		return nil, err
	}

	url, err := lookupSourceURL(sourceName, 500)
	if err != nil {
		return nil, err
	}

	src := sourceT{name: cstr(sourceName)}
	if url != "" {
		src.url = cstr(url)
	}

	create := recvCreateV3T{
		sourceToConnectTo: src,
		colorFormat:       0,
		bandwidth:         0,
		allowVideoFields:  0,
		recvName:          cstr("aes67gateway-" + uuid.NewString()),
	}

	handle := fnRecvCreateV3(&create)
	if handle == 0 {
		return nil, fmt.Errorf("ndi: NDIlib_recv_create_v3 failed for %q", sourceName)
	}

	fnRecvConnect(handle, &src)

	return &Receiver{sourceName: sourceName, handle: handle}, nil
}

// Close destroys the receive instance. Safe to call once.
func (r *Receiver) Close() {
	if r.handle != 0 {
		fnRecvDestroy(r.handle)
		r.handle = 0
	}
}

// Capture polls for one frame, blocking up to timeoutMs. Audio data is
// copied into owned Go memory before the SDK frame is released, so the
// returned AudioFrame is safe to retain.
func (r *Receiver) Capture(timeoutMs uint32) (FrameResult, *AudioFrame, error) {
	var audio audioFrameV2T
	ft := fnRecvCaptureV2(r.handle, 0, &audio, 0, timeoutMs)

	switch ft {
	case frameTypeAudio:
		defer fnRecvFreeAudioV2(r.handle, &audio)

		if audio.noSamples <= 0 || audio.data == nil || audio.noChannels <= 0 {
			return FrameNone, nil, nil
		}

		strideFloats := int(audio.channelStrideInBytes) / 4
		channels := int(audio.noChannels)
		samples := int(audio.noSamples)

		planar := make([][]float32, channels)
		for ch := 0; ch < channels; ch++ {
			row := make([]float32, samples)
			base := unsafe.Pointer(audio.data)
			for i := 0; i < samples; i++ {
				idx := ch*strideFloats + i
				row[i] = *(*float32)(unsafe.Add(base, uintptr(idx)*unsafe.Sizeof(float32(0))))
			}
			planar[ch] = row
		}

		return FrameAudio, &AudioFrame{
			SampleRate:        int(audio.sampleRate),
			ChannelCount:      channels,
			SamplesPerChannel: samples,
			Planar:            planar,
		}, nil

	case frameTypeNone, frameTypeMetadata, frameTypeStatusChange:
		return FrameNone, nil, nil
	case frameTypeError:
		return FrameError, nil, fmt.Errorf("ndi: receiver %q reported a frame error", r.sourceName)
	default:
		return FrameOther, nil, nil
	}
}
