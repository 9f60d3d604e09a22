// Package versioncheck checks the installed NDI runtime against the
// gateway's minimum supported SDK version at startup and periodically
// thereafter, mirroring the teacher's StartVersionChecker/checkVersion
// goroutine pattern in version_checker.go but comparing real semantic
// versions via hashicorp/go-version instead of a bare string equality
// check.
package versioncheck

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-version"
)

// MinimumNDIVersion is the oldest NDI SDK release this gateway supports.
// The audio frame struct layout (NDIlib_audio_frame_v2_t) and the recv/find
// v2/v3 entry points this package binds against were introduced in this
// release; older runtimes may export the symbols under different ABI shapes.
const MinimumNDIVersion = "5.0.0"

// defaultInterval mirrors the teacher's 60-minute floor on check intervals.
const defaultInterval = 60 * time.Minute

// Result is a point-in-time outcome of a compatibility check.
type Result struct {
	Reported   string
	Minimum    string
	Compatible bool
	CheckedAt  time.Time
}

type Checker struct {
	mu     sync.RWMutex
	last   Result
	minVer *version.Version
}

// New builds a Checker against MinimumNDIVersion. An invalid minimum would
// be a programming error, not a runtime condition, so it panics like the
// teacher's own regexp.MustCompile package-level initializer.
func New() *Checker {
	min, err := version.NewVersion(MinimumNDIVersion)
	if err != nil {
		panic(fmt.Sprintf("versioncheck: invalid minimum version %q: %v", MinimumNDIVersion, err))
	}
	return &Checker{minVer: min}
}

// Check compares reportedVersion (e.g. from the NDI_SDK_VERSION environment
// variable, if the operator sets it) against the minimum supported version.
// An unparseable or empty reportedVersion is treated as unknown-but-allowed:
// the NDI SDK itself exposes no version query call, so the gateway cannot
// always know what it's bound against.
func (c *Checker) Check(reportedVersion string) Result {
	res := Result{Reported: reportedVersion, Minimum: MinimumNDIVersion, CheckedAt: c.now(), Compatible: true}

	if reportedVersion != "" {
		v, err := version.NewVersion(reportedVersion)
		if err != nil {
			log.Printf("versioncheck: could not parse reported NDI version %q: %v", reportedVersion, err)
		} else {
			res.Compatible = v.Compare(c.minVer) >= 0
		}
	}

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()

	if !res.Compatible {
		log.Printf("versioncheck: NDI runtime %s is older than the minimum supported %s", res.Reported, res.Minimum)
	}
	return res
}

func (c *Checker) now() time.Time {
	return time.Now()
}

// Last returns the most recently computed Result, or the zero Result if
// Check has never run.
func (c *Checker) Last() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Start runs an initial check and then rechecks on intervalMinutes,
// matching StartVersionChecker's initial-check-then-ticker shape. A
// sub-60-minute interval is clamped up, same as the teacher.
func (c *Checker) Start(enabled bool, intervalMinutes int, reportedVersion func() string) {
	if !enabled {
		log.Printf("versioncheck: disabled in configuration")
		return
	}

	interval := defaultInterval
	if intervalMinutes >= 60 {
		interval = time.Duration(intervalMinutes) * time.Minute
	} else if intervalMinutes != 0 {
		log.Printf("versioncheck: interval must be at least 60 minutes, using 60")
	}

	go c.Check(reportedVersion())

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			c.Check(reportedVersion())
		}
	}()
}
