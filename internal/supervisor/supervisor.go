// Package supervisor owns the top-level running/stopped state machine
// across all configured slots, grounded on app.py's api_start/api_stop
// globals (running, pipelines, last_error).
package supervisor

import (
	"context"
	"fmt"
	"sync"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
	"github.com/streamsquirrel/aes67gateway/internal/ndi"
	"github.com/streamsquirrel/aes67gateway/internal/slot"
)

// Status mirrors the original Status pydantic model.
type Status struct {
	Running bool
	Message string
}

// Supervisor starts, stops, and reports on a fixed set of configured slots.
type Supervisor struct {
	mu        sync.Mutex
	cfg       *gwconfig.Config
	running   bool
	lastError string
	slots     map[int]*slot.Runtime
	cancel    context.CancelFunc
}

// New builds a Supervisor for the given configuration. Slots are not
// started until Start is called.
func New(cfg *gwconfig.Config) *Supervisor {
	return &Supervisor{cfg: cfg, slots: make(map[int]*slot.Runtime)}
}

// Start brings up every configured slot that names an NDI source. If any
// slot fails to start, every slot already constructed or started is torn
// down and no partial state survives (spec.md §4.1's transactional start,
// Scenario 5), matching api_start's rollback-on-exception behavior.
func (s *Supervisor) Start(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return Status{Running: true, Message: "Live"}
	}

	runCtx, cancel := context.WithCancel(ctx)

	built := make(map[int]*slot.Runtime, len(s.cfg.Slots))
	rollback := func() {
		for _, r := range built {
			r.Close()
		}
		cancel()
	}

	for _, sc := range s.cfg.Slots {
		if sc.NDISourceName == "" {
			continue
		}
		r, err := slot.New(sc, s.cfg.Monitor)
		if err != nil {
			rollback()
			s.lastError = fmt.Sprintf("start failed: %v", err)
			return Status{Running: false, Message: s.lastError}
		}
		built[sc.SlotID] = r
	}

	started := make(map[int]*slot.Runtime, len(built))
	for id, r := range built {
		if err := r.Start(runCtx); err != nil {
			for _, other := range started {
				other.Stop()
			}
			for otherID, other := range built {
				if _, ok := started[otherID]; !ok {
					other.Close()
				}
			}
			cancel()
			s.lastError = fmt.Sprintf("start failed: slot %d: %v", id, err)
			return Status{Running: false, Message: s.lastError}
		}
		started[id] = r
	}

	s.slots = built
	s.cancel = cancel
	s.running = true
	s.lastError = ""
	return Status{Running: true, Message: "Live"}
}

// Stop withdraws every running slot's announcement and releases its
// sockets, matching api_stop.
func (s *Supervisor) Stop() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Status{Running: false, Message: "Offline"}
	}

	for _, r := range s.slots {
		r.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.slots = make(map[int]*slot.Runtime)
	s.running = false
	s.lastError = ""
	return Status{Running: false, Message: "Offline"}
}

// CurrentStatus reports running state and the last start error, if any.
func (s *Supervisor) CurrentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return Status{Running: true, Message: "Live"}
	}
	msg := "Offline"
	if s.lastError != "" {
		msg = s.lastError
	}
	return Status{Running: false, Message: msg}
}

// ActiveSlotIDs reports the slot IDs currently running, sorted ascending,
// empty when stopped (matching /api/active_slots's "[] if not running").
func (s *Supervisor) ActiveSlotIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	ids := make([]int, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// SlotStatus returns the running status for one slot, or (_, false) if it
// isn't active.
func (s *Supervisor) SlotStatus(slotID int) (slot.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return slot.Status{}, false
	}
	r, ok := s.slots[slotID]
	if !ok {
		return slot.Status{}, false
	}
	return r.Status(), true
}

// SlotSDP returns the AES67 flow's SDP text for an active slot, or "" if
// the slot isn't active.
func (s *Supervisor) SlotSDP(slotID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return "", false
	}
	r, ok := s.slots[slotID]
	if !ok {
		return "", false
	}
	return r.SDP(), true
}

// SlotMonitorSDP returns the monitor flow's SDP text for an active slot, or
// "" if the slot isn't active or monitoring is disabled.
func (s *Supervisor) SlotMonitorSDP(slotID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return "", false
	}
	r, ok := s.slots[slotID]
	if !ok {
		return "", false
	}
	sdp := r.MonitorSDP()
	return sdp, sdp != ""
}

// AllStatuses returns a status snapshot for every currently active slot.
func (s *Supervisor) AllStatuses() []slot.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]slot.Status, 0, len(s.slots))
	for _, r := range s.slots {
		out = append(out, r.Status())
	}
	return out
}

// ListSources discovers NDI sources currently visible on the network,
// independent of whether the gateway is running, matching /api/sources.
func ListSources(timeoutMs uint32) ([]string, error) {
	return ndi.ListSources(timeoutMs)
}

// Config returns the configuration this supervisor was built with.
func (s *Supervisor) Config() *gwconfig.Config {
	return s.cfg
}
