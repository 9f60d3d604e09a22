package supervisor

import (
	"context"
	"testing"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
)

func TestStartWithNoSourcesConfiguredReportsRunning(t *testing.T) {
	cfg := &gwconfig.Config{
		Slots: []gwconfig.SlotConfig{
			{SlotID: 1, McastIP: "239.69.0.10", McastPort: 5004, AES67StreamName: "Studio A"},
		},
	}
	s := New(cfg)
	defer s.Stop()

	// No slot names an NDI source, so Start has nothing to connect and
	// should report Live with zero active slots.
	status := s.Start(context.Background())
	if !status.Running {
		t.Fatalf("expected running with no configured sources, got %+v", status)
	}
	if ids := s.ActiveSlotIDs(); len(ids) != 0 {
		t.Fatalf("expected no active slots, got %v", ids)
	}
}

func TestStartIsIdempotentWhileRunning(t *testing.T) {
	cfg := &gwconfig.Config{Slots: []gwconfig.SlotConfig{}}
	s := New(cfg)
	defer s.Stop()

	first := s.Start(context.Background())
	second := s.Start(context.Background())
	if !first.Running || !second.Running || second.Message != "Live" {
		t.Fatalf("expected idempotent Live status, got %+v then %+v", first, second)
	}
}

func TestStopWhenNotRunningReportsOffline(t *testing.T) {
	cfg := &gwconfig.Config{Slots: []gwconfig.SlotConfig{}}
	s := New(cfg)

	status := s.Stop()
	if status.Running || status.Message != "Offline" {
		t.Fatalf("expected Offline status, got %+v", status)
	}
}

func TestStartRollsBackOnSlotFailure(t *testing.T) {
	cfg := &gwconfig.Config{
		Slots: []gwconfig.SlotConfig{
			{SlotID: 1, NDISourceName: "Nonexistent Source", McastIP: "239.69.0.10", McastPort: 5004, AES67StreamName: "Studio A"},
		},
	}
	s := New(cfg)
	defer s.Stop()

	status := s.Start(context.Background())
	if status.Running {
		t.Fatalf("expected start to fail without a reachable NDI library, got running=true")
	}
	if ids := s.ActiveSlotIDs(); len(ids) != 0 {
		t.Fatalf("expected no active slots after rollback, got %v", ids)
	}

	current := s.CurrentStatus()
	if current.Running || current.Message == "" || current.Message == "Offline" {
		t.Fatalf("expected CurrentStatus to surface the start failure, got %+v", current)
	}
}

func TestSlotSDPAbsentWhenNotRunning(t *testing.T) {
	cfg := &gwconfig.Config{Slots: []gwconfig.SlotConfig{
		{SlotID: 1, McastIP: "239.69.0.10", McastPort: 5004, AES67StreamName: "Studio A"},
	}}
	s := New(cfg)

	if _, ok := s.SlotSDP(1); ok {
		t.Fatalf("expected no sdp while stopped")
	}
}
