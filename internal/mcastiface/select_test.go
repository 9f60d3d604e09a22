package mcastiface

import "testing"

func TestPickUnknownForcedInterfaceReturnsEmpty(t *testing.T) {
	t.Setenv(MCastIfaceEnv, "definitely-not-a-real-iface-0")
	sel := Pick()
	if sel.Iface != nil {
		t.Fatalf("expected no interface for a nonexistent forced name, got %+v", sel.Iface)
	}
}

func TestPickAutoDoesNotPanic(t *testing.T) {
	t.Setenv(MCastIfaceEnv, "")
	_ = Pick()
}
