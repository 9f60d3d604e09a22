package sysinfo

import (
	"context"
	"testing"
)

func TestCollectReturnsNonZeroMemory(t *testing.T) {
	info, err := Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if info.MemTotalBytes == 0 {
		t.Fatalf("expected non-zero total memory")
	}
	if info.Hostname == "" {
		t.Fatalf("expected non-empty hostname")
	}
}
