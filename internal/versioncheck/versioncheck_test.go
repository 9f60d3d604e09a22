package versioncheck

import "testing"

func TestCheckAcceptsNewerVersion(t *testing.T) {
	c := New()
	res := c.Check("5.6.0")
	if !res.Compatible {
		t.Fatalf("expected 5.6.0 to be compatible with minimum %s", MinimumNDIVersion)
	}
}

func TestCheckRejectsOlderVersion(t *testing.T) {
	c := New()
	res := c.Check("4.5.3")
	if res.Compatible {
		t.Fatalf("expected 4.5.3 to be incompatible with minimum %s", MinimumNDIVersion)
	}
}

func TestCheckTreatsEmptyAsCompatible(t *testing.T) {
	c := New()
	res := c.Check("")
	if !res.Compatible {
		t.Fatalf("expected unknown/unreported version to default to compatible")
	}
}

func TestCheckTreatsUnparseableAsCompatible(t *testing.T) {
	c := New()
	res := c.Check("not-a-version")
	if !res.Compatible {
		t.Fatalf("expected unparseable version to default to compatible rather than block startup")
	}
}

func TestLastReflectsMostRecentCheck(t *testing.T) {
	c := New()
	c.Check("5.6.0")
	c.Check("4.0.0")
	last := c.Last()
	if last.Reported != "4.0.0" || last.Compatible {
		t.Fatalf("expected Last() to reflect the most recent check, got %+v", last)
	}
}
