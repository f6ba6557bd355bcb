package domain

import "testing"

func TestSlugifyStripsLegalSuffixes(t *testing.T) {
	if Slugify("Tap Academy") != Slugify("TAP ACADEMY PVT LTD") {
		t.Fatalf("expected equal slugs, got %q and %q", Slugify("Tap Academy"), Slugify("TAP ACADEMY PVT LTD"))
	}
	if got := Slugify("  Acme Technologies, Inc. "); got != "acme" {
		t.Fatalf("expected acme, got %q", got)
	}
	if got := Slugify("Mill-Story Solutions"); got != "mill story" {
		t.Fatalf("expected mill story, got %q", got)
	}
}
