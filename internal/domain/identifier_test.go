package domain

import (
	"strings"
	"testing"
)

func TestIdentifierCmp(t *testing.T) {
	sp := DefaultSpace()
	low, err := IdentifierFromHex(sp, strings.Repeat("00", 31)+"01")
	if err != nil {
		t.Fatalf("IdentifierFromHex: %v", err)
	}
	high, err := IdentifierFromHex(sp, "ff"+strings.Repeat("00", 31))
	if err != nil {
		t.Fatalf("IdentifierFromHex: %v", err)
	}

	if low.Cmp(high) >= 0 {
		t.Errorf("expected low < high")
	}
	if high.Cmp(low) <= 0 {
		t.Errorf("expected high > low")
	}
	if low.Cmp(low.Clone()) != 0 {
		t.Errorf("expected identifier equal to its clone")
	}
}

func TestIdentifierFromHexRejectsWrongLength(t *testing.T) {
	sp := DefaultSpace()
	if _, err := IdentifierFromHex(sp, "aabb"); err == nil {
		t.Fatalf("expected error for short identifier")
	}
}

func TestIdentifierStringRoundTrip(t *testing.T) {
	sp := DefaultSpace()
	id, err := RandomIdentifier(sp)
	if err != nil {
		t.Fatalf("RandomIdentifier: %v", err)
	}
	parsed, err := IdentifierFromHex(sp, id.String())
	if err != nil {
		t.Fatalf("IdentifierFromHex: %v", err)
	}
	if !id.Equal(parsed) {
		t.Errorf("round trip mismatch: %s != %s", id, parsed)
	}
}
