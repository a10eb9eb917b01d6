package ledger

import (
	"strings"
	"testing"
)

func TestFieldRoundTrip(t *testing.T) {
	cases := []string{
		"YES",
		"NO",
		"Will ETH staking exceed 30%?",
		"a",
	}

	for _, s := range cases {
		wire := Field(s).Wire()
		if !strings.HasSuffix(wire, "field") {
			t.Errorf("Field(%q).Wire() = %q, want field suffix", s, wire)
		}
		decoded, err := FieldString(wire)
		if err != nil {
			t.Fatalf("FieldString(%q): %v", wire, err)
		}
		if decoded != s {
			t.Errorf("round trip %q -> %q -> %q", s, wire, decoded)
		}
	}
}

func TestFieldTruncation(t *testing.T) {
	long := strings.Repeat("x", 64)
	wire := Field(long).Wire()

	decoded, err := FieldString(wire)
	if err != nil {
		t.Fatalf("FieldString(%q): %v", wire, err)
	}
	if decoded != long[:31] {
		t.Errorf("long input should truncate to 31 bytes, got %d: %q", len(decoded), decoded)
	}

	// Exactly 31 bytes survives intact.
	exact := strings.Repeat("y", 31)
	decoded, err = FieldString(Field(exact).Wire())
	if err != nil {
		t.Fatalf("FieldString: %v", err)
	}
	if decoded != exact {
		t.Errorf("31-byte input should not be truncated")
	}
}

func TestFieldEmpty(t *testing.T) {
	if got := Field("").Wire(); got != "0field" {
		t.Errorf("Field(\"\").Wire() = %q, want \"0field\"", got)
	}
}

func TestU64Wire(t *testing.T) {
	if got := U64(1767225600).Wire(); got != "1767225600u64" {
		t.Errorf("U64 wire = %q", got)
	}
	if got := U64(0).Wire(); got != "0u64" {
		t.Errorf("U64(0) wire = %q", got)
	}
}

func TestArrayWire(t *testing.T) {
	got := Array(Field("YES"), Field("NO")).Wire()
	want := "[" + Field("YES").Wire() + ", " + Field("NO").Wire() + "]"
	if got != want {
		t.Errorf("Array wire = %q, want %q", got, want)
	}
}

func TestFieldStringInvalid(t *testing.T) {
	if _, err := FieldString("notanumberfield"); err == nil {
		t.Error("expected error for non-numeric field literal")
	}
}
