package util

import (
	"testing"
	"time"
)

func TestFromUnixMilli(t *testing.T) {
	got := FromUnixMilli(1_700_000_000_000)
	if got.Unix() != 1_700_000_000 || got.Location() != time.UTC {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestSecondsPerDay(t *testing.T) {
	if d := time.Duration(SecondsPerDay) * time.Second; d != 24*time.Hour {
		t.Fatalf("unexpected horizon %v", d)
	}
}

func TestParseFloatDefault(t *testing.T) {
	cases := map[string]float64{
		"":      -1,
		"abc":   -1,
		" 2.5 ": 2.5,
		"-0.37": -0.37,
	}
	for in, want := range cases {
		if got := ParseFloatDefault(in, -1); got != want {
			t.Fatalf("ParseFloatDefault(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	cases := map[string]int{
		"":     7,
		"x1":   7,
		" 12 ": 12,
		"1.5":  7,
	}
	for in, want := range cases {
		if got := ParseIntDefault(in, 7); got != want {
			t.Fatalf("ParseIntDefault(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  eth "); got != "ETH" {
		t.Fatalf("unexpected %q", got)
	}
}
