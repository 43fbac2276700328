package encoder

import (
	"strings"
	"testing"
)

func TestColumns(t *testing.T) {
	if got := Columns(80); got != 48 {
		t.Errorf("Columns(80) = %d, want 48", got)
	}
	if got := Columns(58); got != 32 {
		t.Errorf("Columns(58) = %d, want 32", got)
	}
}

func TestDotWidth(t *testing.T) {
	if got := DotWidth(80); got != 576 {
		t.Errorf("DotWidth(80) = %d, want 576", got)
	}
	if got := DotWidth(58); got != 384 {
		t.Errorf("DotWidth(58) = %d, want 384", got)
	}
}

func TestTwoColumnExactWidth(t *testing.T) {
	cases := []struct {
		label, value string
		cols         int
	}{
		{"Subtotal", "12.50", 48},
		{"Subtotal", "12.50", 32},
		{"TOTAL", "1000", 48},
		{"a", "b", 32},
		{"A very long label that will not fit on a 32 col line", "9.99", 32},
		{"Discount (SUMMER10)", "-2.00", 48},
	}

	for _, c := range cases {
		line := twoColumn(c.label, c.value, c.cols)
		if len([]rune(line)) != c.cols {
			t.Errorf("twoColumn(%q, %q, %d) produced %d chars: %q",
				c.label, c.value, c.cols, len([]rune(line)), line)
		}
		if !strings.HasSuffix(line, c.value) {
			t.Errorf("value not right-aligned: %q", line)
		}
	}
}

func TestTwoColumnLabelGivesWay(t *testing.T) {
	line := twoColumn(strings.Repeat("x", 40), "12.50", 32)
	if len([]rune(line)) != 32 {
		t.Fatalf("line is %d chars, want 32: %q", len([]rune(line)), line)
	}
	if !strings.HasSuffix(line, " 12.50") {
		t.Errorf("expected at least one space before intact value: %q", line)
	}
	if !strings.Contains(line, "...") {
		t.Errorf("expected truncated label marker: %q", line)
	}
}

func TestTwoColumnOversizedValue(t *testing.T) {
	line := twoColumn("Total", strings.Repeat("9", 40), 32)
	if len([]rune(line)) != 32 {
		t.Errorf("line is %d chars, want 32: %q", len([]rune(line)), line)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 48); got != "short" {
		t.Errorf("truncate should not touch short strings, got %q", got)
	}

	got := truncate(strings.Repeat("a", 50), 10)
	if got != "aaaaaaa..." {
		t.Errorf("truncate = %q, want aaaaaaa...", got)
	}
	if len([]rune(got)) != 10 {
		t.Errorf("truncated length = %d, want 10", len([]rune(got)))
	}
}

func TestTruncateMultibyte(t *testing.T) {
	got := truncate("Çılbır with extra yoğurt and butter", 12)
	if len([]rune(got)) != 12 {
		t.Errorf("rune length = %d, want 12: %q", len([]rune(got)), got)
	}
}

func TestDivider(t *testing.T) {
	if got := divider(32); got != strings.Repeat("-", 32) {
		t.Errorf("divider(32) = %q", got)
	}
}
