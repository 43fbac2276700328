package encoder

import "strings"

// Columns maps paper width to the character budget of a normal-size line.
// Every wrapping and alignment computation derives from this, never from a
// hardcoded width.
func Columns(paperWidthMm int) int {
	if paperWidthMm == 58 {
		return 32
	}
	return 48
}

// DotWidth maps paper width to printable dots for raster images.
func DotWidth(paperWidthMm int) int {
	if paperWidthMm == 58 {
		return 384
	}
	return 576
}

// truncate shortens s to at most max characters, marking the cut with an
// ellipsis. Long names are truncated rather than wrapped so the fixed-width
// quantity/price line that follows keeps its column alignment.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// twoColumn right-aligns value against label on one line of exactly cols
// characters. The gap is always at least one space; when label and value
// would overlap, the label gives way, never the value.
func twoColumn(label, value string, cols int) string {
	if len([]rune(value)) >= cols {
		return truncate(value, cols)
	}

	maxLabel := cols - len([]rune(value)) - 1
	label = truncate(label, maxLabel)

	gap := cols - len([]rune(label)) - len([]rune(value))
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

// divider is a full-width rule of dashes.
func divider(cols int) string {
	return strings.Repeat("-", cols)
}
