package aspectratio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AspectRatio is a width-to-height proportion accepted by the generation API.
type AspectRatio struct {
	Width  int
	Height int
}

// Supported lists the accepted ratios in declaration order. Select breaks ties by this order.
var Supported = []AspectRatio{
	{1, 1},
	{2, 3},
	{3, 2},
	{3, 4},
	{4, 3},
	{4, 5},
	{5, 4},
	{9, 16},
	{16, 9},
	{21, 9},
}

// String returns the ratio in "a:b" notation.
func (a AspectRatio) String() string {
	return fmt.Sprintf("%d:%d", a.Width, a.Height)
}

// Value returns the ratio as a decimal.
func (a AspectRatio) Value() float64 {
	return float64(a.Width) / float64(a.Height)
}

// Select returns the supported ratio closest to width/height.
// Non-positive dimensions are treated as 1.
func Select(width, height int) AspectRatio {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	target := float64(width) / float64(height)

	best := Supported[0]
	bestDiff := math.Inf(1)
	for _, candidate := range Supported {
		diff := math.Abs(candidate.Value() - target)
		// strict comparison keeps the first declared ratio on ties
		if diff < bestDiff {
			bestDiff = diff
			best = candidate
		}
	}
	return best
}

// Parse validates a ratio in "a:b" notation against the supported set.
func Parse(value string) (AspectRatio, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: expected format a:b", value)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: %w", value, err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return AspectRatio{}, fmt.Errorf("invalid aspect ratio %q: %w", value, err)
	}
	candidate := AspectRatio{Width: w, Height: h}
	for _, supported := range Supported {
		if supported == candidate {
			return candidate, nil
		}
	}
	return AspectRatio{}, fmt.Errorf("unsupported aspect ratio %q", value)
}
