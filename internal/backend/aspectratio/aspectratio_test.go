package aspectratio

import (
	"math"
	"testing"
)

func TestSelect_KnownSizes(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		want   string
	}{
		{name: "square", width: 1024, height: 1024, want: "1:1"},
		{name: "full hd landscape", width: 1920, height: 1080, want: "16:9"},
		{name: "full hd portrait", width: 1080, height: 1920, want: "9:16"},
		{name: "ultrawide", width: 2560, height: 1080, want: "21:9"},
		{name: "classic photo", width: 1200, height: 800, want: "3:2"},
		{name: "instagram portrait", width: 1080, height: 1350, want: "4:5"},
		{name: "very wide clamps to widest", width: 10000, height: 100, want: "21:9"},
		{name: "very tall clamps to tallest", width: 100, height: 10000, want: "9:16"},
		{name: "zero dimensions treated as square", width: 0, height: 0, want: "1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.width, tt.height)
			if got.String() != tt.want {
				t.Errorf("Select(%d, %d) = %s, want %s", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestSelect_IsNearestSupportedRatio(t *testing.T) {
	for w := 1; w <= 64; w++ {
		for h := 1; h <= 64; h++ {
			got := Select(w, h)
			if !isSupported(got) {
				t.Fatalf("Select(%d, %d) returned unsupported ratio %s", w, h, got)
			}
			target := float64(w) / float64(h)
			gotDiff := math.Abs(got.Value() - target)
			for _, other := range Supported {
				if math.Abs(other.Value()-target) < gotDiff {
					t.Fatalf("Select(%d, %d) = %s but %s is strictly closer", w, h, got, other)
				}
			}
		}
	}
}

func TestSelect_TieUsesDeclarationOrder(t *testing.T) {
	// 9/8 = 1.125 is exactly 0.125 away from both 1:1 and 5:4
	got := Select(9, 8)
	if got.String() != "1:1" {
		t.Errorf("expected tie to resolve to first declared ratio 1:1, got %s", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "16:9"},
		{input: " 1:1 "},
		{input: "21:9"},
		{input: "7:3", wantErr: true},
		{input: "16x9", wantErr: true},
		{input: "a:b", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func isSupported(candidate AspectRatio) bool {
	for _, s := range Supported {
		if s == candidate {
			return true
		}
	}
	return false
}
