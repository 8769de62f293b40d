package color

import "testing"

func TestHex(t *testing.T) {
	tests := []struct {
		name  string
		color Color
		want  string
	}{
		{"black", Black, "#000000"},
		{"white", White, "#FFFFFF"},
		{"red", Color{R: 1}, "#FF0000"},
		{"half_gray", Color{R: 0.5, G: 0.5, B: 0.5}, "#808080"},
		{"out_of_range_clamped", Color{R: 2, G: -1, B: 0}, "#FF0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.color.Hex(); got != tt.want {
				t.Errorf("Hex() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromRGB8RoundTrip(t *testing.T) {
	in := RGB8{R: 255, G: 0, B: 255}
	if got := FromRGB8(in).RGB8(); got != in {
		t.Errorf("RGB8() = %+v, want %+v", got, in)
	}
}

func TestMixSaturates(t *testing.T) {
	got := Mix(Color{R: 0.8, G: 0.2}, Color{R: 0.5, G: 0.3, B: 0.1})
	want := Color{R: 1, G: 0.5, B: 0.1}
	if got != want {
		t.Errorf("Mix() = %+v, want %+v", got, want)
	}
}

func TestReverse(t *testing.T) {
	if got := White.Reverse(); got != Black {
		t.Errorf("White.Reverse() = %+v, want black", got)
	}
}

func TestRGB8Valid(t *testing.T) {
	if !(RGB8{R: 0, G: 128, B: 255}).Valid() {
		t.Error("in-range color should be valid")
	}
	if (RGB8{R: 256}).Valid() {
		t.Error("R=256 should be invalid")
	}
	if (RGB8{B: -1}).Valid() {
		t.Error("B=-1 should be invalid")
	}
}
