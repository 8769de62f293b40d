package display

import (
	"errors"
	"testing"

	"github.com/dokzlo13/lumos/internal/color"
)

type recordingDisplay struct {
	calls []color.Color
}

func (d *recordingDisplay) SetBackground(c color.Color) {
	d.calls = append(d.calls, c)
}

func TestUpdater_Handle(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantHex string
		wantErr bool
	}{
		{"valid", `{"average_color":{"r":255,"g":128,"b":0}}`, "#FF8000", false},
		{"zero_channels", `{"average_color":{"r":0,"g":0,"b":0}}`, "#000000", false},
		{"single_quotes", `{'average_color': {'r': 1, 'g': 2, 'b': 3}}`, "#010203", false},
		{"missing_field", `{"temperature":20}`, "", true},
		{"missing_channel", `{"average_color":{"r":1,"g":2}}`, "", true},
		{"out_of_range", `{"average_color":{"r":300,"g":0,"b":0}}`, "", true},
		{"not_json", `hello`, "", true},
		{"wrong_type", `{"average_color":"red"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &recordingDisplay{}
			u := NewUpdater(target)

			c, err := u.Handle([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("Handle error = %v, want ErrMalformedMessage", err)
				}
				if len(target.calls) != 0 {
					t.Error("malformed message must not change the background")
				}
				return
			}

			if err != nil {
				t.Fatalf("Handle error: %v", err)
			}
			if len(target.calls) != 1 {
				t.Fatalf("SetBackground called %d times, want 1", len(target.calls))
			}
			if c.Hex() != tt.wantHex || target.calls[0].Hex() != tt.wantHex {
				t.Errorf("background = %s, want %s", target.calls[0].Hex(), tt.wantHex)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	in := color.FromRGB8(color.RGB8{R: 10, G: 20, B: 30})
	body, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if string(body) != `{"average_color":{"r":10,"g":20,"b":30}}` {
		t.Errorf("Encode = %s", body)
	}
}
