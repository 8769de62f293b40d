package mode

import "testing"

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		current  State
		mode     Mode
		checked  bool
		expected State
	}{
		{"idle/check_manual", StateIdle, Manual, true, StateManual},
		{"idle/check_automatic", StateIdle, Automatic, true, StateAutomatic},
		{"idle/uncheck_manual", StateIdle, Manual, false, StateIdle},
		{"manual/check_automatic", StateManual, Automatic, true, StateAutomatic},
		{"manual/uncheck_manual", StateManual, Manual, false, StateIdle},
		{"manual/uncheck_automatic", StateManual, Automatic, false, StateManual},
		{"manual/check_manual_again", StateManual, Manual, true, StateManual},
		{"automatic/check_manual", StateAutomatic, Manual, true, StateManual},
		{"automatic/uncheck_automatic", StateAutomatic, Automatic, false, StateIdle},
		{"automatic/uncheck_manual", StateAutomatic, Manual, false, StateAutomatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Next(tt.current, tt.mode, tt.checked); got != tt.expected {
				t.Errorf("Next(%s, %s, %v) = %s, want %s", tt.current, tt.mode, tt.checked, got, tt.expected)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Manual, Automatic} {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q) error: %v", m.String(), err)
		}
		if got != m {
			t.Errorf("ParseMode(%q) = %v, want %v", m.String(), got, m)
		}
	}

	if _, err := ParseMode("auto"); err == nil {
		t.Error("ParseMode(\"auto\") should fail")
	}
}

func TestModeOther(t *testing.T) {
	if Manual.Other() != Automatic || Automatic.Other() != Manual {
		t.Error("Other() should swap manual and automatic")
	}
}
