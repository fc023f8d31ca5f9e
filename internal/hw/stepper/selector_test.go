package stepper

import (
	"testing"

	"github.com/cjeanneret/TurnGo/internal/hw/gpio"
)

const (
	ms1Pin = 5
	ms2Pin = 6
	ms3Pin = 13
)

// selectorLevels returns the most recent level written to each MS pin.
func selectorLevels(drv *recordingDriver) (ms1, ms2, ms3 gpio.Level) {
	ms1, _ = drv.lastLevel(ms1Pin)
	ms2, _ = drv.lastLevel(ms2Pin)
	ms3, _ = drv.lastLevel(ms3Pin)
	return
}

func TestSelector_TruthTable(t *testing.T) {
	cases := []struct {
		res           int
		ms1, ms2, ms3 gpio.Level
	}{
		{1, gpio.Low, gpio.Low, gpio.Low},
		{2, gpio.High, gpio.Low, gpio.Low},
		{4, gpio.Low, gpio.High, gpio.Low},
		{8, gpio.High, gpio.High, gpio.Low},
		{16, gpio.High, gpio.High, gpio.High},
	}
	drv := &recordingDriver{}
	sel := NewSelector(drv, ms1Pin, ms2Pin, ms3Pin, 1)
	for _, tc := range cases {
		if err := sel.Set(tc.res); err != nil {
			t.Fatalf("Set(%d): %v", tc.res, err)
		}
		ms1, ms2, ms3 := selectorLevels(drv)
		if ms1 != tc.ms1 || ms2 != tc.ms2 || ms3 != tc.ms3 {
			t.Errorf("res %d: pins = %v/%v/%v, want %v/%v/%v",
				tc.res, ms1, ms2, ms3, tc.ms1, tc.ms2, tc.ms3)
		}
		if sel.Resolution() != tc.res {
			t.Errorf("Resolution() = %d, want %d", sel.Resolution(), tc.res)
		}
	}
}

func TestSelector_InvalidResolutionIsNoOp(t *testing.T) {
	drv := &recordingDriver{}
	sel := NewSelector(drv, ms1Pin, ms2Pin, ms3Pin, 8)

	before := len(drv.calls)
	for _, bad := range []int{0, 3, 9, 32, -1} {
		if err := sel.Set(bad); err != nil {
			t.Fatalf("Set(%d): %v", bad, err)
		}
	}
	if len(drv.calls) != before {
		t.Errorf("invalid resolutions wrote %d GPIO calls, want 0", len(drv.calls)-before)
	}
	if sel.Resolution() != 8 {
		t.Errorf("Resolution() = %d, want unchanged 8", sel.Resolution())
	}
}

func TestSelector_DefaultsTo16OnBadInitial(t *testing.T) {
	drv := &recordingDriver{}
	sel := NewSelector(drv, ms1Pin, ms2Pin, ms3Pin, 7)
	if sel.Resolution() != 16 {
		t.Errorf("Resolution() = %d, want fallback 16", sel.Resolution())
	}
	ms1, ms2, ms3 := selectorLevels(drv)
	if ms1 != gpio.High || ms2 != gpio.High || ms3 != gpio.High {
		t.Errorf("pins = %v/%v/%v, want HIGH/HIGH/HIGH", ms1, ms2, ms3)
	}
}
