/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Tests for camera-model quirks matching
 */

package main

import (
	"testing"
	"time"
)

func TestQuirksSetForNoMatch(t *testing.T) {
	var qs QuirksSet
	got := qs.For("ILCE-7M4")
	if got != DefaultCameraQuirks {
		t.Errorf("got %+v, want defaults %+v", got, DefaultCameraQuirks)
	}
}

func TestQuirksSetForMostSpecificWins(t *testing.T) {
	fx30Delay := 2 * time.Second
	anyDelay := 500 * time.Millisecond

	qs := QuirksSet{entries: []quirkEntry{
		{pattern: "*", initDelay: &anyDelay},
		{pattern: "*FX30*", initDelay: &fx30Delay},
	}}

	got := qs.For("ILME-FX30")
	if got.InitDelay != fx30Delay {
		t.Errorf("InitDelay = %v, want %v", got.InitDelay, fx30Delay)
	}

	got = qs.For("ILCE-7M4")
	if got.InitDelay != anyDelay {
		t.Errorf("InitDelay = %v, want %v", got.InitDelay, anyDelay)
	}
}

func TestParseQuirkDuration(t *testing.T) {
	d, err := parseQuirkDuration("1500")
	if err != nil || d != 1500*time.Millisecond {
		t.Errorf("parseQuirkDuration(1500) = %v, %v", d, err)
	}

	d, err = parseQuirkDuration("2s")
	if err != nil || d != 2*time.Second {
		t.Errorf("parseQuirkDuration(2s) = %v, %v", d, err)
	}

	if _, err := parseQuirkDuration("-1s"); err == nil {
		t.Error("expected error for negative duration")
	}
}
