/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Tests for the FX30 filtering heuristic
 */

package main

import "testing"

// Scenario from spec.md section 8: given Sony records with product
// names ["ILCE-7M4", "FX30", "ILME-FX30"], list_fx30 returns the
// latter two.
func TestFX30Filter(t *testing.T) {
	all := []DeviceRecord{
		{VendorID: SonyVendorID, ProductName: "ILCE-7M4"},
		{VendorID: SonyVendorID, ProductName: "FX30"},
		{VendorID: SonyVendorID, ProductName: "ILME-FX30"},
	}

	var got []string
	for _, rec := range all {
		if rec.isFX30() {
			got = append(got, rec.ProductName)
		}
	}

	want := []string{"FX30", "ILME-FX30"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

// A matching name is enough regardless of product ID; a device that
// matches only on product ID, not on name, is still treated as a
// heuristic match (product ID is a fallback); a device matching
// neither is not an FX30.
func TestFX30FilterNameTakesPrecedence(t *testing.T) {
	byName := DeviceRecord{ProductName: "Custom FX30 Rig", ProductID: 0x1234}
	if !byName.isFX30() {
		t.Error("expected name-substring match to win regardless of product ID")
	}

	byID := DeviceRecord{ProductName: "ILCE-7M4", ProductID: fx30ProductID}
	if !byID.isFX30() {
		t.Error("expected product-ID hint to match when name does not")
	}

	neither := DeviceRecord{ProductName: "ILCE-7M4", ProductID: 0x1234}
	if neither.isFX30() {
		t.Error("expected no match")
	}
}

func TestCameraIdent(t *testing.T) {
	rec := DeviceRecord{
		VendorID:     SonyVendorID,
		ProductID:    0x0CDC,
		SerialNumber: "ABC 123!",
	}

	got := rec.CameraIdent()
	want := "054c-0cdc-ABC-123-"
	if got != want {
		t.Errorf("CameraIdent() = %q, want %q", got, want)
	}
}
