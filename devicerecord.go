/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Device record -- an immutable snapshot of one enumerated USB device
 */

package main

import (
	"fmt"
	"strings"
)

// SonyVendorID is the USB vendor ID assigned to Sony Corporation.
const SonyVendorID uint16 = 0x054C

// PTPInterfaceClass is the USB interface class used by Still Image /
// PTP devices.
const PTPInterfaceClass = 0x06

// fx30ProductID is the FX30's USB product ID, as observed in the
// field. Treated as a hint, not an oracle: list_fx30 always prefers
// the name-substring match and only falls back to this ID, per the
// open question in spec.md.
const fx30ProductID uint16 = 0x0CDC

// DeviceRecord is an immutable snapshot of one enumerated USB device,
// as returned by the Finder. Field order matches spec.md section 3.
type DeviceRecord struct {
	Bus          int
	Address      int
	VendorID     uint16
	ProductID    uint16
	ProductName  string
	SerialNumber string
}

// Addr returns the UsbAddr identifying where this device sits on the
// USB topology.
func (d DeviceRecord) Addr() UsbAddr {
	return UsbAddr{Bus: d.Bus, Address: d.Address}
}

// String returns a human-readable one-line summary, in the teacher's
// "Bus NNN Device NNN" idiom.
func (d DeviceRecord) String() string {
	return fmt.Sprintf("%s %4.4x:%4.4x %q", d.Addr(), d.VendorID, d.ProductID, d.ProductName)
}

// CameraIdent returns a filesystem- and map-key-safe identifier for
// this camera, used as the per-device log file name and as the key
// that enforces "only one session may own a device at a time"
// (spec.md section 5).
func (d DeviceRecord) CameraIdent() string {
	id := fmt.Sprintf("%4.4x-%4.4x", d.VendorID, d.ProductID)
	if d.SerialNumber != "" {
		id += "-" + d.SerialNumber
	} else {
		id += fmt.Sprintf("-bus%d-addr%d", d.Bus, d.Address)
	}

	return strings.Map(func(c rune) rune {
		switch {
		case '0' <= c && c <= '9':
		case 'a' <= c && c <= 'z':
		case 'A' <= c && c <= 'Z':
		case c == '-' || c == '_':
		default:
			c = '-'
		}
		return c
	}, id)
}

// isFX30 reports whether this record matches the FX30 heuristic:
// name substring match first, numeric product ID as a fallback hint.
func (d DeviceRecord) isFX30() bool {
	if strings.Contains(d.ProductName, "FX30") {
		return true
	}
	return d.ProductID == fx30ProductID
}
