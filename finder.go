/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * USB device finder -- enumerates Sony PTP cameras
 */

package main

import (
	"github.com/google/gousb"
)

// ListAllSony enumerates USB devices and returns every Sony PTP
// (Still Image) camera found. Enumeration failure is not fatal: it
// is reported as an empty list, never as an error, per spec.md
// section 4.1's failure-mode contract.
func ListAllSony() []DeviceRecord {
	if err := UsbInit(); err != nil {
		return nil
	}

	var records []DeviceRecord

	devs, _ := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(SonyVendorID) && descHasPTPInterface(desc)
	})

	for _, dev := range devs {
		records = append(records, deviceRecordOf(dev))
		dev.Close()
	}

	return records
}

// ListFX30 is the subset of ListAllSony whose product name contains
// "FX30", or (as a fallback hint only, never an oracle) whose
// product ID equals the known FX30 identifier.
func ListFX30() []DeviceRecord {
	all := ListAllSony()

	var fx30 []DeviceRecord
	for _, rec := range all {
		if rec.isFX30() {
			fx30 = append(fx30, rec)
		}
	}

	return fx30
}

// descHasPTPInterface reports whether desc carries at least one
// interface descriptor with class 0x06 (Still Image / PTP), across
// any configuration and any alternate setting.
func descHasPTPInterface(desc *gousb.DeviceDesc) bool {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if int(alt.Class) == PTPInterfaceClass {
					return true
				}
			}
		}
	}
	return false
}

// deviceRecordOf builds a DeviceRecord from an opened *gousb.Device.
// Fetching the string descriptors (product, serial) may fail
// independently of enumeration itself; on failure the record is
// still returned, with those fields left empty, per spec.md.
func deviceRecordOf(dev *gousb.Device) DeviceRecord {
	rec := DeviceRecord{
		Bus:       dev.Desc.Bus,
		Address:   dev.Desc.Address,
		VendorID:  uint16(dev.Desc.Vendor),
		ProductID: uint16(dev.Desc.Product),
	}

	if s, err := dev.Product(); err == nil {
		rec.ProductName = s
	}
	if s, err := dev.SerialNumber(); err == nil {
		rec.SerialNumber = s
	}

	return rec
}
