/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Common errors
 */

package main

import "errors"

// Process-wide error values.
var (
	ErrLockIsBusy    = errors.New("Lock is busy")
	ErrNoMemory      = errors.New("Not enough memory")
	ErrShutdown      = errors.New("Shutdown requested")
	ErrNoDeviceFound = errors.New("No Sony PTP device found")
	ErrDeviceBusy    = errors.New("Device is already owned by another session")
	ErrNoBridge      = errors.New("ptp-usb-bridge daemon not running")
	ErrAccess        = errors.New("Access denied")
)
