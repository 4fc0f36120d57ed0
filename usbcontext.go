/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Shared gousb context
 */

package main

import (
	"sync"

	"github.com/google/gousb"
)

var (
	usbCtx     *gousb.Context
	usbCtxOnce sync.Once
)

// UsbInit initializes the shared USB context. It is safe to call more
// than once; only the first call has effect.
func UsbInit() error {
	usbCtxOnce.Do(func() {
		usbCtx = gousb.NewContext()
	})
	return nil
}

// UsbExit releases the shared USB context. Called once, at process
// shutdown.
func UsbExit() {
	if usbCtx != nil {
		usbCtx.Close()
	}
}
