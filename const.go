/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Configuration constants
 */

package main

import (
	"time"
)

const (
	// CommandTimeout bounds a PTP Command/Response round trip with no
	// data phase (spec.md section 5).
	CommandTimeout = 5 * time.Second

	// DataTimeout bounds a PTP Data-IN transfer, e.g. getobject or
	// getliveview (spec.md section 5).
	DataTimeout = 30 * time.Second

	// WaitTimeout bounds how long the "wait" command blocks for a
	// pending event before returning none.
	WaitTimeout = 5 * time.Second

	// DeviceWatcherInterval is the polling period between successive
	// USB device-list snapshots used to detect attach/detach.
	DeviceWatcherInterval = 1 * time.Second

	// AcceptPollTimeout is the interval at which Server.Stop logs that
	// it is still waiting for the accept loop to exit. The accept loop
	// itself does not poll; closing the listener ends it.
	AcceptPollTimeout = 1 * time.Second
)
