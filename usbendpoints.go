/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * PTP endpoint discovery -- locates the bulk IN/OUT and interrupt IN
 * endpoints of the Still Image (PTP) interface from a device's USB
 * descriptor tree, the way gousb-based tools are expected to (cf.
 * the config/interface/endpoint walk in the HASHER sample's USB
 * device setup)
 */

package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/gousb"
)

var errNoPTPInterface = errors.New("no PTP (Still Image) interface found")
var errShortWrite = errors.New("short write")

// findPTPEndpoints walks desc's configuration/interface/alt-setting
// tree looking for the PTP (Still Image, class 0x06) interface, and
// returns the config/interface/alt numbers together with the bulk
// IN, bulk OUT, and (if present) interrupt IN endpoint descriptors.
func findPTPEndpoints(desc *gousb.DeviceDesc) (
	cfgNum, ifNum, altNum int,
	bulkIn, bulkOut *gousb.EndpointDesc,
	intIn *gousb.EndpointDesc,
	err error,
) {
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if int(alt.Class) != PTPInterfaceClass {
					continue
				}

				var in, out, interrupt *gousb.EndpointDesc
				for epNum, ep := range alt.Endpoints {
					e := ep
					switch e.TransferType {
					case gousb.TransferTypeBulk:
						if e.Direction == gousb.EndpointDirectionIn {
							in = &e
						} else {
							out = &e
						}
					case gousb.TransferTypeInterrupt:
						if e.Direction == gousb.EndpointDirectionIn {
							interrupt = &e
						}
					}
					_ = epNum
				}

				if in != nil && out != nil {
					return cfg.Number, intf.Number, alt.Number, in, out, interrupt, nil
				}
			}
		}
	}

	return 0, 0, 0, nil, nil, nil, errNoPTPInterface
}

// writeCtx builds a context with the given timeout, for use with
// gousb's endpoint read/write methods. The caller must invoke the
// returned cancel func once the transfer completes.
func writeCtx(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// isUSBTimeout reports whether err represents a USB transfer timeout,
// as opposed to any other I/O failure.
func isUSBTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
