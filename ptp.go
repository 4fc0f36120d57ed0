/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Picture Transfer Protocol constants
 *
 * PTP container types and operation/response codes relevant to the
 * Sony bring-up sequence this bridge drives. Vendor-specific codes
 * are named per Sony's SDIO extensions; everything else follows
 * ISO 15740.
 */

package main

// PTP container types, as carried in the 2-byte "type" field of
// every container header.
const (
	PTPContainerCommand  uint16 = 1
	PTPContainerData     uint16 = 2
	PTPContainerResponse uint16 = 3
	PTPContainerEvent    uint16 = 4
)

// PTP operation codes used by this bridge. The bridge does not
// interpret the PTP object model; these are the codes its own
// commands (session, auth, property, object and live-view) issue,
// plus a few related ones. All other operation codes
// are supplied verbatim by the client via send/recv.
const (
	PTPOpGetDeviceInfo    uint16 = 0x1001
	PTPOpOpenSession      uint16 = 0x1002
	PTPOpCloseSession     uint16 = 0x1003
	PTPOpGetObject        uint16 = 0x1009
	PTPOpGetDevicePropDesc uint16 = 0x1014
	PTPOpGetDevicePropValue uint16 = 0x1015

	// Sony vendor extensions (SDIO)
	PTPOpSonySDIOConnect     uint16 = 0x9201
	PTPOpSonyGetSDIOGetExtDeviceInfo uint16 = 0x9202
	PTPOpSonyGetAllDevicePropData    uint16 = 0x9209
	PTPOpSonyLiveViewImage          uint16 = 0x9213
)

// PTP response codes
const (
	PTPResponseOK                 uint16 = 0x2001
	PTPResponseGeneralError       uint16 = 0x2002
	PTPResponseSessionNotOpen     uint16 = 0x2003
	PTPResponseInvalidTransaction uint16 = 0x2004
	PTPResponseParamNotSupported  uint16 = 0x2006
)

// PTPEventCode identifies the kind of an Event container's code field.
// No event is interpreted by this bridge beyond forwarding it to the
// client on a "wait" command; the codes are documented here for
// completeness and for tests.
const (
	PTPEventObjectAdded       uint16 = 0x4002
	PTPEventDevicePropChanged uint16 = 0x4006
)

// PTPMaxParams is the maximum number of uint32 parameters carried by
// a PTP container, per spec.md's PTPTransaction data model.
const PTPMaxParams = 5

// ptpResponseCodeName renders a response code for log/debug text.
func ptpResponseCodeName(code uint16) string {
	switch code {
	case PTPResponseOK:
		return "OK"
	case PTPResponseGeneralError:
		return "GeneralError"
	case PTPResponseSessionNotOpen:
		return "SessionNotOpen"
	case PTPResponseInvalidTransaction:
		return "InvalidTransaction"
	case PTPResponseParamNotSupported:
		return "ParameterNotSupported"
	}
	return "Unknown"
}
