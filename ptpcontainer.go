/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * PTP bulk container framing (ISO 15740)
 */

package main

import (
	"encoding/binary"
	"fmt"
)

// PTPContainer is a single framed PTP message, as carried over the
// bulk endpoints: a 12-byte header (length, type, code, transaction
// ID) followed by zero or more little-endian uint32 parameters (for
// Command, Response and Event containers) or a raw payload (for Data
// containers).
type PTPContainer struct {
	Type          uint16
	Code          uint16
	TransactionID uint32
	Params        []uint32 // Only meaningful for Command, Response and Event containers
	Payload       []byte   // Only meaningful for Data containers
}

const ptpHeaderSize = 12

// encodeCommand builds a Command container: header + up to
// PTPMaxParams little-endian uint32 parameters.
func encodeCommand(code uint16, txID uint32, params []uint32) []byte {
	if len(params) > PTPMaxParams {
		params = params[:PTPMaxParams]
	}

	length := ptpHeaderSize + 4*len(params)
	buf := make([]byte, length)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint16(buf[4:6], PTPContainerCommand)
	binary.LittleEndian.PutUint16(buf[6:8], code)
	binary.LittleEndian.PutUint32(buf[8:12], txID)

	for i, p := range params {
		off := ptpHeaderSize + 4*i
		binary.LittleEndian.PutUint32(buf[off:off+4], p)
	}

	return buf
}

// encodeData builds a single-chunk Data container carrying payload.
func encodeData(code uint16, txID uint32, payload []byte) []byte {
	length := ptpHeaderSize + len(payload)
	buf := make([]byte, length)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint16(buf[4:6], PTPContainerData)
	binary.LittleEndian.PutUint16(buf[6:8], code)
	binary.LittleEndian.PutUint32(buf[8:12], txID)
	copy(buf[ptpHeaderSize:], payload)

	return buf
}

// decodeContainer parses a raw byte slice (header plus remainder,
// exactly as read off the bulk IN endpoint) into a PTPContainer.
func decodeContainer(raw []byte) (PTPContainer, error) {
	if len(raw) < ptpHeaderSize {
		return PTPContainer{}, fmt.Errorf("ptp: short container: %d bytes", len(raw))
	}

	length := binary.LittleEndian.Uint32(raw[0:4])
	if int(length) > len(raw) {
		return PTPContainer{}, fmt.Errorf(
			"ptp: container length %d exceeds read %d bytes", length, len(raw))
	}

	c := PTPContainer{
		Type:          binary.LittleEndian.Uint16(raw[4:6]),
		Code:          binary.LittleEndian.Uint16(raw[6:8]),
		TransactionID: binary.LittleEndian.Uint32(raw[8:12]),
	}

	body := raw[ptpHeaderSize:length]

	switch c.Type {
	case PTPContainerCommand, PTPContainerResponse, PTPContainerEvent:
		c.Params = make([]uint32, 0, len(body)/4)
		for off := 0; off+4 <= len(body); off += 4 {
			c.Params = append(c.Params, binary.LittleEndian.Uint32(body[off:off+4]))
		}
	case PTPContainerData:
		c.Payload = append([]byte(nil), body...)
	default:
		return PTPContainer{}, fmt.Errorf("ptp: unknown container type %d", c.Type)
	}

	return c, nil
}
