/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Status tracking -- which cameras are currently owned by a Session
 */

package main

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync"
)

// Version is the bridge's version string, reported by status.
const Version = "1.0"

// statusOfSession represents the status of one client session bound
// to a camera.
type statusOfSession struct {
	record    DeviceRecord
	sessionID int
	opened    bool
}

var (
	// statusTable maintains a per-camera status, indexed by UsbAddr
	// (spec.md section 5: only one Session may own a given device).
	statusTable = make(map[UsbAddr]*statusOfSession)

	// statusLock protects access to statusTable
	statusLock sync.RWMutex
)

// StatusRetrieve connects to the running bridge daemon over the
// control socket and retrieves its status as printable text.
func StatusRetrieve() ([]byte, error) {
	t := &http.Transport{
		Dial: func(network, addr string) (net.Conn, error) {
			return CtrlsockDial()
		},
	}

	c := &http.Client{Transport: t}

	rsp, err := c.Get("http://localhost/status")
	if err != nil {
		return nil, err
	}
	defer rsp.Body.Close()

	return io.ReadAll(rsp.Body)
}

// StatusFormat formats the bridge's status as text.
func StatusFormat() []byte {
	buf := &bytes.Buffer{}

	statusLock.RLock()
	defer statusLock.RUnlock()

	fmt.Fprintf(buf, "ptp-usb-bridge daemon %s: running\n", Version)

	sessions := make([]*statusOfSession, 0, len(statusTable))
	for _, s := range statusTable {
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].record.Addr().Less(sessions[j].record.Addr())
	})

	buf.WriteString("cameras:")
	if len(sessions) == 0 {
		buf.WriteString(" none owned\n")
	} else {
		buf.WriteString("\n")
		fmt.Fprintf(buf, " Num  Device              Vndr:Prod  Session  Model\n")
		for i, s := range sessions {
			fmt.Fprintf(buf, " %3d. %s  %4.4x:%4.4x  %-7d %q\n",
				i+1, s.record.Addr(), s.record.VendorID, s.record.ProductID,
				s.sessionID, s.record.ProductName)
		}
	}

	return buf.Bytes()
}

// StatusSet records that sessionID now owns the camera at addr.
func StatusSet(addr UsbAddr, record DeviceRecord, sessionID int) {
	statusLock.Lock()
	statusTable[addr] = &statusOfSession{record: record, sessionID: sessionID, opened: true}
	statusLock.Unlock()
}

// StatusDel releases the camera at addr from the status table.
func StatusDel(addr UsbAddr) {
	statusLock.Lock()
	delete(statusTable, addr)
	statusLock.Unlock()
}
