/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * PTP transport -- owns the USB device handle, the bulk IN/OUT and
 * interrupt IN endpoints, and the PTP bulk container protocol
 * (transaction sequencing, halt recovery, buffered event delivery)
 */

package main

import (
	"time"

	"github.com/google/gousb"
)

// EventQueueCapacity is the bounded FIFO capacity for events received
// while waiting for a Response (spec.md section 4.2): drop-oldest on
// overflow.
const EventQueueCapacity = 64

// Transport owns an opened USB device handle and its three PTP
// endpoints. Its lifetime equals a Session's lifetime: at most one
// Transport claims a given USB device at a time (enforced one layer
// up, by the Bridge's device-ownership map).
type Transport struct {
	addr   UsbAddr
	log    *Logger
	quirks CameraQuirks

	dev   *gousb.Device
	cfg   *gousb.Config
	iface *gousb.Interface

	bulkIn  *gousb.InEndpoint
	bulkOut *gousb.OutEndpoint
	intIn   *gousb.InEndpoint

	nextTransactionID uint32
	sessionOpen       bool

	events chan PTPContainer

	cmdTimeout  time.Duration
	dataTimeout time.Duration
}

// NewTransport constructs a Transport bound to addr. It does not open
// the device; call Open to claim the interface.
func NewTransport(addr UsbAddr, log *Logger, quirks CameraQuirks) *Transport {
	return &Transport{
		addr:        addr,
		log:         log,
		quirks:      quirks,
		events:      make(chan PTPContainer, EventQueueCapacity),
		cmdTimeout:  5000 * time.Millisecond,
		dataTimeout: 30000 * time.Millisecond,
	}
}

// Open claims the PTP interface, locates the bulk IN/OUT and
// interrupt IN endpoints by descriptor, and resets the transaction
// counter. session_open remains false until OpenSession succeeds
// (driven by the Command Engine, not by Open itself).
func (t *Transport) Open() error {
	dev, err := t.addr.Open()
	if err != nil {
		return errIO("open", err)
	}

	dev.SetAutoDetach(true)

	cfgNum, ifNum, altNum, bulkInDesc, bulkOutDesc, intInDesc, err := findPTPEndpoints(dev.Desc)
	if err != nil {
		dev.Close()
		return errIO("open", err)
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		dev.Close()
		return errIO("open: claim config", err)
	}

	iface, err := cfg.Interface(ifNum, altNum)
	if err != nil {
		cfg.Close()
		dev.Close()
		return errIO("open: claim interface", err)
	}

	bulkIn, err := iface.InEndpoint(bulkInDesc.Number)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		return errIO("open: bulk in endpoint", err)
	}

	bulkOut, err := iface.OutEndpoint(bulkOutDesc.Number)
	if err != nil {
		iface.Close()
		cfg.Close()
		dev.Close()
		return errIO("open: bulk out endpoint", err)
	}

	var intIn *gousb.InEndpoint
	if intInDesc != nil {
		intIn, err = iface.InEndpoint(intInDesc.Number)
		if err != nil {
			iface.Close()
			cfg.Close()
			dev.Close()
			return errIO("open: interrupt in endpoint", err)
		}
	}

	t.dev = dev
	t.cfg = cfg
	t.iface = iface
	t.bulkIn = bulkIn
	t.bulkOut = bulkOut
	t.intIn = intIn
	t.nextTransactionID = 1
	t.sessionOpen = false

	t.log.Info('+', "%s: opened, endpoints in=%d out=%d int=%v",
		t.addr, bulkInDesc.Number, bulkOutDesc.Number, intInDesc)

	return nil
}

// Close releases the USB interface and closes the handle. Idempotent.
func (t *Transport) Close() {
	if t.iface != nil {
		t.iface.Close()
		t.iface = nil
	}
	if t.cfg != nil {
		t.cfg.Close()
		t.cfg = nil
	}
	if t.dev != nil {
		t.dev.Close()
		t.dev = nil
	}
	t.sessionOpen = false
}

// IsOpen reports whether the Transport currently owns a claimed
// interface.
func (t *Transport) IsOpen() bool {
	return t.dev != nil
}

// AllocateTransactionID assigns the next strictly-increasing
// transaction ID for this session.
func (t *Transport) AllocateTransactionID() uint32 {
	id := t.nextTransactionID
	t.nextTransactionID++
	return id
}

// WriteCommand writes a Command container for op/params under txID.
func (t *Transport) WriteCommand(op uint16, params []uint32, txID uint32) error {
	if !t.IsOpen() {
		return errNotOpen("write_command")
	}

	buf := encodeCommand(op, txID, params)
	ctx, cancel := writeCtx(t.cmdTimeout)
	defer cancel()
	n, err := t.bulkOut.WriteContext(ctx, buf)
	if err != nil {
		return errIO("write_command", err)
	}
	if n != len(buf) {
		return errIO("write_command", errShortWrite)
	}
	return nil
}

// WriteData writes a single-chunk Data container carrying payload.
func (t *Transport) WriteData(op uint16, txID uint32, payload []byte) error {
	if !t.IsOpen() {
		return errNotOpen("write_data")
	}

	buf := encodeData(op, txID, payload)
	ctx, cancel := writeCtx(t.dataTimeout)
	defer cancel()
	n, err := t.bulkOut.WriteContext(ctx, buf)
	if err != nil {
		return errIO("write_data", err)
	}
	if n != len(buf) {
		return errIO("write_data", errShortWrite)
	}
	return nil
}

// maxBulkRead is the buffer size used to drain one container off the
// bulk IN endpoint. Large enough for a live-view JPEG frame in one
// shot. A container longer than this is not read in pieces:
// ReadContainer fails on it instead of reassembling it.
const maxBulkRead = 4 * 1024 * 1024

// ReadContainer reads and decodes one PTP container from the bulk IN
// endpoint, with the given timeout.
func (t *Transport) ReadContainer(timeout time.Duration) (PTPContainer, error) {
	if !t.IsOpen() {
		return PTPContainer{}, errNotOpen("read_container")
	}

	buf := make([]byte, maxBulkRead)
	ctx, cancel := writeCtx(timeout)
	defer cancel()
	n, err := t.bulkIn.ReadContext(ctx, buf)
	if err != nil {
		if isUSBTimeout(err) {
			return PTPContainer{}, errTimeout("read_container", err)
		}
		return PTPContainer{}, errIO("read_container", err)
	}

	c, derr := decodeContainer(buf[:n])
	if derr != nil {
		return PTPContainer{}, errProtocolMismatch("read_container", derr.Error())
	}

	return c, nil
}

// ReadResponse reads containers from the bulk IN endpoint until a Data
// or Response container matching txID arrives, buffering any Event
// containers seen along the way into the bounded event FIFO
// (drop-oldest on overflow). A Data or Response container whose
// transaction ID does not match txID is a protocol error.
func (t *Transport) ReadResponse(txID uint32, timeout time.Duration) (PTPContainer, error) {
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return PTPContainer{}, errTimeout("read_response", nil)
		}

		c, err := t.ReadContainer(remaining)
		if err != nil {
			return PTPContainer{}, err
		}

		switch c.Type {
		case PTPContainerEvent:
			t.pushEvent(c)
			continue
		case PTPContainerData, PTPContainerResponse:
			if c.TransactionID != txID {
				return PTPContainer{}, errProtocolMismatch("read_response",
					"transaction ID mismatch")
			}
			return c, nil
		default:
			return PTPContainer{}, errProtocolMismatch("read_response", "unexpected container type")
		}
	}
}

// pushEvent buffers an Event container, dropping the oldest one on
// overflow so the FIFO never blocks the transaction that observed it.
func (t *Transport) pushEvent(c PTPContainer) {
	select {
	case t.events <- c:
	default:
		select {
		case <-t.events:
		default:
		}
		select {
		case t.events <- c:
		default:
		}
	}
}

// WaitEvent dequeues one pending event, blocking up to timeout. It
// returns ok=false on timeout, never an error: an empty wait is not a
// transport failure.
func (t *Transport) WaitEvent(timeout time.Duration) (PTPContainer, bool) {
	select {
	case c := <-t.events:
		return c, true
	case <-time.After(timeout):
		return PTPContainer{}, false
	}
}

// ClearHalt clears a stall condition on the given endpoint.
func (t *Transport) ClearHalt(in bool) error {
	if !t.IsOpen() {
		return errNotOpen("clear_halt")
	}

	var err error
	if in {
		err = t.bulkIn.ClearHalt()
	} else {
		err = t.bulkOut.ClearHalt()
	}
	if err != nil {
		return errStalled("clear_halt", err)
	}
	return nil
}

// Reset issues a USB device reset and re-establishes the claimed
// interface, clearing sessionOpen (the client must reopen the PTP
// session afterwards).
func (t *Transport) Reset() error {
	if t.dev == nil {
		return errNotOpen("reset")
	}

	if err := t.dev.Reset(); err != nil {
		return errIO("reset", err)
	}

	t.sessionOpen = false
	t.nextTransactionID = 1
	return nil
}
