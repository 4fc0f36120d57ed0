/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Command Engine -- a thin layer above the Transport exposing the PTP
 * operations a Sony camera session needs, with request/response
 * shaping (spec.md section 4.3)
 */

package main

import (
	"time"
)

// Direction classifies a PTPTransaction's data phase.
type Direction int

const (
	DirNoData Direction = iota
	DirIn
	DirOut
)

// Transaction mirrors spec.md's PTPTransaction data model: built by
// the Orchestrator, driven through the Transport by the Engine, and
// discarded after its response is serialized back to the client.
type Transaction struct {
	OpCode    uint16
	Params    [5]uint32
	NParam    int
	Direction Direction

	PayloadIn  []byte // filled in by the Engine on DirIn
	PayloadOut []byte // supplied by the caller on DirOut
	Size       uint32

	ResponseCode       uint16
	ResponseParams     [5]uint32
	ResponseParamCount int
}

// OK reports whether the transaction's response carries PTPResponseOK.
func (tx *Transaction) OK() bool {
	return tx.ResponseCode == PTPResponseOK
}

func (tx *Transaction) paramSlice() []uint32 {
	return tx.Params[:tx.NParam]
}

func (tx *Transaction) setResponse(c PTPContainer) {
	tx.ResponseCode = c.Code
	n := len(c.Params)
	if n > 5 {
		n = 5
	}
	tx.ResponseParamCount = n
	for i := 0; i < n; i++ {
		tx.ResponseParams[i] = c.Params[i]
	}
}

// Engine drives a single Transport through the Sony PTP command
// vocabulary on behalf of one Session. It does not itself interpret
// the PTP object model (spec.md's explicit non-goal); it only shapes
// transactions and reads back whatever the camera returns.
type Engine struct {
	transport *Transport

	cmdTimeout  time.Duration
	dataTimeout time.Duration
	waitTimeout time.Duration
}

// NewEngine builds an Engine bound to transport, with the default
// timeouts from spec.md section 5 (5s command/response, 30s data IN,
// 5s wait).
func NewEngine(transport *Transport) *Engine {
	return &Engine{
		transport:   transport,
		cmdTimeout:  5 * time.Second,
		dataTimeout: 30 * time.Second,
		waitTimeout: 5 * time.Second,
	}
}

// run drives tx through the three-phase PTP flow (Command → optional
// Data → Response), filling in the response fields in place. It
// returns the error that aborted the flow, if any; a non-OK response
// code is reported to the caller as a *PTPResponseError, not as a
// Transport failure, matching spec.md's error taxonomy.
func (e *Engine) run(tx *Transaction) error {
	txID := e.transport.AllocateTransactionID()

	if err := e.transport.WriteCommand(tx.OpCode, tx.paramSlice(), txID); err != nil {
		return err
	}

	switch tx.Direction {
	case DirOut:
		if err := e.transport.WriteData(tx.OpCode, txID, tx.PayloadOut); err != nil {
			return err
		}

	case DirIn:
		c, err := e.transport.ReadResponse(txID, e.dataTimeout)
		if err != nil {
			return err
		}
		if c.Type == PTPContainerData {
			tx.PayloadIn = c.Payload
			tx.Size = uint32(len(c.Payload))
			c, err = e.transport.ReadResponse(txID, e.cmdTimeout)
			if err != nil {
				return err
			}
		}
		tx.setResponse(c)
		return e.responseError(tx)
	}

	c, err := e.transport.ReadResponse(txID, e.cmdTimeout)
	if err != nil {
		return err
	}
	tx.setResponse(c)
	return e.responseError(tx)
}

func (e *Engine) responseError(tx *Transaction) error {
	if tx.OK() {
		return nil
	}
	return &PTPResponseError{Code: tx.ResponseCode, Params: tx.ResponseParams[:tx.ResponseParamCount]}
}

// sonySessionID is the fixed session identifier this bridge opens
// with; Sony cameras do not require session multiplexing so a single
// well-known value suffices.
const sonySessionID = 1

// Open issues OpenSession. On a 0x2001 response it marks the
// Transport's session as open. The Engine does not check that flag
// before other operations; a command issued without an open session
// is still sent, and the camera's own response code is returned.
func (e *Engine) Open() (*Transaction, error) {
	tx := &Transaction{
		OpCode:    PTPOpOpenSession,
		Params:    [5]uint32{sonySessionID},
		NParam:    1,
		Direction: DirNoData,
	}

	if err := e.run(tx); err != nil {
		return tx, err
	}

	e.transport.sessionOpen = true
	return tx, nil
}

// Close issues CloseSession and clears session_open regardless of
// outcome.
func (e *Engine) Close() (*Transaction, error) {
	tx := &Transaction{OpCode: PTPOpCloseSession, Direction: DirNoData}
	err := e.run(tx)
	e.transport.sessionOpen = false
	return tx, err
}

// Auth drives the Sony SDIOConnect handshake: three successive
// SDIOConnect calls with phase arguments 1, 2, 3 and a fixed mode
// parameter, each of which must return 0x2001 before the next is
// issued. This unlocks vendor property access; it is a prerequisite
// for getall/get on Sony bodies (spec.md section 4.3).
func (e *Engine) Auth() (*Transaction, error) {
	const sdioMode = 0

	var tx *Transaction
	for phase := uint32(1); phase <= 3; phase++ {
		tx = &Transaction{
			OpCode:    PTPOpSonySDIOConnect,
			Params:    [5]uint32{0xC1, phase, sdioMode},
			NParam:    3,
			Direction: DirNoData,
		}
		if err := e.run(tx); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

// GetAll issues the Sony vendor extension returning all device
// property descriptors in one Data phase.
func (e *Engine) GetAll() (*Transaction, error) {
	tx := &Transaction{OpCode: PTPOpSonyGetAllDevicePropData, Direction: DirIn}
	err := e.run(tx)
	return tx, err
}

// Get issues GetDevicePropValue for a single property code.
func (e *Engine) Get(prop uint32) (*Transaction, error) {
	tx := &Transaction{
		OpCode:    PTPOpGetDevicePropValue,
		Params:    [5]uint32{prop},
		NParam:    1,
		Direction: DirIn,
	}
	err := e.run(tx)
	return tx, err
}

// GetObject issues GetObject for a single object handle.
func (e *Engine) GetObject(handle uint32) (*Transaction, error) {
	tx := &Transaction{
		OpCode:    PTPOpGetObject,
		Params:    [5]uint32{handle},
		NParam:    1,
		Direction: DirIn,
	}
	err := e.run(tx)
	return tx, err
}

// GetLiveView issues the Sony vendor LiveView operation, returning a
// single JPEG frame. Intended to be called repeatedly by the client.
func (e *Engine) GetLiveView() (*Transaction, error) {
	tx := &Transaction{OpCode: PTPOpSonyLiveViewImage, Direction: DirIn}
	err := e.run(tx)
	return tx, err
}

// Send is the passthrough escape hatch: the caller fully specifies
// opcode, params and an OUT payload.
func (e *Engine) Send(tx *Transaction) error {
	tx.Direction = DirOut
	return e.run(tx)
}

// Recv is the passthrough escape hatch for IN transfers: the caller
// specifies opcode and params, the Engine fills in the payload.
func (e *Engine) Recv(tx *Transaction) error {
	tx.Direction = DirIn
	return e.run(tx)
}

// Wait dequeues one pending event, blocking up to the configured wait
// timeout (default 5s).
func (e *Engine) Wait() (PTPContainer, bool) {
	return e.transport.WaitEvent(e.waitTimeout)
}

// Reset issues a USB device reset, one of the two recovery operations
// (clear is the other); both leave the Orchestrator free to retry.
func (e *Engine) Reset() error {
	return e.transport.Reset()
}

// Clear issues clear-halt on both bulk endpoints.
func (e *Engine) Clear() error {
	if err := e.transport.ClearHalt(true); err != nil {
		return err
	}
	return e.transport.ClearHalt(false)
}
