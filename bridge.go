/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Session object brings all parts together
 */

package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Session is the data model's Session object (spec.md section 3): one
// per connected WebSocket client. It starts unbound to any camera;
// the "open" command binds it, at which point it exclusively owns a
// Transport for the rest of its lifetime.
type Session struct {
	ID int

	Record DeviceRecord

	Transport *Transport
	Engine    *Engine
	Log       *Logger

	quirks CameraQuirks
	ident  string
	opened bool
}

// NewSession allocates a Session for a newly accepted WebSocket
// client. It does not yet own a camera.
func NewSession(id int) *Session {
	return &Session{ID: id, Log: Log}
}

var (
	// sessionsByIdent enforces spec.md section 5: only one Session may
	// own a given camera at a time. Keyed by DeviceRecord.CameraIdent,
	// not by UsbAddr, so a camera keeps its ownership slot across a
	// bus renumbering between sessions.
	sessionsByIdent = make(map[string]*Session)
	sessionsLock    sync.Mutex
)

// acquireIdent claims ident for sess, or returns ErrDeviceBusy if
// another session already owns it.
func acquireIdent(ident string, sess *Session) error {
	sessionsLock.Lock()
	defer sessionsLock.Unlock()

	if _, busy := sessionsByIdent[ident]; busy {
		return ErrDeviceBusy
	}
	sessionsByIdent[ident] = sess
	return nil
}

func releaseIdent(ident string) {
	sessionsLock.Lock()
	delete(sessionsByIdent, ident)
	sessionsLock.Unlock()
}

// SelectDevice picks the camera a newly opened Session should bind
// to: the one matching Conf.BusNumber/Conf.DeviceAddress if either is
// non-zero (spec.md's "0 means any"), otherwise the first Sony PTP
// device ListAllSony finds.
func SelectDevice() (DeviceRecord, error) {
	records := ListAllSony()
	if len(records) == 0 {
		return DeviceRecord{}, ErrNoDeviceFound
	}

	if Conf.BusNumber == 0 && Conf.DeviceAddress == 0 {
		return records[0], nil
	}

	for _, rec := range records {
		if Conf.BusNumber != 0 && rec.Bus != Conf.BusNumber {
			continue
		}
		if Conf.DeviceAddress != 0 && rec.Address != Conf.DeviceAddress {
			continue
		}
		return rec, nil
	}

	return DeviceRecord{}, ErrNoDeviceFound
}

// Open selects a camera, claims exclusive ownership of it, and opens
// a Transport bound to it. Calling Open on an already-open Session is
// a no-op success, so a client that sends "open" twice is not
// punished for it.
func (sess *Session) Open() (err error) {
	if sess.opened {
		return nil
	}

	record, err := SelectDevice()
	if err != nil {
		return err
	}

	ident := record.CameraIdent()
	if err = acquireIdent(ident, sess); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			releaseIdent(ident)
		}
	}()

	quirks := Conf.Quirks.For(record.ProductName)
	log := Log.ToDevFile(ident)
	log.Cc(Conf.LogConsole, Console)

	if quirks.InitDelay > 0 {
		log.Debug(' ', "quirk: delaying init by %s", quirks.InitDelay)
		time.Sleep(quirks.InitDelay)
	}

	transport := NewTransport(record.Addr(), log, quirks)
	if err = transport.Open(); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			transport.Close()
		}
	}()

	sess.Record = record
	sess.ident = ident
	sess.quirks = quirks
	sess.Log = log
	sess.Transport = transport

	if err = sess.applyInitReset(); err != nil {
		return err
	}

	sess.Engine = NewEngine(transport)
	sess.opened = true

	StatusSet(record.Addr(), record, sess.ID)
	sess.Log.Info(' ', "session %d: bound to %s", sess.ID, record)

	return nil
}

// applyInitReset performs the quirk-requested recovery action, if
// any, before the session's first transaction.
func (sess *Session) applyInitReset() error {
	switch sess.quirks.InitReset {
	case QuirkResetSoft:
		sess.Log.Debug(' ', "quirk: clearing halt on bulk endpoints")
		return sess.Transport.ClearHalt(true)
	case QuirkResetHard:
		sess.Log.Debug(' ', "quirk: resetting device")
		return sess.Transport.Reset()
	}
	return nil
}

// Shutdown runs Close in the background and waits for it until ctx is
// done. If ctx ends first, Shutdown returns ctx.Err() and Close keeps
// running.
func (sess *Session) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		sess.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the session's camera and its ownership slot, if it
// ever held one. Called once, when the owning WebSocket connection
// goes away -- not by the "close" command, which only issues the PTP
// CloseSession operation and leaves the Transport claimed.
func (sess *Session) Close() {
	if !sess.opened {
		return
	}

	if sess.Transport != nil {
		sess.Transport.Close()
	}

	StatusDel(sess.Record.Addr())
	releaseIdent(sess.ident)
	sess.opened = false

	sess.Log.Info(' ', "session %d: closed", sess.ID)
	if sess.Log != Log {
		sess.Log.Close()
	}
}

// String returns a short human-readable identification of the
// session, used in log lines that don't otherwise carry the session
// number.
func (sess *Session) String() string {
	if !sess.opened {
		return fmt.Sprintf("session %d (unbound)", sess.ID)
	}
	return fmt.Sprintf("session %d (%s)", sess.ID, sess.Record)
}
