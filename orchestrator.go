/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Bridge Orchestrator -- parses text commands, drives the Command
 * Engine, and shapes JSON responses (spec.md section 4.5)
 */

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CommandHandler is a pure function of a Session and the params tail
// of a command line; it never closes over the orchestrator itself,
// resolving the handler-registry-back-reference cycle noted in
// spec.md section 9 by taking the session as an explicit argument
// rather than holding one.
type CommandHandler func(sess *Session, params string) (map[string]interface{}, []byte, error)

// commandHandlers is populated once, at package init, and never
// mutated afterwards -- read-only in every client worker goroutine,
// per spec.md section 5's "no locking required on the hot path".
var commandHandlers = map[string]CommandHandler{
	"open":        cmdOpen,
	"close":       cmdClose,
	"wait":        cmdWait,
	"auth":        cmdAuth,
	"getall":      cmdGetAll,
	"get":         cmdGet,
	"getobject":   cmdGetObject,
	"getliveview": cmdGetLiveView,
	"send":        cmdSend,
	"recv":        cmdRecv,
	"reset":       cmdReset,
	"clear":       cmdClear,
}

// DispatchCommand parses one text message into (command, params) on
// the first ':', looks up the handler case-insensitively, and runs
// it. It never returns an error itself: every failure is folded into
// the JSON response, matching spec.md's "session remains alive"
// propagation policy.
func DispatchCommand(sess *Session, line string) (response []byte, binary []byte) {
	cmdPart, paramsPart, _ := strings.Cut(line, ":")
	name := strings.ToLower(strings.TrimSpace(cmdPart))

	handler, ok := commandHandlers[name]
	if !ok {
		return jsonError(fmt.Sprintf("Unknown command: %s", strings.TrimSpace(cmdPart)))
	}

	result, payload, err := handler(sess, paramsPart)
	if err != nil {
		return jsonError(err.Error())
	}

	if result == nil {
		result = map[string]interface{}{"success": true}
	}

	buf, jerr := json.Marshal(result)
	if jerr != nil {
		return jsonError(jerr.Error())
	}

	return buf, payload
}

func jsonError(text string) ([]byte, []byte) {
	buf, _ := json.Marshal(map[string]interface{}{"error": text})
	return buf, nil
}

func successResult() map[string]interface{} {
	return map[string]interface{}{"success": true}
}

func successMessage(text string) map[string]interface{} {
	return map[string]interface{}{"success": true, "result": text}
}

// requireOpen is the guard every handler below that needs a Transport
// calls first.
func requireOpen(sess *Session) error {
	if !sess.opened {
		return errNotOpen("command")
	}
	return nil
}

func cmdOpen(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := sess.Open(); err != nil {
		return nil, nil, err
	}
	return successMessage("Device opened successfully"), nil, nil
}

func cmdClose(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	if _, err := sess.Engine.Close(); err != nil {
		return nil, nil, err
	}
	return successResult(), nil, nil
}

func cmdAuth(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	if _, err := sess.Engine.Auth(); err != nil {
		return nil, nil, err
	}
	return successResult(), nil, nil
}

func cmdGetAll(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	tx, err := sess.Engine.GetAll()
	if err != nil {
		return nil, nil, err
	}
	return txResponse(tx, 0), tx.PayloadIn, nil
}

func cmdGet(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	prop, err := parseUintLiteral(params)
	if err != nil {
		return nil, nil, &CommandGrammarError{Command: "get"}
	}
	tx, err := sess.Engine.Get(uint32(prop))
	if err != nil {
		return nil, nil, err
	}
	return txResponse(tx, 0), tx.PayloadIn, nil
}

func cmdGetObject(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	handle, err := parseUintLiteral(params)
	if err != nil {
		return nil, nil, &CommandGrammarError{Command: "getobject"}
	}
	tx, err := sess.Engine.GetObject(uint32(handle))
	if err != nil {
		return nil, nil, err
	}
	return txResponse(tx, 0), tx.PayloadIn, nil
}

func cmdGetLiveView(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	tx, err := sess.Engine.GetLiveView()
	if err != nil {
		return nil, nil, err
	}
	return txResponse(tx, 0), tx.PayloadIn, nil
}

func cmdSend(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	tx, dataVal, err := parseSendRecvGrammar("send", params)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.Engine.Send(tx); err != nil {
		return nil, nil, err
	}
	return txResponse(tx, dataVal), nil, nil
}

func cmdRecv(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	tx, dataVal, err := parseSendRecvGrammar("recv", params)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.Engine.Recv(tx); err != nil {
		return nil, nil, err
	}
	return txResponse(tx, dataVal), tx.PayloadIn, nil
}

func cmdWait(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	event, ok := sess.Engine.Wait()
	if !ok {
		return successMessage("No event"), nil, nil
	}
	text := fmt.Sprintf("event 0x%4.4x params=%s", event.Code, hexParams(event.Params))
	return successMessage(text), nil, nil
}

func cmdReset(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	if err := sess.Engine.Reset(); err != nil {
		return nil, nil, err
	}
	return successResult(), nil, nil
}

func cmdClear(sess *Session, params string) (map[string]interface{}, []byte, error) {
	if err := requireOpen(sess); err != nil {
		return nil, nil, err
	}
	if err := sess.Engine.Clear(); err != nil {
		return nil, nil, err
	}
	return successResult(), nil, nil
}

// txResponse builds the Send/Recv echo JSON shape of spec.md section
// 4.5. dataVal echoes the request's "data=" param (zero if absent);
// the actual received payload, if any, travels separately as a binary
// frame, per spec.md's out-of-band delivery rule.
func txResponse(tx *Transaction, dataVal uint32) map[string]interface{} {
	return map[string]interface{}{
		"code":   fmt.Sprintf("0x%x", tx.ResponseCode),
		"nparam": tx.ResponseParamCount,
		"params": hexParams(tx.ResponseParams[:tx.ResponseParamCount]),
		"size":   tx.Size,
		"data":   fmt.Sprintf("0x%x", dataVal),
	}
}

func hexParams(params []uint32) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = fmt.Sprintf("0x%x", p)
	}
	return out
}

// parseUintLiteral parses a single integer literal, accepting a "0x"
// hex prefix or plain decimal, per spec.md section 4.5.
func parseUintLiteral(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty literal")
	}
	return strconv.ParseUint(s, 0, 64)
}

// parseSendRecvGrammar parses send:op=<u16>[,p1=..]...[,data=..][,size=..]
// (and the identical recv grammar) into a Transaction. nparam is
// derived as the highest pN index actually supplied; missing params
// default to zero.
func parseSendRecvGrammar(cmd, params string) (*Transaction, uint32, error) {
	tx := &Transaction{}
	var dataVal uint32
	var haveOp bool
	var nparam int

	for _, field := range strings.Split(params, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, 0, &CommandGrammarError{Command: cmd}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "op":
			v, err := parseUintLiteral(value)
			if err != nil {
				return nil, 0, &CommandGrammarError{Command: cmd}
			}
			tx.OpCode = uint16(v)
			haveOp = true

		case key == "data":
			v, err := parseUintLiteral(value)
			if err != nil {
				return nil, 0, &CommandGrammarError{Command: cmd}
			}
			dataVal = uint32(v)

		case key == "size":
			v, err := parseUintLiteral(value)
			if err != nil {
				return nil, 0, &CommandGrammarError{Command: cmd}
			}
			tx.Size = uint32(v)

		case len(key) == 2 && key[0] == 'p' && key[1] >= '1' && key[1] <= '5':
			idx := int(key[1] - '1')
			v, err := parseUintLiteral(value)
			if err != nil {
				return nil, 0, &CommandGrammarError{Command: cmd}
			}
			tx.Params[idx] = uint32(v)
			if idx+1 > nparam {
				nparam = idx + 1
			}

		default:
			return nil, 0, &CommandGrammarError{Command: cmd}
		}
	}

	if !haveOp {
		return nil, 0, &CommandGrammarError{Command: cmd}
	}

	tx.NParam = nparam
	if tx.Size > 0 {
		tx.PayloadOut = encodeInlineData(dataVal, tx.Size)
	}

	return tx, dataVal, nil
}

// encodeInlineData packs a small integer "data=" value into size
// bytes, little-endian, zero-padded or truncated as needed. This is
// send's OUT payload: the escape hatch is meant for small control
// values, not bulk transfers.
func encodeInlineData(value, size uint32) []byte {
	buf := make([]byte, size)
	for i := uint32(0); i < size && i < 4; i++ {
		buf[i] = byte(value >> (8 * i))
	}
	return buf
}
