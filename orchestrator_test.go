/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Tests for the Bridge Orchestrator's command grammar and dispatch
 */

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// spec.md scenario 3: an unknown command preserves the client's
// original casing (surrounding whitespace trimmed) in the error text
// while matching names case-insensitively for dispatch.
func TestDispatchCommandUnknown(t *testing.T) {
	sess := NewSession(0)

	resp, binary := DispatchCommand(sess, "Frobnicate:1")
	require.Nil(t, binary)

	var out map[string]string
	require.NoError(t, json.Unmarshal(resp, &out))
	require.Equal(t, "Unknown command: Frobnicate", out["error"])
}

// "OPEN" must resolve to the same handler as "open" -- command lookup
// is case-insensitive, unlike the preserved-case error text above.
// Whether open() itself succeeds depends on a camera being attached,
// so this only checks dispatch didn't fall through to "unknown".
func TestDispatchCommandCaseInsensitive(t *testing.T) {
	sess := NewSession(0)

	resp, _ := DispatchCommand(sess, "OPEN")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp, &out))

	if errText, isError := out["error"].(string); isError {
		require.NotContains(t, errText, "Unknown command")
	}
}

// requireOpen gates every command that needs a bound Transport.
func TestRequireOpenOnUnboundSession(t *testing.T) {
	sess := NewSession(0)

	cases := []string{"close:", "auth:", "getall:", "get:0x5001", "send:op=0x1014", "wait:", "reset:", "clear:"}
	for _, line := range cases {
		resp, binary := DispatchCommand(sess, line)
		require.Nil(t, binary)

		var out map[string]string
		require.NoError(t, json.Unmarshal(resp, &out))
		require.NotEmpty(t, out["error"], "command %q should fail on an unbound session", line)
	}
}

func TestParseSendRecvGrammar(t *testing.T) {
	tests := []struct {
		name       string
		params     string
		wantErr    bool
		wantOpCode uint16
		wantNParam int
		wantSize   uint32
	}{
		{name: "op only", params: "op=0x1014", wantOpCode: 0x1014, wantNParam: 0},
		{name: "op and params", params: "op=0x1015,p1=0x5001", wantOpCode: 0x1015, wantNParam: 1},
		{name: "op data size", params: "op=0x1016,p1=0x5001,data=0x2,size=2", wantOpCode: 0x1016, wantNParam: 1, wantSize: 2},
		{name: "missing op", params: "p1=0x5001", wantErr: true},
		{name: "malformed field", params: "op", wantErr: true},
		{name: "unknown key", params: "op=0x1014,bogus=1", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx, _, err := parseSendRecvGrammar("send", tc.params)
			if tc.wantErr {
				if _, ok := err.(*CommandGrammarError); !ok {
					t.Fatalf("error = %#v, want *CommandGrammarError", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("parseSendRecvGrammar: %v", err)
			}
			if tx.OpCode != tc.wantOpCode {
				t.Errorf("OpCode = 0x%x, want 0x%x", tx.OpCode, tc.wantOpCode)
			}
			if tx.NParam != tc.wantNParam {
				t.Errorf("NParam = %d, want %d", tx.NParam, tc.wantNParam)
			}
			if tx.Size != tc.wantSize {
				t.Errorf("Size = %d, want %d", tx.Size, tc.wantSize)
			}
		})
	}
}

func TestEncodeInlineDataLittleEndian(t *testing.T) {
	got := encodeInlineData(0x0201, 2)
	want := []byte{0x01, 0x02}
	require.Equal(t, want, got)
}

func TestTxResponseShape(t *testing.T) {
	tx := &Transaction{
		ResponseCode:       PTPResponseOK,
		ResponseParams:     [5]uint32{0x5001},
		ResponseParamCount: 1,
		Size:               4,
	}

	result := txResponse(tx, 0x7)
	require.Equal(t, "0x2001", result["code"])
	require.Equal(t, 1, result["nparam"])
	require.Equal(t, []string{"0x5001"}, result["params"])
	require.Equal(t, uint32(4), result["size"])
	require.Equal(t, "0x7", result["data"])
}
