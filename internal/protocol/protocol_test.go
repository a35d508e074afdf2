package protocol_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"docshell/internal/protocol"
)

func TestParseClientKinds(t *testing.T) {
	cases := []struct {
		payload string
		kind    string
	}{
		{`{"type":"auth","docid":"abc"}`, protocol.TypeAuth},
		{`{"type":"isSaveLock"}`, protocol.TypeIsSaveLock},
		{`{"type":"saveChanges","changes":["x"]}`, protocol.TypeSaveChanges},
		{`{"type":"getLock","block":"b1"}`, protocol.TypeGetLock},
		{`{"type":"cursor","cursor":"1;2"}`, "cursor"},
	}
	for _, tc := range cases {
		msg, err := protocol.ParseClient([]byte(tc.payload))
		if err != nil {
			t.Fatalf("ParseClient(%s): %v", tc.payload, err)
		}
		if msg.Kind() != tc.kind {
			t.Fatalf("ParseClient(%s) kind = %q, want %q", tc.payload, msg.Kind(), tc.kind)
		}
	}
}

func TestParseClientRejectsMissingType(t *testing.T) {
	for _, payload := range []string{`{}`, `[]`, `not json`} {
		if _, err := protocol.ParseClient([]byte(payload)); !errors.Is(err, protocol.ErrMalformed) {
			t.Fatalf("ParseClient(%s) error = %v, want ErrMalformed", payload, err)
		}
	}
}

func TestDecodeClientAcceptsGenericObjects(t *testing.T) {
	msg, err := protocol.DecodeClient(map[string]any{"type": "getLock", "block": []string{"a", "b"}})
	if err != nil {
		t.Fatalf("DecodeClient: %v", err)
	}
	lock, ok := msg.(protocol.GetLock)
	if !ok {
		t.Fatalf("expected GetLock, got %T", msg)
	}
	if got := lock.BlockKey(); got != `["a","b"]` {
		t.Fatalf("BlockKey = %q", got)
	}

	typed, err := protocol.DecodeClient(protocol.IsSaveLock{})
	if err != nil || typed.Kind() != protocol.TypeIsSaveLock {
		t.Fatalf("typed passthrough failed: %v %v", typed, err)
	}
}

func TestGetLockStringBlock(t *testing.T) {
	msg, err := protocol.ParseClient([]byte(`{"type":"getLock","block":"u_123"}`))
	if err != nil {
		t.Fatalf("ParseClient: %v", err)
	}
	if got := msg.(protocol.GetLock).BlockKey(); got != "u_123" {
		t.Fatalf("BlockKey = %q", got)
	}
}

func TestServerMessagesCarryTypeDiscriminator(t *testing.T) {
	msgs := []protocol.ServerMessage{
		protocol.AuthChanges{},
		protocol.AuthAck{Result: 1},
		protocol.License{License: protocol.DefaultLicense("9.3.0")},
		protocol.DocumentOpen{Data: protocol.DocumentStatus{Type: "open", Status: "ok"}},
		protocol.SaveLock{},
		protocol.UnSaveLock{Index: -1},
		protocol.LockGrant{Locks: map[string]protocol.Lock{"b": {Block: "b"}}},
		protocol.LockRelease{Locks: map[string]protocol.Lock{"b": {Block: "b"}}},
	}
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal %T: %v", msg, err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("unmarshal %T: %v", msg, err)
		}
		if envelope["type"] != msg.Type() {
			t.Fatalf("%T type = %v, want %q (%s)", msg, envelope["type"], msg.Type(), data)
		}
	}
}

func TestAuthChangesMarshalsEmptyList(t *testing.T) {
	data, err := json.Marshal(protocol.AuthChanges{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"changes":[]`) {
		t.Fatalf("expected empty changes list, got %s", data)
	}
}

func TestOpenPacketHasNoType(t *testing.T) {
	data, err := json.Marshal(protocol.OpenPacket{SID: "s", Upgrades: []string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"type"`) {
		t.Fatalf("open packet must not carry a type: %s", data)
	}
}

func TestSaveTypeTerminal(t *testing.T) {
	if protocol.SavePartStart.Terminal() || protocol.SavePart.Terminal() {
		t.Fatal("start and part signals are not terminal")
	}
	if !protocol.SaveComplete.Terminal() || !protocol.SaveCompleteAll.Terminal() {
		t.Fatal("complete signals are terminal")
	}
}
