package session

import (
	"context"
	"testing"
	"time"

	"docshell/internal/protocol"
	"docshell/internal/socket"
)

func fixedClock(millis int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(millis) }
}

func TestConnectSendsOpenPacketAndLicense(t *testing.T) {
	h := newHarness(t, WithBuild("8.1.0", 4))
	h.connect(t)

	msgs := h.client.messages()
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", h.client.types())
	}
	open, ok := msgs[0].(protocol.OpenPacket)
	if !ok {
		t.Fatalf("first message = %T", msgs[0])
	}
	if open.SID != h.ctrl.SessionID() || open.PingInterval != 25000 || open.PingTimeout != 20000 || open.MaxPayload != 100000000 {
		t.Fatalf("unexpected open packet %+v", open)
	}
	license := msgs[1].(protocol.License)
	if license.License.BuildVersion != "8.1.0" {
		t.Fatalf("license build = %q", license.License.BuildVersion)
	}
}

func TestAttachServesBrokerSockets(t *testing.T) {
	h := newHarness(t)
	broker := socket.NewBroker()
	rec := &recorder{}
	broker.OnConnect(func(ev socket.Event) { ev.Socket.On(socket.EventMessage, rec.listen) })
	detach := h.ctrl.Attach(broker)
	defer detach()

	sock := socket.New(broker)
	waitFor(t, func() bool { return len(rec.messages()) == 2 })
	if got := rec.types(); got[1] != protocol.TypeLicense {
		t.Fatalf("messages = %q", got)
	}

	sock.Disconnect()
	h.ctrl.mu.Lock()
	bound := h.ctrl.sock
	h.ctrl.mu.Unlock()
	if bound != nil {
		t.Fatal("socket still bound after disconnect")
	}
	if n := sock.Server().Listeners(socket.EventMessage); n != 0 {
		t.Fatalf("server listeners after disconnect = %d", n)
	}
}

func TestReconnectReplacesBinding(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	old := h.sock
	h.connect(t)
	if old.Server().Listeners(socket.EventMessage) != 0 {
		t.Fatal("previous socket still has a message listener")
	}
	if h.sock.Server().Listeners(socket.EventMessage) != 1 {
		t.Fatal("new socket has no message listener")
	}
}

func TestSaveChangesIncrementsSyncIndex(t *testing.T) {
	h := newHarness(t, WithClock(fixedClock(42)))
	h.connect(t)
	ctx := context.Background()
	for range 2 {
		if err := h.ctrl.HandleMessage(ctx, map[string]any{"type": "saveChanges", "changes": []string{"c"}}); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}
	var got []protocol.UnSaveLock
	for _, m := range h.client.messages() {
		if u, ok := m.(protocol.UnSaveLock); ok {
			got = append(got, u)
		}
	}
	if len(got) != 2 || got[0].SyncChangesIndex != 1 || got[1].SyncChangesIndex != 2 {
		t.Fatalf("unSaveLock messages = %+v", got)
	}
	if got[0].Index != -1 || got[0].Time != 42 {
		t.Fatalf("unexpected unSaveLock %+v", got[0])
	}
}

func TestGetLockGrantsThenReleases(t *testing.T) {
	h := newHarness(t, WithClock(fixedClock(7)), WithUser("u-1", "Ada"))
	h.connect(t)
	if err := h.ctrl.HandleMessage(context.Background(), `{"type":"getLock","block":["b1"]}`); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgs := h.client.messages()[2:]
	if len(msgs) != 2 {
		t.Fatalf("lock messages = %v", h.client.types())
	}
	grant := msgs[0].(protocol.LockGrant)
	release := msgs[1].(protocol.LockRelease)
	want := protocol.Lock{Time: 7, User: "u-1", Block: `["b1"]`}
	if grant.Locks[`["b1"]`] != want || release.Locks[`["b1"]`] != want {
		t.Fatalf("grant %+v release %+v", grant, release)
	}
}

func TestIsSaveLockAnswersUnlocked(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	if err := h.ctrl.HandleMessage(context.Background(), protocol.IsSaveLock{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	msgs := h.client.messages()
	lock, ok := msgs[len(msgs)-1].(protocol.SaveLock)
	if !ok || lock.SaveLock {
		t.Fatalf("last message = %#v", msgs[len(msgs)-1])
	}
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	if err := h.ctrl.HandleMessage(context.Background(), `{"type":"cursor"}`); err != nil {
		t.Fatalf("unknown kind should be ignored, got %v", err)
	}
	if err := h.ctrl.HandleMessage(context.Background(), `{}`); err == nil {
		t.Fatal("expected error for message without type")
	}
	if n := len(h.client.messages()); n != 2 {
		t.Fatalf("unexpected replies: %v", h.client.types())
	}
}

func TestSendWithoutSocketIsDropped(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.HandleMessage(context.Background(), protocol.IsSaveLock{}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
}
