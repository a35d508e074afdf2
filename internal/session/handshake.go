package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"docshell/internal/logging"
	"docshell/internal/protocol"
	"docshell/internal/socket"
)

// Attach serves every socket that connects through broker. The returned
// function detaches.
func (c *Controller) Attach(broker *socket.Broker) func() {
	offConnect := broker.OnConnect(func(ev socket.Event) { c.HandleConnect(ev.Socket) })
	offDisconnect := broker.OnDisconnect(func(ev socket.Event) { c.HandleDisconnect(ev.Socket) })
	return func() {
		offConnect()
		offDisconnect()
	}
}

// HandleConnect binds sock as the editor channel, replacing any previous
// binding, and sends the open packet and license.
func (c *Controller) HandleConnect(sock *socket.Socket) {
	if sock == nil {
		return
	}
	c.mu.Lock()
	if c.unbind != nil {
		c.unbind()
	}
	c.sock = sock
	c.participants = []protocol.Participant{protocol.NewParticipant(sock.ID(), c.user)}
	c.unbind = sock.Server().On(socket.EventMessage, func(args ...any) {
		c.onMessage(args...)
	})
	c.mu.Unlock()

	c.logger.Debug("editor socket bound", logging.String("socket_id", sock.ID()))
	c.send(protocol.OpenPacket{
		SID:          c.sessionID,
		Upgrades:     []string{},
		PingInterval: protocol.PingIntervalMillis,
		PingTimeout:  protocol.PingTimeoutMillis,
		MaxPayload:   protocol.MaxPayloadBytes,
	})
	c.send(protocol.License{License: protocol.DefaultLicense(c.buildVersion)})
}

// HandleDisconnect unbinds sock if it is the bound socket.
func (c *Controller) HandleDisconnect(sock *socket.Socket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sock == nil || c.sock != sock {
		return
	}
	if c.unbind != nil {
		c.unbind()
		c.unbind = nil
	}
	c.sock = nil
	c.participants = nil
	c.logger.Debug("editor socket unbound", logging.String("socket_id", sock.ID()))
}

// HandleMessage answers one client message on the bound socket. Unlike
// socket delivery it waits for the document publication after auth.
func (c *Controller) HandleMessage(ctx context.Context, payload any) error {
	msg, err := protocol.DecodeClient(payload)
	if err != nil {
		return Wrap(ErrValidation, "session", "handle message", "", err)
	}
	c.respond(ctx, msg, true)
	return nil
}

func (c *Controller) onMessage(args ...any) {
	if len(args) == 0 {
		c.logger.Warn("empty message from editor")
		return
	}
	msg, err := protocol.DecodeClient(args[0])
	if err != nil {
		c.logger.Warn("undecodable message from editor", logging.Error(err))
		return
	}
	c.respond(c.ctx, msg, false)
}

func (c *Controller) respond(ctx context.Context, msg protocol.ClientMessage, wait bool) {
	switch m := msg.(type) {
	case protocol.Auth:
		c.send(protocol.AuthChanges{})
		c.send(c.authAck())
		if wait {
			c.publishDocument(ctx)
		} else {
			go c.publishDocument(ctx)
		}
	case protocol.IsSaveLock:
		c.send(protocol.SaveLock{SaveLock: false})
	case protocol.SaveChanges:
		c.mu.Lock()
		c.syncIndex++
		n := c.syncIndex
		c.mu.Unlock()
		c.send(protocol.UnSaveLock{Index: -1, SyncChangesIndex: n, Time: c.now().UnixMilli()})
	case protocol.GetLock:
		key := m.BlockKey()
		locks := map[string]protocol.Lock{
			key: {Time: c.now().UnixMilli(), User: c.user.ID, Block: key},
		}
		c.send(protocol.LockGrant{Locks: locks})
		c.send(protocol.LockRelease{Locks: locks})
	default:
		c.logger.Debug("ignoring editor message", logging.String("type", msg.Kind()))
	}
}

func (c *Controller) authAck() protocol.AuthAck {
	c.mu.Lock()
	participants := append([]protocol.Participant(nil), c.participants...)
	c.mu.Unlock()
	return protocol.AuthAck{
		Result:       1,
		SessionID:    c.sessionID,
		Participants: participants,
		IndexUser:    1,
		BuildVersion: c.buildVersion,
		BuildNumber:  c.buildNumber,
		LicenseType:  protocol.LicenseType,
		EditorType:   protocol.EditorType,
		Mode:         "edit",
		Permissions:  protocol.DefaultPermissions(),
	}
}

// publishDocument waits for the load and pushes the asset URLs. A failed
// load publishes an empty primary asset so the editor still boots.
func (c *Controller) publishDocument(ctx context.Context) {
	if c.Key() == "" {
		c.Document()
	}
	err := c.Wait(ctx)
	if ctx.Err() != nil {
		return
	}
	urls := c.assets.urls()
	if err != nil {
		urls = map[string]string{protocol.PrimaryAsset: ""}
	} else if _, ok := urls[protocol.PrimaryAsset]; !ok {
		urls[protocol.PrimaryAsset] = ""
	}
	c.send(protocol.DocumentOpen{Data: protocol.DocumentStatus{
		Type:   "open",
		Status: "ok",
		Data:   urls,
	}})
}

// send pushes msg to the bound socket. Without one the message is dropped.
func (c *Controller) send(msg protocol.ServerMessage) {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock == nil {
		c.logger.Warn("no editor socket bound, message dropped", logging.String("type", msg.Type()))
		return
	}
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		if data, err := json.Marshal(msg); err == nil {
			c.logger.Debug("message to editor", logging.String("payload", string(data)))
		}
	}
	sock.Server().Emit(socket.EventMessage, msg)
}
