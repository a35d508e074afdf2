// Package socket provides the in-process realtime channel the editor talks
// to in place of a network socket.
//
// A Socket has two listener namespaces: client listeners receive events the
// server pushes, server listeners receive events the client emits. Client
// emits are delivered asynchronously and in order on a per-socket
// dispatcher; server pushes are delivered synchronously. Sockets announce
// connect and disconnect on a Broker so a controller built independently of
// the socket can find it.
package socket
