// Package app wires docshell's components into a running instance: the
// conversion engine, blob store, interception registry, socket broker,
// session controller, recent-files store and HTTP server.
package app
