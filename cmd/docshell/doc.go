// Command docshell hosts the local document editor backend.
//
// `docshell serve` runs the HTTP API the editor talks to. The remaining
// commands either work offline against the data directory (convert, recent,
// config) or drive a running server over its API (open, status).
package main
