// Package server exposes the document session over HTTP for `docshell serve`.
//
// Routes are registered on a gorilla/mux router and wrapped in rs/cors so an
// editor bundle served from another origin can call them. Editor traffic that
// is not one of the fixed API routes (download-as, upload, blob fetches) is
// handed to the interception registry, the same middleware chain the
// in-process transport uses. A gofrs/flock lock file keeps a second instance
// from binding the same data directory.
package server
