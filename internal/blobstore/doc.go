// Package blobstore mints short-lived URLs for in-memory byte payloads.
//
// Each Put returns a URL under the store's base that resolves to exactly the
// stored bytes until Revoke is called. The store answers those URLs both as
// intercept middleware and as a plain HTTP handler.
package blobstore
