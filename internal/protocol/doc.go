// Package protocol defines the realtime message protocol spoken between the
// embedded document editor and the in-process collaboration backend.
//
// Messages are closed sets per direction. Client messages (editor → backend)
// implement ClientMessage and are produced by DecodeClient; server messages
// (backend → editor) implement ServerMessage and marshal with the "type"
// discriminator the editor expects. Adding a message kind means adding a type
// here, so every switch over the set can be updated deliberately instead of
// silently ignoring an unknown string.
package protocol
