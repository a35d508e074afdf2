// Package session implements the document session controller behind the
// embedded editor.
//
// A Controller owns the single open document: its key, title, file type and
// the derived assets (the converted Editor.bin plus extracted media) the
// editor downloads through blob URLs. It answers the realtime protocol on a
// socket.Socket and serves the editor's download-as and upload requests as
// intercept middleware, calling the conversion engine for both loads and
// exports.
//
// Loads run in the background. Every open bumps a generation counter and a
// load only publishes its assets while its generation is current, so the
// last open wins. A load that fails leaves the session Ready with an empty
// primary asset instead of failing the editor boot.
package session
