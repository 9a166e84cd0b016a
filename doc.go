// Package wsserver is a minimal server-side implementation of the WebSocket
// protocol for single-frame UTF-8 text messages.
//
// See https://tools.ietf.org/html/rfc6455
//
// The package accepts raw TCP connections, performs the RFC 6455 upgrade
// handshake and then exchanges text frames with each peer. Inbound frames
// must be masked and outbound frames are never masked, as mandated for the
// client to server and server to client directions respectively.
//
// Fragmentation, control frames (ping, pong, close), extensions and
// subprotocol negotiation are not implemented.
package wsserver
