package wsserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// secWebSocketAccept computes the Sec-WebSocket-Accept value for a
// Sec-WebSocket-Key. The GUID is the fixed constant mandated by
// https://tools.ietf.org/html/rfc6455#section-1.3
func secWebSocketAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write(keyGUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

var methodGet = []byte("GET")

// negotiate decides whether req, the raw bytes of one HTTP request, is a
// WebSocket upgrade request. On success it returns the exact 101 response
// to write back on the same socket before any frame traffic.
//
// A request upgrades iff it begins with GET and carries a
// Sec-WebSocket-Key header. Anything else returns ErrNotUpgrade or
// ErrMissingKey and the caller is expected to reject the socket.
func negotiate(req []byte) ([]byte, error) {
	if !bytes.HasPrefix(req, methodGet) {
		return nil, ErrNotUpgrade
	}
	key, ok := headerValue(req, "Sec-WebSocket-Key")
	if !ok || key == "" {
		return nil, ErrMissingKey
	}

	// Header order and casing matter to some strict clients.
	var b bytes.Buffer
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Upgrade: WebSocket\r\n")
	b.WriteString("Sec-WebSocket-Accept: ")
	b.WriteString(secWebSocketAccept(key))
	b.WriteString("\r\n\r\n")
	return b.Bytes(), nil
}

// hasUpgradeTokens reports whether the Connection header contains the
// Upgrade token and the Upgrade header the websocket token. Browsers always
// send both; their absence is logged by the Listener but does not reject
// the request.
func hasUpgradeTokens(req []byte) bool {
	connection, _ := headerValue(req, "Connection")
	upgrade, _ := headerValue(req, "Upgrade")
	return httpguts.HeaderValuesContainsToken([]string{connection}, "Upgrade") &&
		httpguts.HeaderValuesContainsToken([]string{upgrade}, "WebSocket")
}

// headerValue scans req for the named header and returns its value trimmed
// of surrounding whitespace. Header names match case insensitively.
func headerValue(req []byte, name string) (string, bool) {
	for _, line := range strings.Split(string(req), "\r\n") {
		if line == "" {
			// End of headers.
			return "", false
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line[:i]), name) {
			return strings.TrimSpace(line[i+1:]), true
		}
	}
	return "", false
}

// responseBadRequest is written on a failed handshake so the socket is
// never left dangling without an acknowledgement.
var responseBadRequest = []byte("HTTP/1.1 400 Bad Request\r\nConnection: close\r\nContent-Length: 0\r\n\r\n")
