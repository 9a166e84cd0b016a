package wsserver

import "errors"

// Errors returned by the handshake negotiator and the frame codec.
var (
	// ErrNotUpgrade indicates the request is not a GET and so cannot be a
	// WebSocket upgrade.
	ErrNotUpgrade = errors.New("request is not a websocket upgrade")
	// ErrMissingKey indicates the upgrade request has no Sec-WebSocket-Key
	// header.
	ErrMissingKey = errors.New("missing Sec-WebSocket-Key header")
	// ErrShortFrame indicates fewer bytes than the minimal two byte frame
	// header were received.
	ErrShortFrame = errors.New("frame shorter than minimal header")
	// ErrUnmaskedFrame indicates a client frame without the mask bit set.
	// Masking is mandatory on the client to server direction.
	ErrUnmaskedFrame = errors.New("client frame is not masked")
	// ErrTruncatedFrame indicates the declared payload length exceeds the
	// bytes actually received.
	ErrTruncatedFrame = errors.New("frame payload truncated")
)
