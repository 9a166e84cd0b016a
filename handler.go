package wsserver

// Handler receives connection lifecycle and message events.
//
// A single Handler is registered on the Listener and handed to every Conn at
// construction. Messages for one Conn are delivered sequentially from its
// read loop; callbacks for different Conns may run concurrently.
// Implementations must not block for long as that stalls the Conn's read
// loop.
type Handler interface {
	// ClientConnected is invoked once per accepted connection, after the
	// handshake response has been written and before any messages are read.
	ClientConnected(c *Conn)

	// MessageReceived is invoked once per decoded text frame with the
	// decoded text and its length in bytes.
	MessageReceived(c *Conn, text string, size int)

	// Disconnected is invoked exactly once per connection lifetime, whether
	// the peer went away, a protocol error occurred or the owner closed the
	// connection.
	Disconnected(c *Conn)
}
