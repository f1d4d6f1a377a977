package hub

// Socket is the duplex transport a Hub broadcasts and replies over. The
// façade's websocket adapter implements it; tests use an in-memory fake.
// Send must never block the Hub owner — implementations are expected to
// decouple it via their own buffered outbound queue, exactly as the
// teacher's Client.SafeSend does with its `send chan []byte`.
type Socket interface {
	// Send enqueues data for the client. It returns false (never an error)
	// if the send could not be queued (closed or buffer full); a failed
	// send must never abort a broadcast to other sockets (spec.md §5).
	Send(data []byte) bool

	// Close closes the socket with a reason, used for both graceful CLOSE
	// handling and forced eviction (heartbeat_timeout, banned, role_changed).
	Close(reason string)
}

// socketHandle pairs a Socket with the Session the Hub owner maintains for
// it. Hub.sockets does not use it: that map is keyed by the Socket itself.
type socketHandle struct {
	socket  Socket
	session *Session
}
