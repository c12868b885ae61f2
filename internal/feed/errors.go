package feed

import "errors"

var (
	// ErrHandshake is returned when the Engine.IO or socket.io handshake
	// does not complete as expected.
	ErrHandshake = errors.New("feed handshake failed")

	// ErrConnectRejected is returned when the server answers the namespace
	// connect with a connect error packet.
	ErrConnectRejected = errors.New("feed namespace connect rejected")
)
