package pixel

// Transport carries encoded OPC messages to a server.
type Transport interface {
	// Resolve looks up hostport and sets up the connection. It does not retry.
	Resolve(hostport string) error
	// Write blocks until all of msg is accepted for transmission or fails.
	Write(msg []byte) error
}
