package wire

import (
	"errors"
	"log/slog"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"
)

// sslIdentifier represents the single byte the server replies with to an
// SSLRequest, indicating whether it is willing to upgrade the connection.
type sslIdentifier byte

const (
	sslSupported   sslIdentifier = 'S'
	sslUnsupported sslIdentifier = 'N'
)

// negotiateTLS sends an SSLRequest and inspects the server's single-byte
// reply. It does not perform a TLS handshake and never returns a usable
// connection: a 'N' reply yields a "server does not support TLS" error, a 'S'
// reply yields a "TLS handshake not implemented" error, and any other byte a
// decode error. In every case the unwrapped transport is returned alongside
// the error, and Dial closes it and fails.
func negotiateTLS(transport Transport, cfg Config) (Transport, error) {
	writer := buffer.NewWriter(slog.Default(), transport)
	writer.StartUntyped()
	writer.AddInt32(int32(types.VersionSSLRequest))
	if err := writer.EndUntyped(); err != nil {
		return transport, NewTransportError(err)
	}

	reply := make([]byte, 1)
	if _, err := transport.Read(reply); err != nil {
		return transport, NewTransportError(err)
	}

	switch sslIdentifier(reply[0]) {
	case sslUnsupported:
		return transport, errors.New("server does not support TLS")
	case sslSupported:
		return transport, errors.New("TLS handshake not implemented")
	default:
		return transport, NewDecodeError("unexpected SSLRequest reply byte: %q", reply[0])
	}
}
