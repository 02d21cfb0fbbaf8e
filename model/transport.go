package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransport is returned for transport names the MCP surface does
// not speak.
var ErrInvalidTransport = errors.New("invalid transport")

// Transport selects how the MCP server talks to its client.
type Transport uint8

const (
	// UndefinedTransport is the zero value, rejected at server creation.
	UndefinedTransport Transport = iota
	// StdioTransport serves one client over stdin/stdout.
	StdioTransport
	// HTTPWithSSETransport serves streamable HTTP sessions.
	HTTPWithSSETransport
)

// ParseTransport converts a CLI flag value to a Transport.
func ParseTransport(transport string) (Transport, error) {
	switch transport {
	case "stdio":
		return StdioTransport, nil
	case "http-with-sse":
		return HTTPWithSSETransport, nil
	default:
		return UndefinedTransport, fmt.Errorf("%w: %q", ErrInvalidTransport, transport)
	}
}

// String returns the flag spelling of the transport.
func (t Transport) String() string {
	switch t {
	case StdioTransport:
		return "stdio"
	case HTTPWithSSETransport:
		return "http-with-sse"
	default:
		return "undefined"
	}
}
