package wire

// NewParameter constructs a bound parameter value for use inside a Bind
// message. The value is treated as an opaque byte string by the core; a
// caller with richer type knowledge is expected to have already encoded it
// using the format it declares (see TypeMap(ctx) in conn.go).
func NewParameter(format FormatCode, value []byte) Parameter {
	return Parameter{
		format: format,
		value:  value,
	}
}

// Parameter represents a single bound query parameter, carrying both its
// declared wire format and its already-encoded value.
type Parameter struct {
	format FormatCode
	value  []byte
}

func (p Parameter) Format() FormatCode {
	return p.format
}

// Value returns the raw encoded parameter bytes, or nil for NULL.
func (p Parameter) Value() []byte {
	return p.value
}
