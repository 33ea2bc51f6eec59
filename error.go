package wire

import (
	"fmt"
	"runtime"

	"pgwire/codes"
	pgerror "pgwire/errors"
	"pgwire/pkg/buffer"
)

// ReadErrorFields decodes the field-coded payload shared by ErrorResponse and
// NoticeResponse: a sequence of (1-byte key, NUL-terminated value) records
// terminated by a lone NUL.
// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
func ReadErrorFields(reader *buffer.Reader) (map[pgerror.FieldType]string, error) {
	fields := make(map[pgerror.FieldType]string)

	for {
		key, err := reader.GetByte()
		if err != nil {
			return nil, err
		}

		if key == 0 {
			return fields, nil
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		fields[pgerror.FieldType(key)] = value
	}
}

// ReadErrorResponse decodes an ErrorResponse payload into a PostgresError.
func ReadErrorResponse(reader *buffer.Reader) (*PostgresError, error) {
	raw, err := ReadErrorFields(reader)
	if err != nil {
		return nil, err
	}

	fields, err := pgerror.ParseFields(raw)
	if err != nil {
		return nil, NewDecodeError("malformed ErrorResponse: %s", err)
	}

	return &PostgresError{Fields: fields}, nil
}

// ReadNoticeResponse decodes a NoticeResponse payload into a pgerror.Notice.
func ReadNoticeResponse(reader *buffer.Reader) (*pgerror.Notice, error) {
	raw, err := ReadErrorFields(reader)
	if err != nil {
		return nil, err
	}

	fields, err := pgerror.ParseFields(raw)
	if err != nil {
		return nil, NewDecodeError("malformed NoticeResponse: %s", err)
	}

	return &pgerror.Notice{Fields: fields}, nil
}

// decorateFields layers the Hint/Detail/ConstraintName/Source decorators
// over err for whichever of those fields the server actually sent, so a
// caller that only knows the generic pgerror.GetHint/GetDetail/
// GetConstraintName/GetSource accessors can read them the same way
// regardless of whether err originated from the server or was raised
// locally by NewDecodeError.
func decorateFields(err error, fields pgerror.Fields) error {
	if fields.Hint != "" {
		err = pgerror.WithHint(err, fields.Hint)
	}

	if fields.Detail != "" {
		err = pgerror.WithDetail(err, fields.Detail)
	}

	if fields.ConstraintName != "" {
		err = pgerror.WithConstraintName(err, fields.ConstraintName)
	}

	if fields.SourceFile != "" || fields.SourceFunction != "" {
		err = pgerror.WithSource(err, fields.SourceFile, fields.SourceLine, fields.SourceFunction)
	}

	return err
}

// PostgresError wraps an ErrorResponse received mid-session.
type PostgresError struct {
	pgerror.Fields
}

func (err *PostgresError) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("postgres: %s: %s (SQLSTATE %s)", err.Severity, err.Message, err.Code)
	}

	return fmt.Sprintf("postgres: %s: %s", err.Severity, err.Message)
}

// AuthPostgresError wraps an ErrorResponse received during authentication.
type AuthPostgresError struct {
	pgerror.Fields
}

func (err *AuthPostgresError) Error() string {
	return fmt.Sprintf("authentication failed: %s: %s (SQLSTATE %s)", err.Severity, err.Message, err.Code)
}

// AuthNotSupported is returned when the server selects an authentication
// sub-type this driver does not implement (GSS, SSPI, GSSContinue).
type AuthNotSupported struct {
	Name string
}

func (err *AuthNotSupported) Error() string {
	return fmt.Sprintf("unsupported authentication method: %s", err.Name)
}

// NewDecodeError constructs a malformed-frame error, tagged with
// codes.ProtocolViolation per the driver's error taxonomy, and with
// WithSource pointing at the Go call site that detected the malformed
// frame — the driver-internal analogue of the F/L/R fields a server
// attaches to its own ErrorResponses.
func NewDecodeError(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	err = pgerror.WithSeverity(pgerror.WithCode(err, codes.ProtocolViolation), pgerror.LevelFatal)

	if pc, file, line, ok := runtime.Caller(1); ok {
		function := "unknown"
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
		}

		err = pgerror.WithSource(err, file, int32(line), function)
	}

	return err
}

// NewTransportError wraps an underlying transport send/recv failure, tagged
// with codes.ConnectionFailure for consistency with the rest of the taxonomy.
func NewTransportError(err error) error {
	if err == nil {
		return nil
	}

	return pgerror.WithSeverity(pgerror.WithCode(err, codes.ConnectionFailure), pgerror.LevelFatal)
}
