package errors

import (
	"fmt"

	"pgwire/codes"
)

// Fields holds the full set of structured diagnostic fields a PostgreSQL
// server may attach to an ErrorResponse or NoticeResponse.
// See https://www.postgresql.org/docs/current/static/protocol-error-fields.html
type Fields struct {
	Severity         Severity
	Code             codes.Code
	Message          string
	Detail           string
	Hint             string
	Position         int32
	InternalPosition int32
	InternalQuery    string
	Where            string
	SchemaName       string
	TableName        string
	ColumnName       string
	DataTypeName     string
	ConstraintName   string
	SourceFile       string
	SourceLine       int32
	SourceFunction   string
}

// Error wraps the diagnostic fields carried by a server ErrorResponse and
// implements the standard error interface.
type Error struct {
	Fields
}

func (err *Error) Error() string {
	if err.Code != "" {
		return fmt.Sprintf("%s: %s (SQLSTATE %s)", err.Severity, err.Message, err.Code)
	}

	return fmt.Sprintf("%s: %s", err.Severity, err.Message)
}

// Source represents, whenever possible, the server-side source location of
// an error: the SourceFile/SourceLine/SourceFunction fields of an
// ErrorResponse, or the Go call site for an error raised internally via
// WithSource.
type Source struct {
	File     string
	Line     int32
	Function string
}

// Notice wraps the diagnostic fields carried by a server NoticeResponse.
// Notices are informational and are never returned as a Go error.
type Notice struct {
	Fields
}

func (notice *Notice) String() string {
	return fmt.Sprintf("%s: %s", notice.Severity, notice.Message)
}

// errMissingField is returned by ParseFields when a mandatory field is absent
// from the wire payload.
type errMissingField struct {
	key FieldType
}

func (e errMissingField) Error() string {
	return fmt.Sprintf("missing mandatory error field %q", string(rune(e.key)))
}

// ParseFields assembles Fields from the raw (key, value) records decoded off
// an ErrorResponse/NoticeResponse payload. The severity, SQLSTATE code, and
// message fields are mandatory; every other field is optional.
func ParseFields(raw map[FieldType]string) (Fields, error) {
	fields := Fields{}

	// 'V' carries the unlocalized severity (9.6+) and is preferred over the
	// localized 'S' field when both are present.
	severity, hasSeverity := raw[FieldSeverityUnlocalized]
	if !hasSeverity {
		severity, hasSeverity = raw[FieldSeverity]
	}

	if !hasSeverity {
		return fields, errMissingField{key: FieldSeverity}
	}

	code, hasCode := raw[FieldCode]
	if !hasCode {
		return fields, errMissingField{key: FieldCode}
	}

	message, hasMessage := raw[FieldMessage]
	if !hasMessage {
		return fields, errMissingField{key: FieldMessage}
	}

	fields.Severity = ParseSeverity(severity)
	fields.Code = codes.Code(code)
	fields.Message = message
	fields.Detail = raw[FieldDetail]
	fields.Hint = raw[FieldHint]
	fields.InternalQuery = raw[FieldInternalQuery]
	fields.Where = raw[FieldWhere]
	fields.SchemaName = raw[FieldSchemaName]
	fields.TableName = raw[FieldTableName]
	fields.ColumnName = raw[FieldColumnName]
	fields.DataTypeName = raw[FieldDataTypeName]
	fields.ConstraintName = raw[FieldConstraintName]
	fields.SourceFile = raw[FieldSourceFile]
	fields.SourceFunction = raw[FieldSourceFunction]

	if raw, ok := raw[FieldPosition]; ok {
		fields.Position = parseFieldInt32(raw)
	}

	if raw, ok := raw[FieldInternalPosition]; ok {
		fields.InternalPosition = parseFieldInt32(raw)
	}

	if raw, ok := raw[FieldSourceLine]; ok {
		fields.SourceLine = parseFieldInt32(raw)
	}

	return fields, nil
}

func parseFieldInt32(raw string) int32 {
	var v int32
	var neg bool

	for i, r := range raw {
		if i == 0 && r == '-' {
			neg = true
			continue
		}

		if r < '0' || r > '9' {
			return 0
		}

		v = v*10 + int32(r-'0')
	}

	if neg {
		v = -v
	}

	return v
}
