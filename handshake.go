package wire

import (
	"context"
	"strconv"
	"strings"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"
)

// connect performs the full startup sequence: send StartupMessage, drive the
// authentication state machine, then loop ReadTypedMsg against the shared
// streaming decoder until ReadyForQuery is observed, accumulating
// ParameterStatus entries into ConnectionParameters and BackendKeyData into
// the cancel key as they arrive — regardless of how the server batches them
// across TCP segments.
func connect(ctx context.Context, conn *Conn, reader *buffer.Reader, cfg Config) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	params := map[string]string{
		"user": cfg.Username,
	}
	if cfg.Database != "" {
		params["database"] = cfg.Database
	}

	if err := conn.send(StartupMessage{Parameters: params}.Encode); err != nil {
		return err
	}

	if err := authenticate(conn.writer, reader, cfg.Username, cfg.Password); err != nil {
		return err
	}

	raw := make(map[string]string)

	for {
		t, _, err := reader.ReadTypedMsg()
		if err != nil {
			return NewTransportError(err)
		}

		switch t {
		case types.ServerParameterStatus:
			key, err := reader.GetString()
			if err != nil {
				return err
			}

			value, err := reader.GetString()
			if err != nil {
				return err
			}

			raw[key] = value

		case types.ServerBackendKeyData:
			pid, err := reader.GetInt32()
			if err != nil {
				return err
			}

			secret, err := reader.GetInt32()
			if err != nil {
				return err
			}

			conn.cancelKey = CancelKey{ProcessID: pid, SecretKey: secret}

		case types.ServerReady:
			if _, err := ReadTransactionStatus(reader); err != nil {
				return err
			}

			conn.Parameters = buildConnectionParameters(raw)
			return nil

		case types.ServerNoticeResponse:
			notice, err := ReadNoticeResponse(reader)
			if err != nil {
				return err
			}

			if conn.noticeHandler != nil {
				conn.noticeHandler(notice)
			}

		case types.ServerErrorResponse:
			desc, err := ReadErrorResponse(reader)
			if err != nil {
				return err
			}

			return decorateFields(&AuthPostgresError{Fields: desc.Fields}, desc.Fields)

		default:
			return NewDecodeError("unexpected message during startup: %s", t)
		}
	}
}

func buildConnectionParameters(raw map[string]string) ConnectionParameters {
	params := ConnectionParameters{raw: raw}

	if v, ok := raw["server_version"]; ok {
		major, minor, patch, suffix := parseServerVersion(v)
		params.ServerVersionMajor = major
		params.ServerVersionMinor = minor
		params.ServerVersionPatch = patch
		params.ServerVersionSuffix = suffix
	}

	if v, ok := raw["integer_datetimes"]; ok {
		params.IntegerDatetimes = parseIntegerDatetimes(v)
	}

	params.ServerEncoding = raw["server_encoding"]

	return params
}

// parseServerVersion splits a server-reported version string at ".", parsing
// the leading run of digit-and-dot components as major, minor, and revision
// (defaulting missing components to 0), retaining the trailing non-numeric
// suffix verbatim.
//
//	parseServerVersion("10.4 (Ubuntu 10.4)") == (10, 4, 0, " (Ubuntu 10.4)")
//	parseServerVersion("9.6.1")              == (9, 6, 1, "")
func parseServerVersion(raw string) (major, minor, patch int, suffix string) {
	end := 0
	for end < len(raw) && (raw[end] == '.' || (raw[end] >= '0' && raw[end] <= '9')) {
		end++
	}

	numeric := raw[:end]
	suffix = raw[end:]

	parts := strings.Split(numeric, ".")
	fields := [3]*int{&major, &minor, &patch}
	for i, part := range parts {
		if i >= len(fields) || part == "" {
			continue
		}

		v, err := strconv.Atoi(part)
		if err != nil {
			continue
		}

		*fields[i] = v
	}

	return major, minor, patch, suffix
}

// parseIntegerDatetimes is true for exactly "on", "yes", "1".
func parseIntegerDatetimes(raw string) bool {
	switch raw {
	case "on", "yes", "1":
		return true
	default:
		return false
	}
}
