package wire

import (
	"crypto/md5"
	"encoding/hex"

	"pgwire/pkg/buffer"
	"pgwire/pkg/types"
)

// authType identifies the authentication sub-message carried by an
// Authentication* (R) server message.
type authType int32

const (
	authOK                authType = 0
	authCleartextPassword authType = 3
	authMD5Password       authType = 5
	authGSS               authType = 7
	authGSSContinue       authType = 8
	authSSPI              authType = 9
)

// authenticate drives the authentication state machine after StartupMessage
// has been sent. It consumes Authentication* replies from reader, sending a
// PasswordMessage in response to cleartext/MD5 challenges, until AuthOk or a
// terminal failure is observed.
func authenticate(writer *buffer.Writer, reader *buffer.Reader, username, password string) error {
	t, status, salt, err := readAuthMessage(reader)
	if err != nil {
		return err
	}

	if t == types.ServerErrorResponse {
		desc, err := ReadErrorResponse(reader)
		if err != nil {
			return err
		}

		return decorateFields(&AuthPostgresError{Fields: desc.Fields}, desc.Fields)
	}

	switch status {
	case authOK:
		return nil
	case authCleartextPassword:
		if err := sendPassword(writer, password); err != nil {
			return err
		}
	case authMD5Password:
		digest := md5Digest(username, password, salt)
		if err := sendPassword(writer, digest); err != nil {
			return err
		}
	case authGSS:
		return &AuthNotSupported{Name: "GSS"}
	case authSSPI:
		return &AuthNotSupported{Name: "SSPI"}
	case authGSSContinue:
		return &AuthNotSupported{Name: "GSSContinue"}
	default:
		return NewDecodeError("unknown authentication sub-type: %d", status)
	}

	return expectAuthOK(reader)
}

// expectAuthOK reads the second round Authentication* reply expected after a
// cleartext or MD5 password response.
func expectAuthOK(reader *buffer.Reader) error {
	t, status, _, err := readAuthMessage(reader)
	if err != nil {
		return err
	}

	if t == types.ServerErrorResponse {
		desc, err := ReadErrorResponse(reader)
		if err != nil {
			return err
		}

		return decorateFields(&AuthPostgresError{Fields: desc.Fields}, desc.Fields)
	}

	if status != authOK {
		return NewDecodeError("unexpected authentication state after password response: %d", status)
	}

	return nil
}

// readAuthMessage reads a single server message expected to be either
// ErrorResponse or Authentication*, returning the tag, the auth sub-type (if
// applicable), and the MD5 salt (if the sub-type is authMD5Password).
func readAuthMessage(reader *buffer.Reader) (types.ServerMessage, authType, [4]byte, error) {
	var salt [4]byte

	t, _, err := reader.ReadTypedMsg()
	if err != nil {
		return 0, 0, salt, NewTransportError(err)
	}

	if t == types.ServerErrorResponse {
		return t, 0, salt, nil
	}

	if t != types.ServerAuth {
		return 0, 0, salt, NewDecodeError("expected Authentication or ErrorResponse message, got %s", t)
	}

	raw, err := reader.GetInt32()
	if err != nil {
		return 0, 0, salt, err
	}

	status := authType(raw)
	if status == authMD5Password {
		b, err := reader.GetBytes(4)
		if err != nil {
			return 0, 0, salt, err
		}

		copy(salt[:], b)
	}

	return t, status, salt, nil
}

func sendPassword(writer *buffer.Writer, password string) error {
	return PasswordMessage{Password: password}.Encode(writer)
}

// md5Digest computes the salted MD5 password response:
// "md5" ++ hex(md5(hex(md5(password ++ user)) ++ salt)).
func md5Digest(user, password string, salt [4]byte) string {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])

	outer := md5.Sum(append([]byte(innerHex), salt[:]...))
	return "md5" + hex.EncodeToString(outer[:])
}
