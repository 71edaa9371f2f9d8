// Package wire frames and parses the multipart ZeroMQ messages exchanged
// between the client and its middlemen. It knows nothing about queries or
// databases; it only deals in message parts, encoded the way the original
// implementation encoded them so that a C++ middleman and this client speak
// the same wire format: NUL-terminated strings and raw little-endian scalars.
package wire

import (
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"

	"github.com/daqtools/sqlbus"
)

// Part is a single encodable message part, built with StringPart, BytesPart
// or Uint32Part.
type Part interface {
	encode() []byte
}

type stringPart string

func (p stringPart) encode() []byte { return append([]byte(p), 0) }

type bytesPart []byte

func (p bytesPart) encode() []byte { return []byte(p) }

type uint32Part uint32

func (p uint32Part) encode() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(p))
	return b
}

// StringPart encodes s as a NUL-terminated string, for compatibility with a
// middleman's C-string consumption.
func StringPart(s string) Part { return stringPart(s) }

// BytesPart encodes b verbatim, with no framing of its own.
func BytesPart(b []byte) Part { return bytesPart(b) }

// Uint32Part encodes v as its 4-byte little-endian memory image.
func Uint32Part(v uint32) Part { return uint32Part(v) }

// SendFrames sends parts as a single multipart message on sock, setting the
// "more" flag on every part but the last.
func SendFrames(sock *zmq.Socket, parts ...Part) error {
	if len(parts) == 0 {
		return nil
	}
	for i, p := range parts {
		flag := zmq.SNDMORE
		if i == len(parts)-1 {
			flag = zmq.Flag(0)
		}
		if _, err := sock.SendBytes(p.encode(), flag); err != nil {
			return fmt.Errorf("wire: send part %d of %d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

// ReceiveFrames drains one multipart message from sock. If the previous
// part had the "more" flag set but no further part is forthcoming (the
// underlying Recv fails, typically on the socket's receive timeout), the
// call fails with sqlbus.ErrIncomplete, carrying whatever parts were
// received so far so the caller can still recover a usable message ID.
func ReceiveFrames(sock *zmq.Socket) ([][]byte, error) {
	var parts [][]byte
	for {
		b, err := sock.RecvBytes(0)
		if err != nil {
			if len(parts) > 0 {
				return parts, sqlbus.ErrIncomplete
			}
			return nil, fmt.Errorf("wire: receive: %w", err)
		}
		parts = append(parts, b)

		more, err := sock.GetRcvmore()
		if err != nil {
			return parts, fmt.Errorf("wire: get rcvmore: %w", err)
		}
		if !more {
			return parts, nil
		}
	}
}

// DecodeUint32 reads the little-endian 4-byte scalar encoded by Uint32Part.
// It returns false if b is shorter than 4 bytes.
func DecodeUint32(b []byte) (uint32, bool) {
	if len(b) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

// DecodeString trims the trailing NUL (and anything after, defensively)
// added by StringPart.
func DecodeString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
