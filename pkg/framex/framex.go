// Package framex implements the bridge's domain-socket wire framing: each
// message is a 4-byte big-endian length prefix followed by that many bytes
// of UTF-8 JSON.
package framex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum declared payload length a receiver accepts.
// Larger declarations are rejected before any body bytes are read.
const MaxMessageSize = 10 * 1024 * 1024

const headerLength = 4

// ErrMessageTooLarge reports a frame whose declared length exceeds MaxMessageSize.
type ErrMessageTooLarge struct {
	Length uint32
}

func (e ErrMessageTooLarge) Error() string {
	return fmt.Sprintf("framex: declared length %d exceeds maximum %d", e.Length, MaxMessageSize)
}

// WriteMessage JSON-encodes v and writes it as a single framed message.
func WriteMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(payload) > MaxMessageSize {
		return ErrMessageTooLarge{Length: uint32(len(payload))}
	}

	var header [headerLength]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write message payload: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message from r and unmarshals the JSON payload
// into v. A connection closed before a complete header or body arrives
// surfaces as an io error from io.ReadFull; an oversized declared length is
// an ErrMessageTooLarge before the body is touched.
func ReadMessage(r io.Reader, v any) error {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("read message header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxMessageSize {
		return ErrMessageTooLarge{Length: length}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("read message payload: %w", err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}
