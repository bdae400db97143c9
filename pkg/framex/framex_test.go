package framex

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	type message struct {
		Path string         `json:"path"`
		Body map[string]any `json:"body"`
	}

	var buf bytes.Buffer
	sent := message{Path: "/v1/pair", Body: map[string]any{"code": "482913"}}
	require.NoError(t, WriteMessage(&buf, sent))

	var got message
	require.NoError(t, ReadMessage(&buf, &got))
	require.Equal(t, sent.Path, got.Path)
	require.Equal(t, "482913", got.Body["code"])
}

func TestMultipleMessagesOnOneStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	for _, v := range []string{"first", "second", "third"} {
		require.NoError(t, WriteMessage(&buf, map[string]string{"v": v}))
	}

	for _, want := range []string{"first", "second", "third"} {
		var got map[string]string
		require.NoError(t, ReadMessage(&buf, &got))
		require.Equal(t, want, got["v"])
	}
}

// bodyTrap fails the test if anything reads past the 4-byte header.
type bodyTrap struct {
	t      *testing.T
	header io.Reader
}

func (b *bodyTrap) Read(p []byte) (int, error) {
	n, err := b.header.Read(p)
	if err == io.EOF && n == 0 {
		b.t.Fatal("body bytes were read after an oversized length declaration")
	}
	return n, err
}

func TestOversizedDeclarationRejectedBeforeBody(t *testing.T) {
	t.Parallel()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], 11*1024*1024)

	r := &bodyTrap{t: t, header: bytes.NewReader(header[:])}
	var out map[string]any
	err := ReadMessage(r, &out)

	var tooLarge ErrMessageTooLarge
	require.ErrorAs(t, err, &tooLarge)
	require.Equal(t, uint32(11*1024*1024), tooLarge.Length)
}

func TestTruncatedStreamIsIOError(t *testing.T) {
	t.Parallel()

	t.Run("incomplete header", func(t *testing.T) {
		var out map[string]any
		err := ReadMessage(bytes.NewReader([]byte{0x00, 0x00}), &out)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("incomplete body", func(t *testing.T) {
		var header [4]byte
		binary.BigEndian.PutUint32(header[:], 100)
		data := append(header[:], []byte(`{"partial":`)...)

		var out map[string]any
		err := ReadMessage(bytes.NewReader(data), &out)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestRejectsNonJSONPayload(t *testing.T) {
	t.Parallel()

	payload := []byte("not json at all")
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	var out map[string]any
	err := ReadMessage(bytes.NewReader(append(header[:], payload...)), &out)
	require.Error(t, err)
	require.NotErrorIs(t, err, io.ErrUnexpectedEOF)
}
