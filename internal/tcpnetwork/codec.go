package tcpnetwork

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"skipgraph/internal/message"
)

// maxFrameBytes bounds a single decoded frame, guarding against a
// corrupt length prefix forcing an unbounded allocation.
const maxFrameBytes = 16 << 20 // 16 MiB

// writeFrame gob-encodes msg and writes it as a 4-byte big-endian
// length prefix followed by the encoded bytes.
func writeFrame(w io.Writer, msg message.Message) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&msg); err != nil {
		return fmt.Errorf("tcpnetwork: encode message: %w", err)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("tcpnetwork: write length prefix: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("tcpnetwork: write frame body: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed gob-encoded Message from r.
func readFrame(r io.Reader) (message.Message, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return message.Message{}, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameBytes {
		return message.Message{}, fmt.Errorf("tcpnetwork: frame of %d bytes exceeds limit %d", n, maxFrameBytes)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return message.Message{}, fmt.Errorf("tcpnetwork: read frame body: %w", err)
	}
	var msg message.Message
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&msg); err != nil {
		return message.Message{}, fmt.Errorf("tcpnetwork: decode message: %w", err)
	}
	return msg, nil
}
