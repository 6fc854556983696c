package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Records on the transfer stream are newline-delimited JSON. The delimiter
// lets a reader locate the end of the header without consuming any of the
// raw file bytes that follow it.

// MaxRecordSize bounds a single record. Transfer records carry a hash, a
// name and a size; file bytes never pass through them. The cap keeps a
// malicious peer from growing the read buffer without bound.
const MaxRecordSize = 16 * 1024

// WriteRecord marshals v and writes it followed by the record delimiter.
func WriteRecord(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadRecord reads one delimited record from r into v. Bytes after the
// delimiter stay buffered in r for the caller. Records longer than
// MaxRecordSize are rejected before the sender can grow the buffer further.
func ReadRecord(r *bufio.Reader, v any) error {
	line := make([]byte, 0, 256)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b == '\n' {
			break
		}
		line = append(line, b)
		if len(line) > MaxRecordSize {
			return fmt.Errorf("record exceeds %d bytes", MaxRecordSize)
		}
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// ParseDatagram decodes one discovery datagram and checks the mandatory
// type field.
func ParseDatagram(data []byte) (DiscoveryMessage, error) {
	var msg DiscoveryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode datagram: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("datagram missing type field")
	}
	return msg, nil
}

// EncodeDatagram marshals a discovery message for sending.
func EncodeDatagram(msg DiscoveryMessage) ([]byte, error) {
	return json.Marshal(msg)
}
