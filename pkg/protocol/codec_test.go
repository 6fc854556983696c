package protocol

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHeaderDoesNotEatBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, TransferHeader{Type: TypeFileData}))
	body := []byte("raw file bytes follow the header")
	buf.Write(body)

	r := bufio.NewReader(&buf)
	var hdr TransferHeader
	require.NoError(t, ReadRecord(r, &hdr))
	assert.Equal(t, TypeFileData, hdr.Type)

	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, rest, "file bytes after the delimiter must be untouched")
}

func TestReadRecordRejectsOversizedRecord(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for buf.Len() <= MaxRecordSize {
		buf.WriteString("\"k\":\"vvvvvvvvvvvvvvvv\",")
	}
	buf.WriteString("\"type\":\"file_request\"}\n")

	var req TransferRequest
	err := ReadRecord(bufio.NewReader(&buf), &req)
	require.Error(t, err, "a record over the cap must be rejected, not buffered")
	assert.Contains(t, err.Error(), "exceeds")
}

func TestParseDatagram(t *testing.T) {
	msg, err := ParseDatagram([]byte(`{"type":"hello_response","host":"10.0.0.2","port":9001,"files":{"abc":"notes.txt"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeHelloResponse, msg.Type)
	assert.Equal(t, "10.0.0.2", msg.Host)
	assert.Equal(t, 9001, msg.Port)
	assert.Equal(t, "notes.txt", msg.Files["abc"])
}

func TestParseDatagramRejectsGarbage(t *testing.T) {
	_, err := ParseDatagram([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseDatagram([]byte(`{"host":"10.0.0.2"}`))
	assert.Error(t, err, "missing type field must be rejected")
}
