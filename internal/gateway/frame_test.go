package gateway

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	body := []byte(`{"c2s":{"clientVer":321}}`)
	frame := encodeFrame(ProtoInitConnect, 7, body)

	header, got, err := readFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if header.ProtoID != ProtoInitConnect {
		t.Errorf("ProtoID = %d, want %d", header.ProtoID, ProtoInitConnect)
	}
	if header.SerialNo != 7 {
		t.Errorf("SerialNo = %d, want 7", header.SerialNo)
	}
	if header.BodyLen != uint32(len(body)) {
		t.Errorf("BodyLen = %d, want %d", header.BodyLen, len(body))
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Body = %q, want %q", got, body)
	}
}

func TestFrameRoundTripEmptyBody(t *testing.T) {
	frame := encodeFrame(ProtoKeepAlive, 1, nil)

	header, body, err := readFrame(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if header.BodyLen != 0 || len(body) != 0 {
		t.Errorf("Expected empty body, got %d bytes", len(body))
	}
}

func TestReadFrameRejectsBadMagic(t *testing.T) {
	frame := encodeFrame(ProtoKeepAlive, 1, []byte("{}"))
	frame[0] = 'X'

	_, _, err := readFrame(bytes.NewReader(frame))
	if err == nil || !strings.Contains(err.Error(), "invalid frame magic") {
		t.Errorf("Expected magic error, got %v", err)
	}
}

func TestReadFrameRejectsCorruptedBody(t *testing.T) {
	frame := encodeFrame(ProtoKeepAlive, 1, []byte(`{"retType":0}`))
	frame[headerSize] ^= 0xFF

	_, _, err := readFrame(bytes.NewReader(frame))
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Errorf("Expected digest error, got %v", err)
	}
}

func TestReadFrameRejectsOversizedBody(t *testing.T) {
	frame := encodeFrame(ProtoKeepAlive, 1, []byte("{}"))
	binary.LittleEndian.PutUint32(frame[12:16], maxBodyLength+1)

	_, _, err := readFrame(bytes.NewReader(frame))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestReadFrameTruncatedInput(t *testing.T) {
	frame := encodeFrame(ProtoKeepAlive, 1, []byte(`{"retType":0}`))

	if _, _, err := readFrame(bytes.NewReader(frame[:10])); err == nil {
		t.Error("Expected error for truncated header")
	}
	if _, _, err := readFrame(bytes.NewReader(frame[:headerSize+3])); err == nil {
		t.Error("Expected error for truncated body")
	}
}
