// Package gateway implements a client for the Futu OpenD gateway protocol:
// length-prefixed frames over TCP with JSON payloads.
package gateway

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	headerSize = 44
	// JSON payload encoding; OpenD also speaks protobuf but this client
	// always negotiates JSON.
	protoFmtJSON  = 1
	protoVersion  = 0
	maxBodyLength = 16 * 1024 * 1024
)

var headerMagic = [2]byte{'F', 'T'}

// frameHeader is the fixed 44-byte header preceding every frame.
type frameHeader struct {
	Magic    [2]byte
	ProtoID  uint32
	FmtType  uint8
	ProtoVer uint8
	SerialNo uint32
	BodyLen  uint32
	BodySHA1 [20]byte
	Reserved [8]byte
}

// encodeFrame serializes a frame for the given proto and serial number.
func encodeFrame(protoID, serialNo uint32, body []byte) []byte {
	buf := make([]byte, headerSize+len(body))
	copy(buf[0:2], headerMagic[:])
	binary.LittleEndian.PutUint32(buf[2:6], protoID)
	buf[6] = protoFmtJSON
	buf[7] = protoVersion
	binary.LittleEndian.PutUint32(buf[8:12], serialNo)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(body)))
	sum := sha1.Sum(body)
	copy(buf[16:36], sum[:])
	// bytes 36:44 reserved
	copy(buf[headerSize:], body)
	return buf
}

// readFrame reads one complete frame from r, verifying magic and body digest.
func readFrame(r io.Reader) (*frameHeader, []byte, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, err
	}

	var h frameHeader
	copy(h.Magic[:], raw[0:2])
	if h.Magic != headerMagic {
		return nil, nil, fmt.Errorf("invalid frame magic %q", h.Magic)
	}
	h.ProtoID = binary.LittleEndian.Uint32(raw[2:6])
	h.FmtType = raw[6]
	h.ProtoVer = raw[7]
	h.SerialNo = binary.LittleEndian.Uint32(raw[8:12])
	h.BodyLen = binary.LittleEndian.Uint32(raw[12:16])
	copy(h.BodySHA1[:], raw[16:36])
	copy(h.Reserved[:], raw[36:44])

	if h.BodyLen > maxBodyLength {
		return nil, nil, fmt.Errorf("frame body too large: %d bytes", h.BodyLen)
	}

	body := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("reading frame body: %w", err)
	}

	sum := sha1.Sum(body)
	if !bytes.Equal(sum[:], h.BodySHA1[:]) {
		return nil, nil, fmt.Errorf("frame body digest mismatch for proto %d", h.ProtoID)
	}

	return &h, body, nil
}
