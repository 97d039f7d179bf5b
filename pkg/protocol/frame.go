package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrUnterminated  = errors.New("payload does not end with a delimiter")
	ErrNulInString   = errors.New("string field contains a null byte")
)

// WriteFrame writes payload to w prefixed by its 4-byte big-endian length.
//
// Header and payload go out in one buffer so a frame is never interleaved
// with another writer's bytes on a shared stream. Short writes are retried
// until the frame is complete or w reports an error.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > 0xFFFFFFFF {
		return ErrFrameTooLarge
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return writeFull(w, buf)
}

// ReadFrame reads one length-prefixed payload from r. Payloads larger than
// maxSize fail with ErrFrameTooLarge; the stream is left mid-frame and must
// not be read again. maxSize <= 0 selects DefaultMaxFrameSize.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	payloadLen := binary.BigEndian.Uint32(header[:])
	if uint64(payloadLen) > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, payloadLen, maxSize)
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
	return payload, nil
}

// writeFull loops until all of b is written.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
