// Package entry compresses and decompresses the payload of a single
// script slot.
//
// Payloads are zlib streams (RFC 1950), the format the host editor stores
// inside the script archive. Compressed output is not required to be
// byte-identical across runs; only the inflated content round-trips.
package entry

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrCorruptPayload is returned when a payload is not a valid zlib stream.
var ErrCorruptPayload = errors.New("corrupt payload")

// Compress deflates content into a zlib stream. Empty content yields a
// non-empty stream that inflates to zero bytes.
func Compress(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream. Any header, checksum or truncation
// failure is reported as ErrCorruptPayload.
func Decompress(payload []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return content, nil
}
