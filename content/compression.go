package content

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

func compress(c Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error

	switch c {
	case CompressionDeflate:
		w, err = flate.NewWriter(&buf, flate.DefaultCompression)
	case CompressionGzip:
		w, err = gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%s write: %w", c, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s close: %w", c, err)
	}
	return buf.Bytes(), nil
}

// decompress inflates data and fails if the output exceeds maxSize.
func decompress(c Compression, data []byte, maxSize int) ([]byte, error) {
	var r io.ReadCloser
	var err error

	switch c {
	case CompressionDeflate:
		r = flate.NewReader(bytes.NewReader(data))
	case CompressionGzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
	if err != nil {
		return nil, fmt.Errorf("%s header: %w", c, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(maxSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%s read: %w", c, err)
	}
	if len(out) > maxSize {
		return nil, fmt.Errorf("decompressed size exceeds limit %d", maxSize)
	}
	return out, nil
}
