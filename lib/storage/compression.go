package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Compress input to output with zstd.
func Compress(in io.Reader, out io.Writer) error {
	enc, err := zstd.NewWriter(out)
	if err != nil {
		return err
	}

	if _, err = io.Copy(enc, in); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decompress zstd input to output.
func Decompress(in io.Reader, out io.Writer) error {
	d, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer d.Close()

	_, err = io.Copy(out, d)
	return err
}

// Compress a file into a temporary file, rewound for reading.
// The caller closes and removes it.
func compressToTemp(path string) (*os.File, int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp("", "datadoc-*.zst")
	if err != nil {
		return nil, 0, err
	}

	cleanup := func(err error) (*os.File, int64, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, 0, err
	}

	if err := Compress(in, tmp); err != nil {
		return cleanup(fmt.Errorf("compress %s: %w", path, err))
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return cleanup(err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return cleanup(err)
	}
	return tmp, size, nil
}
