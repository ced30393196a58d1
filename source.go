package jp2k

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/cocosip/go-jp2k/jpeg2000/box"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
)

type format int

const (
	formatJP2 format = iota
	formatCodestream
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// source is a random access byte source. Each operation opens it and
// releases it before returning.
type source interface {
	open() (r io.ReaderAt, size int64, release func() error, err error)
}

type fileSource string

func (s fileSource) open() (io.ReaderAt, int64, func() error, error) {
	f, err := os.Open(string(s))
	if err != nil {
		return nil, 0, nil, openError(string(s), err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, nil, err
	}
	return f, fi.Size(), f.Close, nil
}

type bytesSource []byte

func (s bytesSource) open() (io.ReaderAt, int64, func() error, error) {
	return bytes.NewReader(s), int64(len(s)), func() error { return nil }, nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return err
}

// readAll reads [off, off+n) of the source.
func readAll(src source, off, n int64) ([]byte, error) {
	r, _, release, err := src.open()
	if err != nil {
		return nil, err
	}
	defer release()

	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("read codestream: %w", err)
	}
	return buf, nil
}

// sniff identifies a JP2 family file by its signature box, or a raw
// codestream by its SOC marker.
func sniff(head []byte) (format, bool) {
	switch {
	case len(head) >= 12 &&
		binary.BigEndian.Uint32(head[0:4]) == 12 &&
		box.Type(binary.BigEndian.Uint32(head[4:8])) == box.TypeSignature &&
		bytes.Equal(head[8:12], box.Signature[:]):
		return formatJP2, true
	case len(head) >= 2 && binary.BigEndian.Uint16(head) == codestream.MarkerSOC:
		return formatCodestream, true
	}
	return 0, false
}

func decompress(r io.Reader) ([]byte, error) {
	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}
