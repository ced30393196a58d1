// Package jp2k opens, reads and writes JPEG 2000 files: JP2 and JPX box
// containers and raw codestreams.
//
// Parsing never fails on recoverable structural problems. Those are
// reported as diagnostics, logged through logrus unless a handler is given
// with WithDiagnostics. Decoding and encoding samples is delegated to a
// codec.Codec; importing this package registers the go-dicom adapter as the
// default.
package jp2k

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	_ "github.com/cocosip/go-jp2k/codec/dicomcodec"
	"github.com/cocosip/go-jp2k/jpeg2000/box"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
	"github.com/cocosip/go-jp2k/jpeg2000/diag"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
)

// Jp2k is an opened JPEG 2000 file. The box tree is parsed at open; the
// codestream is parsed on first use and cached.
type Jp2k struct {
	path  string
	src   source
	opts  *options
	diag  diag.Handler
	boxes []*box.Box

	// codestream byte range, length 0 when the file has no codestream box
	csOffset int64
	csLength int64

	mu     sync.Mutex
	header *codestream.Codestream
	full   *codestream.Codestream
}

// Open opens a JP2, JPX or raw codestream file. zstd compressed files are
// decompressed into memory first.
func Open(path string, opts ...Option) (*Jp2k, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	head := make([]byte, len(zstdMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var src source = fileSource(path)
	if bytes.Equal(head[:n], zstdMagic) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		data, err := decompress(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotJPEG2000, path, err)
		}
		src = bytesSource(data)
	}
	return newJp2k(path, src, opts)
}

// OpenBytes opens an in-memory file.
func OpenBytes(data []byte, opts ...Option) (*Jp2k, error) {
	var src source = bytesSource(data)
	if bytes.HasPrefix(data, zstdMagic) {
		plain, err := decompress(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotJPEG2000, err)
		}
		src = bytesSource(plain)
	}
	return newJp2k("", src, opts)
}

func newJp2k(path string, src source, opts []Option) (*Jp2k, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	j := &Jp2k{path: path, src: src, opts: o, diag: o.diagnostics()}
	if err := j.parse(); err != nil {
		return nil, err
	}

	switch o.parse.Codestream {
	case CodestreamEagerHeader:
		_, err = j.Codestream(true)
	case CodestreamEagerFull:
		_, err = j.Codestream(false)
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Jp2k) parse() error {
	r, size, release, err := j.src.open()
	if err != nil {
		return err
	}
	defer release()

	head := make([]byte, min(size, 12))
	if _, err := r.ReadAt(head, 0); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	kind, ok := sniff(head)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotJPEG2000, j.name())
	}
	if kind == formatCodestream {
		j.csOffset, j.csLength = 0, size
		return nil
	}

	j.boxes, err = box.Parse(r, 0, size, j.diag)
	if err != nil {
		return err
	}
	if b := box.Find(j.boxes, box.TypeCodestream); b != nil {
		j.csOffset, j.csLength = b.PayloadOffset(), b.PayloadLength()
	}
	return nil
}

func (j *Jp2k) name() string {
	if j.path == "" {
		return "<bytes>"
	}
	return j.path
}

// Path returns the file path, empty for OpenBytes.
func (j *Jp2k) Path() string {
	return j.path
}

// Boxes returns the top level boxes. Raw codestreams have none.
func (j *Jp2k) Boxes() []*box.Box {
	return j.boxes
}

// ImageHeader returns the ihdr box fields, or nil.
func (j *Jp2k) ImageHeader() *box.ImageHeader {
	if b := box.Find(j.boxes, box.TypeImageHeader); b != nil {
		if h, ok := b.Fields.(*box.ImageHeader); ok {
			return h
		}
	}
	return nil
}

// ColourSpecification returns the first colr box fields, or nil.
func (j *Jp2k) ColourSpecification() *box.ColourSpecification {
	if b := box.Find(j.boxes, box.TypeColourSpec); b != nil {
		if s, ok := b.Fields.(*box.ColourSpecification); ok {
			return s
		}
	}
	return nil
}

// Codestream returns the parsed codestream. With headerOnly, parsing stops
// at the first tile-part; a full parse already made satisfies it.
func (j *Jp2k) Codestream(headerOnly bool) (*codestream.Codestream, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.full != nil {
		return j.full, nil
	}
	if headerOnly && j.header != nil {
		return j.header, nil
	}
	if j.csLength <= 0 {
		return nil, fmt.Errorf("%w: %s has no codestream", ErrNotJPEG2000, j.name())
	}

	r, _, release, err := j.src.open()
	if err != nil {
		return nil, err
	}
	defer release()

	cs, err := codestream.Parse(r, j.csOffset, j.csOffset+j.csLength, codestream.Options{
		HeaderOnly: headerOnly,
		Handler:    j.diag,
	})
	if err != nil {
		return nil, err
	}
	if headerOnly {
		j.header = cs
	} else {
		j.full = cs
	}
	return cs, nil
}

// Shape returns (rows, cols) for single component images and
// (rows, cols, components) otherwise, at full resolution on the component
// grid, matching what Read returns.
func (j *Jp2k) Shape() ([]int, error) {
	cs, err := j.Codestream(true)
	if err != nil {
		return nil, err
	}
	if cs.SIZ == nil {
		return nil, fmt.Errorf("%w: %s has no SIZ segment", ErrNotJPEG2000, j.name())
	}
	layout, err := region.NewLayout(cs.SIZ, cs.Levels())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	rows, cols := layout.Size()
	if cs.SIZ.Csiz == 1 {
		return []int{rows, cols}, nil
	}
	return []int{rows, cols, int(cs.SIZ.Csiz)}, nil
}

func (j *Jp2k) codestreamBytes() ([]byte, error) {
	if j.csLength <= 0 {
		return nil, fmt.Errorf("%w: %s has no codestream", ErrNotJPEG2000, j.name())
	}
	return readAll(j.src, j.csOffset, j.csLength)
}
