package box

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cocosip/go-jp2k/jpeg2000/diag"
)

// maxDepth bounds super-box nesting; deeper boxes are kept opaque.
const maxDepth = 32

// Parser walks box trees over a random access byte source.
type Parser struct {
	r    io.ReaderAt
	diag diag.Handler
}

// NewParser creates a parser reporting structural problems to h.
func NewParser(r io.ReaderAt, h diag.Handler) *Parser {
	return &Parser{r: r, diag: h}
}

// Parse decodes the boxes found in [start, end) of r. Structural problems are
// reported to h and never fail the parse; only I/O errors are returned.
func Parse(r io.ReaderAt, start, end int64, h diag.Handler) ([]*Box, error) {
	return NewParser(r, h).Parse(start, end)
}

// Parse decodes the boxes found in [start, end).
func (p *Parser) Parse(start, end int64) ([]*Box, error) {
	return p.parseScope(start, end, 0)
}

func (p *Parser) warn(offset int64, format string, args ...any) {
	p.diag.Emit(diag.SourceBox, offset, format, args...)
}

func (p *Parser) parseScope(start, end int64, depth int) ([]*Box, error) {
	var boxes []*Box
	offset := start
	for offset < end {
		if end-offset < 8 {
			p.warn(offset, "%d trailing bytes do not form a box header", end-offset)
			break
		}
		var hdr [16]byte
		if err := p.readAt(hdr[:8], offset); err != nil {
			return boxes, err
		}
		length := int64(binary.BigEndian.Uint32(hdr[0:4]))
		boxType := Type(binary.BigEndian.Uint32(hdr[4:8]))
		headerLength := int64(8)

		switch length {
		case 0:
			length = end - offset
		case 1:
			if end-offset < 16 {
				p.warn(offset, "'%s' box extended length field is truncated", boxType)
				return boxes, nil
			}
			if err := p.readAt(hdr[8:16], offset+8); err != nil {
				return boxes, err
			}
			xl := binary.BigEndian.Uint64(hdr[8:16])
			if xl > math.MaxInt64 {
				xl = math.MaxInt64
			}
			length = int64(xl)
			headerLength = 16
		}

		if length < headerLength {
			p.warn(offset, "'%s' box has invalid box length (%d)", boxType, length)
			break
		}
		if length > end-offset {
			p.warn(offset, "'%s' box has incorrect box length (%d)", boxType, length)
			length = end - offset
		}

		b := &Box{Type: boxType, Offset: offset, Length: length, HeaderLength: int(headerLength)}
		if err := p.fill(b, depth); err != nil {
			return boxes, err
		}
		boxes = append(boxes, b)
		offset += length
	}
	return boxes, nil
}

// fill decodes the payload of b.
func (p *Parser) fill(b *Box, depth int) error {
	start, end := b.PayloadOffset(), b.Offset+b.Length

	if b.Type == TypeCodestream {
		b.Fields = &ContiguousCodestream{DataOffset: start, DataLength: end - start}
		return nil
	}

	entry, known := Lookup(b.Type)
	if entry.Container {
		if depth+1 >= maxDepth {
			p.warn(b.Offset, "'%s' box nested too deeply, kept opaque", b.Type)
		} else {
			children, err := p.parseScope(start, end, depth+1)
			b.Children = children
			return err
		}
	}

	payload := make([]byte, end-start)
	if err := p.readAt(payload, start); err != nil {
		return err
	}
	b.Raw = payload
	if !known || !entry.Decodable() || entry.Container {
		return nil
	}

	warn := func(format string, args ...any) {
		p.warn(b.Offset, "'%s' box: %s", b.Type, fmt.Sprintf(format, args...))
	}
	fields, err := entry.decode(payload, warn)
	if err != nil {
		p.warn(b.Offset, "'%s' box could not be parsed: %v", b.Type, err)
		return nil
	}
	b.Fields = fields
	return nil
}

func (p *Parser) readAt(buf []byte, offset int64) error {
	n, err := p.r.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), offset, err)
}
