package codestream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cocosip/go-jp2k/jpeg2000/diag"
)

var (
	// ErrNotCodestream is returned when the data does not start with SOC.
	ErrNotCodestream = errors.New("not a JPEG 2000 codestream")

	errSegmentTruncated = errors.New("segment truncated")
)

// Options controls codestream parsing.
type Options struct {
	// HeaderOnly stops at the first SOT or EOC marker.
	HeaderOnly bool

	// Handler receives structural warnings. Nil drops them.
	Handler diag.Handler
}

// Parser parses JPEG 2000 codestreams
type Parser struct {
	r      io.ReaderAt
	start  int64
	end    int64
	offset int64
	opts   Options
}

// NewParser creates a parser for the codestream held in [start, end) of r.
func NewParser(r io.ReaderAt, start, end int64, opts Options) *Parser {
	return &Parser{r: r, start: start, end: end, offset: start, opts: opts}
}

// Parse parses the codestream held in [start, end) of r.
func Parse(r io.ReaderAt, start, end int64, opts Options) (*Codestream, error) {
	return NewParser(r, start, end, opts).Parse()
}

// ParseBytes parses an in-memory codestream.
func ParseBytes(data []byte, opts Options) (*Codestream, error) {
	return Parse(bytes.NewReader(data), 0, int64(len(data)), opts)
}

func (p *Parser) warn(offset int64, format string, args ...any) {
	p.opts.Handler.Emit(diag.SourceCodestream, offset, format, args...)
}

// Parse parses the codestream. Malformed structure is reported through the
// handler; only a missing SOC marker or an I/O error fails the parse.
func (p *Parser) Parse() (*Codestream, error) {
	cs := &Codestream{
		Offset:     p.start,
		Length:     p.end - p.start,
		HeaderOnly: p.opts.HeaderOnly,
		COC:        make(map[uint16]*COCSegment),
		QCC:        make(map[uint16]*QCCSegment),
	}

	marker, err := p.readUint16()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCodestream, err)
	}
	if marker != MarkerSOC {
		return nil, fmt.Errorf("%w: expected SOC marker (0x%04X), got 0x%04X", ErrNotCodestream, MarkerSOC, marker)
	}
	cs.Segments = append(cs.Segments, &Segment{Marker: MarkerSOC, Offset: p.start})

	var part *TilePart
	for p.offset < p.end {
		at := p.offset
		if p.end-p.offset < 2 {
			p.warn(at, "%d trailing byte(s) after the last marker", p.end-p.offset)
			break
		}
		marker, err := p.readUint16()
		if err != nil {
			return nil, err
		}
		if marker>>8 != 0xFF || marker < reservedFirst {
			p.warn(at, "Invalid marker id encountered at byte %d in codestream: \"0x%04x\"", at, marker)
			break
		}

		if p.opts.HeaderOnly && marker == MarkerSOT {
			break
		}

		if !HasLength(marker) {
			seg := &Segment{Marker: marker, Offset: at}
			cs.Segments = append(cs.Segments, seg)
			if part != nil {
				part.Segments = append(part.Segments, seg)
			}
			switch marker {
			case MarkerEOC:
				return cs, nil
			case MarkerSOD:
				if part == nil {
					p.warn(at, "SOD marker outside of a tile-part")
					return cs, nil
				}
				if err := p.skipTileData(cs, part); err != nil {
					return nil, err
				}
				part = nil
			}
			continue
		}

		seg, err := p.readSegment(marker, at)
		if err != nil {
			if errors.Is(err, errSegmentTruncated) {
				p.warn(at, "%s segment at byte %d runs past the end of the codestream", MarkerID(marker), at)
				break
			}
			return nil, err
		}
		seg.Body = p.decode(cs, seg)
		cs.Segments = append(cs.Segments, seg)

		if marker == MarkerSOT {
			part = p.startTilePart(cs, seg)
			continue
		}
		if part != nil {
			part.Segments = append(part.Segments, seg)
		} else {
			cs.record(seg)
		}
	}
	return cs, nil
}

// readSegment reads the length field and body of a marker segment.
func (p *Parser) readSegment(marker uint16, at int64) (*Segment, error) {
	if p.end-p.offset < 2 {
		return nil, errSegmentTruncated
	}
	length, err := p.readUint16()
	if err != nil {
		return nil, err
	}
	if length < 2 {
		p.warn(at, "%s segment has invalid length %d", MarkerID(marker), length)
		return &Segment{Marker: marker, Offset: at, Length: int(length), Raw: []byte{}}, nil
	}
	if p.offset+int64(length)-2 > p.end {
		return nil, errSegmentTruncated
	}
	body := make([]byte, int(length)-2)
	if err := p.read(body); err != nil {
		return nil, err
	}
	return &Segment{Marker: marker, Offset: at, Length: int(length), Raw: body}, nil
}

// decode interprets a segment body. Bodies that cannot be decoded are kept
// as RawSegment.
func (p *Parser) decode(cs *Codestream, seg *Segment) Body {
	warn := func(format string, args ...any) {
		p.warn(seg.Offset, format, args...)
	}
	dec, ok := decoders[seg.Marker]
	if !ok {
		if IsReserved(seg.Marker) || !IsKnown(seg.Marker) {
			warn("Unrecognized marker 0x%04x encountered at byte %d in codestream", seg.Marker, seg.Offset)
		}
		return &RawSegment{Data: seg.Raw}
	}
	body, err := dec(&reader{data: seg.Raw}, cs.SIZ, warn)
	if err != nil {
		warn("%s segment at byte %d could not be parsed: %v", seg.ID(), seg.Offset, err)
		return &RawSegment{Data: seg.Raw}
	}
	return body
}

func (p *Parser) startTilePart(cs *Codestream, seg *Segment) *TilePart {
	sot, ok := seg.Body.(*SOTSegment)
	if !ok {
		// an undecodable SOT still bounds a tile-part we cannot size
		part := &TilePart{Tile: -1, Offset: seg.Offset, Segments: []*Segment{seg}}
		cs.TileParts = append(cs.TileParts, part)
		return part
	}
	part := &TilePart{
		Tile:     int(sot.Isot),
		Part:     int(sot.TPsot),
		NumParts: int(sot.TNsot),
		Offset:   seg.Offset,
		Length:   int64(sot.Psot),
		Segments: []*Segment{seg},
	}
	if n := cs.TileCount(); n > 0 && part.Tile >= n {
		p.warn(seg.Offset, "SOT tile index %d exceeds the number of tiles %d", part.Tile, n)
	}
	if sot.TNsot != 0 && sot.TPsot >= sot.TNsot {
		p.warn(seg.Offset, "SOT tile-part index %d is not below the tile-part count %d", sot.TPsot, sot.TNsot)
	}
	if sot.Psot != 0 && sot.Psot < 14 {
		p.warn(seg.Offset, "SOT tile-part length %d is too small", sot.Psot)
		part.Length = 0
	}
	cs.TileParts = append(cs.TileParts, part)
	return part
}

// skipTileData advances past the data of a tile-part, recording where it is.
// In full mode it also records SOP and EPH markers found in the data.
func (p *Parser) skipTileData(cs *Codestream, part *TilePart) error {
	end := p.end
	if part.Length > 0 {
		end = part.Offset + part.Length
		if end > p.end {
			p.warn(part.Offset, "tile-part %d of tile %d runs past the end of the codestream", part.Part, part.Tile)
			end = p.end
		}
		if end < p.offset {
			p.warn(part.Offset, "tile-part %d of tile %d is shorter than its header", part.Part, part.Tile)
			end = p.offset
		}
	} else if p.end-p.offset >= 2 {
		// Psot 0: the last tile-part runs to EOC
		var tail [2]byte
		if _, err := p.r.ReadAt(tail[:], p.end-2); err == nil && binary.BigEndian.Uint16(tail[:]) == MarkerEOC {
			end = p.end - 2
		}
		part.Length = end - part.Offset
	}
	part.DataOffset = p.offset
	part.DataLength = end - p.offset

	if !p.opts.HeaderOnly && cs.COD != nil && (cs.COD.SOPEnabled() || cs.COD.EPHEnabled()) && part.DataLength > 0 {
		data := make([]byte, part.DataLength)
		if err := p.read(data); err != nil {
			return err
		}
		cs.Segments = append(cs.Segments, scanPackets(data, part.DataOffset)...)
	}
	p.offset = end
	return nil
}

// scanPackets finds SOP and EPH markers in tile-part data. Byte stuffing
// keeps packet bodies free of 0xFF followed by a byte above 0x8F.
func scanPackets(data []byte, base int64) []*Segment {
	var segs []*Segment
	for i := 0; i+1 < len(data); {
		if data[i] != 0xFF {
			i++
			continue
		}
		switch uint16(0xFF00) | uint16(data[i+1]) {
		case MarkerSOP:
			if i+6 > len(data) {
				return segs
			}
			segs = append(segs, &Segment{
				Marker: MarkerSOP,
				Offset: base + int64(i),
				Length: int(binary.BigEndian.Uint16(data[i+2:])),
				Body:   &SOPSegment{Nsop: binary.BigEndian.Uint16(data[i+4:])},
				Raw:    append([]byte(nil), data[i+4:i+6]...),
			})
			i += 6
		case MarkerEPH:
			segs = append(segs, &Segment{Marker: MarkerEPH, Offset: base + int64(i)})
			i += 2
		default:
			i++
		}
	}
	return segs
}

// Helper methods for reading data

func (p *Parser) readUint16() (uint16, error) {
	var buf [2]byte
	if err := p.read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (p *Parser) read(buf []byte) error {
	if p.offset+int64(len(buf)) > p.end {
		return io.ErrUnexpectedEOF
	}
	n, err := p.r.ReadAt(buf, p.offset)
	if n < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), p.offset, err)
	}
	p.offset += int64(len(buf))
	return nil
}
