package codestream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

func putComponentIndex(buf *bytes.Buffer, size int, c uint16) {
	if size == 2 {
		_ = binary.Write(buf, binary.BigEndian, c)
		return
	}
	buf.WriteByte(uint8(c))
}

// MarshalBinary encodes the SIZ parameters.
func (s *SIZSegment) MarshalBinary() ([]byte, error) {
	if len(s.Components) != int(s.Csiz) {
		return nil, fmt.Errorf("SIZ has %d components, Csiz is %d", len(s.Components), s.Csiz)
	}
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, s.Rsiz)
	_ = binary.Write(buf, binary.BigEndian, []uint32{s.Xsiz, s.Ysiz, s.XOsiz, s.YOsiz, s.XTsiz, s.YTsiz, s.XTOsiz, s.YTOsiz})
	_ = binary.Write(buf, binary.BigEndian, s.Csiz)
	for _, c := range s.Components {
		buf.Write([]byte{c.Ssiz, c.XRsiz, c.YRsiz})
	}
	return buf.Bytes(), nil
}

func (c *CodingStyle) marshal(buf *bytes.Buffer, precincts bool) error {
	buf.Write([]byte{c.NumberOfDecompositionLevels, c.CodeBlockWidth, c.CodeBlockHeight, c.CodeBlockStyle, c.Transformation})
	if !precincts {
		return nil
	}
	if len(c.PrecinctSizes) != int(c.NumberOfDecompositionLevels)+1 {
		return fmt.Errorf("%d precinct sizes for %d resolutions", len(c.PrecinctSizes), c.NumberOfDecompositionLevels+1)
	}
	for _, p := range c.PrecinctSizes {
		buf.WriteByte(p.PPy<<4 | p.PPx&0x0F)
	}
	return nil
}

// MarshalBinary encodes the COD parameters.
func (c *CODSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte(c.Scod)
	buf.WriteByte(c.ProgressionOrder)
	_ = binary.Write(buf, binary.BigEndian, c.NumberOfLayers)
	buf.WriteByte(c.MultipleComponentTransform)
	if err := c.CodingStyle.marshal(buf, c.Scod&0x01 != 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalBinary encodes the COC parameters.
func (c *COCSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	putComponentIndex(buf, c.IndexSize, c.Component)
	buf.WriteByte(c.Scoc)
	if err := c.CodingStyle.marshal(buf, c.Scoc&0x01 != 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (q *QCDSegment) MarshalBinary() ([]byte, error) {
	return append([]byte{q.Sqcd}, q.SPqcd...), nil
}

func (q *QCCSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	putComponentIndex(buf, q.IndexSize, q.Component)
	buf.WriteByte(q.Sqcd)
	buf.Write(q.SPqcd)
	return buf.Bytes(), nil
}

func (r *RGNSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	putComponentIndex(buf, r.IndexSize, r.Crgn)
	buf.Write([]byte{r.Srgn, r.SPrgn})
	return buf.Bytes(), nil
}

func (p *POCSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	for _, e := range p.Entries {
		buf.WriteByte(e.RSpoc)
		putComponentIndex(buf, p.IndexSize, e.CSpoc)
		_ = binary.Write(buf, binary.BigEndian, e.LYEpoc)
		buf.WriteByte(e.REpoc)
		putComponentIndex(buf, p.IndexSize, e.CEpoc)
		buf.WriteByte(e.Ppoc)
	}
	return buf.Bytes(), nil
}

func (t *TLMSegment) MarshalBinary() ([]byte, error) {
	st := t.TileIndexSize()
	if st == 0 && t.Tiles != nil || st != 0 && len(t.Tiles) != len(t.Lengths) {
		return nil, fmt.Errorf("TLM with Stlm 0x%02x has %d tile indices for %d lengths", t.Stlm, len(t.Tiles), len(t.Lengths))
	}
	buf := &bytes.Buffer{}
	buf.Write([]byte{t.Ztlm, t.Stlm})
	for i, l := range t.Lengths {
		switch st {
		case 1:
			buf.WriteByte(uint8(t.Tiles[i]))
		case 2:
			_ = binary.Write(buf, binary.BigEndian, t.Tiles[i])
		}
		if t.LengthSize() == 4 {
			_ = binary.Write(buf, binary.BigEndian, l)
		} else {
			_ = binary.Write(buf, binary.BigEndian, uint16(l))
		}
	}
	return buf.Bytes(), nil
}

// appendPacketLength appends v in 7-bit groups, most significant first.
func appendPacketLength(dst []byte, v uint32) []byte {
	var tmp [5]byte
	n := len(tmp) - 1
	tmp[n] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		n--
		tmp[n] = byte(v&0x7F) | 0x80
	}
	return append(dst, tmp[n:]...)
}

func (p *PLTSegment) MarshalBinary() ([]byte, error) {
	out := []byte{p.Zplt}
	for _, l := range p.Lengths {
		out = appendPacketLength(out, l)
	}
	return out, nil
}

// MarshalBinary writes Data when present; otherwise all lengths go into a
// single tile-part entry.
func (p *PLMSegment) MarshalBinary() ([]byte, error) {
	if p.Data != nil {
		return append([]byte{p.Zplm}, p.Data...), nil
	}
	var entry []byte
	for _, l := range p.Lengths {
		entry = appendPacketLength(entry, l)
	}
	if len(entry) > 255 {
		return nil, fmt.Errorf("PLM entry of %d bytes exceeds 255", len(entry))
	}
	return append([]byte{p.Zplm, uint8(len(entry))}, entry...), nil
}

func (p *PPMSegment) MarshalBinary() ([]byte, error) {
	return append([]byte{p.Zppm}, p.Data...), nil
}

func (p *PPTSegment) MarshalBinary() ([]byte, error) {
	return append([]byte{p.Zppt}, p.Data...), nil
}

func (c *CRGSegment) MarshalBinary() ([]byte, error) {
	if len(c.Xcrg) != len(c.Ycrg) {
		return nil, fmt.Errorf("CRG has %d horizontal and %d vertical offsets", len(c.Xcrg), len(c.Ycrg))
	}
	buf := &bytes.Buffer{}
	for i := range c.Xcrg {
		_ = binary.Write(buf, binary.BigEndian, c.Xcrg[i])
		_ = binary.Write(buf, binary.BigEndian, c.Ycrg[i])
	}
	return buf.Bytes(), nil
}

func (c *COMSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, c.Rcom)
	buf.Write(c.Data)
	return buf.Bytes(), nil
}

func (s *SOTSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, s.Isot)
	_ = binary.Write(buf, binary.BigEndian, s.Psot)
	buf.Write([]byte{s.TPsot, s.TNsot})
	return buf.Bytes(), nil
}

func (s *SOPSegment) MarshalBinary() ([]byte, error) {
	return []byte{byte(s.Nsop >> 8), byte(s.Nsop)}, nil
}

func (m *MCTSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	imct := uint16(m.Index) | uint16(m.ArrayType&0x3)<<8 | uint16(m.ElementType&0x3)<<10
	_ = binary.Write(buf, binary.BigEndian, []uint16{m.Zmct, imct, m.Ymct})
	buf.Write(m.Data)
	return buf.Bytes(), nil
}

func putComponentList(buf *bytes.Buffer, ids []uint16) {
	wide := false
	for _, id := range ids {
		if id > 0xFF {
			wide = true
		}
	}
	n := uint16(len(ids))
	if wide {
		n |= 0x8000
	}
	_ = binary.Write(buf, binary.BigEndian, n)
	for _, id := range ids {
		if wide {
			_ = binary.Write(buf, binary.BigEndian, id)
		} else {
			buf.WriteByte(uint8(id))
		}
	}
}

func (m *MCCSegment) MarshalBinary() ([]byte, error) {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, m.Zmcc)
	buf.WriteByte(m.Index)
	_ = binary.Write(buf, binary.BigEndian, m.Ymcc)
	_ = binary.Write(buf, binary.BigEndian, m.Qmcc)
	buf.WriteByte(m.CollectionType)
	putComponentList(buf, m.ComponentIDs)
	putComponentList(buf, m.OutputComponentIDs)
	var reversible byte
	if m.Reversible {
		reversible = 1
	}
	buf.Write([]byte{reversible, m.OffsetIndex, m.DecorrelateIndex})
	buf.Write(m.Trailing)
	return buf.Bytes(), nil
}

func (m *MCOSegment) MarshalBinary() ([]byte, error) {
	return append([]byte{uint8(len(m.StageIndices))}, m.StageIndices...), nil
}

// WriteMarker writes a bare marker.
func WriteMarker(w io.Writer, marker uint16) error {
	return binary.Write(w, binary.BigEndian, marker)
}

// WriteSegment writes a marker segment with its length field.
func WriteSegment(w io.Writer, marker uint16, body Body) error {
	data, err := body.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", MarkerID(marker), err)
	}
	if len(data)+2 > 0xFFFF {
		return fmt.Errorf("%s segment of %d bytes is too long", MarkerID(marker), len(data)+2)
	}
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, marker)
	_ = binary.Write(buf, binary.BigEndian, uint16(len(data)+2))
	buf.Write(data)
	_, err = w.Write(buf.Bytes())
	return err
}

// WriteTilePart writes SOT, the tile-part header segments, SOD and data.
// Psot is computed from what is written.
func WriteTilePart(w io.Writer, tile, part, numParts int, header []*Segment, data []byte) error {
	hdr := &bytes.Buffer{}
	for _, seg := range header {
		if err := writeSegment(hdr, seg); err != nil {
			return err
		}
	}
	psot := 12 + hdr.Len() + 2 + len(data)
	sot := &SOTSegment{Isot: uint16(tile), Psot: uint32(psot), TPsot: uint8(part), TNsot: uint8(numParts)}
	if err := WriteSegment(w, MarkerSOT, sot); err != nil {
		return err
	}
	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}
	if err := WriteMarker(w, MarkerSOD); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// writeSegment writes a parsed segment, preferring its raw bytes.
func writeSegment(w io.Writer, seg *Segment) error {
	if !HasLength(seg.Marker) {
		return WriteMarker(w, seg.Marker)
	}
	if seg.Raw != nil {
		buf := &bytes.Buffer{}
		_ = binary.Write(buf, binary.BigEndian, seg.Marker)
		_ = binary.Write(buf, binary.BigEndian, uint16(len(seg.Raw)+2))
		buf.Write(seg.Raw)
		_, err := w.Write(buf.Bytes())
		return err
	}
	if seg.Body == nil {
		return fmt.Errorf("%s segment at byte %d has no body", seg.ID(), seg.Offset)
	}
	return WriteSegment(w, seg.Marker, seg.Body)
}

// Write re-emits a parsed codestream. Tile-part data is copied from src,
// which must be the reader the codestream was parsed from. SOP and EPH
// markers found inside tile data are part of that data and are not
// written separately.
func Write(w io.Writer, cs *Codestream, src io.ReaderAt) error {
	if cs.HeaderOnly {
		return fmt.Errorf("cannot write a codestream parsed header-only")
	}
	parts := make(map[int64]*TilePart, len(cs.TileParts))
	for _, tp := range cs.TileParts {
		parts[tp.Offset] = tp
	}
	var current *TilePart
	for _, seg := range cs.Segments {
		if current != nil && (seg.Marker == MarkerSOP || seg.Marker == MarkerEPH) &&
			seg.Offset >= current.DataOffset && seg.Offset < current.DataOffset+current.DataLength {
			continue
		}
		if seg.Marker == MarkerSOT {
			current = parts[seg.Offset]
		}
		if err := writeSegment(w, seg); err != nil {
			return err
		}
		if seg.Marker == MarkerSOD && current != nil && current.DataLength > 0 {
			if src == nil {
				return fmt.Errorf("tile %d part %d: no source for tile data", current.Tile, current.Part)
			}
			sr := io.NewSectionReader(src, current.DataOffset, current.DataLength)
			if _, err := io.Copy(w, sr); err != nil {
				return fmt.Errorf("copy tile %d part %d: %w", current.Tile, current.Part, err)
			}
		}
	}
	return nil
}
