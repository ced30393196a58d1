package box

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// cursor reads big-endian fields from a payload. The first short read
// latches ErrTruncated; later reads return zero values.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.b) {
		c.err = fmt.Errorf("%w: need %d bytes at %d, have %d", ErrTruncated, n, c.off, len(c.b))
		return nil
	}
	v := c.b[c.off : c.off+n]
	c.off += n
	return v
}

func (c *cursor) u8() uint8 {
	if v := c.take(1); v != nil {
		return v[0]
	}
	return 0
}

func (c *cursor) u16() uint16 {
	if v := c.take(2); v != nil {
		return binary.BigEndian.Uint16(v)
	}
	return 0
}

func (c *cursor) u32() uint32 {
	if v := c.take(4); v != nil {
		return binary.BigEndian.Uint32(v)
	}
	return 0
}

func (c *cursor) u64() uint64 {
	if v := c.take(8); v != nil {
		return binary.BigEndian.Uint64(v)
	}
	return 0
}

// uint reads an n byte unsigned integer, n <= 8.
func (c *cursor) uint(n int) uint64 {
	var v uint64
	for _, b := range c.take(n) {
		v = v<<8 | uint64(b)
	}
	return v
}

func (c *cursor) uuid() uuid.UUID {
	var id uuid.UUID
	copy(id[:], c.take(16))
	return id
}

func (c *cursor) rest() []byte {
	if c.err != nil {
		return nil
	}
	v := c.b[c.off:]
	c.off = len(c.b)
	return append([]byte(nil), v...)
}

func (c *cursor) remaining() int {
	return len(c.b) - c.off
}

// be is an append-only big-endian encoder.
type be struct{ bytes.Buffer }

func (w *be) u8(v uint8)   { w.WriteByte(v) }
func (w *be) u16(v uint16) { _ = binary.Write(w, binary.BigEndian, v) }
func (w *be) u32(v uint32) { _ = binary.Write(w, binary.BigEndian, v) }
func (w *be) u64(v uint64) { _ = binary.Write(w, binary.BigEndian, v) }

func (w *be) uint(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.WriteByte(byte(v >> (8 * uint(i))))
	}
}

// SignatureBox is the "jP  " box.
type SignatureBox struct {
	Data [4]byte
}

func (*SignatureBox) BoxType() Type { return TypeSignature }

func (s *SignatureBox) MarshalBinary() ([]byte, error) {
	return s.Data[:], nil
}

func decodeSignature(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	s := &SignatureBox{}
	copy(s.Data[:], c.take(4))
	if c.err != nil {
		return nil, c.err
	}
	if s.Data != Signature {
		return nil, fmt.Errorf("invalid signature % x", s.Data)
	}
	return s, nil
}

// FileType is the "ftyp" box.
type FileType struct {
	Brand         Type
	MinorVersion  uint32
	Compatibility []Type
}

func (*FileType) BoxType() Type { return TypeFileType }

func (f *FileType) MarshalBinary() ([]byte, error) {
	var w be
	w.u32(uint32(f.Brand))
	w.u32(f.MinorVersion)
	for _, t := range f.Compatibility {
		w.u32(uint32(t))
	}
	return w.Bytes(), nil
}

var (
	brandJP2 = TypeOf("jp2")
	brandJPX = TypeOf("jpx")
)

func decodeFileType(data []byte, warn func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	f := &FileType{Brand: Type(c.u32()), MinorVersion: c.u32()}
	if c.err != nil {
		return nil, c.err
	}
	if c.remaining()%4 != 0 {
		warn("ftyp compatibility list has %d trailing bytes", c.remaining()%4)
	}
	for c.remaining() >= 4 {
		f.Compatibility = append(f.Compatibility, Type(c.u32()))
	}
	if f.Brand != brandJP2 && f.Brand != brandJPX {
		warn("unrecognized ftyp brand %q", f.Brand.String())
	}
	return f, nil
}

// ImageHeader is the "ihdr" box.
type ImageHeader struct {
	Height             uint32
	Width              uint32
	NumComponents      uint16
	BPC                uint8 // bit 7 signed, low 7 bits depth-1; 0xFF means see bpcc
	Compression        uint8
	ColourspaceUnknown uint8
	IPR                uint8
}

func (*ImageHeader) BoxType() Type { return TypeImageHeader }

// BitDepth returns the component precision, or 0 when components vary.
func (h *ImageHeader) BitDepth() int {
	if h.BPC == 0xFF {
		return 0
	}
	return int(h.BPC&0x7F) + 1
}

// Signed reports whether components are signed.
func (h *ImageHeader) Signed() bool {
	return h.BPC != 0xFF && h.BPC&0x80 != 0
}

func (h *ImageHeader) MarshalBinary() ([]byte, error) {
	var w be
	w.u32(h.Height)
	w.u32(h.Width)
	w.u16(h.NumComponents)
	w.u8(h.BPC)
	w.u8(h.Compression)
	w.u8(h.ColourspaceUnknown)
	w.u8(h.IPR)
	return w.Bytes(), nil
}

func decodeImageHeader(data []byte, warn func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	h := &ImageHeader{
		Height:             c.u32(),
		Width:              c.u32(),
		NumComponents:      c.u16(),
		BPC:                c.u8(),
		Compression:        c.u8(),
		ColourspaceUnknown: c.u8(),
		IPR:                c.u8(),
	}
	if c.err != nil {
		return nil, c.err
	}
	if h.Compression != 7 {
		warn("invalid ihdr compression type %d", h.Compression)
	}
	return h, nil
}

// ColourSpecification is the "colr" box.
type ColourSpecification struct {
	Method        ColourMethod
	Precedence    int8
	Approximation uint8
	ColourSpace   ColourSpace // method 1
	Extra         []byte      // enumerated parameters following the colour space
	ICCProfile    []byte      // methods 2 and 3
	Vendor        []byte      // method 4 and unknown methods
}

func (*ColourSpecification) BoxType() Type { return TypeColourSpec }

func (s *ColourSpecification) MarshalBinary() ([]byte, error) {
	var w be
	w.u8(uint8(s.Method))
	w.u8(uint8(s.Precedence))
	w.u8(s.Approximation)
	switch s.Method {
	case MethodEnumerated:
		w.u32(uint32(s.ColourSpace))
		w.Write(s.Extra)
	case MethodRestrictedICC, MethodAnyICC:
		w.Write(s.ICCProfile)
	default:
		w.Write(s.Vendor)
	}
	return w.Bytes(), nil
}

func decodeColourSpecification(data []byte, warn func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	s := &ColourSpecification{
		Method:        ColourMethod(c.u8()),
		Precedence:    int8(c.u8()),
		Approximation: c.u8(),
	}
	switch s.Method {
	case MethodEnumerated:
		s.ColourSpace = ColourSpace(c.u32())
		if c.remaining() > 0 {
			s.Extra = c.rest()
		}
		if _, ok := colourSpaceNames[s.ColourSpace]; !ok && c.err == nil {
			warn("unrecognized colr colorspace %d", s.ColourSpace)
		}
	case MethodRestrictedICC, MethodAnyICC:
		s.ICCProfile = c.rest()
	default:
		warn("unrecognized colr method %d", s.Method)
		s.Vendor = c.rest()
	}
	if c.err != nil {
		return nil, c.err
	}
	if s.Approximation > 4 {
		warn("invalid colr approximation %d", s.Approximation)
	}
	return s, nil
}

// BitsPerComponent is the "bpcc" box.
type BitsPerComponent struct {
	BPC []uint8
}

func (*BitsPerComponent) BoxType() Type { return TypeBitsPerComponent }

func (b *BitsPerComponent) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), b.BPC...), nil
}

func decodeBitsPerComponent(data []byte, _ func(string, ...any)) (Payload, error) {
	return &BitsPerComponent{BPC: append([]byte(nil), data...)}, nil
}

// Palette is the "pclr" box. Table has one row per entry and one column
// per generated component.
type Palette struct {
	BPS   []uint8
	Table [][]uint64
}

func (*Palette) BoxType() Type { return TypePalette }

func columnBytes(bps uint8) int {
	return (int(bps&0x7F) + 8) / 8
}

func (p *Palette) MarshalBinary() ([]byte, error) {
	var w be
	w.u16(uint16(len(p.Table)))
	w.u8(uint8(len(p.BPS)))
	w.Write(p.BPS)
	for _, row := range p.Table {
		if len(row) != len(p.BPS) {
			return nil, fmt.Errorf("palette row has %d columns, want %d", len(row), len(p.BPS))
		}
		for j, v := range row {
			w.uint(v, columnBytes(p.BPS[j]))
		}
	}
	return w.Bytes(), nil
}

func decodePalette(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	ne := int(c.u16())
	npc := int(c.u8())
	p := &Palette{BPS: append([]byte(nil), c.take(npc)...)}
	if c.err != nil {
		return nil, c.err
	}
	p.Table = make([][]uint64, ne)
	for i := range p.Table {
		row := make([]uint64, npc)
		for j := range row {
			row[j] = c.uint(columnBytes(p.BPS[j]))
		}
		p.Table[i] = row
	}
	if c.err != nil {
		return nil, c.err
	}
	return p, nil
}

// ComponentMapEntry maps one codestream component to an output channel.
type ComponentMapEntry struct {
	Component     uint16
	MappingType   uint8 // 0 direct use, 1 palette mapping
	PaletteColumn uint8
}

// ComponentMapping is the "cmap" box.
type ComponentMapping struct {
	Entries []ComponentMapEntry
}

func (*ComponentMapping) BoxType() Type { return TypeComponentMap }

func (m *ComponentMapping) MarshalBinary() ([]byte, error) {
	var w be
	for _, e := range m.Entries {
		w.u16(e.Component)
		w.u8(e.MappingType)
		w.u8(e.PaletteColumn)
	}
	return w.Bytes(), nil
}

func decodeComponentMapping(data []byte, _ func(string, ...any)) (Payload, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: cmap payload of %d bytes", ErrTruncated, len(data))
	}
	c := cursor{b: data}
	m := &ComponentMapping{}
	for c.remaining() > 0 {
		m.Entries = append(m.Entries, ComponentMapEntry{Component: c.u16(), MappingType: c.u8(), PaletteColumn: c.u8()})
	}
	return m, nil
}

// Channel describes one channel of a cdef box.
type Channel struct {
	Index       uint16
	Type        ChannelType
	Association uint16 // 0 whole image, 0xFFFF none, otherwise colour index
}

// ChannelDefinition is the "cdef" box.
type ChannelDefinition struct {
	Channels []Channel
}

func (*ChannelDefinition) BoxType() Type { return TypeChannelDef }

func (d *ChannelDefinition) MarshalBinary() ([]byte, error) {
	var w be
	w.u16(uint16(len(d.Channels)))
	for _, ch := range d.Channels {
		w.u16(ch.Index)
		w.u16(uint16(ch.Type))
		w.u16(ch.Association)
	}
	return w.Bytes(), nil
}

func decodeChannelDefinition(data []byte, warn func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	n := int(c.u16())
	d := &ChannelDefinition{Channels: make([]Channel, 0, n)}
	for i := 0; i < n; i++ {
		ch := Channel{Index: c.u16(), Type: ChannelType(c.u16()), Association: c.u16()}
		if c.err != nil {
			return nil, c.err
		}
		if ch.Type.String() == "invalid" {
			warn("invalid cdef channel type %d for channel %d", ch.Type, ch.Index)
		}
		d.Channels = append(d.Channels, ch)
	}
	return d, nil
}

// Resolution is a "resc" or "resd" box, in grid points per metre.
type Resolution struct {
	Kind         Type
	VNum, VDenom uint16
	HNum, HDenom uint16
	VExp, HExp   int8
}

func (r *Resolution) BoxType() Type { return r.Kind }

// Vertical returns the vertical resolution.
func (r *Resolution) Vertical() float64 {
	return ratio(r.VNum, r.VDenom, r.VExp)
}

// Horizontal returns the horizontal resolution.
func (r *Resolution) Horizontal() float64 {
	return ratio(r.HNum, r.HDenom, r.HExp)
}

func ratio(num, den uint16, exp int8) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * math.Pow10(int(exp))
}

func (r *Resolution) MarshalBinary() ([]byte, error) {
	var w be
	w.u16(r.VNum)
	w.u16(r.VDenom)
	w.u16(r.HNum)
	w.u16(r.HDenom)
	w.u8(uint8(r.VExp))
	w.u8(uint8(r.HExp))
	return w.Bytes(), nil
}

func decodeResolution(kind Type) decodeFunc {
	return func(data []byte, _ func(string, ...any)) (Payload, error) {
		c := cursor{b: data}
		r := &Resolution{Kind: kind, VNum: c.u16(), VDenom: c.u16(), HNum: c.u16(), HDenom: c.u16()}
		r.VExp = int8(c.u8())
		r.HExp = int8(c.u8())
		if c.err != nil {
			return nil, c.err
		}
		return r, nil
	}
}

// StandardFeature is a reader requirements standard flag and its mask.
type StandardFeature struct {
	Flag uint16
	Mask uint64
}

// VendorFeature is a reader requirements vendor feature and its mask.
type VendorFeature struct {
	ID   uuid.UUID
	Mask uint64
}

// ReaderRequirements is the "rreq" box.
type ReaderRequirements struct {
	MaskLength        uint8
	FullyUnderstand   uint64
	DisplayCompletely uint64
	Standard          []StandardFeature
	Vendor            []VendorFeature
}

func (*ReaderRequirements) BoxType() Type { return TypeReaderRequirements }

// StandardFlags lists the standard feature flags in order.
func (r *ReaderRequirements) StandardFlags() []uint16 {
	out := make([]uint16, len(r.Standard))
	for i, f := range r.Standard {
		out[i] = f.Flag
	}
	return out
}

func (r *ReaderRequirements) MarshalBinary() ([]byte, error) {
	ml := int(r.MaskLength)
	if ml < 1 || ml > 8 {
		return nil, fmt.Errorf("unsupported rreq mask length %d", ml)
	}
	var w be
	w.u8(r.MaskLength)
	w.uint(r.FullyUnderstand, ml)
	w.uint(r.DisplayCompletely, ml)
	w.u16(uint16(len(r.Standard)))
	for _, f := range r.Standard {
		w.u16(f.Flag)
		w.uint(f.Mask, ml)
	}
	w.u16(uint16(len(r.Vendor)))
	for _, f := range r.Vendor {
		w.Write(f.ID[:])
		w.uint(f.Mask, ml)
	}
	return w.Bytes(), nil
}

func decodeReaderRequirements(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	r := &ReaderRequirements{MaskLength: c.u8()}
	ml := int(r.MaskLength)
	if c.err == nil && (ml < 1 || ml > 8) {
		return nil, fmt.Errorf("unsupported rreq mask length %d", ml)
	}
	r.FullyUnderstand = c.uint(ml)
	r.DisplayCompletely = c.uint(ml)
	nsf := int(c.u16())
	for i := 0; i < nsf && c.err == nil; i++ {
		r.Standard = append(r.Standard, StandardFeature{Flag: c.u16(), Mask: c.uint(ml)})
	}
	nvf := int(c.u16())
	for i := 0; i < nvf && c.err == nil; i++ {
		r.Vendor = append(r.Vendor, VendorFeature{ID: c.uuid(), Mask: c.uint(ml)})
	}
	if c.err != nil {
		return nil, c.err
	}
	return r, nil
}

// UUIDList is the "ulst" box.
type UUIDList struct {
	IDs []uuid.UUID
}

func (*UUIDList) BoxType() Type { return TypeUUIDList }

func (l *UUIDList) MarshalBinary() ([]byte, error) {
	var w be
	w.u16(uint16(len(l.IDs)))
	for _, id := range l.IDs {
		w.Write(id[:])
	}
	return w.Bytes(), nil
}

func decodeUUIDList(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	n := int(c.u16())
	l := &UUIDList{}
	for i := 0; i < n && c.err == nil; i++ {
		l.IDs = append(l.IDs, c.uuid())
	}
	if c.err != nil {
		return nil, c.err
	}
	return l, nil
}

// DataEntryURL is the "url " box.
type DataEntryURL struct {
	Version uint8
	Flags   [3]byte
	URL     string
}

func (*DataEntryURL) BoxType() Type { return TypeURL }

func (u *DataEntryURL) MarshalBinary() ([]byte, error) {
	var w be
	w.u8(u.Version)
	w.Write(u.Flags[:])
	w.WriteString(u.URL)
	return w.Bytes(), nil
}

func decodeDataEntryURL(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	u := &DataEntryURL{Version: c.u8()}
	copy(u.Flags[:], c.take(3))
	if c.err != nil {
		return nil, c.err
	}
	text := strings.TrimRight(string(c.rest()), "\x00")
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("url is not valid UTF-8")
	}
	u.URL = text
	return u, nil
}

// Label is the "lbl " box.
type Label struct {
	Text string
}

func (*Label) BoxType() Type { return TypeLabel }

func (l *Label) MarshalBinary() ([]byte, error) {
	return []byte(l.Text), nil
}

func decodeLabel(data []byte, _ func(string, ...any)) (Payload, error) {
	return &Label{Text: string(data)}, nil
}

// XML is the "xml " box. Text is well-formed XML.
type XML struct {
	Text string
}

func (*XML) BoxType() Type { return TypeXML }

func (x *XML) MarshalBinary() ([]byte, error) {
	return []byte(x.Text), nil
}

func decodeXML(data []byte, _ func(string, ...any)) (Payload, error) {
	text := strings.TrimRight(string(data), "\x00")
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("xml box is not valid UTF-8")
	}
	if err := checkXML(text); err != nil {
		return nil, err
	}
	return &XML{Text: text}, nil
}

func checkXML(text string) error {
	d := xml.NewDecoder(strings.NewReader(text))
	sawElement := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid xml: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return fmt.Errorf("invalid xml: no root element")
	}
	return nil
}

// UUIDBox is the "uuid" box.
type UUIDBox struct {
	ID   uuid.UUID
	Data []byte
}

func (*UUIDBox) BoxType() Type { return TypeUUID }

func (u *UUIDBox) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 16+len(u.Data))
	out = append(out, u.ID[:]...)
	return append(out, u.Data...), nil
}

func decodeUUIDBox(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	u := &UUIDBox{ID: c.uuid()}
	u.Data = c.rest()
	if c.err != nil {
		return nil, c.err
	}
	return u, nil
}

// NumberList is the "nlst" box.
type NumberList struct {
	Numbers []uint32
}

func (*NumberList) BoxType() Type { return TypeNumberList }

func (n *NumberList) MarshalBinary() ([]byte, error) {
	var w be
	for _, v := range n.Numbers {
		w.u32(v)
	}
	return w.Bytes(), nil
}

func decodeNumberList(data []byte, _ func(string, ...any)) (Payload, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: nlst payload of %d bytes", ErrTruncated, len(data))
	}
	c := cursor{b: data}
	n := &NumberList{}
	for c.remaining() > 0 {
		n.Numbers = append(n.Numbers, c.u32())
	}
	return n, nil
}

// Fragment locates part of a codestream.
type Fragment struct {
	Offset  uint64
	Length  uint32
	DataRef uint16
}

// FragmentList is the "flst" box.
type FragmentList struct {
	Fragments []Fragment
}

func (*FragmentList) BoxType() Type { return TypeFragmentList }

func (f *FragmentList) MarshalBinary() ([]byte, error) {
	var w be
	w.u16(uint16(len(f.Fragments)))
	for _, fr := range f.Fragments {
		w.u64(fr.Offset)
		w.u32(fr.Length)
		w.u16(fr.DataRef)
	}
	return w.Bytes(), nil
}

func decodeFragmentList(data []byte, _ func(string, ...any)) (Payload, error) {
	c := cursor{b: data}
	n := int(c.u16())
	f := &FragmentList{}
	for i := 0; i < n && c.err == nil; i++ {
		f.Fragments = append(f.Fragments, Fragment{Offset: c.u64(), Length: c.u32(), DataRef: c.u16()})
	}
	if c.err != nil {
		return nil, c.err
	}
	return f, nil
}

// ContiguousCodestream is the "jp2c" box. Parsed boxes only record where the
// codestream lives; freshly built boxes carry the bytes in Data.
type ContiguousCodestream struct {
	DataOffset int64
	DataLength int64
	Data       []byte
}

func (*ContiguousCodestream) BoxType() Type { return TypeCodestream }

func (c *ContiguousCodestream) MarshalBinary() ([]byte, error) {
	if c.Data == nil {
		return nil, ErrNoSource
	}
	return c.Data, nil
}
