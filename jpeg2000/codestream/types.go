package codestream

import (
	"encoding"

	"golang.org/x/text/encoding/charmap"
)

// Body is the decoded parameter block of a marker segment.
type Body interface {
	encoding.BinaryMarshaler
}

// Segment is one marker or marker segment, in codestream order.
type Segment struct {
	Marker uint16
	Offset int64 // offset of the marker in the file
	Length int   // value of the length field; 0 for markers without one
	Body   Body  // nil for delimiting markers
	Raw    []byte
}

// ID returns the marker name, or its hex code for unrecognised markers.
func (s *Segment) ID() string {
	return MarkerID(s.Marker)
}

// RawSegment is the body of a segment that is kept uninterpreted.
type RawSegment struct {
	Data []byte
}

func (r *RawSegment) MarshalBinary() ([]byte, error) {
	return r.Data, nil
}

// SIZSegment - Image and tile size marker segment
// ISO/IEC 15444-1 A.5.1
type SIZSegment struct {
	Rsiz   uint16 // Capabilities (0 = baseline)
	Xsiz   uint32 // Width of reference grid
	Ysiz   uint32 // Height of reference grid
	XOsiz  uint32 // Horizontal offset
	YOsiz  uint32 // Vertical offset
	XTsiz  uint32 // Width of one reference tile
	YTsiz  uint32 // Height of one reference tile
	XTOsiz uint32 // Horizontal offset of first tile
	YTOsiz uint32 // Vertical offset of first tile
	Csiz   uint16 // Number of components

	// Per-component parameters
	Components []ComponentSize
}

// ComponentSize holds per-component sizing information
type ComponentSize struct {
	Ssiz  uint8 // Precision and sign (bit 7 = sign, bits 0-6 = depth-1)
	XRsiz uint8 // Horizontal separation
	YRsiz uint8 // Vertical separation
}

// BitDepth returns the bit depth of the component
func (c *ComponentSize) BitDepth() int {
	return int(c.Ssiz&0x7F) + 1
}

// IsSigned returns true if the component is signed
func (c *ComponentSize) IsSigned() bool {
	return (c.Ssiz & 0x80) != 0
}

// ImageSize returns the image width and height on the reference grid.
func (s *SIZSegment) ImageSize() (width, height int) {
	return int(s.Xsiz) - int(s.XOsiz), int(s.Ysiz) - int(s.YOsiz)
}

// NumTiles returns the number of tiles across and down.
func (s *SIZSegment) NumTiles() (x, y int) {
	if s.XTsiz == 0 || s.YTsiz == 0 || s.Xsiz < s.XTOsiz || s.Ysiz < s.YTOsiz {
		return 0, 0
	}
	return ceilDiv(int(s.Xsiz-s.XTOsiz), int(s.XTsiz)), ceilDiv(int(s.Ysiz-s.YTOsiz), int(s.YTsiz))
}

// ComponentIndexSize is the width in bytes of component indices in
// COC, QCC, RGN and POC segments.
func (s *SIZSegment) ComponentIndexSize() int {
	if s != nil && s.Csiz > 256 {
		return 2
	}
	return 1
}

// Progression orders
const (
	LRCP uint8 = iota
	RLCP
	RPCL
	PCRL
	CPRL
)

var progressionNames = [...]string{"LRCP", "RLCP", "RPCL", "PCRL", "CPRL"}

// ProgressionName returns the name of a progression order.
func ProgressionName(p uint8) string {
	if int(p) < len(progressionNames) {
		return progressionNames[p]
	}
	return "invalid"
}

// CODSegment - Coding style default marker segment
// ISO/IEC 15444-1 A.6.1
type CODSegment struct {
	Scod uint8 // Coding style for all components
	// Scod bit interpretation:
	//   0: Entropy coder with/without partitions
	//   1: SOP marker segments
	//   2: EPH marker segments

	// SGcod - General coding style parameters
	ProgressionOrder           uint8  // 0=LRCP, 1=RLCP, 2=RPCL, 3=PCRL, 4=CPRL
	NumberOfLayers             uint16 // Number of layers
	MultipleComponentTransform uint8  // 0=none, 1=RCT or ICT

	CodingStyle
}

// CodingStyle holds the SPcod / SPcoc parameters shared by COD and COC.
type CodingStyle struct {
	NumberOfDecompositionLevels uint8 // Number of decomposition levels
	CodeBlockWidth              uint8 // Code-block width exponent (2^(n+2))
	CodeBlockHeight             uint8 // Code-block height exponent (2^(n+2))
	CodeBlockStyle              uint8 // Code-block style
	Transformation              uint8 // Wavelet transformation: 0=9-7 irreversible, 1=5-3 reversible

	// Precinct sizes (if Scod bit 0 is set)
	PrecinctSizes []PrecinctSize // One per resolution level
}

// PrecinctSize holds precinct dimensions for a resolution level
type PrecinctSize struct {
	PPx uint8 // Precinct width exponent
	PPy uint8 // Precinct height exponent
}

// CodeBlockSize returns the actual code-block dimensions
func (c *CodingStyle) CodeBlockSize() (width, height int) {
	width = 1 << (c.CodeBlockWidth + 2)
	height = 1 << (c.CodeBlockHeight + 2)
	return
}

// SOPEnabled reports whether packets may start with SOP markers.
func (c *CODSegment) SOPEnabled() bool { return c.Scod&0x02 != 0 }

// EPHEnabled reports whether packet headers end with EPH markers.
func (c *CODSegment) EPHEnabled() bool { return c.Scod&0x04 != 0 }

// COCSegment - Coding style component marker segment
type COCSegment struct {
	Component uint16
	Scoc      uint8
	CodingStyle

	IndexSize int // width of component indices, 0 means 1
}

// Quantization styles (low five bits of Sqcd / Sqcc)
const (
	QuantizationNone           uint8 = 0
	QuantizationScalarDerived  uint8 = 1
	QuantizationScalarExpanded uint8 = 2
)

// Quantization holds the Sqcd/Sqcc byte and the SPqcd/SPqcc step sizes.
type Quantization struct {
	Sqcd  uint8
	SPqcd []byte
}

// GuardBits returns the number of guard bits (top three bits).
func (q *Quantization) GuardBits() int {
	return int(q.Sqcd >> 5)
}

// Style returns the quantization style (low five bits).
func (q *Quantization) Style() uint8 {
	return q.Sqcd & 0x1F
}

// Exponents returns the epsilon value of each step size entry.
func (q *Quantization) Exponents() []int {
	if q.Style() == QuantizationNone {
		out := make([]int, len(q.SPqcd))
		for i, b := range q.SPqcd {
			out[i] = int(b >> 3)
		}
		return out
	}
	out := make([]int, len(q.SPqcd)/2)
	for i := range out {
		v := uint16(q.SPqcd[2*i])<<8 | uint16(q.SPqcd[2*i+1])
		out[i] = int(v >> 11)
	}
	return out
}

// Mantissas returns the mu value of each step size entry; all zero
// without quantization.
func (q *Quantization) Mantissas() []int {
	if q.Style() == QuantizationNone {
		return make([]int, len(q.SPqcd))
	}
	out := make([]int, len(q.SPqcd)/2)
	for i := range out {
		v := uint16(q.SPqcd[2*i])<<8 | uint16(q.SPqcd[2*i+1])
		out[i] = int(v & 0x7FF)
	}
	return out
}

// QCDSegment - Quantization default marker segment
// ISO/IEC 15444-1 A.6.4
type QCDSegment struct {
	Quantization
}

// QCCSegment - Quantization component marker segment
type QCCSegment struct {
	Component uint16
	Quantization

	IndexSize int // width of component indices, 0 means 1
}

// RGNSegment - Region of interest
type RGNSegment struct {
	Crgn  uint16
	Srgn  uint8
	SPrgn uint8

	IndexSize int // width of component indices, 0 means 1
}

// POCEntry is one progression order change.
type POCEntry struct {
	RSpoc  uint8
	CSpoc  uint16
	LYEpoc uint16
	REpoc  uint8
	CEpoc  uint16
	Ppoc   uint8
}

// POCSegment - Progression order change
type POCSegment struct {
	Entries []POCEntry

	IndexSize int // width of component indices, 0 means 1
}

// TLMSegment - Tile-part lengths. Tiles is nil when the tile indices are
// implied by order (ST = 0).
type TLMSegment struct {
	Ztlm    uint8
	Stlm    uint8
	Tiles   []uint16
	Lengths []uint32
}

// TileIndexSize returns the width in bytes of Ttlm (0, 1 or 2).
func (t *TLMSegment) TileIndexSize() int {
	return int(t.Stlm>>4) & 0x03
}

// LengthSize returns the width in bytes of Ptlm (2 or 4).
func (t *TLMSegment) LengthSize() int {
	if t.Stlm&0x40 != 0 {
		return 4
	}
	return 2
}

// PLTSegment - Packet lengths, tile-part header
type PLTSegment struct {
	Zplt    uint8
	Lengths []uint32
}

// PLMSegment - Packet lengths, main header. Lengths is the concatenation
// of all tile-part packet lengths in the segment.
type PLMSegment struct {
	Zplm    uint8
	Lengths []uint32
	Data    []byte
}

// PPMSegment - Packed packet headers, main header
type PPMSegment struct {
	Zppm uint8
	Data []byte
}

// PPTSegment - Packed packet headers, tile-part header
type PPTSegment struct {
	Zppt uint8
	Data []byte
}

// CRGSegment - Component registration, in 1/65536 of a sample.
type CRGSegment struct {
	Xcrg []uint16
	Ycrg []uint16
}

// COM registration values
const (
	RcomBinary uint16 = 0
	RcomLatin  uint16 = 1
)

// COMSegment - Comment marker segment
type COMSegment struct {
	Rcom uint16 // Registration value (0=binary, 1=ISO/IEC 8859-15)
	Data []byte // Comment data
}

// Text decodes a Latin comment. Binary comments return "".
func (c *COMSegment) Text() string {
	if c.Rcom != RcomLatin {
		return ""
	}
	s, err := charmap.ISO8859_15.NewDecoder().Bytes(c.Data)
	if err != nil {
		return string(c.Data)
	}
	return string(s)
}

// NewComment builds a Latin comment segment from UTF-8 text. Characters
// outside ISO 8859-15 are replaced.
func NewComment(text string) *COMSegment {
	data, err := charmap.ISO8859_15.NewEncoder().Bytes([]byte(text))
	if err != nil {
		data = []byte(text)
	}
	return &COMSegment{Rcom: RcomLatin, Data: data}
}

// SOTSegment - Start of tile-part marker segment
// ISO/IEC 15444-1 A.4.2
type SOTSegment struct {
	Isot  uint16 // Tile index
	Psot  uint32 // Tile-part length
	TPsot uint8  // Tile-part index
	TNsot uint8  // Number of tile-parts
}

// SOPSegment - Start of packet
type SOPSegment struct {
	Nsop uint16
}

// MCTElementType is the MCT array element type.
type MCTElementType uint8

const (
	MCTElementInt16   MCTElementType = 0
	MCTElementInt32   MCTElementType = 1
	MCTElementFloat32 MCTElementType = 2
	MCTElementFloat64 MCTElementType = 3
)

// MCTArrayType is the MCT array type.
type MCTArrayType uint8

const (
	MCTArrayDependency  MCTArrayType = 0
	MCTArrayDecorrelate MCTArrayType = 1
	MCTArrayOffset      MCTArrayType = 2
)

// MCTSegment - Multiple component transform
type MCTSegment struct {
	Zmct        uint16
	Index       uint8
	ElementType MCTElementType
	ArrayType   MCTArrayType
	Ymct        uint16
	Data        []byte
}

// MCCSegment - Multiple component collection
type MCCSegment struct {
	Zmcc               uint16
	Index              uint8
	Ymcc               uint16
	Qmcc               uint16
	CollectionType     uint8
	ComponentIDs       []uint16
	OutputComponentIDs []uint16
	DecorrelateIndex   uint8
	OffsetIndex        uint8
	Reversible         bool
	Trailing           []byte
}

// MCOSegment - Multiple component transform ordering
type MCOSegment struct {
	StageIndices []uint8
}
