package codestream

import (
	"encoding/binary"
	"fmt"
)

// reader decodes big-endian fields from a segment body. The first short
// read latches errSegmentTruncated.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at %d of %d", errSegmentTruncated, n, r.off, len(r.data))
		return nil
	}
	v := r.data[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) readUint8() uint8 {
	if v := r.bytes(1); v != nil {
		return v[0]
	}
	return 0
}

func (r *reader) readUint16() uint16 {
	if v := r.bytes(2); v != nil {
		return binary.BigEndian.Uint16(v)
	}
	return 0
}

func (r *reader) readUint32() uint32 {
	if v := r.bytes(4); v != nil {
		return binary.BigEndian.Uint32(v)
	}
	return 0
}

func (r *reader) readComponentIndex(size int) uint16 {
	if size == 2 {
		return r.readUint16()
	}
	return uint16(r.readUint8())
}

func (r *reader) rest() []byte {
	if r.err != nil {
		return nil
	}
	v := append([]byte(nil), r.data[r.off:]...)
	r.off = len(r.data)
	return v
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

type decodeFunc func(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error)

var decoders = map[uint16]decodeFunc{
	MarkerSIZ: parseSIZ,
	MarkerCOD: parseCOD,
	MarkerCOC: parseCOC,
	MarkerQCD: parseQCD,
	MarkerQCC: parseQCC,
	MarkerRGN: parseRGN,
	MarkerPOC: parsePOC,
	MarkerTLM: parseTLM,
	MarkerPLM: parsePLM,
	MarkerPLT: parsePLT,
	MarkerPPM: parsePPM,
	MarkerPPT: parsePPT,
	MarkerCRG: parseCRG,
	MarkerCOM: parseCOM,
	MarkerSOT: parseSOT,
	MarkerSOP: parseSOP,
	MarkerMCT: parseMCT,
	MarkerMCC: parseMCC,
	MarkerMCO: parseMCO,
}

// validProfile reports whether Rsiz names a known capability set.
func validProfile(rsiz uint16) bool {
	if rsiz&0x8000 != 0 {
		// Part 2 extension flags
		return true
	}
	r := rsiz &^ 0x4000 // HTJ2K flag
	switch hi := r >> 8; {
	case hi == 0:
		return r <= 0x0007
	case hi >= 0x01 && hi <= 0x03:
		// broadcast profiles, main level in the low nibble
		return r&0x00F0 == 0 && r&0x000F <= 11
	case hi >= 0x04 && hi <= 0x09:
		// IMF profiles, main and sub levels
		return true
	}
	return false
}

// parseSIZ parses the SIZ marker segment
func parseSIZ(r *reader, _ *SIZSegment, warn func(string, ...any)) (Body, error) {
	siz := &SIZSegment{
		Rsiz:   r.readUint16(),
		Xsiz:   r.readUint32(),
		Ysiz:   r.readUint32(),
		XOsiz:  r.readUint32(),
		YOsiz:  r.readUint32(),
		XTsiz:  r.readUint32(),
		YTsiz:  r.readUint32(),
		XTOsiz: r.readUint32(),
		YTOsiz: r.readUint32(),
		Csiz:   r.readUint16(),
	}
	if r.err != nil {
		return nil, r.err
	}
	if expected := 36 + 3*int(siz.Csiz); len(r.data) != expected {
		warn("SIZ segment length mismatch: expected %d, got %d", expected+2, len(r.data)+2)
	}

	// Read component sizing information
	siz.Components = make([]ComponentSize, 0, siz.Csiz)
	for i := 0; i < int(siz.Csiz); i++ {
		c := ComponentSize{Ssiz: r.readUint8(), XRsiz: r.readUint8(), YRsiz: r.readUint8()}
		if r.err != nil {
			return nil, r.err
		}
		if c.XRsiz == 0 || c.YRsiz == 0 {
			warn("Invalid subsampling value for component %d: dx=%d, dy=%d", i, c.XRsiz, c.YRsiz)
		}
		if c.BitDepth() > 38 {
			warn("Invalid precision %d for component %d", c.BitDepth(), i)
		}
		siz.Components = append(siz.Components, c)
	}

	if !validProfile(siz.Rsiz) {
		warn("Invalid profile: (Rsiz) 0x%04x", siz.Rsiz)
	}
	if siz.Csiz == 0 || siz.Csiz > 16384 {
		warn("Invalid number of components %d", siz.Csiz)
	}
	if siz.XOsiz >= siz.Xsiz || siz.YOsiz >= siz.Ysiz {
		warn("Image offset (%d, %d) is outside the reference grid (%d, %d)", siz.XOsiz, siz.YOsiz, siz.Xsiz, siz.Ysiz)
	}
	if siz.XTsiz == 0 || siz.YTsiz == 0 {
		warn("Invalid tile dimensions (%d, %d)", siz.XTsiz, siz.YTsiz)
	} else {
		if siz.XTOsiz > siz.XOsiz || siz.YTOsiz > siz.YOsiz ||
			uint64(siz.XTOsiz)+uint64(siz.XTsiz) <= uint64(siz.XOsiz) ||
			uint64(siz.YTOsiz)+uint64(siz.YTsiz) <= uint64(siz.YOsiz) {
			warn("Invalid tile offset (%d, %d)", siz.XTOsiz, siz.YTOsiz)
		}
		if x, y := siz.NumTiles(); x*y > 65535 {
			warn("Invalid number of tiles: (%d)", x*y)
		}
	}
	return siz, nil
}

func parseCodingStyle(r *reader, scod uint8, warn func(string, ...any), name string) CodingStyle {
	cs := CodingStyle{
		NumberOfDecompositionLevels: r.readUint8(),
		CodeBlockWidth:              r.readUint8(),
		CodeBlockHeight:             r.readUint8(),
		CodeBlockStyle:              r.readUint8(),
		Transformation:              r.readUint8(),
	}
	if r.err != nil {
		return cs
	}
	if cs.NumberOfDecompositionLevels > 32 {
		warn("Invalid number of decomposition levels in %s segment: %d.", name, cs.NumberOfDecompositionLevels)
	}
	if cs.CodeBlockWidth > 8 || cs.CodeBlockHeight > 8 || cs.CodeBlockWidth+cs.CodeBlockHeight > 8 {
		warn("Invalid code-block size exponents in %s segment: (%d, %d).", name, cs.CodeBlockWidth, cs.CodeBlockHeight)
	}
	if cs.Transformation > 1 {
		warn("Invalid wavelet transform in %s segment: %d.", name, cs.Transformation)
	}
	if scod&0x01 != 0 {
		count := int(cs.NumberOfDecompositionLevels) + 1
		cs.PrecinctSizes = make([]PrecinctSize, 0, count)
		for i := 0; i < count; i++ {
			ppxppy := r.readUint8()
			cs.PrecinctSizes = append(cs.PrecinctSizes, PrecinctSize{PPx: ppxppy & 0x0F, PPy: ppxppy >> 4})
		}
	}
	return cs
}

// parseCOD parses the COD marker segment
func parseCOD(r *reader, _ *SIZSegment, warn func(string, ...any)) (Body, error) {
	cod := &CODSegment{
		Scod:                       r.readUint8(),
		ProgressionOrder:           r.readUint8(),
		NumberOfLayers:             r.readUint16(),
		MultipleComponentTransform: r.readUint8(),
	}
	if r.err == nil {
		if cod.ProgressionOrder > CPRL {
			warn("Invalid progression order in COD segment: %d.", cod.ProgressionOrder)
		}
		if cod.NumberOfLayers == 0 {
			warn("Invalid number of layers in COD segment: 0.")
		}
	}
	cod.CodingStyle = parseCodingStyle(r, cod.Scod, warn, "COD")
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining() > 0 {
		warn("COD segment has %d unexpected trailing bytes", r.remaining())
	}
	return cod, nil
}

// parseCOC parses the COC marker segment (component coding style).
func parseCOC(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error) {
	size := siz.ComponentIndexSize()
	coc := &COCSegment{IndexSize: size, Component: r.readComponentIndex(size), Scoc: r.readUint8()}
	coc.CodingStyle = parseCodingStyle(r, coc.Scoc, warn, "COC")
	if r.err != nil {
		return nil, r.err
	}
	if siz != nil && coc.Component >= siz.Csiz {
		warn("COC component %d exceeds the number of components %d", coc.Component, siz.Csiz)
	}
	return coc, nil
}

func parseQuantization(r *reader, warn func(string, ...any), name string) Quantization {
	q := Quantization{Sqcd: r.readUint8()}
	q.SPqcd = r.rest()
	if r.err != nil {
		return q
	}
	switch q.Style() {
	case QuantizationNone:
	case QuantizationScalarDerived, QuantizationScalarExpanded:
		if len(q.SPqcd)%2 != 0 {
			warn("%s step sizes have an odd length %d", name, len(q.SPqcd))
		}
	default:
		warn("Invalid quantization style in %s segment: %d.", name, q.Style())
	}
	return q
}

// parseQCD parses the QCD marker segment
func parseQCD(r *reader, _ *SIZSegment, warn func(string, ...any)) (Body, error) {
	qcd := &QCDSegment{Quantization: parseQuantization(r, warn, "QCD")}
	if r.err != nil {
		return nil, r.err
	}
	return qcd, nil
}

// parseQCC parses the QCC marker segment (component quantization).
func parseQCC(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error) {
	size := siz.ComponentIndexSize()
	qcc := &QCCSegment{IndexSize: size, Component: r.readComponentIndex(size)}
	qcc.Quantization = parseQuantization(r, warn, "QCC")
	if r.err != nil {
		return nil, r.err
	}
	return qcc, nil
}

// parseRGN parses the RGN marker segment (ROI).
func parseRGN(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error) {
	size := siz.ComponentIndexSize()
	rgn := &RGNSegment{IndexSize: size, Crgn: r.readComponentIndex(size), Srgn: r.readUint8(), SPrgn: r.readUint8()}
	if r.err != nil {
		return nil, r.err
	}
	if rgn.Srgn != 0 {
		warn("Invalid ROI style in RGN segment: %d.", rgn.Srgn)
	}
	return rgn, nil
}

// parsePOC parses the POC marker segment.
func parsePOC(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error) {
	size := siz.ComponentIndexSize()
	entryLen := 5 + 2*size
	if r.remaining() < entryLen || r.remaining()%entryLen != 0 {
		return nil, fmt.Errorf("invalid POC length: %d", len(r.data)+2)
	}
	poc := &POCSegment{IndexSize: size}
	for r.remaining() > 0 {
		e := POCEntry{
			RSpoc:  r.readUint8(),
			CSpoc:  r.readComponentIndex(size),
			LYEpoc: r.readUint16(),
			REpoc:  r.readUint8(),
			CEpoc:  r.readComponentIndex(size),
			Ppoc:   r.readUint8(),
		}
		if e.Ppoc > CPRL {
			warn("Invalid progression order in POC segment: %d.", e.Ppoc)
		}
		poc.Entries = append(poc.Entries, e)
	}
	return poc, r.err
}

func parseTLM(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	tlm := &TLMSegment{Ztlm: r.readUint8(), Stlm: r.readUint8()}
	if r.err != nil {
		return nil, r.err
	}
	st, sp := tlm.TileIndexSize(), tlm.LengthSize()
	if st == 3 {
		return nil, fmt.Errorf("invalid TLM Stlm 0x%02x", tlm.Stlm)
	}
	if r.remaining()%(st+sp) != 0 {
		return nil, fmt.Errorf("TLM body of %d bytes does not hold whole entries", r.remaining())
	}
	for r.remaining() > 0 {
		switch st {
		case 1:
			tlm.Tiles = append(tlm.Tiles, uint16(r.readUint8()))
		case 2:
			tlm.Tiles = append(tlm.Tiles, r.readUint16())
		}
		if sp == 4 {
			tlm.Lengths = append(tlm.Lengths, r.readUint32())
		} else {
			tlm.Lengths = append(tlm.Lengths, uint32(r.readUint16()))
		}
	}
	return tlm, r.err
}

// packetLengths decodes 7-bit continuation coded packet lengths.
func packetLengths(data []byte) ([]uint32, error) {
	var out []uint32
	var v uint32
	pending := false
	for _, b := range data {
		v = v<<7 | uint32(b&0x7F)
		pending = true
		if b&0x80 == 0 {
			out = append(out, v)
			v, pending = 0, false
		}
	}
	if pending {
		return out, fmt.Errorf("unterminated packet length")
	}
	return out, nil
}

func parsePLT(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	plt := &PLTSegment{Zplt: r.readUint8()}
	data := r.rest()
	if r.err != nil {
		return nil, r.err
	}
	lengths, err := packetLengths(data)
	if err != nil {
		return nil, err
	}
	plt.Lengths = lengths
	return plt, nil
}

func parsePLM(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	plm := &PLMSegment{Zplm: r.readUint8()}
	plm.Data = r.rest()
	if r.err != nil {
		return nil, r.err
	}
	inner := reader{data: plm.Data}
	for inner.remaining() > 0 {
		n := int(inner.readUint8())
		lengths, err := packetLengths(inner.bytes(n))
		if inner.err != nil {
			return nil, inner.err
		}
		if err != nil {
			return nil, err
		}
		plm.Lengths = append(plm.Lengths, lengths...)
	}
	return plm, nil
}

func parsePPM(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	ppm := &PPMSegment{Zppm: r.readUint8()}
	ppm.Data = r.rest()
	return ppm, r.err
}

func parsePPT(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	ppt := &PPTSegment{Zppt: r.readUint8()}
	ppt.Data = r.rest()
	return ppt, r.err
}

func parseCRG(r *reader, siz *SIZSegment, warn func(string, ...any)) (Body, error) {
	if r.remaining()%4 != 0 {
		return nil, fmt.Errorf("CRG body of %d bytes does not hold whole entries", r.remaining())
	}
	crg := &CRGSegment{}
	for r.remaining() > 0 {
		crg.Xcrg = append(crg.Xcrg, r.readUint16())
		crg.Ycrg = append(crg.Ycrg, r.readUint16())
	}
	if siz != nil && len(crg.Xcrg) != int(siz.Csiz) {
		warn("CRG segment has %d entries for %d components", len(crg.Xcrg), siz.Csiz)
	}
	return crg, r.err
}

// parseCOM parses the COM marker segment
func parseCOM(r *reader, _ *SIZSegment, warn func(string, ...any)) (Body, error) {
	com := &COMSegment{Rcom: r.readUint16()}
	com.Data = r.rest()
	if r.err != nil {
		return nil, r.err
	}
	if com.Rcom > RcomLatin {
		warn("Unrecognized comment registration value %d", com.Rcom)
	}
	return com, nil
}

// parseSOT parses the SOT marker segment
func parseSOT(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	if len(r.data) != 8 {
		return nil, fmt.Errorf("invalid SOT segment length: %d", len(r.data)+2)
	}
	return &SOTSegment{
		Isot:  r.readUint16(),
		Psot:  r.readUint32(),
		TPsot: r.readUint8(),
		TNsot: r.readUint8(),
	}, nil
}

func parseSOP(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	sop := &SOPSegment{Nsop: r.readUint16()}
	return sop, r.err
}

func parseMCT(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	mct := &MCTSegment{Zmct: r.readUint16()}
	imct := r.readUint16()
	mct.Ymct = r.readUint16()
	mct.Data = r.rest()
	if r.err != nil {
		return nil, r.err
	}
	mct.Index = uint8(imct & 0xFF)
	mct.ArrayType = MCTArrayType((imct >> 8) & 0x3)
	mct.ElementType = MCTElementType((imct >> 10) & 0x3)
	return mct, nil
}

func readComponentList(r *reader) []uint16 {
	n := r.readUint16()
	wide := n&0x8000 != 0
	out := make([]uint16, 0, n&0x7FFF)
	for i := 0; i < int(n&0x7FFF) && r.err == nil; i++ {
		if wide {
			out = append(out, r.readUint16())
		} else {
			out = append(out, uint16(r.readUint8()))
		}
	}
	return out
}

// parseMCC decodes the first component collection; further collections are
// kept in Trailing.
func parseMCC(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	mcc := &MCCSegment{
		Zmcc:  r.readUint16(),
		Index: r.readUint8(),
		Ymcc:  r.readUint16(),
		Qmcc:  r.readUint16(),
	}
	if r.err == nil && mcc.Qmcc == 0 {
		return nil, fmt.Errorf("invalid MCC collection count 0")
	}
	mcc.CollectionType = r.readUint8()
	mcc.ComponentIDs = readComponentList(r)
	mcc.OutputComponentIDs = readComponentList(r)
	t := r.bytes(3)
	if r.err != nil {
		return nil, r.err
	}
	tmcc := uint32(t[0])<<16 | uint32(t[1])<<8 | uint32(t[2])
	mcc.Reversible = (tmcc>>16)&0x1 != 0
	mcc.OffsetIndex = uint8(tmcc >> 8)
	mcc.DecorrelateIndex = uint8(tmcc)
	mcc.Trailing = r.rest()
	return mcc, nil
}

func parseMCO(r *reader, _ *SIZSegment, _ func(string, ...any)) (Body, error) {
	n := int(r.readUint8())
	stages := r.bytes(n)
	if r.err != nil {
		return nil, r.err
	}
	return &MCOSegment{StageIndices: append([]uint8(nil), stages...)}, nil
}
