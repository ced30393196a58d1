package codestream

import "golang.org/x/exp/constraints"

// Codestream is a parsed JPEG 2000 codestream: the ordered list of marker
// segments plus shortcuts to the main header parameters.
type Codestream struct {
	Offset int64 // offset of SOC in the file
	Length int64 // size of the codestream scope

	Segments []*Segment

	// Main header
	SIZ *SIZSegment
	COD *CODSegment
	QCD *QCDSegment
	COC map[uint16]*COCSegment
	QCC map[uint16]*QCCSegment
	COM []*COMSegment

	TileParts []*TilePart

	// HeaderOnly is set when parsing stopped at the end of the main header.
	HeaderOnly bool
}

// TilePart locates one tile-part. Segments holds its SOT, the tile-part
// header segments and SOD.
type TilePart struct {
	Tile     int
	Part     int
	NumParts int

	Offset int64 // offset of SOT
	Length int64 // Psot, resolved when the tile-part runs to EOC

	DataOffset int64
	DataLength int64

	Segments []*Segment
}

// record keeps main header shortcuts. The first occurrence wins.
func (cs *Codestream) record(seg *Segment) {
	switch b := seg.Body.(type) {
	case *SIZSegment:
		if cs.SIZ == nil {
			cs.SIZ = b
		}
	case *CODSegment:
		if cs.COD == nil {
			cs.COD = b
		}
	case *QCDSegment:
		if cs.QCD == nil {
			cs.QCD = b
		}
	case *COCSegment:
		if _, ok := cs.COC[b.Component]; !ok {
			cs.COC[b.Component] = b
		}
	case *QCCSegment:
		if _, ok := cs.QCC[b.Component]; !ok {
			cs.QCC[b.Component] = b
		}
	case *COMSegment:
		cs.COM = append(cs.COM, b)
	}
}

// MainHeader returns the segments preceding the first tile-part.
func (cs *Codestream) MainHeader() []*Segment {
	for i, seg := range cs.Segments {
		if seg.Marker == MarkerSOT || seg.Marker == MarkerEOC {
			return cs.Segments[:i]
		}
	}
	return cs.Segments
}

// Find returns the first segment with the given marker, or nil.
func (cs *Codestream) Find(marker uint16) *Segment {
	for _, seg := range cs.Segments {
		if seg.Marker == marker {
			return seg
		}
	}
	return nil
}

// FindAll returns every segment with the given marker.
func (cs *Codestream) FindAll(marker uint16) []*Segment {
	var out []*Segment
	for _, seg := range cs.Segments {
		if seg.Marker == marker {
			out = append(out, seg)
		}
	}
	return out
}

// TileCount returns the number of tiles, or 0 when SIZ is missing or the
// tile grid is invalid.
func (cs *Codestream) TileCount() int {
	x, y := cs.NumTilesXY()
	return x * y
}

// NumTilesXY returns the tile grid dimensions.
func (cs *Codestream) NumTilesXY() (x, y int) {
	if cs.SIZ == nil {
		return 0, 0
	}
	return cs.SIZ.NumTiles()
}

// Levels returns the number of decomposition levels available to every
// component: the minimum over COD and the main header COC segments.
func (cs *Codestream) Levels() int {
	if cs.COD == nil {
		return 0
	}
	levels := int(cs.COD.NumberOfDecompositionLevels)
	for _, coc := range cs.COC {
		levels = min(levels, int(coc.NumberOfDecompositionLevels))
	}
	return levels
}

// HasUniformSubsampling reports whether all components share one
// subsampling factor.
func (cs *Codestream) HasUniformSubsampling() bool {
	if cs.SIZ == nil || len(cs.SIZ.Components) == 0 {
		return true
	}
	first := cs.SIZ.Components[0]
	for _, c := range cs.SIZ.Components[1:] {
		if c.XRsiz != first.XRsiz || c.YRsiz != first.YRsiz {
			return false
		}
	}
	return true
}

func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}
