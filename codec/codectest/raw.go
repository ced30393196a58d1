// Package codectest provides a codec that stores samples uncompressed inside
// a well-formed JPEG 2000 codestream, and helpers for tests that need one.
package codectest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
	"github.com/cocosip/go-jp2k/samples"
)

// Name is the registry name of RawCodec.
const Name = "raw"

var _ codec.Codec = (*RawCodec)(nil)

// RawCodec writes real SIZ, COD, QCD and tile-part structure, with each
// tile's samples stored as big-endian int32 values, interleaved by
// component in row-major order.
type RawCodec struct {
	// Layers is the quality layer count written to COD, 0 means 1. Every
	// layer carries the full samples, so Decode only accepts all of them.
	Layers uint16
}

// New creates a RawCodec
func New() *RawCodec {
	return &RawCodec{}
}

// Name returns the codec name
func (c *RawCodec) Name() string {
	return Name
}

// Encode encodes the image into a codestream
func (c *RawCodec) Encode(params codec.EncodeParams) ([]byte, error) {
	img := params.Image
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", codec.ErrInvalidParameter)
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	precision := img.Precision
	if precision < 1 || precision > 32 {
		return nil, fmt.Errorf("%w: precision %d", codec.ErrUnsupportedFormat, precision)
	}

	rows, cols, comps := img.Rows(), img.Cols(), img.Components()
	tileRows, tileCols := params.Config.TileSize[0], params.Config.TileSize[1]
	if tileRows == 0 {
		tileRows, tileCols = rows, cols
	}
	levels := params.Config.Levels()

	ssiz := uint8(precision - 1)
	if img.Signed {
		ssiz |= 0x80
	}
	siz := &codestream.SIZSegment{
		Xsiz:  uint32(cols),
		Ysiz:  uint32(rows),
		XTsiz: uint32(tileCols),
		YTsiz: uint32(tileRows),
		Csiz:  uint16(comps),
	}
	for i := 0; i < comps; i++ {
		siz.Components = append(siz.Components, codestream.ComponentSize{Ssiz: ssiz, XRsiz: 1, YRsiz: 1})
	}
	xcb, ycb := params.Config.CodeBlockExponents()
	cod := &codestream.CODSegment{
		ProgressionOrder: codestream.LRCP,
		NumberOfLayers:   max(c.Layers, 1),
		CodingStyle: codestream.CodingStyle{
			NumberOfDecompositionLevels: uint8(levels),
			CodeBlockWidth:              xcb,
			CodeBlockHeight:             ycb,
			Transformation:              1,
		},
	}
	// two guard bits, no quantization
	qcd := &codestream.QCDSegment{Quantization: codestream.Quantization{Sqcd: 0x40}}
	for i := 0; i < 3*levels+1; i++ {
		qcd.SPqcd = append(qcd.SPqcd, uint8(min(precision+1, 31))<<3)
	}

	layout, err := region.NewLayout(siz, levels)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	_ = codestream.WriteMarker(buf, codestream.MarkerSOC)
	for _, s := range []struct {
		marker uint16
		body   codestream.Body
	}{
		{codestream.MarkerSIZ, siz},
		{codestream.MarkerCOD, cod},
		{codestream.MarkerQCD, qcd},
	} {
		if err := codestream.WriteSegment(buf, s.marker, s.body); err != nil {
			return nil, err
		}
	}
	for t := 0; t < layout.TileCount(); t++ {
		b := layout.TileBounds(t)
		data := make([]byte, 0, b.Rows()*b.Cols()*comps*4)
		for r := b.Row0; r < b.Row1; r++ {
			for col := b.Col0; col < b.Col1; col++ {
				for k := 0; k < comps; k++ {
					data = binary.BigEndian.AppendUint32(data, uint32(img.At(r, col, k)))
				}
			}
		}
		if err := codestream.WriteTilePart(buf, t, 0, 1, nil, data); err != nil {
			return nil, fmt.Errorf("failed to write tile %d: %w", t, err)
		}
	}
	_ = codestream.WriteMarker(buf, codestream.MarkerEOC)
	return buf.Bytes(), nil
}

// Decode decodes the requested tile or area at the requested reduction.
func (c *RawCodec) Decode(params codec.DecodeParams) (*samples.Samples, error) {
	cs, err := codestream.ParseBytes(params.Codestream, codestream.Options{})
	if err != nil {
		return nil, err
	}
	if cs.SIZ == nil || cs.COD == nil {
		return nil, fmt.Errorf("%w: missing SIZ or COD", codec.ErrUnsupportedFormat)
	}
	layout, err := region.NewLayout(cs.SIZ, cs.Levels())
	if err != nil {
		return nil, fmt.Errorf("cannot decode: %w", err)
	}
	if params.Reduce < 0 || params.Reduce > layout.Levels() {
		return nil, fmt.Errorf("%w: reduce %d with %d levels", codec.ErrInvalidParameter, params.Reduce, layout.Levels())
	}
	if err := params.CheckLayers(int(cs.COD.NumberOfLayers)); err != nil {
		return nil, err
	}

	full, err := c.assemble(cs, params.Codestream, layout)
	if err != nil {
		return nil, err
	}

	want := layout.Bounds()
	switch {
	case params.Tile >= 0:
		if params.Tile >= layout.TileCount() {
			return nil, fmt.Errorf("%w: tile %d", codec.ErrInvalidParameter, params.Tile)
		}
		want = layout.TileBounds(params.Tile)
	case params.Area != nil:
		want = params.Area.Intersect(want)
		if want.Empty() {
			return nil, fmt.Errorf("%w: area %s", codec.ErrInvalidParameter, *params.Area)
		}
	}
	return layout.Extract(full, want, params.Reduce)
}

// assemble rebuilds the full resolution image from the tile-parts.
func (c *RawCodec) assemble(cs *codestream.Codestream, data []byte, layout *region.Layout) (*samples.Samples, error) {
	rows, cols := layout.Size()
	comps := int(cs.SIZ.Csiz)
	full := samples.New(rows, cols, 0)
	if comps > 1 {
		full = samples.New(rows, cols, comps)
	}
	full.Precision = cs.SIZ.Components[0].BitDepth()
	full.Signed = cs.SIZ.Components[0].IsSigned()

	for _, tp := range cs.TileParts {
		b := layout.TileBounds(tp.Tile)
		if b.Empty() {
			return nil, fmt.Errorf("tile-part for unknown tile %d", tp.Tile)
		}
		want := int64(b.Rows() * b.Cols() * comps * 4)
		if tp.DataLength != want {
			return nil, fmt.Errorf("tile %d has %d bytes of data, want %d", tp.Tile, tp.DataLength, want)
		}
		tile := data[tp.DataOffset : tp.DataOffset+tp.DataLength]
		i := 0
		for r := b.Row0; r < b.Row1; r++ {
			for col := b.Col0; col < b.Col1; col++ {
				for k := 0; k < comps; k++ {
					full.Set(r, col, k, int32(binary.BigEndian.Uint32(tile[i:])))
					i += 4
				}
			}
		}
	}
	return full, nil
}
