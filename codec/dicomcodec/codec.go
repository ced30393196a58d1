// Package dicomcodec adapts the JPEG 2000 codecs of the go-dicom imaging
// registry to the codec service.
package dicomcodec

import (
	"fmt"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	dcodec "github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
	"github.com/cocosip/go-jp2k/samples"
)

// Name is the registry name of the adapter returned by New.
const Name = "go-dicom"

var _ codec.Codec = (*Codec)(nil)

func init() {
	codec.Register(New(transfer.JPEG2000Lossless))
}

// Codec runs one go-dicom codec on single frame pixel data. The go-dicom
// codec decodes whole frames; tile, area and reduction requests are cut
// from the full resolution result.
type Codec struct {
	name  string
	ts    *transfer.Syntax
	fixed dcodec.Codec
}

// New creates an adapter for whatever codec the go-dicom global registry
// holds for ts at the time of each call.
func New(ts *transfer.Syntax) *Codec {
	return &Codec{name: Name, ts: ts}
}

// Wrap creates an adapter around a specific go-dicom codec
func Wrap(c dcodec.Codec) *Codec {
	return &Codec{name: c.Name(), ts: c.TransferSyntax(), fixed: c}
}

// Name returns the codec name
func (c *Codec) Name() string {
	return c.name
}

func (c *Codec) lookup() (dcodec.Codec, error) {
	if c.fixed != nil {
		return c.fixed, nil
	}
	dc, ok := dcodec.GetGlobalRegistry().GetCodec(c.ts)
	if !ok {
		return nil, fmt.Errorf("%w: no go-dicom codec for transfer syntax %s", codec.ErrCodecNotFound, c.ts.UID().UID())
	}
	return dc, nil
}

// Decode decodes the requested tile or area at the requested reduction.
func (c *Codec) Decode(params codec.DecodeParams) (*samples.Samples, error) {
	dc, err := c.lookup()
	if err != nil {
		return nil, err
	}
	cs, err := codestream.ParseBytes(params.Codestream, codestream.Options{HeaderOnly: true})
	if err != nil {
		return nil, err
	}
	if cs.SIZ == nil || len(cs.SIZ.Components) == 0 {
		return nil, fmt.Errorf("%w: missing SIZ", codec.ErrUnsupportedFormat)
	}
	layers := 1
	if cs.COD != nil {
		layers = int(cs.COD.NumberOfLayers)
	}
	if err := params.CheckLayers(layers); err != nil {
		return nil, err
	}
	layout, err := region.NewLayout(cs.SIZ, cs.Levels())
	if err != nil {
		return nil, fmt.Errorf("cannot decode: %w", err)
	}
	if params.Reduce < 0 || params.Reduce > layout.Levels() {
		return nil, fmt.Errorf("%w: reduce %d with %d levels", codec.ErrInvalidParameter, params.Reduce, layout.Levels())
	}

	rows, cols := layout.Size()
	comp := cs.SIZ.Components[0]
	info, err := frameInfo(rows, cols, int(cs.SIZ.Csiz), comp.BitDepth(), comp.IsSigned())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrUnsupportedFormat, err)
	}

	src := newFrameBuffer(info, true)
	if err := src.AddFrame(params.Codestream); err != nil {
		return nil, fmt.Errorf("failed to add codestream frame: %w", err)
	}
	dst := newFrameBuffer(info, false)
	if err := dc.Decode(src, dst, nil); err != nil {
		return nil, fmt.Errorf("%s decode failed: %w", dc.Name(), err)
	}
	frame, err := dst.GetFrame(0)
	if err != nil {
		return nil, fmt.Errorf("%s produced no frame: %w", dc.Name(), err)
	}
	full, err := unpackFrame(frame, info)
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

// Encode encodes the image with the go-dicom codec
func (c *Codec) Encode(params codec.EncodeParams) ([]byte, error) {
	dc, err := c.lookup()
	if err != nil {
		return nil, err
	}
	img := params.Image
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: empty image", codec.ErrInvalidParameter)
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	info, err := frameInfo(img.Rows(), img.Cols(), img.Components(), img.Precision, img.Signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrUnsupportedFormat, err)
	}

	dcParams := dc.GetDefaultParameters()
	NewParameters(params.Config).apply(dcParams)

	src := newFrameBuffer(info, false)
	if err := src.AddFrame(packFrame(img, info)); err != nil {
		return nil, fmt.Errorf("failed to add pixel frame: %w", err)
	}
	dst := newFrameBuffer(info, true)
	if err := dc.Encode(src, dst, dcParams); err != nil {
		return nil, fmt.Errorf("%s encode failed: %w", dc.Name(), err)
	}
	frame, err := dst.GetFrame(0)
	if err != nil {
		return nil, fmt.Errorf("%s produced no frame: %w", dc.Name(), err)
	}
	return frame, nil
}
