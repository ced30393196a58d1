package jp2k

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/box"
	"github.com/cocosip/go-jp2k/samples"
)

// Write encodes img to path and opens the result. The extension selects
// the layout: .jp2 and .jpx get a box container, .j2k, .j2c and .jpc a raw
// codestream.
//
// img must be 2D (one component) or 3D (rows, cols, components). An empty
// colorspace means greyscale for one or two components and sRGB for three
// or more, with any extra components kept.
func Write(path string, img *samples.Samples, cfg WriteConfig, opts ...Option) (*Jp2k, error) {
	container, err := containerFor(path)
	if err != nil {
		return nil, err
	}
	if img == nil || (img.Dims() != 2 && img.Dims() != 3) {
		dims := 0
		if img != nil {
			dims = img.Dims()
		}
		return nil, fmt.Errorf("%w: image must be 2D or 3D, got %d dimensions", ErrInvalidRequest, dims)
	}
	if img.Rows() == 0 || img.Cols() == 0 || img.Components() == 0 {
		return nil, fmt.Errorf("%w: empty image %s", ErrInvalidRequest, img)
	}
	if img.Precision < 1 || img.Precision > 38 {
		return nil, fmt.Errorf("%w: precision %d outside [1, 38]", ErrInvalidRequest, img.Precision)
	}
	if !container && cfg.Colorspace != "" {
		return nil, fmt.Errorf("%w: cannot specify a colorspace for a raw codestream", ErrInvalidRequest)
	}
	colour, err := colourSpaceFor(cfg.Colorspace, img.Components())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	c, err := o.resolveCodec()
	if err != nil {
		return nil, err
	}
	data, err := c.Encode(codec.EncodeParams{Image: img, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, c.Name(), err)
	}

	if err := writeFile(path, img, colour, container, data); err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

func containerFor(path string) (bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jp2", ".jpx":
		return true, nil
	case ".j2k", ".j2c", ".jpc":
		return false, nil
	}
	return false, fmt.Errorf("%w: unrecognized file extension %q", ErrInvalidRequest, filepath.Ext(path))
}

func colourSpaceFor(name string, comps int) (box.ColourSpace, error) {
	switch strings.ToLower(name) {
	case "":
		if comps >= 3 {
			return box.ColourSRGB, nil
		}
		return box.ColourGreyscale, nil
	case "rgb", "srgb":
		if comps < 3 {
			return 0, fmt.Errorf("%w: rgb needs at least 3 components, image has %d", ErrInvalidRequest, comps)
		}
		return box.ColourSRGB, nil
	case "gray", "grey":
		return box.ColourGreyscale, nil
	}
	return 0, fmt.Errorf("%w: unsupported colorspace %q", ErrInvalidRequest, name)
}

// newBoxTree builds signature, ftyp, jp2h{ihdr, colr} and jp2c.
func newBoxTree(img *samples.Samples, colour box.ColourSpace, data []byte) []*box.Box {
	bpc := uint8(img.Precision - 1)
	if img.Signed {
		bpc |= 0x80
	}
	return []*box.Box{
		box.New(&box.SignatureBox{Data: box.Signature}),
		box.New(&box.FileType{
			Brand:         box.TypeOf("jp2"),
			Compatibility: []box.Type{box.TypeOf("jp2")},
		}),
		box.NewSuper(box.TypeHeader,
			box.New(&box.ImageHeader{
				Height:        uint32(img.Rows()),
				Width:         uint32(img.Cols()),
				NumComponents: uint16(img.Components()),
				BPC:           bpc,
				Compression:   7,
			}),
			box.New(&box.ColourSpecification{
				Method:      box.MethodEnumerated,
				ColourSpace: colour,
			}),
		),
		box.New(&box.ContiguousCodestream{Data: data}),
	}
}

func writeFile(path string, img *samples.Samples, colour box.ColourSpace, container bool, data []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if !container {
		_, err = f.Write(data)
		return err
	}
	boxes := newBoxTree(img, colour, data)
	if _, err := box.Layout(boxes, 0); err != nil {
		return err
	}
	return box.Write(f, boxes, nil)
}
