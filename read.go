package jp2k

import (
	"fmt"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
	"github.com/cocosip/go-jp2k/samples"
)

// Read decodes samples. Without options it returns the whole image at full
// resolution.
//
// Requests that do not fit the image fail with ErrInvalidRequest and codec
// failures with ErrDecode. Neither affects the parsed metadata.
func (j *Jp2k) Read(opts ...ReadOption) (*samples.Samples, error) {
	q := readRequest{Request: region.NewRequest()}
	for _, opt := range opts {
		opt(&q)
	}

	cs, err := j.Codestream(true)
	if err != nil {
		return nil, err
	}
	if cs.SIZ == nil {
		return nil, fmt.Errorf("%w: %s has no SIZ segment", ErrDecode, j.name())
	}
	layout, err := region.NewLayout(cs.SIZ, cs.Levels())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	plan, err := layout.Resolve(q.Request)
	if err != nil {
		return nil, err
	}

	layers := 0
	if q.layerSet {
		n := 1
		if cs.COD != nil {
			n = int(cs.COD.NumberOfLayers)
		}
		if q.layer < 0 || q.layer >= n {
			return nil, fmt.Errorf("%w: layer %d outside [0, %d)", ErrInvalidRequest, q.layer, n)
		}
		layers = q.layer + 1
	}

	c, err := j.opts.resolveCodec()
	if err != nil {
		return nil, err
	}
	data, err := j.codestreamBytes()
	if err != nil {
		return nil, err
	}

	params := codec.DecodeParams{
		Codestream: data,
		Reduce:     plan.Reduce,
		Tile:       plan.Tile,
		Layer:      layers,
	}
	if plan.Tile < 0 {
		params.Area = plan.Decode
	}
	decoded, err := c.Decode(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, c.Name(), err)
	}
	out, err := region.Apply(plan, decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return out, nil
}
