package region

import (
	"errors"
	"fmt"

	"github.com/cocosip/go-jp2k/samples"
)

var (
	// ErrInvalidRequest is returned for read requests that do not fit the image.
	ErrInvalidRequest = errors.New("invalid read request")

	// ErrInvalidGeometry is returned when the image geometry cannot be
	// tiled or subsampled.
	ErrInvalidGeometry = errors.New("invalid image geometry")
)

// Request describes a read: whole image, one tile, or an area, optionally
// reduced or strided.
type Request struct {
	Reduce int   // resolution reduction; -1 means the lowest resolution
	Tile   int   // tile index, -1 for none
	Area   *Area // full resolution area, nil for the whole image

	RowStep int // 0 or 1 means every row
	ColStep int
}

// NewRequest returns a request for the whole image at full resolution.
func NewRequest() Request {
	return Request{Tile: -1}
}

// Plan is a resolved request: what to ask the codec for and how to cut
// its output.
type Plan struct {
	Reduce int
	Tile   int   // -1 when not a tile read
	Tiles  []int // tiles touched by the read

	// Decode is the full resolution area handed to the codec, nil for the
	// whole image.
	Decode *Area

	// Crop selects the result from the decoded samples, in reduced
	// coordinates relative to Decode.
	Crop      Area
	RowStride int
	ColStride int

	Rows int
	Cols int
}

// Resolve validates a request against the layout and plans it.
func (l *Layout) Resolve(req Request) (*Plan, error) {
	if !l.uniform {
		return nil, fmt.Errorf("%w: components have differing subsampling", ErrInvalidRequest)
	}

	rowStep, colStep := max(req.RowStep, 1), max(req.ColStep, 1)
	if req.RowStep < 0 || req.ColStep < 0 {
		return nil, fmt.Errorf("%w: negative step (%d, %d)", ErrInvalidRequest, req.RowStep, req.ColStep)
	}
	strided := rowStep > 1 || colStep > 1
	if strided && req.Reduce != 0 {
		return nil, fmt.Errorf("%w: reduce and step cannot be combined", ErrInvalidRequest)
	}
	if req.Tile >= 0 && req.Area != nil {
		return nil, fmt.Errorf("%w: tile and area cannot be combined", ErrInvalidRequest)
	}

	reduce := req.Reduce
	if reduce == -1 {
		reduce = l.levels
	}
	if reduce < 0 || reduce > l.levels {
		return nil, fmt.Errorf("%w: reduce %d outside [0, %d]", ErrInvalidRequest, req.Reduce, l.levels)
	}

	plan := &Plan{Tile: -1, RowStride: 1, ColStride: 1}
	want := l.Bounds()

	switch {
	case req.Tile >= 0 || req.Tile < -1:
		if req.Tile >= l.TileCount() || req.Tile < 0 {
			return nil, fmt.Errorf("%w: tile %d outside [0, %d)", ErrInvalidRequest, req.Tile, l.TileCount())
		}
		want = l.TileBounds(req.Tile)
		plan.Tile = req.Tile
		plan.Tiles = []int{req.Tile}
		decode := want
		plan.Decode = &decode

	case req.Area != nil:
		a := *req.Area
		if a.Row0 < 0 || a.Col0 < 0 || a.Row1 <= a.Row0 || a.Col1 <= a.Col0 {
			return nil, fmt.Errorf("%w: area %s", ErrInvalidRequest, a)
		}
		want = a.Intersect(l.Bounds())
		if want.Empty() {
			return nil, fmt.Errorf("%w: area %s outside image %s", ErrInvalidRequest, a, l.Bounds())
		}
		plan.Tiles = l.TilesIntersecting(want)
		decode := l.TileBounds(plan.Tiles[0])
		for _, t := range plan.Tiles[1:] {
			decode = decode.Union(l.TileBounds(t))
		}
		plan.Decode = &decode

	default:
		plan.Tiles = make([]int, l.TileCount())
		for i := range plan.Tiles {
			plan.Tiles[i] = i
		}
	}

	if strided {
		// Let the codec do the power of two part of the stride. Reduced
		// samples sit on multiples of 2^k of the component grid, so the
		// start is aligned including the image origin.
		originRow, originCol := l.Origin()
		reduce = strideReduction(rowStep, colStep, originRow+want.Row0, originCol+want.Col0, l.levels)
		rowStep >>= reduce
		colStep >>= reduce
	}
	plan.Reduce = reduce
	plan.RowStride, plan.ColStride = rowStep, colStep

	origin := Area{}
	if plan.Decode != nil {
		origin = *plan.Decode
	}
	reducedWant := l.ReducedArea(want, reduce)
	reducedOrigin := l.ReducedArea(origin, reduce)
	plan.Crop = Area{
		Row0: reducedWant.Row0 - reducedOrigin.Row0,
		Col0: reducedWant.Col0 - reducedOrigin.Col0,
		Row1: reducedWant.Row1 - reducedOrigin.Row0,
		Col1: reducedWant.Col1 - reducedOrigin.Col0,
	}
	plan.Rows = ceilDiv(plan.Crop.Rows(), rowStep)
	plan.Cols = ceilDiv(plan.Crop.Cols(), colStep)
	return plan, nil
}

// strideReduction returns the largest k <= levels such that 2^k divides
// both steps and both start coordinates on the component grid.
func strideReduction(rowStep, colStep, row0, col0, levels int) int {
	k := 0
	for k < levels {
		m := 1 << (k + 1)
		if rowStep%m != 0 || colStep%m != 0 || row0%m != 0 || col0%m != 0 {
			break
		}
		k++
	}
	return k
}

// Apply cuts the planned result out of the samples the codec decoded.
func Apply(plan *Plan, decoded *samples.Samples) (*samples.Samples, error) {
	if decoded == nil {
		return nil, fmt.Errorf("%w: no decoded samples", samples.ErrShape)
	}
	c := plan.Crop
	if c.Row0 == 0 && c.Col0 == 0 && c.Row1 == decoded.Rows() && c.Col1 == decoded.Cols() &&
		plan.RowStride == 1 && plan.ColStride == 1 {
		return decoded, nil
	}
	out, err := decoded.Crop(c.Row0, c.Col0, c.Row1, c.Col1, plan.RowStride, plan.ColStride)
	if err != nil {
		return nil, fmt.Errorf("apply %s to %dx%d decode: %w", c, decoded.Rows(), decoded.Cols(), err)
	}
	return out, nil
}

// Extract returns area a of a full resolution image at reduction r, taking
// each reduced sample from the full resolution grid position it maps to.
// Codecs that can only decode whole images use it to honour area, tile and
// reduction requests.
func (l *Layout) Extract(full *samples.Samples, a Area, r int) (*samples.Samples, error) {
	rows, cols := l.Size()
	if full.Rows() != rows || full.Cols() != cols {
		return nil, fmt.Errorf("%w: image is %dx%d, layout is %dx%d", samples.ErrShape, full.Rows(), full.Cols(), rows, cols)
	}
	a = a.Intersect(l.Bounds())
	if r == 0 {
		return full.Crop(a.Row0, a.Col0, a.Row1, a.Col1, 1, 1)
	}

	reduced := l.ReducedArea(a, r)
	originRow, originCol := l.Origin()
	f := 1 << r
	baseRow, baseCol := ceilDiv(originRow, f), ceilDiv(originCol, f)

	comps := full.Components()
	out := samples.New(reduced.Rows(), reduced.Cols(), 0)
	if full.Dims() == 3 {
		out = samples.New(reduced.Rows(), reduced.Cols(), comps)
	}
	out.Precision, out.Signed = full.Precision, full.Signed
	for u := 0; u < reduced.Rows(); u++ {
		row := (baseRow+reduced.Row0+u)*f - originRow
		for v := 0; v < reduced.Cols(); v++ {
			col := (baseCol+reduced.Col0+v)*f - originCol
			for k := 0; k < comps; k++ {
				out.Set(u, v, k, full.At(row, col, k))
			}
		}
	}
	return out, nil
}
