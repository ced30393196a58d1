package region

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
)

// Area is a half-open rectangle [Row0, Row1) x [Col0, Col1) in image-local
// full resolution coordinates.
type Area struct {
	Row0, Col0 int
	Row1, Col1 int
}

// Rows returns the height of the area.
func (a Area) Rows() int { return a.Row1 - a.Row0 }

// Cols returns the width of the area.
func (a Area) Cols() int { return a.Col1 - a.Col0 }

// Empty reports whether the area has no samples.
func (a Area) Empty() bool { return a.Row1 <= a.Row0 || a.Col1 <= a.Col0 }

// Intersect returns the overlap of two areas.
func (a Area) Intersect(b Area) Area {
	return Area{
		Row0: max(a.Row0, b.Row0),
		Col0: max(a.Col0, b.Col0),
		Row1: min(a.Row1, b.Row1),
		Col1: min(a.Col1, b.Col1),
	}
}

// Union returns the smallest area covering both.
func (a Area) Union(b Area) Area {
	return Area{
		Row0: min(a.Row0, b.Row0),
		Col0: min(a.Col0, b.Col0),
		Row1: max(a.Row1, b.Row1),
		Col1: max(a.Col1, b.Col1),
	}
}

func (a Area) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", a.Row0, a.Row1, a.Col0, a.Col1)
}

// Layout represents the tile grid of an image, in the coordinates of its
// (uniformly subsampled) components.
type Layout struct {
	// Image on the reference grid
	imageX0 int
	imageY0 int
	imageX1 int
	imageY1 int

	// Tile dimensions
	tileWidth  int
	tileHeight int

	// Tile grid
	numTilesX int
	numTilesY int

	// Tile offsets
	tileOffsetX int
	tileOffsetY int

	// Subsampling of the first component
	dx int
	dy int

	levels  int
	uniform bool
}

// NewLayout creates a layout from a SIZ segment and the number of
// decomposition levels shared by all components.
func NewLayout(siz *codestream.SIZSegment, levels int) (*Layout, error) {
	if siz == nil {
		return nil, fmt.Errorf("%w: missing SIZ segment", ErrInvalidGeometry)
	}
	if siz.XTsiz == 0 || siz.YTsiz == 0 {
		return nil, fmt.Errorf("%w: tile size (%d, %d)", ErrInvalidGeometry, siz.XTsiz, siz.YTsiz)
	}
	if len(siz.Components) == 0 {
		return nil, fmt.Errorf("%w: no components", ErrInvalidGeometry)
	}
	l := &Layout{
		imageX0:     int(siz.XOsiz),
		imageY0:     int(siz.YOsiz),
		imageX1:     int(siz.Xsiz),
		imageY1:     int(siz.Ysiz),
		tileWidth:   int(siz.XTsiz),
		tileHeight:  int(siz.YTsiz),
		tileOffsetX: int(siz.XTOsiz),
		tileOffsetY: int(siz.YTOsiz),
		dx:          int(siz.Components[0].XRsiz),
		dy:          int(siz.Components[0].YRsiz),
		levels:      levels,
		uniform:     true,
	}
	for i, c := range siz.Components {
		if c.XRsiz == 0 || c.YRsiz == 0 {
			return nil, fmt.Errorf("%w: component %d subsampling (%d, %d)", ErrInvalidGeometry, i, c.XRsiz, c.YRsiz)
		}
		if int(c.XRsiz) != l.dx || int(c.YRsiz) != l.dy {
			l.uniform = false
		}
	}
	if l.imageX1 <= l.imageX0 || l.imageY1 <= l.imageY0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidGeometry)
	}
	if l.tileOffsetX > l.imageX0 || l.tileOffsetY > l.imageY0 {
		return nil, fmt.Errorf("%w: tile offset (%d, %d) past image offset", ErrInvalidGeometry, l.tileOffsetX, l.tileOffsetY)
	}

	// Calculate number of tiles
	l.numTilesX = ceilDiv(l.imageX1-l.tileOffsetX, l.tileWidth)
	l.numTilesY = ceilDiv(l.imageY1-l.tileOffsetY, l.tileHeight)

	return l, nil
}

// TileCount returns the total number of tiles
func (l *Layout) TileCount() int {
	return l.numTilesX * l.numTilesY
}

// TilesXY returns the tile grid dimensions.
func (l *Layout) TilesXY() (x, y int) {
	return l.numTilesX, l.numTilesY
}

// Levels returns the number of decomposition levels.
func (l *Layout) Levels() int { return l.levels }

// Uniform reports whether every component shares one subsampling factor.
func (l *Layout) Uniform() bool { return l.uniform }

// Origin returns the image origin on the component grid.
func (l *Layout) Origin() (row, col int) {
	return ceilDiv(l.imageY0, l.dy), ceilDiv(l.imageX0, l.dx)
}

// Size returns the full resolution image size.
func (l *Layout) Size() (rows, cols int) {
	return l.ReducedSize(0)
}

// ReducedSize returns the image size at reduction r.
func (l *Layout) ReducedSize(r int) (rows, cols int) {
	fy, fx := l.dy<<r, l.dx<<r
	rows = ceilDiv(l.imageY1, fy) - ceilDiv(l.imageY0, fy)
	cols = ceilDiv(l.imageX1, fx) - ceilDiv(l.imageX0, fx)
	return
}

// Bounds returns the whole image as an area.
func (l *Layout) Bounds() Area {
	rows, cols := l.Size()
	return Area{Row1: rows, Col1: cols}
}

// TileBounds returns the bounds of a tile in image-local coordinates. The
// bounds are empty when the index is out of range.
func (l *Layout) TileBounds(tileIdx int) Area {
	if tileIdx < 0 || tileIdx >= l.TileCount() {
		return Area{}
	}

	// Calculate tile grid position
	tileX := tileIdx % l.numTilesX
	tileY := tileIdx / l.numTilesX

	// Clip to image bounds
	gridX0 := max(tileX*l.tileWidth+l.tileOffsetX, l.imageX0)
	gridY0 := max(tileY*l.tileHeight+l.tileOffsetY, l.imageY0)
	gridX1 := min(tileX*l.tileWidth+l.tileOffsetX+l.tileWidth, l.imageX1)
	gridY1 := min(tileY*l.tileHeight+l.tileOffsetY+l.tileHeight, l.imageY1)

	originRow, originCol := l.Origin()
	return Area{
		Row0: ceilDiv(gridY0, l.dy) - originRow,
		Col0: ceilDiv(gridX0, l.dx) - originCol,
		Row1: ceilDiv(gridY1, l.dy) - originRow,
		Col1: ceilDiv(gridX1, l.dx) - originCol,
	}
}

// TilesIntersecting returns the indices of the tiles overlapping the area,
// in raster order.
func (l *Layout) TilesIntersecting(a Area) []int {
	var tiles []int
	for t := 0; t < l.TileCount(); t++ {
		if !l.TileBounds(t).Intersect(a).Empty() {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// ReducedSpan maps the full resolution span [lo, hi) of an image whose
// origin lies at origin to image-local coordinates at reduction r.
func ReducedSpan(lo, hi, origin, r int) (int, int) {
	f := 1 << r
	base := ceilDiv(origin, f)
	return ceilDiv(origin+lo, f) - base, ceilDiv(origin+hi, f) - base
}

// ReducedArea maps a full resolution area to reduction r.
func (l *Layout) ReducedArea(a Area, r int) Area {
	originRow, originCol := l.Origin()
	row0, row1 := ReducedSpan(a.Row0, a.Row1, originRow, r)
	col0, col1 := ReducedSpan(a.Col0, a.Col1, originCol, r)
	return Area{Row0: row0, Col0: col0, Row1: row1, Col1: col1}
}

func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}
