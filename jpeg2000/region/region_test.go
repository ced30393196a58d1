package region

import (
	"errors"
	"testing"

	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
	"github.com/cocosip/go-jp2k/samples"
)

func testSIZ(width, height, tileWidth, tileHeight uint32, subsampling ...uint8) *codestream.SIZSegment {
	if len(subsampling) == 0 {
		subsampling = []uint8{1}
	}
	siz := &codestream.SIZSegment{
		Xsiz:  width,
		Ysiz:  height,
		XTsiz: tileWidth,
		YTsiz: tileHeight,
		Csiz:  uint16(len(subsampling)),
	}
	for _, s := range subsampling {
		siz.Components = append(siz.Components, codestream.ComponentSize{Ssiz: 7, XRsiz: s, YRsiz: s})
	}
	return siz
}

// testLayout is 300 rows by 500 columns in 128x128 tiles (4x3 grid) with
// three decomposition levels.
func testLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout(testSIZ(500, 300, 128, 128), 3)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	return l
}

// TestTileLayout tests tile layout calculations
func TestTileLayout(t *testing.T) {
	tests := []struct {
		name        string
		imageWidth  uint32
		imageHeight uint32
		tileWidth   uint32
		tileHeight  uint32
		wantTilesX  int
		wantTilesY  int
	}{
		{"Single tile", 256, 256, 256, 256, 1, 1},
		{"2x2 tiles", 512, 512, 256, 256, 2, 2},
		{"3x2 tiles", 600, 400, 256, 256, 3, 2},
		{"Non-aligned tiles", 500, 300, 256, 256, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := NewLayout(testSIZ(tt.imageWidth, tt.imageHeight, tt.tileWidth, tt.tileHeight), 5)
			if err != nil {
				t.Fatalf("NewLayout failed: %v", err)
			}
			x, y := layout.TilesXY()
			if x != tt.wantTilesX || y != tt.wantTilesY {
				t.Errorf("tiles: got %dx%d, want %dx%d", x, y, tt.wantTilesX, tt.wantTilesY)
			}
			if layout.TileCount() != tt.wantTilesX*tt.wantTilesY {
				t.Errorf("TileCount: got %d, want %d", layout.TileCount(), tt.wantTilesX*tt.wantTilesY)
			}
		})
	}
}

// TestTileBounds tests tile boundary calculations, including edge tiles
func TestTileBounds(t *testing.T) {
	layout := testLayout(t)

	tests := []struct {
		name    string
		tileIdx int
		want    Area
	}{
		{"Tile 0 (top-left)", 0, Area{0, 0, 128, 128}},
		{"Tile 3 (right edge)", 3, Area{0, 384, 128, 500}},
		{"Tile 5", 5, Area{128, 128, 256, 256}},
		{"Tile 11 (bottom-right)", 11, Area{256, 384, 300, 500}},
		{"Out of range", 12, Area{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := layout.TileBounds(tt.tileIdx); got != tt.want {
				t.Errorf("Bounds: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTileBoundsWithOffsets(t *testing.T) {
	siz := testSIZ(100, 100, 64, 64)
	siz.XOsiz, siz.YOsiz = 10, 20
	layout, err := NewLayout(siz, 2)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if rows, cols := layout.Size(); rows != 80 || cols != 90 {
		t.Errorf("Size = %dx%d, want 80x90", rows, cols)
	}
	if got, want := layout.TileBounds(0), (Area{0, 0, 44, 54}); got != want {
		t.Errorf("tile 0 = %s, want %s", got, want)
	}
	if got, want := layout.TileBounds(3), (Area{44, 54, 80, 90}); got != want {
		t.Errorf("tile 3 = %s, want %s", got, want)
	}
}

func TestNewLayoutGeometryErrors(t *testing.T) {
	tests := []struct {
		name string
		siz  *codestream.SIZSegment
	}{
		{"nil SIZ", nil},
		{"zero tile size", testSIZ(100, 100, 0, 64)},
		{"zero subsampling", testSIZ(100, 100, 64, 64, 1, 0)},
		{"empty image", testSIZ(0, 100, 64, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.siz, 3)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("err = %v, want ErrInvalidGeometry", err)
			}
		})
	}
}

func TestSubsampledSize(t *testing.T) {
	layout, err := NewLayout(testSIZ(501, 300, 128, 128, 2, 2, 2), 3)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if rows, cols := layout.Size(); rows != 150 || cols != 251 {
		t.Errorf("Size = %dx%d, want 150x251", rows, cols)
	}
	if rows, cols := layout.ReducedSize(1); rows != 75 || cols != 126 {
		t.Errorf("ReducedSize(1) = %dx%d, want 75x126", rows, cols)
	}
}

func TestResolveReduce(t *testing.T) {
	layout := testLayout(t)

	tests := []struct {
		reduce     int
		wantReduce int
		rows, cols int
	}{
		{0, 0, 300, 500},
		{1, 1, 150, 250},
		{3, 3, 38, 63},
		{-1, 3, 38, 63},
	}
	for _, tt := range tests {
		req := NewRequest()
		req.Reduce = tt.reduce
		plan, err := layout.Resolve(req)
		if err != nil {
			t.Fatalf("Resolve(reduce=%d) failed: %v", tt.reduce, err)
		}
		if plan.Reduce != tt.wantReduce || plan.Rows != tt.rows || plan.Cols != tt.cols {
			t.Errorf("reduce=%d: plan = %+v", tt.reduce, plan)
		}
		if plan.Decode != nil || len(plan.Tiles) != 12 {
			t.Errorf("reduce=%d: whole image read planned as %v / %v", tt.reduce, plan.Decode, plan.Tiles)
		}
	}

	for _, r := range []int{4, -2} {
		req := NewRequest()
		req.Reduce = r
		if _, err := layout.Resolve(req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("reduce=%d: err = %v, want ErrInvalidRequest", r, err)
		}
	}
}

func TestResolveArea(t *testing.T) {
	layout := testLayout(t)

	req := NewRequest()
	req.Area = &Area{Row0: 10, Col0: 20, Row1: 200, Col1: 300}
	plan, err := layout.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	wantTiles := []int{0, 1, 2, 4, 5, 6}
	if len(plan.Tiles) != len(wantTiles) {
		t.Fatalf("Tiles = %v, want %v", plan.Tiles, wantTiles)
	}
	for i := range wantTiles {
		if plan.Tiles[i] != wantTiles[i] {
			t.Errorf("Tiles = %v, want %v", plan.Tiles, wantTiles)
			break
		}
	}
	if *plan.Decode != (Area{0, 0, 256, 384}) {
		t.Errorf("Decode = %s", plan.Decode)
	}
	if plan.Crop != (Area{10, 20, 200, 300}) || plan.Rows != 190 || plan.Cols != 280 {
		t.Errorf("Crop = %s, shape %dx%d", plan.Crop, plan.Rows, plan.Cols)
	}

	req.Reduce = 2
	plan, err = layout.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if plan.Crop != (Area{3, 5, 50, 75}) || plan.Rows != 47 || plan.Cols != 70 {
		t.Errorf("reduced Crop = %s, shape %dx%d", plan.Crop, plan.Rows, plan.Cols)
	}
}

func TestResolveAreaIsClipped(t *testing.T) {
	layout := testLayout(t)
	req := NewRequest()
	req.Area = &Area{Row0: 250, Col0: 450, Row1: 400, Col1: 600}
	plan, err := layout.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(plan.Tiles) != 2 || plan.Tiles[0] != 7 || plan.Tiles[1] != 11 {
		t.Errorf("Tiles = %v, want [7 11]", plan.Tiles)
	}
	if *plan.Decode != (Area{128, 384, 300, 500}) {
		t.Errorf("Decode = %s", plan.Decode)
	}
	if plan.Rows != 50 || plan.Cols != 50 {
		t.Errorf("shape = %dx%d, want 50x50", plan.Rows, plan.Cols)
	}
	if plan.Crop != (Area{122, 66, 172, 116}) {
		t.Errorf("Crop = %s", plan.Crop)
	}
}

func TestResolveInvalidRequests(t *testing.T) {
	layout := testLayout(t)
	tile := func(n int) Request { r := NewRequest(); r.Tile = n; return r }
	area := func(a Area) Request { r := NewRequest(); r.Area = &a; return r }

	tests := []struct {
		name string
		req  Request
	}{
		{"tile out of range", tile(12)},
		{"negative tile", tile(-3)},
		{"negative area origin", area(Area{-1, 0, 10, 10})},
		{"empty area", area(Area{10, 10, 10, 20})},
		{"inverted area", area(Area{10, 20, 5, 30})},
		{"area outside image", area(Area{300, 0, 310, 10})},
		{"tile and area", func() Request { r := area(Area{0, 0, 10, 10}); r.Tile = 0; return r }()},
		{"reduce and step", Request{Tile: -1, Reduce: 1, RowStep: 2, ColStep: 2}},
		{"negative step", Request{Tile: -1, RowStep: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := layout.Resolve(tt.req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestResolveTileMatchesArea(t *testing.T) {
	layout := testLayout(t)

	byTile, err := layout.Resolve(Request{Tile: 7})
	if err != nil {
		t.Fatalf("Resolve(tile) failed: %v", err)
	}
	bounds := layout.TileBounds(7)
	if bounds != (Area{128, 384, 256, 500}) {
		t.Fatalf("tile 7 bounds = %s", bounds)
	}
	byArea, err := layout.Resolve(Request{Tile: -1, Area: &bounds})
	if err != nil {
		t.Fatalf("Resolve(area) failed: %v", err)
	}
	if byTile.Rows != byArea.Rows || byTile.Cols != byArea.Cols || *byTile.Decode != *byArea.Decode {
		t.Errorf("tile plan %+v differs from area plan %+v", byTile, byArea)
	}
	if byTile.Tile != 7 || byArea.Tile != -1 {
		t.Errorf("Tile = %d / %d", byTile.Tile, byArea.Tile)
	}
}

func TestResolveStrided(t *testing.T) {
	layout := testLayout(t)

	tests := []struct {
		name                 string
		area                 *Area
		rowStep, colStep     int
		reduce               int
		rowStride, colStride int
		rows, cols           int
	}{
		{"powers of two", nil, 4, 4, 2, 1, 1, 75, 125},
		{"mixed", nil, 8, 2, 1, 4, 1, 38, 250},
		{"capped by levels", nil, 16, 16, 3, 2, 2, 19, 32},
		{"odd", nil, 3, 3, 0, 3, 3, 100, 167},
		{"odd origin", &Area{Row0: 1, Col0: 0, Row1: 300, Col1: 500}, 2, 2, 0, 2, 2, 150, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := layout.Resolve(Request{Tile: -1, Area: tt.area, RowStep: tt.rowStep, ColStep: tt.colStep})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if plan.Reduce != tt.reduce || plan.RowStride != tt.rowStride || plan.ColStride != tt.colStride {
				t.Errorf("reduce %d stride (%d, %d), want %d (%d, %d)",
					plan.Reduce, plan.RowStride, plan.ColStride, tt.reduce, tt.rowStride, tt.colStride)
			}
			if plan.Rows != tt.rows || plan.Cols != tt.cols {
				t.Errorf("shape = %dx%d, want %dx%d", plan.Rows, plan.Cols, tt.rows, tt.cols)
			}
		})
	}
}

func TestResolveStridedOddOrigin(t *testing.T) {
	// 8x8 image at (1, 1) on a 9x9 reference grid
	siz := testSIZ(9, 9, 9, 9)
	siz.XOsiz, siz.YOsiz = 1, 1
	layout, err := NewLayout(siz, 2)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}

	tests := []struct {
		name   string
		area   *Area
		reduce int
		stride int
	}{
		{"whole image", nil, 0, 2},
		{"odd start", &Area{Row0: 1, Col0: 1, Row1: 8, Col1: 8}, 1, 1},
		{"odd start step capped", &Area{Row0: 3, Col0: 3, Row1: 8, Col1: 8}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := layout.Resolve(Request{Tile: -1, Area: tt.area, RowStep: 2, ColStep: 2})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if plan.Reduce != tt.reduce || plan.RowStride != tt.stride || plan.ColStride != tt.stride {
				t.Errorf("reduce %d stride (%d, %d), want %d (%d, %d)",
					plan.Reduce, plan.RowStride, plan.ColStride, tt.reduce, tt.stride, tt.stride)
			}
		})
	}

	full := samples.New(8, 8, 0)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			full.Set(r, c, 0, int32(r*100+c))
		}
	}
	plan, err := layout.Resolve(Request{Tile: -1, RowStep: 2, ColStep: 2})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	decoded, err := layout.Extract(full, layout.Bounds(), plan.Reduce)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	got, err := Apply(plan, decoded)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want, _ := full.Crop(0, 0, 8, 8, 2, 2)
	if !got.Equal(want) {
		t.Errorf("strided samples = %v, want %v", got.Data, want.Data)
	}
}

func TestResolveDifferingSubsampling(t *testing.T) {
	layout, err := NewLayout(testSIZ(100, 100, 100, 100, 1, 2, 2), 3)
	if err != nil {
		t.Fatalf("NewLayout failed: %v", err)
	}
	if layout.Uniform() {
		t.Error("layout reported uniform subsampling")
	}
	if _, err := layout.Resolve(NewRequest()); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestReducedSpan(t *testing.T) {
	tests := []struct {
		lo, hi, origin, r int
		wantLo, wantHi    int
	}{
		{0, 300, 0, 0, 0, 300},
		{0, 300, 0, 3, 0, 38},
		{10, 200, 0, 2, 3, 50},
		{0, 5, 3, 1, 0, 2},
		{1, 5, 3, 1, 0, 2},
	}
	for _, tt := range tests {
		lo, hi := ReducedSpan(tt.lo, tt.hi, tt.origin, tt.r)
		if lo != tt.wantLo || hi != tt.wantHi {
			t.Errorf("ReducedSpan(%d, %d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.lo, tt.hi, tt.origin, tt.r, lo, hi, tt.wantLo, tt.wantHi)
		}
	}
}

func TestApply(t *testing.T) {
	decoded := samples.New(4, 6, 0)
	for r := 0; r < 4; r++ {
		for c := 0; c < 6; c++ {
			decoded.Set(r, c, 0, int32(r*10+c))
		}
	}

	plan := &Plan{Crop: Area{1, 0, 4, 6}, RowStride: 2, ColStride: 3}
	out, err := Apply(plan, decoded)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	want := []int32{10, 13, 30, 33}
	if out.Rows() != 2 || out.Cols() != 2 {
		t.Fatalf("shape = %dx%d, want 2x2", out.Rows(), out.Cols())
	}
	for i, v := range want {
		if out.Data[i] != v {
			t.Errorf("Data = %v, want %v", out.Data, want)
			break
		}
	}

	whole := &Plan{Crop: Area{0, 0, 4, 6}, RowStride: 1, ColStride: 1}
	if out, _ := Apply(whole, decoded); out != decoded {
		t.Error("full crop copied the samples")
	}

	tooBig := &Plan{Crop: Area{0, 0, 5, 6}, RowStride: 1, ColStride: 1}
	if _, err := Apply(tooBig, decoded); !errors.Is(err, samples.ErrShape) {
		t.Errorf("err = %v, want ErrShape", err)
	}
}
