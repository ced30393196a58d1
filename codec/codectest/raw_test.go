package codectest

import (
	"errors"
	"testing"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/jpeg2000/codestream"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
)

func encode(t *testing.T, rows, cols, comps int, cfg codec.Config) []byte {
	t.Helper()
	data, err := New().Encode(codec.EncodeParams{Image: Gradient(rows, cols, comps), Config: cfg})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestEncodeWritesCodestream(t *testing.T) {
	cfg := codec.DefaultConfig()
	cfg.TileSize = [2]int{32, 32}
	cfg.CodeBlockSize = [2]int{16, 32}
	data := encode(t, 40, 70, 3, cfg)

	cs, err := codestream.ParseBytes(data, codestream.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cs.SIZ.Xsiz != 70 || cs.SIZ.Ysiz != 40 || cs.SIZ.Csiz != 3 {
		t.Errorf("SIZ = %+v", cs.SIZ)
	}
	if cs.TileCount() != 6 || len(cs.TileParts) != 6 {
		t.Errorf("tiles = %d, tile-parts = %d", cs.TileCount(), len(cs.TileParts))
	}
	if cs.COD.CodeBlockWidth != 3 || cs.COD.CodeBlockHeight != 2 {
		t.Errorf("code-block exponents = (%d, %d), want (3, 2)", cs.COD.CodeBlockWidth, cs.COD.CodeBlockHeight)
	}
	if cs.Levels() != 5 {
		t.Errorf("Levels = %d, want 5", cs.Levels())
	}
	if len(cs.QCD.Exponents()) != 16 {
		t.Errorf("QCD entries = %d, want 16", len(cs.QCD.Exponents()))
	}
}

func TestDecodeFullImage(t *testing.T) {
	for _, comps := range []int{0, 3} {
		img := Gradient(40, 70, comps)
		cfg := codec.DefaultConfig()
		cfg.TileSize = [2]int{32, 32}
		data, err := New().Encode(codec.EncodeParams{Image: img, Config: cfg})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1})
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if !got.Equal(img) {
			t.Errorf("components=%d: decoded %s, want %s", comps, got, img)
		}
	}
}

func TestDecodeTileAndArea(t *testing.T) {
	cfg := codec.DefaultConfig()
	cfg.TileSize = [2]int{32, 32}
	data := encode(t, 40, 70, 0, cfg)

	tile, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: 5})
	if err != nil {
		t.Fatalf("Decode tile failed: %v", err)
	}
	// tile 5 is the last in the 3x2 grid: rows 32..40, cols 64..70
	if tile.Rows() != 8 || tile.Cols() != 6 {
		t.Fatalf("tile shape = %dx%d, want 8x6", tile.Rows(), tile.Cols())
	}
	if tile.At(0, 0, 0) != Value(32, 64, 0) {
		t.Errorf("tile origin = %d, want %d", tile.At(0, 0, 0), Value(32, 64, 0))
	}

	area, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1, Area: &region.Area{Row0: 32, Col0: 64, Row1: 40, Col1: 70}})
	if err != nil {
		t.Fatalf("Decode area failed: %v", err)
	}
	if !area.Equal(tile) {
		t.Errorf("area %s differs from tile %s", area, tile)
	}
}

func TestDecodeReduced(t *testing.T) {
	data := encode(t, 40, 70, 0, codec.DefaultConfig())

	got, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1, Reduce: 2})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Rows() != 10 || got.Cols() != 18 {
		t.Fatalf("shape = %dx%d, want 10x18", got.Rows(), got.Cols())
	}
	for r := 0; r < got.Rows(); r++ {
		for c := 0; c < got.Cols(); c++ {
			if got.At(r, c, 0) != Value(r*4, c*4, 0) {
				t.Fatalf("sample (%d, %d) = %d, want %d", r, c, got.At(r, c, 0), Value(r*4, c*4, 0))
			}
		}
	}

	if _, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1, Reduce: 6}); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestDecodeZeroSubsamplingFails(t *testing.T) {
	data := encode(t, 8, 8, 0, codec.DefaultConfig())
	// XRsiz of component 0: SOC(2) + SIZ marker and length(4) + 36 + Ssiz
	data[2+4+36+1] = 0

	_, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1})
	if !errors.Is(err, region.ErrInvalidGeometry) {
		t.Errorf("err = %v, want ErrInvalidGeometry", err)
	}
}

func TestEncodeRejectsBadConfig(t *testing.T) {
	cfg := codec.DefaultConfig()
	cfg.CodeBlockSize = [2]int{128, 128}
	_, err := New().Encode(codec.EncodeParams{Image: Gradient(8, 8, 0), Config: cfg})
	if !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestDecodeLayers(t *testing.T) {
	data, err := (&RawCodec{Layers: 4}).Encode(codec.EncodeParams{Image: Gradient(8, 8, 0), Config: codec.DefaultConfig()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	cs, err := codestream.ParseBytes(data, codestream.Options{HeaderOnly: true})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cs.COD.NumberOfLayers != 4 {
		t.Errorf("NumberOfLayers = %d, want 4", cs.COD.NumberOfLayers)
	}

	for _, layer := range []int{0, 4} {
		if _, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1, Layer: layer}); err != nil {
			t.Errorf("Layer %d: Decode failed: %v", layer, err)
		}
	}
	if _, err := New().Decode(codec.DecodeParams{Codestream: data, Tile: -1, Layer: 2}); !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("Layer 2: err = %v, want ErrUnsupportedFormat", err)
	}
}
