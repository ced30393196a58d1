package dicomcodec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	dcodec "github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-jp2k/codec"
	"github.com/cocosip/go-jp2k/codec/codectest"
	"github.com/cocosip/go-jp2k/jpeg2000/region"
	"github.com/cocosip/go-jp2k/samples"
)

// rawDicomCodec is a go-dicom codec that stores frames with codectest.RawCodec.
type rawDicomCodec struct {
	lastParams dcodec.Parameters
}

func (c *rawDicomCodec) Name() string { return "raw frames" }

func (c *rawDicomCodec) TransferSyntax() *transfer.Syntax { return transfer.JPEG2000Lossless }

func (c *rawDicomCodec) GetDefaultParameters() dcodec.Parameters {
	return NewParameters(codec.Config{})
}

func (c *rawDicomCodec) Encode(oldPixelData, newPixelData imagetypes.PixelData, parameters dcodec.Parameters) error {
	c.lastParams = parameters
	frame, err := oldPixelData.GetFrame(0)
	if err != nil {
		return err
	}
	img, err := unpackFrame(frame, oldPixelData.GetFrameInfo())
	if err != nil {
		return err
	}
	levels, _ := parameters.GetParameter(ParamNumLevels).(int)
	tileRows, _ := parameters.GetParameter(ParamTileHeight).(int)
	tileCols, _ := parameters.GetParameter(ParamTileWidth).(int)
	cfg := codec.Config{NumResolutions: levels + 1, TileSize: [2]int{tileRows, tileCols}}
	data, err := codectest.New().Encode(codec.EncodeParams{Image: img, Config: cfg})
	if err != nil {
		return err
	}
	return newPixelData.AddFrame(data)
}

func (c *rawDicomCodec) Decode(oldPixelData, newPixelData imagetypes.PixelData, _ dcodec.Parameters) error {
	frame, err := oldPixelData.GetFrame(0)
	if err != nil {
		return err
	}
	img, err := codectest.New().Decode(codec.DecodeParams{Codestream: frame, Tile: -1})
	if err != nil {
		return err
	}
	return newPixelData.AddFrame(packFrame(img, newPixelData.GetFrameInfo()))
}

type failingDicomCodec struct{ rawDicomCodec }

func (c *failingDicomCodec) Decode(imagetypes.PixelData, imagetypes.PixelData, dcodec.Parameters) error {
	return fmt.Errorf("corrupt frame")
}

// shortFrameDicomCodec hands back a truncated frame.
type shortFrameDicomCodec struct{ rawDicomCodec }

func (c *shortFrameDicomCodec) Decode(_, newPixelData imagetypes.PixelData, _ dcodec.Parameters) error {
	return newPixelData.AddFrame([]byte{1, 2, 3})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		comps     int
		precision int
		signed    bool
	}{
		{"8-bit grayscale", 0, 8, false},
		{"8-bit RGB", 3, 8, false},
		{"12-bit grayscale", 0, 12, false},
		{"16-bit signed", 0, 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := codectest.Gradient(24, 40, tt.comps)
			img.Precision, img.Signed = tt.precision, tt.signed
			if tt.signed {
				for i := range img.Data {
					img.Data[i] -= 128
				}
			}

			c := Wrap(&rawDicomCodec{})
			cfg := codec.DefaultConfig()
			cfg.TileSize = [2]int{16, 16}
			data, err := c.Encode(codec.EncodeParams{Image: img, Config: cfg})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: -1})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !got.Equal(img) {
				t.Errorf("decoded %s, want %s", got, img)
			}
			if got.Precision != tt.precision || got.Signed != tt.signed {
				t.Errorf("precision = %d signed = %v", got.Precision, got.Signed)
			}
		})
	}
}

func TestEncodePassesParameters(t *testing.T) {
	fake := &rawDicomCodec{}
	cfg := codec.Config{CodeBlockSize: [2]int{16, 32}, TileSize: [2]int{8, 12}, NumResolutions: 3}
	if _, err := Wrap(fake).Encode(codec.EncodeParams{Image: codectest.Gradient(16, 24, 0), Config: cfg}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := map[string]int{
		ParamNumLevels:       2,
		ParamCodeBlockWidth:  32,
		ParamCodeBlockHeight: 16,
		ParamTileWidth:       12,
		ParamTileHeight:      8,
	}
	for name, v := range want {
		if got := fake.lastParams.GetParameter(name); got != v {
			t.Errorf("%s = %v, want %d", name, got, v)
		}
	}
}

func TestDecodeTileAreaReduce(t *testing.T) {
	cfg := codec.DefaultConfig()
	cfg.TileSize = [2]int{16, 16}
	img := codectest.Gradient(24, 40, 0)
	data, err := codectest.New().Encode(codec.EncodeParams{Image: img, Config: cfg})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	c := Wrap(&rawDicomCodec{})

	tile, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: 4})
	if err != nil {
		t.Fatalf("Decode tile failed: %v", err)
	}
	want, _ := img.Crop(16, 16, 24, 32, 1, 1)
	if !tile.Equal(want) {
		t.Errorf("tile 4 = %s, want %s", tile, want)
	}

	area, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: -1, Area: &region.Area{Row0: 16, Col0: 16, Row1: 24, Col1: 32}})
	if err != nil {
		t.Fatalf("Decode area failed: %v", err)
	}
	if !area.Equal(tile) {
		t.Errorf("area %s differs from tile %s", area, tile)
	}

	reduced, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: -1, Reduce: 1})
	if err != nil {
		t.Fatalf("Decode reduced failed: %v", err)
	}
	if reduced.Rows() != 12 || reduced.Cols() != 20 || reduced.At(3, 5, 0) != codectest.Value(6, 10, 0) {
		t.Errorf("reduced = %s", reduced)
	}

	if _, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: 99}); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("tile 99 err = %v, want ErrInvalidParameter", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	data, err := codectest.New().Encode(codec.EncodeParams{Image: codectest.Gradient(8, 8, 0), Config: codec.DefaultConfig()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := Wrap(&failingDicomCodec{}).Decode(codec.DecodeParams{Codestream: data, Tile: -1}); err == nil {
		t.Error("expected the codec failure to be returned")
	}
	if _, err := Wrap(&rawDicomCodec{}).Decode(codec.DecodeParams{Codestream: []byte{0x00, 0x01}, Tile: -1}); err == nil {
		t.Error("expected an error for a non-codestream")
	}
}

func TestDecodeLayers(t *testing.T) {
	data, err := (&codectest.RawCodec{Layers: 3}).Encode(codec.EncodeParams{Image: codectest.Gradient(8, 8, 0), Config: codec.DefaultConfig()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name    string
		layer   int
		wantErr error
	}{
		{"all layers", 0, nil},
		{"every layer named", 3, nil},
		{"first layer only", 1, codec.ErrUnsupportedFormat},
		{"too many layers", 4, codec.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wrap(&rawDicomCodec{}).Decode(codec.DecodeParams{Codestream: data, Tile: -1, Layer: tt.layer})
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Decode failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameBufferAddFrame(t *testing.T) {
	info, err := frameInfo(4, 5, 3, 12, false)
	if err != nil {
		t.Fatalf("frameInfo failed: %v", err)
	}

	tests := []struct {
		name    string
		encoded bool
		size    int
		wantErr bool
	}{
		{"native frame", false, 4 * 5 * 3 * 2, false},
		{"native frame too short", false, 4*5*3*2 - 1, true},
		{"native frame too long", false, 4*5*3*2 + 2, true},
		{"empty native frame", false, 0, true},
		{"codestream", true, 17, false},
		{"empty codestream", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := newFrameBuffer(info, tt.encoded)
			err := buf.AddFrame(make([]byte, tt.size))
			if (err != nil) != tt.wantErr {
				t.Errorf("AddFrame(%d bytes) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
			want := 1
			if tt.wantErr {
				want = 0
			}
			if buf.FrameCount() != want {
				t.Errorf("FrameCount = %d, want %d", buf.FrameCount(), want)
			}
		})
	}
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	data, err := codectest.New().Encode(codec.EncodeParams{Image: codectest.Gradient(8, 8, 0), Config: codec.DefaultConfig()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := Wrap(&shortFrameDicomCodec{}).Decode(codec.DecodeParams{Codestream: data, Tile: -1}); err == nil {
		t.Error("expected a truncated frame to fail the decode")
	}
}

func TestEncodeTooLarge(t *testing.T) {
	img := samples.New(1, 70000, 0)
	_, err := Wrap(&rawDicomCodec{}).Encode(codec.EncodeParams{Image: img, Config: codec.DefaultConfig()})
	if !errors.Is(err, codec.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestNewUsesGlobalRegistry(t *testing.T) {
	ts := transfer.JPEG2000Part2MultiComponentLosslessOnly
	dcodec.GetGlobalRegistry().RegisterCodec(ts, &rawDicomCodec{})

	c := New(ts)
	if c.Name() != Name {
		t.Errorf("Name = %q, want %q", c.Name(), Name)
	}
	img := codectest.Gradient(8, 8, 0)
	data, err := c.Encode(codec.EncodeParams{Image: img, Config: codec.DefaultConfig()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := c.Decode(codec.DecodeParams{Codestream: data, Tile: -1})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Equal(img) {
		t.Errorf("decoded %s, want %s", got, img)
	}
}

func TestParameters(t *testing.T) {
	p := NewParameters(codec.DefaultConfig())
	if p.NumLevels != 5 || p.CodeBlockWidth != 64 || p.CodeBlockHeight != 64 {
		t.Errorf("defaults = %+v", p)
	}
	p.SetParameter("allowMCT", true)
	if p.GetParameter("allowMCT") != true {
		t.Error("custom parameter not stored")
	}
	p.SetParameter(ParamCodeBlockWidth, 48)
	if err := p.Validate(); !errors.Is(err, codec.ErrInvalidParameter) {
		t.Errorf("Validate err = %v, want ErrInvalidParameter", err)
	}

	dst := &Parameters{}
	p.apply(dst)
	if dst.CodeBlockWidth != 48 || dst.GetParameter("allowMCT") != true {
		t.Errorf("apply copied %+v", dst)
	}
}
