// Package codec defines the pixel codec service used to decode and encode
// JPEG 2000 codestreams. Container parsing never depends on a codec.
package codec

import (
	"fmt"

	"github.com/cocosip/go-jp2k/jpeg2000/region"
	"github.com/cocosip/go-jp2k/samples"
)

// Codec is the interface for JPEG 2000 pixel codecs
type Codec interface {
	// Name returns a human-readable name
	Name() string

	// Decode decodes a codestream into samples
	Decode(params DecodeParams) (*samples.Samples, error)

	// Encode encodes samples into a raw codestream
	Encode(params EncodeParams) ([]byte, error)
}

// DecodeParams contains parameters for decoding
type DecodeParams struct {
	Codestream []byte // Raw codestream, SOC to EOC

	// Area limits decoding to a full resolution image area. Nil decodes
	// the whole image, or the whole tile when Tile is set.
	Area *region.Area

	Reduce int // Resolution reduction, 0 for full resolution
	Tile   int // Tile index, -1 for none
	Layer  int // Number of quality layers to decode, 0 for all
}

// CheckLayers validates Layer against a codestream with n quality layers,
// for codecs that can only decode every layer.
func (p DecodeParams) CheckLayers(n int) error {
	switch {
	case p.Layer < 0 || p.Layer > n:
		return fmt.Errorf("%w: layer %d with %d quality layers", ErrInvalidParameter, p.Layer, n)
	case p.Layer != 0 && p.Layer < n:
		return fmt.Errorf("%w: decoding %d of %d quality layers", ErrUnsupportedFormat, p.Layer, n)
	}
	return nil
}

// EncodeParams contains parameters for encoding
type EncodeParams struct {
	Image  *samples.Samples
	Config Config
}

// Config holds the encoder settings exposed to writers.
type Config struct {
	// Colorspace is recorded in the container, not the codestream.
	Colorspace string

	// CodeBlockSize is (rows, cols); zero means the codec default.
	CodeBlockSize [2]int

	// TileSize is (rows, cols); zero means a single tile.
	TileSize [2]int

	// NumResolutions is decomposition levels + 1; zero means the default.
	NumResolutions int
}

// DefaultNumResolutions is used when Config.NumResolutions is zero.
const DefaultNumResolutions = 6

// DefaultConfig returns the default encoder configuration
func DefaultConfig() Config {
	return Config{
		CodeBlockSize:  [2]int{64, 64},
		NumResolutions: DefaultNumResolutions,
	}
}

// Levels returns the number of decomposition levels.
func (c Config) Levels() int {
	if c.NumResolutions == 0 {
		return DefaultNumResolutions - 1
	}
	return c.NumResolutions - 1
}

// Validate checks the configuration
func (c Config) Validate() error {
	if cb := c.CodeBlockSize; cb != [2]int{} {
		for _, v := range cb {
			if v < 4 || v > 1024 || v&(v-1) != 0 {
				return fmt.Errorf("%w: code-block size %v must be powers of two in [4, 1024]", ErrInvalidParameter, cb)
			}
		}
		if cb[0]*cb[1] > 4096 {
			return fmt.Errorf("%w: code-block size %v exceeds 4096 samples", ErrInvalidParameter, cb)
		}
	}
	if ts := c.TileSize; ts != [2]int{} && (ts[0] <= 0 || ts[1] <= 0) {
		return fmt.Errorf("%w: tile size %v", ErrInvalidParameter, ts)
	}
	if c.NumResolutions < 0 || c.NumResolutions > 33 {
		return fmt.Errorf("%w: %d resolutions", ErrInvalidParameter, c.NumResolutions)
	}
	return nil
}

// CodeBlockExponents returns the COD xcb and ycb values for the code-block
// size, defaulting to 64x64.
func (c Config) CodeBlockExponents() (xcb, ycb uint8) {
	rows, cols := c.CodeBlockSize[0], c.CodeBlockSize[1]
	if rows == 0 {
		rows, cols = 64, 64
	}
	return log2(cols) - 2, log2(rows) - 2
}

func log2(v int) uint8 {
	var n uint8
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
